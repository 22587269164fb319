// Package services binds the Hubbits REST endpoints to typed Go calls.
//
// Resource implements listsync.Remote for each entity from an Endpoints
// table. AuthService covers login, signup, availability checks, profile
// updates and password changes, and keeps the session store in step.
// VolunteerService and SponsorService hold the few calls that are not plain
// collection operations.
package services
