// Package session holds the signed-in identity and token pair of the Hubbits
// client. The Store is the single owner of that state: the HTTP client reads
// and refreshes tokens through it, the route guard reads its Snapshot, and it
// persists itself through a Persistence so a restart resumes the session.
//
// A new Store is in StateLoading until Init resolves the saved session
// against the API.
package session
