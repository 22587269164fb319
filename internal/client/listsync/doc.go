// Package listsync keeps a client-side copy of a server collection.
//
// A List shows creates immediately under a provisional UUID key and swaps
// in the server's record when it is confirmed. Updates and deletes address
// rows only by server identifier. Loads that race with mutations are
// reconciled through a short journal of confirmed changes, so a load that
// started before a create finished never hides the created row.
package listsync
