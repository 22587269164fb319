// Package client is the Hubbits REST transport and local database bootstrap.
//
// # HTTPClient
//
// HTTPClient attaches "Authorization: Bearer <access>" from a TokenStore,
// tags every request with X-Request-Id and, on a 401, refreshes the token
// pair through POST /api/auth/refresh (Refresh-Token header) and re-issues
// the request exactly once. Concurrent 401s share a single refresh call; a
// failed refresh clears the session once and yields *AuthError.
//
// # Error Handling
//
// Failures are typed: *NetworkError, *AuthError, *ValidationError (4xx) and
// *ServerError (5xx). Each unwraps to a sentinel so callers can use
// errors.Is with ErrUnavailable, ErrUnauthorized, ErrValidation or ErrServer.
// Response payloads are kept verbatim.
//
// # Local storage
//
// InitDatabase opens the SQLite file and applies the embedded goose
// migrations for the session's metadata table.
package client
