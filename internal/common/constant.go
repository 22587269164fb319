// Package common contains shared constants and helpers used across the
// Hubbits client, the CLI and the fake API server.
package common

// Header names of the Hubbits REST API.
const (
	// AuthorizationHeaderName carries "Bearer <access token>".
	AuthorizationHeaderName = "Authorization"

	// RefreshTokenHeaderName carries the refresh token on POST /api/auth/refresh.
	RefreshTokenHeaderName = "Refresh-Token"

	// NewAccessTokenHeaderName is set by the refresh endpoint on success.
	NewAccessTokenHeaderName = "New-Access-Token"

	// NewRefreshTokenHeaderName is set when the server rotates the refresh token.
	NewRefreshTokenHeaderName = "New-Refresh-Token"

	// RequestIDHeaderName tags every outbound request for tracing.
	RequestIDHeaderName = "X-Request-Id"

	// BearerPrefix precedes the access token in the Authorization header.
	BearerPrefix = "Bearer "
)
