// Package apitest is an in-process fake of the Hubbits REST API.
//
// It serves the same routes, headers and body shapes as the real backend
// and keeps everything in memory. Tests drive it through httptest, and
// cmd/mockapi runs it as a standalone server for trying the CLI. Hooks such
// as ExpireAccessTokens and FailNext let callers script token expiry and
// server failures.
package apitest
