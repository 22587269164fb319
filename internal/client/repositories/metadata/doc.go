// Package metadata is the client's durable key/value store. The session
// store keeps its tokens and cached profile here.
package metadata
