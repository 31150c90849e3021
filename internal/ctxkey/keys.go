// Package ctxkey defines shared context key types used across multiple packages.
// This package should have no dependencies on other internal packages to avoid import cycles.
package ctxkey

// LoggerKey is the context key type for the enriched logger.
// Used by HTTP middleware to store and retrieve the logger with request_id/session_id fields.
type LoggerKey struct{}

// SessionIDKey is the context key type for the active MCP session ID,
// set by the HTTP transport handler and read by downstream providers that
// need to scope state to a session.
type SessionIDKey struct{}
