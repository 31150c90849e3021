package mcpclient

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is(), regardless of which
// concrete error type wraps them.
var (
	// ErrProtocol matches any *ProtocolError.
	ErrProtocol = errors.New("mcp protocol error")

	// ErrToolCallFailed matches any *ToolCallError.
	ErrToolCallFailed = errors.New("tool call failed")

	// ErrServerUnreachable matches any *ServerUnreachableError.
	ErrServerUnreachable = errors.New("server unreachable")
)

// ProtocolError is returned when the peer violates the JSON-RPC/MCP
// wire contract: a non-2xx HTTP status, an undecodable body, or a
// JSON-RPC error object returned in place of a result.
type ProtocolError struct {
	// Code is a machine-readable error code, either "HTTP_<status>",
	// "RPC_<json-rpc-code>", or "DECODE".
	Code string
	// Err is the underlying error.
	Err error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mcpclient [%s]: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("mcpclient [%s]", e.Code)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrProtocol, so errors.Is(err,
// ErrProtocol) matches any *ProtocolError.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

// ToolCallError is returned by CallTool when the server's tools/call
// result carries isError=true. It wraps the content blocks so callers
// don't need to inspect CallToolResult.IsError themselves.
type ToolCallError struct {
	// ToolName is the tool that reported the error.
	ToolName string
	// Message is the first text content block in the error result, if
	// any.
	Message string
	// Content is the full content returned alongside the error.
	Content []ContentBlock
}

func (e *ToolCallError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("tool %q reported an error: %s", e.ToolName, e.Message)
	}
	return fmt.Sprintf("tool %q reported an error", e.ToolName)
}

// Is reports whether target is ErrToolCallFailed, so errors.Is(err,
// ErrToolCallFailed) matches any *ToolCallError.
func (e *ToolCallError) Is(target error) bool {
	return target == ErrToolCallFailed
}

// ServerUnreachableError is returned when the transport cannot reach
// the server: a failed subprocess spawn, a closed stdio pipe, or an
// HTTP connection error.
type ServerUnreachableError struct {
	// Cause is the underlying error.
	Cause error
}

func (e *ServerUnreachableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("server unreachable: %v", e.Cause)
	}
	return "server unreachable"
}

func (e *ServerUnreachableError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrServerUnreachable, so errors.Is(err,
// ErrServerUnreachable) matches any *ServerUnreachableError.
func (e *ServerUnreachableError) Is(target error) bool {
	return target == ErrServerUnreachable
}
