// Package errs defines the error taxonomy shared by every component of the
// MCP runtime: transport, protocol, correlation, buffer, auth, and session
// failures. Each kind carries a JSON-RPC error code (where one applies) so
// the session core and HTTP layer can map failures without type-switching
// on component-specific error types.
package errs

import (
	"errors"
	"fmt"
)

// Code is a JSON-RPC 2.0 error code. Kinds with no direct JSON-RPC mapping
// (e.g. transport-level failures) are reported as CodeInternal.
type Code int64

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParse          Code = -32700
	CodeInvalidRequest Code = -32600
	CodeMethodNotFound Code = -32601
	CodeInvalidParams  Code = -32602
	CodeInternal       Code = -32603
)

// Kind identifies the component and failure category of an Error.
type Kind string

const (
	// C1 - message model
	KindParse    Kind = "parse"
	KindProtocol Kind = "protocol"

	// C3 - correlation manager
	KindCorrelationTimeout   Kind = "correlation_timeout"
	KindCancelled            Kind = "cancelled"
	KindNotFound             Kind = "not_found"
	KindAlreadyCompleted     Kind = "already_completed"
	KindChannelClosed        Kind = "channel_closed"
	KindCapacityExceeded     Kind = "capacity_exceeded"

	// C5 - buffer manager
	KindBufferOverflow Kind = "buffer_overflow"
	KindPoolTimeout    Kind = "pool_timeout"

	// C6 - transport
	KindTransportIO      Kind = "transport_io"
	KindTransportClosed  Kind = "transport_closed"
	KindTransportTimeout Kind = "transport_timeout"

	// C7 - session / capability routing
	KindUnsupportedCapability Kind = "unsupported_capability"
	KindResourceNotFound      Kind = "resource_not_found"
	KindToolNotFound          Kind = "tool_not_found"
	KindPromptNotFound        Kind = "prompt_not_found"
	KindIntegration           Kind = "integration"
	KindInternal              Kind = "internal"

	// C9 - HTTP session path
	KindSession Kind = "session_error"

	// C10 - OAuth2 validator
	KindTokenValidation  Kind = "token_validation"
	KindTokenExpired     Kind = "token_expired"
	KindInvalidAudience  Kind = "invalid_audience"
	KindInvalidIssuer    Kind = "invalid_issuer"
	KindJwksError         Kind = "jwks_error"
	KindInsufficientScope Kind = "insufficient_scope"

	// C12 - path/input validation
	KindInvalidInput Kind = "invalid_input"
	KindPathDenied   Kind = "path_denied"
)

// codeForKind maps a Kind to its JSON-RPC code per spec section 4.7.5 and 7.
// Kinds absent from this map (transport, correlation, buffer, session, and
// token-validation kinds) fall back to CodeInternal in JSONRPCCode.
var codeForKind = map[Kind]Code{
	KindParse:                 CodeParse,
	KindProtocol:               CodeInvalidRequest,
	KindUnsupportedCapability:  CodeMethodNotFound,
	KindResourceNotFound:       CodeInvalidParams,
	KindToolNotFound:           CodeInvalidParams,
	KindPromptNotFound:         CodeInvalidParams,
	KindIntegration:            CodeInternal,
	KindInternal:               CodeInternal,
	KindInvalidInput:           CodeInvalidParams,
	KindPathDenied:             CodeInvalidParams,
	KindInsufficientScope:      CodeInvalidRequest,
}

// Error is the structured error type returned by every component in this
// module. It implements error, Unwrap, and Is, following the same shape as
// the teacher SDK's SentinelGateError: a machine-readable Kind plus an
// optionally wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New creates an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind wrapping an existing error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Kind. The messages
// and wrapped causes are not compared.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return te.Kind == e.Kind
	}
	return false
}

// JSONRPCCode returns the JSON-RPC error code this Kind maps to per
// spec section 4.7.5. Kinds without a direct mapping return CodeInternal.
func (e *Error) JSONRPCCode() Code {
	if code, ok := codeForKind[e.Kind]; ok {
		return code
	}
	return CodeInternal
}

// Of reports whether err is an *Error of the given kind.
func Of(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
