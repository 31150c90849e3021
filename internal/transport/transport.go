// Package transport defines the duplex transport abstraction MCP sessions
// run over, plus stdio and in-process implementations. Two surfaces are
// specified: a legacy blocking duplex (Send/Receive/Close) matching how a
// subprocess pipe naturally behaves, and an event-driven surface
// (Start/Close/Send with a MessageHandler callback) matching how an HTTP
// server naturally behaves. EventAdapter bridges a legacy Transport into
// the event-driven surface so session code only has to be written once.
package transport

import (
	"context"

	"github.com/airsstack-go/mcp-runtime/internal/jsonrpc"
)

// MessageContext carries metadata about where a message arrived from,
// independent of which Transport implementation produced it.
type MessageContext struct {
	// SessionID identifies the logical MCP session this message belongs
	// to (the HTTP Mcp-Session-Id, or a fixed value for single-peer
	// transports like stdio).
	SessionID string
	// RemoteAddr is the best-effort peer address, empty when not
	// applicable (stdio, in-process).
	RemoteAddr string
}

// Transport is the legacy blocking duplex surface: a single goroutine owns
// the connection and calls Receive in a loop.
type Transport interface {
	// Send writes a single message to the peer, blocking until the write
	// completes or ctx is done.
	Send(ctx context.Context, msg jsonrpc.Message) error
	// Receive blocks until a message arrives, the transport closes, or ctx
	// is done.
	Receive(ctx context.Context) (jsonrpc.Message, error)
	// Close releases any resources held by the transport. Safe to call
	// multiple times.
	Close() error
}

// MessageHandler receives callbacks from an event-driven Transport. All
// methods may be called concurrently from different sessions and must be
// safe for that.
type MessageHandler interface {
	// OnMessage is invoked for every inbound message.
	OnMessage(ctx context.Context, msgCtx MessageContext, msg jsonrpc.Message)
	// OnError is invoked when the transport encounters a non-fatal
	// read/decode error; the transport continues running afterward.
	OnError(ctx context.Context, msgCtx MessageContext, err error)
	// OnClose is invoked once when the transport's connection for this
	// context ends, whether gracefully or due to an error.
	OnClose(ctx context.Context, msgCtx MessageContext)
}

// EventTransport is the event-driven surface: the transport owns its own
// read loop(s) and pushes callbacks to a MessageHandler instead of being
// polled.
type EventTransport interface {
	// Start begins accepting/reading and dispatching to handler. Start
	// returns once the transport has begun running; it does not block for
	// the transport's lifetime.
	Start(ctx context.Context, handler MessageHandler) error
	// Send writes a message to the given session.
	Send(ctx context.Context, sessionID string, msg jsonrpc.Message) error
	// Close stops the transport and releases its resources.
	Close() error
}
