package transport

import (
	"context"
	"sync"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
	"github.com/airsstack-go/mcp-runtime/internal/jsonrpc"
)

// EventAdapter bridges a legacy blocking Transport into the EventTransport
// surface by running the Transport's Receive loop on a background
// goroutine and dispatching each message to a MessageHandler, guarding
// writes with a mutex since the legacy Transport has no concurrency
// guarantees of its own. This lets session code written against
// EventTransport run unmodified over stdio or any other legacy Transport.
type EventAdapter struct {
	inner     Transport
	sessionID string

	mu        sync.Mutex
	closeOnce sync.Once
	wg        sync.WaitGroup
	cancel    context.CancelFunc
}

// NewEventAdapter wraps inner, a legacy Transport, reporting sessionID in
// the MessageContext of every dispatched callback.
func NewEventAdapter(inner Transport, sessionID string) *EventAdapter {
	return &EventAdapter{inner: inner, sessionID: sessionID}
}

// Start launches the background read loop. It returns immediately; the
// loop runs until ctx is cancelled, Close is called, or inner.Receive
// returns a fatal error.
func (a *EventAdapter) Start(ctx context.Context, handler MessageHandler) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	msgCtx := MessageContext{SessionID: a.sessionID}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer handler.OnClose(runCtx, msgCtx)

		for {
			msg, err := a.inner.Receive(runCtx)
			if err != nil {
				if classifyIsFatal(err) || runCtx.Err() != nil {
					return
				}
				handler.OnError(runCtx, msgCtx, err)
				continue
			}
			handler.OnMessage(runCtx, msgCtx, msg)
		}
	}()
	return nil
}

// classifyIsFatal reports whether err should end the read loop rather than
// be reported via OnError and retried. Transport-closed and timeout errors
// are fatal; anything else (a single malformed frame, say) is not.
func classifyIsFatal(err error) bool {
	return errs.Of(err, errs.KindTransportClosed) || errs.Of(err, errs.KindTransportTimeout)
}

// Send forwards a message to the wrapped Transport. sessionID is accepted
// for EventTransport interface compatibility but ignored, since a legacy
// Transport has exactly one peer.
func (a *EventAdapter) Send(ctx context.Context, sessionID string, msg jsonrpc.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inner.Send(ctx, msg)
}

// Close stops the read loop and closes the wrapped Transport. Safe to call
// multiple times.
func (a *EventAdapter) Close() error {
	var err error
	a.closeOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		err = a.inner.Close()
		a.wg.Wait()
	})
	return err
}

var _ EventTransport = (*EventAdapter)(nil)
