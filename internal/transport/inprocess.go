package transport

import (
	"context"
	"sync"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
	"github.com/airsstack-go/mcp-runtime/internal/jsonrpc"
)

// NewInProcessPair builds two connected Transports that exchange messages
// over buffered channels, with no serialization, for tests and for wiring
// a client and server together inside a single process without a real
// byte-stream transport in between.
func NewInProcessPair(bufSize int) (a, b Transport) {
	ab := make(chan jsonrpc.Message, bufSize)
	ba := make(chan jsonrpc.Message, bufSize)
	closeCh := make(chan struct{})
	var once sync.Once

	closeFn := func() error {
		once.Do(func() { close(closeCh) })
		return nil
	}

	a = &inProcessTransport{send: ab, recv: ba, closeCh: closeCh, closeFn: closeFn}
	b = &inProcessTransport{send: ba, recv: ab, closeCh: closeCh, closeFn: closeFn}
	return a, b
}

type inProcessTransport struct {
	send    chan<- jsonrpc.Message
	recv    <-chan jsonrpc.Message
	closeCh chan struct{}
	closeFn func() error
}

func (t *inProcessTransport) Send(ctx context.Context, msg jsonrpc.Message) error {
	select {
	case t.send <- msg:
		return nil
	case <-t.closeCh:
		return errs.New(errs.KindTransportClosed, "in-process transport closed")
	case <-ctx.Done():
		return errs.Wrap(errs.KindTransportTimeout, ctx.Err(), "send cancelled")
	}
}

func (t *inProcessTransport) Receive(ctx context.Context) (jsonrpc.Message, error) {
	select {
	case msg, ok := <-t.recv:
		if !ok {
			return jsonrpc.Message{}, errs.New(errs.KindTransportClosed, "in-process transport closed")
		}
		return msg, nil
	case <-t.closeCh:
		return jsonrpc.Message{}, errs.New(errs.KindTransportClosed, "in-process transport closed")
	case <-ctx.Done():
		return jsonrpc.Message{}, errs.Wrap(errs.KindTransportTimeout, ctx.Err(), "receive cancelled")
	}
}

func (t *inProcessTransport) Close() error {
	return t.closeFn()
}

var _ Transport = (*inProcessTransport)(nil)
