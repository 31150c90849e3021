// Package buffer provides pooled read/write buffers and a delimiter-framed
// streaming buffer for transports that receive bytes in arbitrary chunks
// (stdio, HTTP request bodies). Pooling avoids reallocating a fresh buffer
// per message; the backpressure semaphore bounds how many buffers may be
// checked out at once so a slow consumer can't let memory grow unbounded.
package buffer

import (
	"bytes"
	"context"
	"sync"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
	"github.com/airsstack-go/mcp-runtime/internal/jsonrpc"
)

const (
	// DefaultBufferSize is the initial capacity of a pooled buffer.
	DefaultBufferSize = 4096
	// DefaultMaxInFlight bounds how many buffers can be checked out of a
	// Pool concurrently before Acquire blocks.
	DefaultMaxInFlight = 256
	// DefaultMaxFrameSize rejects any single message larger than this,
	// guarding the streaming buffer against unbounded growth from a
	// malformed or hostile peer that never sends a delimiter.
	DefaultMaxFrameSize = 10 << 20 // 10 MiB
)

// Pool hands out *bytes.Buffer values backed by a sync.Pool, gated by a
// semaphore that caps the number of buffers in flight (property P11:
// bounded memory under backpressure).
type Pool struct {
	pool     sync.Pool
	sem      chan struct{}
	inFlight int64
	mu       sync.Mutex
}

// NewPool builds a Pool. maxInFlight <= 0 uses DefaultMaxInFlight.
func NewPool(maxInFlight int) *Pool {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	p := &Pool{
		sem: make(chan struct{}, maxInFlight),
	}
	p.pool.New = func() any {
		buf := make([]byte, 0, DefaultBufferSize)
		return bytes.NewBuffer(buf)
	}
	return p
}

// Acquire checks out a buffer, blocking until one of the in-flight slots
// frees up or ctx is done. The returned buffer is reset and ready to use.
func (p *Pool) Acquire(ctx context.Context) (*bytes.Buffer, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, errs.Wrap(errs.KindPoolTimeout, ctx.Err(), "acquire buffer from pool")
	}
	p.mu.Lock()
	p.inFlight++
	p.mu.Unlock()

	buf := p.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf, nil
}

// Release returns buf to the pool and frees its in-flight slot. Callers
// must not use buf after calling Release.
func (p *Pool) Release(buf *bytes.Buffer) {
	p.pool.Put(buf)
	p.mu.Lock()
	p.inFlight--
	p.mu.Unlock()
	<-p.sem
}

// InFlight reports how many buffers are currently checked out.
func (p *Pool) InFlight() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// StreamingBuffer accumulates bytes from a chunked source (a socket or
// pipe read loop) and extracts complete, delimiter-framed JSON-RPC
// messages as they become available, compacting consumed bytes out of its
// internal storage so it doesn't grow unbounded across many small reads.
type StreamingBuffer struct {
	buf          bytes.Buffer
	maxFrameSize int
}

// NewStreamingBuffer builds a StreamingBuffer. maxFrameSize <= 0 uses
// DefaultMaxFrameSize.
func NewStreamingBuffer(maxFrameSize int) *StreamingBuffer {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &StreamingBuffer{maxFrameSize: maxFrameSize}
}

// Feed appends newly read bytes to the internal buffer.
func (s *StreamingBuffer) Feed(chunk []byte) error {
	if s.buf.Len()+len(chunk) > s.maxFrameSize {
		return errs.New(errs.KindBufferOverflow, "streaming buffer exceeds max frame size %d", s.maxFrameSize)
	}
	s.buf.Write(chunk)
	return nil
}

// Extract pulls every complete frame currently available, decodes each to
// a Message, and compacts the buffer down to just the unconsumed tail.
func (s *StreamingBuffer) Extract() ([]jsonrpc.Message, error) {
	frames, remainder := jsonrpc.SplitFrames(s.buf.Bytes())
	if len(frames) == 0 {
		return nil, nil
	}

	msgs := make([]jsonrpc.Message, 0, len(frames))
	for _, frame := range frames {
		msg, err := jsonrpc.Decode(frame)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}

	s.compact(remainder)
	return msgs, nil
}

// compact replaces the internal buffer's contents with remainder, reusing
// the existing backing array when it's large enough instead of allocating.
func (s *StreamingBuffer) compact(remainder []byte) {
	s.buf.Reset()
	s.buf.Write(remainder)
}

// Len reports the number of unconsumed bytes currently buffered.
func (s *StreamingBuffer) Len() int {
	return s.buf.Len()
}
