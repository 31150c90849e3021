package buffer

import (
	"context"
	"testing"
	"time"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
	"github.com/airsstack-go/mcp-runtime/internal/jsonrpc"
)

func TestPoolAcquireReleaseRoundTrip(t *testing.T) {
	p := NewPool(2)
	buf, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected freshly acquired buffer to be empty, got len %d", buf.Len())
	}
	buf.WriteString("hello")
	p.Release(buf)

	if p.InFlight() != 0 {
		t.Fatalf("expected 0 in flight after release, got %d", p.InFlight())
	}
}

func TestPoolAcquireBlocksUntilCapacityFrees(t *testing.T) {
	p := NewPool(1)
	buf1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire 1: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := p.Acquire(ctx); !errs.Of(err, errs.KindPoolTimeout) {
		t.Fatalf("expected KindPoolTimeout while pool saturated, got %v", err)
	}

	p.Release(buf1)

	buf2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	p.Release(buf2)
}

func TestStreamingBufferExtractsCompleteFrames(t *testing.T) {
	sb := NewStreamingBuffer(0)
	frame1, _ := jsonrpc.EncodeFramed(jsonrpc.NewNotification("a", nil))
	frame2, _ := jsonrpc.EncodeFramed(jsonrpc.NewNotification("b", nil))
	partial := []byte(`{"jsonrpc":"2.0","method":"inc`)

	if err := sb.Feed(frame1); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if err := sb.Feed(append(frame2, partial...)); err != nil {
		t.Fatalf("Feed: %v", err)
	}

	msgs, err := sb.Extract()
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	m0, _ := msgs[0].Method()
	m1, _ := msgs[1].Method()
	if m0 != "a" || m1 != "b" {
		t.Errorf("unexpected method order: %q, %q", m0, m1)
	}
	if sb.Len() != len(partial) {
		t.Errorf("expected %d unconsumed bytes, got %d", len(partial), sb.Len())
	}
}

func TestStreamingBufferRejectsOversizedFrame(t *testing.T) {
	sb := NewStreamingBuffer(8)
	if err := sb.Feed(make([]byte, 9)); !errs.Of(err, errs.KindBufferOverflow) {
		t.Fatalf("expected KindBufferOverflow, got %v", err)
	}
}

func TestStreamingBufferCompactsAfterExtract(t *testing.T) {
	sb := NewStreamingBuffer(0)
	frame, _ := jsonrpc.EncodeFramed(jsonrpc.NewNotification("a", nil))
	if err := sb.Feed(frame); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if _, err := sb.Extract(); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if sb.Len() != 0 {
		t.Fatalf("expected buffer fully compacted, got len %d", sb.Len())
	}
}
