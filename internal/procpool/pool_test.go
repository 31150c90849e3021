package procpool

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSubmitRunsJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := New(ctx, WithWorkers(2))
	defer pool.Shutdown()

	var ran bool
	var mu sync.Mutex
	if _, err := pool.Submit(ctx, func(ctx context.Context) error {
		mu.Lock()
		ran = true
		mu.Unlock()
		return nil
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case res := <-pool.Results():
		if res.Err != nil {
			t.Fatalf("unexpected job error: %v", res.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for result")
	}

	mu.Lock()
	defer mu.Unlock()
	if !ran {
		t.Fatalf("expected job to have run")
	}
}

func TestPanicRecoveredAndWorkerRestarts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := New(ctx, WithWorkers(1))
	defer pool.Shutdown()

	if _, err := pool.Submit(ctx, func(ctx context.Context) error {
		panic("boom")
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	res := <-pool.Results()
	if !errs.Of(res.Err, errs.KindInternal) {
		t.Fatalf("expected KindInternal for recovered panic, got %v", res.Err)
	}

	// the pool must still be usable after a worker panics
	if _, err := pool.Submit(ctx, func(ctx context.Context) error {
		return nil
	}); err != nil {
		t.Fatalf("Submit after panic recovery: %v", err)
	}
	res2 := <-pool.Results()
	if res2.Err != nil {
		t.Fatalf("unexpected error after restart: %v", res2.Err)
	}
}

func TestTrySubmitFailsWhenQueueFull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	block := make(chan struct{})
	pool := New(ctx, WithWorkers(1), WithQueueSize(1))
	defer func() {
		close(block)
		pool.Shutdown()
	}()

	// occupy the single worker
	if _, err := pool.Submit(ctx, func(ctx context.Context) error {
		<-block
		return nil
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// fill the one queue slot
	if _, err := pool.TrySubmit(func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("TrySubmit (fill slot): %v", err)
	}
	// third submission must be rejected
	if _, err := pool.TrySubmit(func(ctx context.Context) error { return nil }); !errs.Of(err, errs.KindCapacityExceeded) {
		t.Fatalf("expected KindCapacityExceeded, got %v", err)
	}
}

func TestOrderedDispatchPreservesSubmissionOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := New(ctx, WithWorkers(4), WithOrderedDispatch())
	defer pool.Shutdown()

	const n = 20
	for i := 0; i < n; i++ {
		i := i
		delay := time.Duration(n-i) * time.Millisecond
		if _, err := pool.Submit(ctx, func(ctx context.Context) error {
			time.Sleep(delay)
			return nil
		}); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	var lastSeq int64
	for i := 0; i < n; i++ {
		res := <-pool.Results()
		if res.Seq <= lastSeq {
			t.Fatalf("out-of-order result: got seq %d after %d", res.Seq, lastSeq)
		}
		lastSeq = res.Seq
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	pool := New(context.Background())
	pool.Shutdown()
	pool.Shutdown()
}

func TestSubmitAfterShutdownFails(t *testing.T) {
	pool := New(context.Background())
	pool.Shutdown()

	if _, err := pool.Submit(context.Background(), func(ctx context.Context) error { return nil }); err == nil {
		t.Fatalf("expected an error submitting to a shut-down pool")
	}
}

func TestManyJobsAllComplete(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := New(ctx, WithWorkers(8), WithQueueSize(500))
	defer pool.Shutdown()

	const n = 200
	for i := 0; i < n; i++ {
		if _, err := pool.Submit(ctx, func(ctx context.Context) error { return nil }); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	for i := 0; i < n; i++ {
		select {
		case <-pool.Results():
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for result %d", i)
		}
	}
}

func TestJobErrorPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := New(ctx, WithWorkers(1))
	defer pool.Shutdown()

	wantErr := fmt.Errorf("handler failed")
	if _, err := pool.Submit(ctx, func(ctx context.Context) error { return wantErr }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	res := <-pool.Results()
	if res.Err != wantErr {
		t.Fatalf("Err = %v, want %v", res.Err, wantErr)
	}
}
