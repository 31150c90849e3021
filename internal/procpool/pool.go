// Package procpool implements the bounded worker pool that dispatches
// inbound JSON-RPC messages to handler functions: a fixed number of
// workers drain a FIFO job queue, optionally preserving submission order
// in their output, applying backpressure when the queue is full, and
// recovering a worker that panics instead of losing the whole pool.
package procpool

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
)

// Job is a unit of work submitted to the pool. Run receives the pool's
// context, which is cancelled on Shutdown.
type Job struct {
	// Seq is the submission sequence number, used to restore order when
	// OrderedDispatch is enabled.
	Seq int64
	Run func(ctx context.Context) error
}

// Result pairs a submitted Job's sequence number with its outcome.
type Result struct {
	Seq int64
	Err error
}

const (
	// DefaultWorkers matches a small, predictable worker count rather than
	// scaling off GOMAXPROCS, so pool behavior is deterministic in tests.
	DefaultWorkers = 4
	// DefaultQueueSize bounds backpressure before Submit blocks or errors.
	DefaultQueueSize = 256
)

// Pool is the bounded worker pool. Zero value is not usable; use New.
type Pool struct {
	workers   int
	ordered   bool
	queue     chan Job
	results   chan Result
	ordOut    <-chan Result
	nextSeq   int64
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	closeOnce  sync.Once
	closed     atomic.Bool
	shutdownMu sync.RWMutex
}

// Option configures a Pool at construction.
type Option func(*Pool)

// WithWorkers overrides DefaultWorkers.
func WithWorkers(n int) Option {
	return func(p *Pool) { p.workers = n }
}

// WithQueueSize overrides DefaultQueueSize.
func WithQueueSize(n int) Option {
	return func(p *Pool) { p.queue = make(chan Job, n) }
}

// WithOrderedDispatch causes Results() to emit results in submission order,
// buffering out-of-order completions until their turn. Off by default,
// since most MCP dispatch has no ordering requirement across distinct
// request IDs.
func WithOrderedDispatch() Option {
	return func(p *Pool) { p.ordered = true }
}

// New builds a Pool and starts its workers, rooted at ctx. Cancelling ctx
// or calling Shutdown stops all workers.
func New(ctx context.Context, opts ...Option) *Pool {
	p := &Pool{
		workers: DefaultWorkers,
		queue:   make(chan Job, DefaultQueueSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.results = make(chan Result, cap(p.queue))
	if p.ordered {
		p.ordOut = p.orderedResults()
	}

	for i := 0; i < p.workers; i++ {
		p.startWorker(i)
	}
	return p
}

// startWorker launches a single worker goroutine. If the worker's Run
// function panics, the panic is recovered, reported as an internal error
// result, and the worker is restarted rather than letting the panic take
// down the whole pool.
func (p *Pool) startWorker(id int) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-p.ctx.Done():
				return
			case job, ok := <-p.queue:
				if !ok {
					return
				}
				p.runJob(id, job)
			}
		}
	}()
}

func (p *Pool) runJob(workerID int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("procpool: worker recovered from panic", "worker", workerID, "seq", job.Seq, "panic", r)
			p.deliver(Result{Seq: job.Seq, Err: errs.New(errs.KindInternal, "worker panicked: %v", r)})
			p.startWorker(workerID)
		}
	}()
	err := job.Run(p.ctx)
	p.deliver(Result{Seq: job.Seq, Err: err})
}

func (p *Pool) deliver(res Result) {
	select {
	case p.results <- res:
	case <-p.ctx.Done():
	}
}

// Submit enqueues fn for execution and returns its assigned sequence
// number. Submit blocks if the queue is full (backpressure) until a slot
// frees up or ctx is done, in which case it returns a KindCapacityExceeded
// error.
func (p *Pool) Submit(ctx context.Context, fn func(ctx context.Context) error) (int64, error) {
	p.shutdownMu.RLock()
	defer p.shutdownMu.RUnlock()
	if p.closed.Load() {
		return 0, errs.New(errs.KindCapacityExceeded, "pool is shut down")
	}
	seq := atomic.AddInt64(&p.nextSeq, 1)
	job := Job{Seq: seq, Run: fn}

	select {
	case p.queue <- job:
		return seq, nil
	case <-ctx.Done():
		return 0, errs.Wrap(errs.KindCapacityExceeded, ctx.Err(), "submit cancelled while queue full")
	case <-p.ctx.Done():
		return 0, errs.New(errs.KindCapacityExceeded, "pool is shutting down")
	}
}

// TrySubmit is the non-blocking variant of Submit: it returns immediately
// with a KindCapacityExceeded error if the queue has no free slot.
func (p *Pool) TrySubmit(fn func(ctx context.Context) error) (int64, error) {
	p.shutdownMu.RLock()
	defer p.shutdownMu.RUnlock()
	if p.closed.Load() {
		return 0, errs.New(errs.KindCapacityExceeded, "pool is shut down")
	}
	seq := atomic.AddInt64(&p.nextSeq, 1)
	job := Job{Seq: seq, Run: fn}
	select {
	case p.queue <- job:
		return seq, nil
	default:
		return 0, errs.New(errs.KindCapacityExceeded, "job queue full")
	}
}

// Results returns the channel of completed job outcomes. If
// WithOrderedDispatch was set, results are emitted in submission order;
// otherwise they're emitted as workers complete them.
func (p *Pool) Results() <-chan Result {
	if !p.ordered {
		return p.results
	}
	return p.ordOut
}

// orderedResults wraps the raw results channel with a reordering buffer
// keyed by sequence number, emitting strictly increasing Seq values.
func (p *Pool) orderedResults() <-chan Result {
	out := make(chan Result, cap(p.results))
	go func() {
		defer close(out)
		pending := make(map[int64]Result)
		var next int64 = 1
		for res := range p.results {
			pending[res.Seq] = res
			for {
				r, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				select {
				case out <- r:
				case <-p.ctx.Done():
					return
				}
				next++
			}
		}
	}()
	return out
}

// Shutdown cancels the pool's context, stops accepting new work, waits for
// all in-flight jobs to finish, and closes the results channel. Safe to
// call multiple times.
func (p *Pool) Shutdown() {
	p.closeOnce.Do(func() {
		p.shutdownMu.Lock()
		p.closed.Store(true)
		p.shutdownMu.Unlock()

		p.cancel()
		close(p.queue)
		p.wg.Wait()
		close(p.results)
	})
}
