// Package correlation implements the pending-request correlation table:
// outbound JSON-RPC requests register a receiver before the request is
// written to the transport, the matching response is routed back to that
// receiver when it arrives, and any request never answered within its
// deadline is delivered a timeout error by a background sweeper.
package correlation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
	"github.com/airsstack-go/mcp-runtime/internal/jsonrpc"
)

// DefaultSweepInterval matches the teacher's session-store cleanup cadence.
const DefaultSweepInterval = 1 * time.Minute

// DefaultCapacity bounds the number of requests that may be in flight at
// once, guarding against unbounded memory growth if a peer never replies.
const DefaultCapacity = 10_000

// Outcome is delivered exactly once to the receiver channel registered for
// a request ID, either carrying the matched response or an error describing
// why no response will ever arrive.
type Outcome struct {
	Response jsonrpc.Message
	Err      error
}

type pending struct {
	ch        chan Outcome
	deadline  time.Time
	completed bool
}

// Manager is the correlation table. Zero value is not usable; use New.
type Manager struct {
	mu       sync.Mutex
	entries  map[string]*pending
	capacity int

	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once

	sweepInterval time.Duration
}

// Option configures a Manager at construction, following the teacher's
// functional-options convention.
type Option func(*Manager)

// WithCapacity overrides DefaultCapacity.
func WithCapacity(n int) Option {
	return func(m *Manager) { m.capacity = n }
}

// WithSweepInterval overrides DefaultSweepInterval.
func WithSweepInterval(d time.Duration) Option {
	return func(m *Manager) { m.sweepInterval = d }
}

// New builds a Manager. Call StartSweeper to begin expiring stale entries
// and Shutdown to stop it and release all pending receivers.
func New(opts ...Option) *Manager {
	m := &Manager{
		entries:       make(map[string]*pending),
		capacity:      DefaultCapacity,
		stopChan:      make(chan struct{}),
		sweepInterval: DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register reserves a correlation slot for id, returning a receiver channel
// that will carry exactly one Outcome: the matched response, a cancellation
// error, or a timeout error. Register fails with KindCapacityExceeded if the
// table is at capacity, and with KindAlreadyCompleted if id is already
// registered.
func (m *Manager) Register(id jsonrpc.RequestID, timeout time.Duration) (<-chan Outcome, error) {
	key := id.String()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; exists {
		return nil, errs.New(errs.KindAlreadyCompleted, "request id %q already registered", key)
	}
	if m.capacity > 0 && len(m.entries) >= m.capacity {
		return nil, errs.New(errs.KindCapacityExceeded, "correlation table at capacity (%d)", m.capacity)
	}

	p := &pending{
		ch:       make(chan Outcome, 1),
		deadline: time.Now().Add(timeout),
	}
	m.entries[key] = p
	return p.ch, nil
}

// Correlate delivers resp to the receiver registered under its ID, removing
// the entry. Returns KindNotFound if no such registration exists (the
// request already timed out, was cancelled, or never existed); this is not
// itself a fatal condition for the caller, which should simply drop the
// unsolicited response.
func (m *Manager) Correlate(resp jsonrpc.Message) error {
	id, ok := resp.ID()
	if !ok {
		return errs.New(errs.KindProtocol, "message has no id to correlate on")
	}
	key := id.String()

	m.mu.Lock()
	p, exists := m.entries[key]
	if exists {
		delete(m.entries, key)
	}
	m.mu.Unlock()

	if !exists {
		return errs.New(errs.KindNotFound, "no pending request for id %q", key)
	}
	m.complete(p, Outcome{Response: resp})
	return nil
}

// Cancel aborts a pending registration before a response arrives, delivering
// a KindCancelled error to its receiver. Returns KindNotFound if id is not
// (or no longer) registered.
func (m *Manager) Cancel(id jsonrpc.RequestID) error {
	key := id.String()

	m.mu.Lock()
	p, exists := m.entries[key]
	if exists {
		delete(m.entries, key)
	}
	m.mu.Unlock()

	if !exists {
		return errs.New(errs.KindNotFound, "no pending request for id %q", key)
	}
	m.complete(p, Outcome{Err: errs.New(errs.KindCancelled, "request %q cancelled", key)})
	return nil
}

// Pending reports the number of requests currently awaiting correlation.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// IsPending reports whether id is currently registered and awaiting
// correlation.
func (m *Manager) IsPending(id jsonrpc.RequestID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[id.String()]
	return ok
}

// GetPendingIDs returns the string form of every request id currently
// awaiting correlation. The returned order is unspecified.
func (m *Manager) GetPendingIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.entries))
	for key := range m.entries {
		ids = append(ids, key)
	}
	return ids
}

// CleanupExpired runs one idempotent sweep pass immediately, expiring any
// registration already past its deadline. StartSweeper calls this on its
// own ticker cadence; callers that want an out-of-band sweep (tests, a
// shutdown hook) can call it directly.
func (m *Manager) CleanupExpired() {
	m.sweepExpired()
}

// complete delivers an outcome exactly once. p is already removed from the
// table by the caller under lock, so this never races with a second
// delivery for the same id (property P2).
func (m *Manager) complete(p *pending, outcome Outcome) {
	if p.completed {
		return
	}
	p.completed = true
	p.ch <- outcome
	close(p.ch)
}

// StartSweeper starts the background goroutine that expires registrations
// past their deadline, delivering a KindCorrelationTimeout outcome to each.
// Grounded on the teacher's MemorySessionStore cleanup-goroutine shape.
func (m *Manager) StartSweeper(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopChan:
				return
			case <-ticker.C:
				m.sweepExpired()
			}
		}
	}()
}

func (m *Manager) sweepExpired() {
	now := time.Now()

	m.mu.Lock()
	var expired []*pending
	for key, p := range m.entries {
		if now.After(p.deadline) {
			expired = append(expired, p)
			delete(m.entries, key)
		}
	}
	m.mu.Unlock()

	if len(expired) > 0 {
		slog.Debug("correlation manager swept expired requests", "count", len(expired))
	}
	for _, p := range expired {
		m.complete(p, Outcome{Err: errs.New(errs.KindCorrelationTimeout, "request timed out waiting for response")})
	}
}

// Shutdown stops the sweeper and delivers a KindChannelClosed outcome to
// every still-pending registration, so no caller blocks forever on a
// receiver channel that will never otherwise be written to. Safe to call
// multiple times.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		close(m.stopChan)
	})
	m.wg.Wait()

	m.mu.Lock()
	remaining := make([]*pending, 0, len(m.entries))
	for key, p := range m.entries {
		remaining = append(remaining, p)
		delete(m.entries, key)
	}
	m.mu.Unlock()

	for _, p := range remaining {
		m.complete(p, Outcome{Err: errs.New(errs.KindChannelClosed, "correlation manager shut down")})
	}
}
