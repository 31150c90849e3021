// Package httpserver implements the MCP Streamable HTTP transport: session
// tracking keyed by the Mcp-Session-Id header, an SSE push channel per
// session, a connection manager with idle eviction, health checks, and the
// request handler itself. Grounded on the teacher's
// internal/adapter/inbound/http package, adapted from SentinelGate's proxy
// session semantics to MCP session semantics.
package httpserver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
)

// DefaultMaxIdleTime matches SPEC_FULL.md §4.9.7's connection manager
// detail: sessions idle longer than this are evicted by the sweeper.
const DefaultMaxIdleTime = 30 * time.Minute

// DefaultSweepInterval matches the teacher's session-store cleanup cadence.
const DefaultSweepInterval = 1 * time.Minute

// maxReplayHistory bounds how many past SSE events a session retains for
// Last-Event-ID resumption. Older events are dropped once exceeded.
const maxReplayHistory = 256

// sseMessage is one Server-Sent Event pushed to a session's SSE stream,
// carrying the monotonic id a reconnecting client echoes back via the
// Last-Event-ID header to resume where it left off.
type sseMessage struct {
	ID   int64
	Data []byte
}

// SessionContext tracks one HTTP-transport MCP session's metadata, per
// SPEC_FULL.md §4.9.7: remote address, user agent, a free-form metadata
// map, and a monotonically increasing request count.
type SessionContext struct {
	SessionID    string
	RemoteAddr   string
	UserAgent    string
	Metadata     map[string]string
	CreatedAt    time.Time
	LastAccessed time.Time
	RequestCount int64
}

func (s *SessionContext) isExpired(now time.Time, maxIdle time.Duration) bool {
	return now.Sub(s.LastAccessed) > maxIdle
}

// ConnectionManager is the session registry: it tracks SessionContext
// metadata and the SSE push channels associated with each session, and
// evicts idle sessions on a background sweeper, grounded on the teacher's
// MemorySessionStore cleanup-goroutine shape.
type ConnectionManager struct {
	mu       sync.RWMutex
	sessions map[string]*SessionContext
	channels map[string][]chan sseMessage
	history  map[string][]sseMessage
	nextID   map[string]int64

	maxIdleTime   time.Duration
	sweepInterval time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// Option configures a ConnectionManager at construction.
type Option func(*ConnectionManager)

// WithMaxIdleTime overrides DefaultMaxIdleTime.
func WithMaxIdleTime(d time.Duration) Option {
	return func(cm *ConnectionManager) { cm.maxIdleTime = d }
}

// WithSweepInterval overrides DefaultSweepInterval.
func WithSweepInterval(d time.Duration) Option {
	return func(cm *ConnectionManager) { cm.sweepInterval = d }
}

// NewConnectionManager builds a ConnectionManager. Call StartSweeper to
// begin idle eviction and Stop to release it.
func NewConnectionManager(opts ...Option) *ConnectionManager {
	cm := &ConnectionManager{
		sessions:      make(map[string]*SessionContext),
		channels:      make(map[string][]chan sseMessage),
		history:       make(map[string][]sseMessage),
		nextID:        make(map[string]int64),
		maxIdleTime:   DefaultMaxIdleTime,
		sweepInterval: DefaultSweepInterval,
		stopChan:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(cm)
	}
	return cm
}

// Create registers a new session.
func (cm *ConnectionManager) Create(sessionID, remoteAddr, userAgent string) *SessionContext {
	now := time.Now()
	sess := &SessionContext{
		SessionID:    sessionID,
		RemoteAddr:   remoteAddr,
		UserAgent:    userAgent,
		Metadata:     make(map[string]string),
		CreatedAt:    now,
		LastAccessed: now,
	}
	cm.mu.Lock()
	cm.sessions[sessionID] = sess
	cm.mu.Unlock()
	return sess
}

// Touch records activity on a session, bumping its request count and
// last-accessed time. Returns KindSession if the session is unknown.
func (cm *ConnectionManager) Touch(sessionID string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	sess, ok := cm.sessions[sessionID]
	if !ok {
		return errs.New(errs.KindSession, "unknown session %q", sessionID)
	}
	sess.LastAccessed = time.Now()
	sess.RequestCount++
	return nil
}

// Get returns a copy of a session's metadata, or KindSession if unknown.
func (cm *ConnectionManager) Get(sessionID string) (SessionContext, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	sess, ok := cm.sessions[sessionID]
	if !ok {
		return SessionContext{}, errs.New(errs.KindSession, "unknown session %q", sessionID)
	}
	return *sess, nil
}

// Count reports the number of tracked sessions.
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.sessions)
}

// RegisterChannel attaches an SSE push channel to a session.
func (cm *ConnectionManager) RegisterChannel(sessionID string, ch chan sseMessage) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.channels[sessionID] = append(cm.channels[sessionID], ch)
}

// UnregisterChannel detaches an SSE push channel from a session.
func (cm *ConnectionManager) UnregisterChannel(sessionID string, ch chan sseMessage) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	chans := cm.channels[sessionID]
	for i, c := range chans {
		if c == ch {
			cm.channels[sessionID] = append(chans[:i], chans[i+1:]...)
			break
		}
	}
	if len(cm.channels[sessionID]) == 0 {
		delete(cm.channels, sessionID)
	}
}

// Push delivers data to every SSE channel registered for sessionID,
// assigning it the session's next monotonic event id and retaining it
// in the session's replay history for Last-Event-ID resumption.
func (cm *ConnectionManager) Push(sessionID string, data []byte) {
	cm.mu.Lock()
	cm.nextID[sessionID]++
	id := cm.nextID[sessionID]
	msg := sseMessage{ID: id, Data: data}

	hist := append(cm.history[sessionID], msg)
	if len(hist) > maxReplayHistory {
		hist = hist[len(hist)-maxReplayHistory:]
	}
	cm.history[sessionID] = hist

	chans := append([]chan sseMessage(nil), cm.channels[sessionID]...)
	cm.mu.Unlock()

	for _, ch := range chans {
		select {
		case ch <- msg:
		default:
			slog.Warn("httpserver: dropping SSE push, channel full", "session_id", sessionID)
		}
	}
}

// Replay returns the buffered events for sessionID with an id greater
// than afterID, in order, for a client resuming via Last-Event-ID. It
// returns nothing beyond what maxReplayHistory retained.
func (cm *ConnectionManager) Replay(sessionID string, afterID int64) []sseMessage {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	hist := cm.history[sessionID]
	out := make([]sseMessage, 0, len(hist))
	for _, msg := range hist {
		if msg.ID > afterID {
			out = append(out, msg)
		}
	}
	return out
}

// Terminate closes all SSE channels for a session and removes its state.
// Returns false if the session was not known.
func (cm *ConnectionManager) Terminate(sessionID string) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	_, known := cm.sessions[sessionID]
	chans, hasChans := cm.channels[sessionID]
	if !known && !hasChans {
		return false
	}
	for _, ch := range chans {
		close(ch)
	}
	delete(cm.channels, sessionID)
	delete(cm.sessions, sessionID)
	delete(cm.history, sessionID)
	delete(cm.nextID, sessionID)
	return true
}

// StartSweeper starts the background idle-eviction loop.
func (cm *ConnectionManager) StartSweeper(ctx context.Context) {
	cm.wg.Add(1)
	go func() {
		defer cm.wg.Done()
		ticker := time.NewTicker(cm.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-cm.stopChan:
				return
			case <-ticker.C:
				cm.sweepIdle()
			}
		}
	}()
}

func (cm *ConnectionManager) sweepIdle() {
	now := time.Now()
	cm.mu.Lock()
	var evicted []string
	for id, sess := range cm.sessions {
		if sess.isExpired(now, cm.maxIdleTime) {
			evicted = append(evicted, id)
		}
	}
	for _, id := range evicted {
		for _, ch := range cm.channels[id] {
			close(ch)
		}
		delete(cm.channels, id)
		delete(cm.sessions, id)
		delete(cm.history, id)
		delete(cm.nextID, id)
	}
	cm.mu.Unlock()

	if len(evicted) > 0 {
		slog.Debug("httpserver: evicted idle sessions", "count", len(evicted))
	}
}

// Stop stops the sweeper and waits for it to exit. Safe to call multiple
// times.
func (cm *ConnectionManager) Stop() {
	cm.once.Do(func() {
		close(cm.stopChan)
	})
	cm.wg.Wait()
}
