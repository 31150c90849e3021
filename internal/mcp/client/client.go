// Package client implements the MCP client-side session state machine:
// NotInitialized -> Initializing -> Ready -> Closed | Failed. It owns a
// Transport and a correlation.Manager, sending requests and routing their
// responses back to the caller that issued them.
package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/airsstack-go/mcp-runtime/internal/correlation"
	"github.com/airsstack-go/mcp-runtime/internal/errs"
	"github.com/airsstack-go/mcp-runtime/internal/jsonrpc"
	"github.com/airsstack-go/mcp-runtime/internal/mcp/capability"
	"github.com/airsstack-go/mcp-runtime/internal/transport"
)

// State is the client-side session lifecycle, per spec.md §3/§4.7.
type State uint8

const (
	StateNotInitialized State = iota
	StateInitializing
	StateReady
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotInitialized:
		return "not_initialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DefaultRequestTimeout bounds how long Call waits for a correlated
// response before the correlation manager's sweeper delivers a timeout.
const DefaultRequestTimeout = 30 * time.Second

// Info identifies this client in the initialize handshake.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Client drives one MCP session over a Transport as the initiating peer.
type Client struct {
	tr   transport.Transport
	corr *correlation.Manager
	info Info

	mu              sync.Mutex
	state           State
	serverInfo      json.RawMessage
	protocolVersion string

	requestTimeout time.Duration
	corrOpts       []correlation.Option

	started  bool
	readWG   sync.WaitGroup
	readDone chan struct{}
}

// Option configures a Client at construction.
type Option func(*Client)

// WithInfo overrides the client identity sent during initialize.
func WithInfo(info Info) Option {
	return func(c *Client) { c.info = info }
}

// WithRequestTimeout overrides DefaultRequestTimeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.requestTimeout = d }
}

// WithCorrelationOptions passes options through to the underlying
// correlation.Manager, so embedding applications can size its capacity
// and sweep interval from their own configuration rather than accepting
// the package defaults.
func WithCorrelationOptions(opts ...correlation.Option) Option {
	return func(c *Client) { c.corrOpts = append(c.corrOpts, opts...) }
}

// New builds a Client over tr. Call Start to begin the handshake.
func New(tr transport.Transport, opts ...Option) *Client {
	c := &Client{
		tr:             tr,
		info:           Info{Name: "mcp-runtime-client", Version: "0.1.0"},
		state:          StateNotInitialized,
		requestTimeout: DefaultRequestTimeout,
		readDone:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.corr = correlation.New(c.corrOpts...)
	return c
}

// State reports the client's current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins the background read loop and performs the initialize
// handshake, blocking until the server responds or ctx is done.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()

	sweepCtx, cancel := context.WithCancel(context.Background())
	c.corr.StartSweeper(sweepCtx)

	c.readWG.Add(1)
	go func() {
		defer c.readWG.Done()
		defer cancel()
		defer close(c.readDone)
		c.readLoop(ctx)
	}()

	return c.initialize(ctx)
}

func (c *Client) readLoop(ctx context.Context) {
	for {
		msg, err := c.tr.Receive(ctx)
		if err != nil {
			if errs.Of(err, errs.KindTransportClosed) {
				c.setState(StateClosed)
			} else {
				c.setState(StateFailed)
			}
			return
		}
		if msg.IsResponse() {
			if err := c.corr.Correlate(msg); err != nil {
				continue // unsolicited or already-timed-out response; drop it
			}
			continue
		}
		// Server-initiated requests/notifications (sampling, roots,
		// logging/message) are out of this package's scope; a future
		// handler hook would dispatch them here.
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

type initializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
	ClientInfo      Info   `json:"clientInfo"`
}

type initializeResult struct {
	ProtocolVersion string                  `json:"protocolVersion"`
	Capabilities    capability.Capabilities `json:"capabilities"`
	ServerInfo      json.RawMessage         `json:"serverInfo"`
}

func (c *Client) initialize(ctx context.Context) error {
	c.setState(StateInitializing)

	params := initializeParams{ProtocolVersion: ProtocolVersionDefault, ClientInfo: c.info}
	raw, err := c.call(ctx, "initialize", jsonrpc.MustMarshalParams(params))
	if err != nil {
		c.setState(StateFailed)
		return err
	}

	var result initializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		c.setState(StateFailed)
		return errs.Wrap(errs.KindProtocol, err, "decode initialize result")
	}

	c.mu.Lock()
	c.protocolVersion = result.ProtocolVersion
	c.serverInfo = result.ServerInfo
	c.mu.Unlock()

	if err := c.tr.Send(ctx, jsonrpc.NewNotification("notifications/initialized", nil)); err != nil {
		c.setState(StateFailed)
		return errs.Wrap(errs.KindTransportIO, err, "send notifications/initialized")
	}

	c.setState(StateReady)
	return nil
}

// ProtocolVersionDefault is the version this client proposes during
// initialize, matching the server package's default.
const ProtocolVersionDefault = "2025-06-18"

// Call issues a request and blocks for its correlated response, returning
// the raw result payload. Returns the server's ErrorObject wrapped as an
// error if the response carries one.
func (c *Client) call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	id := jsonrpc.NewGeneratedID()
	ch, err := c.corr.Register(id, c.requestTimeout)
	if err != nil {
		return nil, err
	}

	req := jsonrpc.NewRequest(id, method, params)
	if err := c.tr.Send(ctx, req); err != nil {
		_ = c.corr.Cancel(id)
		return nil, errs.Wrap(errs.KindTransportIO, err, "send request")
	}

	select {
	case outcome := <-ch:
		if outcome.Err != nil {
			return nil, outcome.Err
		}
		if outcome.Response.IsError() {
			return nil, outcome.Response.Err()
		}
		result, _ := outcome.Response.Result()
		return result, nil
	case <-ctx.Done():
		_ = c.corr.Cancel(id)
		return nil, errs.Wrap(errs.KindCorrelationTimeout, ctx.Err(), "call cancelled")
	}
}

// Call issues an arbitrary MCP request once the session is ready.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if c.State() != StateReady {
		return nil, errs.New(errs.KindProtocol, "client is not ready (state=%v)", c.State())
	}
	return c.call(ctx, method, jsonrpc.MustMarshalParams(params))
}

// ListTools calls tools/list and decodes the result.
func (c *Client) ListTools(ctx context.Context, cursor string) ([]capability.Tool, string, error) {
	raw, err := c.Call(ctx, "tools/list", map[string]string{"cursor": cursor})
	if err != nil {
		return nil, "", err
	}
	var result struct {
		Tools      []capability.Tool `json:"tools"`
		NextCursor string            `json:"nextCursor,omitempty"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, "", errs.Wrap(errs.KindProtocol, err, "decode tools/list result")
	}
	return result.Tools, result.NextCursor, nil
}

// CallTool calls tools/call and decodes the result.
func (c *Client) CallTool(ctx context.Context, name string, arguments json.RawMessage) (capability.CallToolResponse, error) {
	raw, err := c.Call(ctx, "tools/call", map[string]any{"name": name, "arguments": json.RawMessage(arguments)})
	if err != nil {
		return capability.CallToolResponse{}, err
	}
	var result capability.CallToolResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return capability.CallToolResponse{}, errs.Wrap(errs.KindProtocol, err, "decode tools/call result")
	}
	return result, nil
}

// Close shuts down the correlation manager and closes the transport,
// waiting for the read loop to finish. Safe to call multiple times.
func (c *Client) Close() error {
	err := c.tr.Close()

	c.mu.Lock()
	started := c.started
	c.mu.Unlock()

	if started {
		<-c.readDone
		c.readWG.Wait()
	}
	c.corr.Shutdown()
	c.setState(StateClosed)
	return err
}
