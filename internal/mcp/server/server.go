// Package server implements the MCP server-side session state machine:
// method routing, capability negotiation, and provider dispatch. Package
// client implements the mirror state machine for the initiating side.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
	"github.com/airsstack-go/mcp-runtime/internal/jsonrpc"
	"github.com/airsstack-go/mcp-runtime/internal/mcp/capability"
)

// ProtocolVersion is the MCP wire protocol version this server negotiates
// by default. Grounded on the original_source's airs-mcp, which hardcodes
// a single fixed version; here it's the default rather than a constant so
// embedding applications can override it via WithProtocolVersion.
const ProtocolVersion = "2025-06-18"

// State is the server-side session lifecycle, per spec.md §3/§4.7.
type State uint8

const (
	StateNotInitialized State = iota
	StateInitializing
	StateReady
	StateClosed
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
	default:
		return "unknown"
	}
}

// Info is the server identity returned verbatim in the initialize
// response, per SPEC_FULL.md §4.7.6.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Option configures a Server at construction.
type Option func(*Server)

// WithInfo overrides the default ServerInfo.
func WithInfo(info Info) Option {
	return func(s *Server) { s.info = info }
}

// WithProtocolVersion overrides ProtocolVersion.
func WithProtocolVersion(v string) Option {
	return func(s *Server) { s.protocolVersion = v }
}

// WithResourceProvider registers a ResourceProvider and advertises the
// resources capability. If p also implements capability.ResourceSubscriber,
// the advertisement's subscribe sub-field is set as well.
func WithResourceProvider(p capability.ResourceProvider) Option {
	return func(s *Server) {
		s.resources = p
		flag := &capability.CapabilityFlag{}
		if _, ok := p.(capability.ResourceSubscriber); ok {
			flag.Subscribe = true
		}
		s.caps.Resources = flag
	}
}

// WithToolProvider registers a ToolProvider and advertises the tools
// capability.
func WithToolProvider(p capability.ToolProvider) Option {
	return func(s *Server) { s.tools = p; s.caps.Tools = &capability.CapabilityFlag{} }
}

// WithPromptProvider registers a PromptProvider and advertises the prompts
// capability.
func WithPromptProvider(p capability.PromptProvider) Option {
	return func(s *Server) { s.prompts = p; s.caps.Prompts = &capability.CapabilityFlag{} }
}

// WithLoggingHandler registers a LoggingHandler and advertises the
// logging capability.
func WithLoggingHandler(h capability.LoggingHandler) Option {
	return func(s *Server) { s.logging = h; s.caps.Logging = &capability.CapabilityFlag{} }
}

// Server holds one MCP session's server-side state machine.
type Server struct {
	mu    sync.Mutex
	state State

	info            Info
	protocolVersion string
	caps            capability.Capabilities

	resources capability.ResourceProvider
	tools     capability.ToolProvider
	prompts   capability.PromptProvider
	logging   capability.LoggingHandler
}

// New builds a Server in StateNotInitialized.
func New(opts ...Option) *Server {
	s := &Server{
		info:            Info{Name: "mcp-runtime", Version: "0.1.0"},
		protocolVersion: ProtocolVersion,
		state:           StateNotInitialized,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the server's current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

type initializeParams struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Capabilities    json.RawMessage `json:"capabilities,omitempty"`
	ClientInfo      json.RawMessage `json:"clientInfo,omitempty"`
}

type initializeResult struct {
	ProtocolVersion string                    `json:"protocolVersion"`
	Capabilities    capability.Capabilities    `json:"capabilities"`
	ServerInfo      Info                      `json:"serverInfo"`
}

// Handle dispatches a single inbound message and returns the response to
// send back, or nil for notifications and for requests with no reply
// (never the case in JSON-RPC, but kept for symmetry). Handle is safe for
// concurrent use; state transitions are serialized internally.
func (s *Server) Handle(ctx context.Context, msg jsonrpc.Message) (*jsonrpc.Message, error) {
	if msg.IsNotification() {
		return nil, s.handleNotification(ctx, msg)
	}
	if !msg.IsRequest() {
		return nil, errs.New(errs.KindProtocol, "server does not accept response messages")
	}

	method, _ := msg.Method()
	id, _ := msg.ID()

	if !isValidMCPMethod(method) {
		return s.errorResponse(id, errs.CodeMethodNotFound, "unknown method: "+method), nil
	}

	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if method != "initialize" && state == StateNotInitialized {
		return s.errorResponse(id, errs.CodeInvalidRequest, "session not initialized"), nil
	}
	if state == StateClosed {
		return s.errorResponse(id, errs.CodeInvalidRequest, "session is closed"), nil
	}

	switch method {
	case "initialize":
		return s.handleInitialize(id, msg)
	case "ping":
		return ptr(jsonrpc.NewResponse(id, json.RawMessage(`{}`))), nil
	case "tools/list":
		return s.handleToolsList(ctx, id, msg)
	case "tools/call":
		return s.handleToolsCall(ctx, id, msg)
	case "resources/list":
		return s.handleResourcesList(ctx, id, msg)
	case "resources/read":
		return s.handleResourcesRead(ctx, id, msg)
	case "resources/subscribe":
		return s.handleResourcesSubscribe(ctx, id, msg)
	case "resources/unsubscribe":
		return s.handleResourcesUnsubscribe(ctx, id, msg)
	case "prompts/list":
		return s.handlePromptsList(ctx, id, msg)
	case "prompts/get":
		return s.handlePromptsGet(ctx, id, msg)
	case "logging/setLevel":
		return s.handleLoggingSetLevel(ctx, id, msg)
	default:
		return s.errorResponse(id, errs.CodeMethodNotFound, "method not implemented: "+method), nil
	}
}

func (s *Server) handleNotification(ctx context.Context, msg jsonrpc.Message) error {
	method, _ := msg.Method()
	if !isValidMCPMethod(method) {
		slog.Warn("ignoring unknown notification", "method", method)
		return nil
	}
	if method == "notifications/initialized" {
		s.mu.Lock()
		if s.state == StateInitializing {
			s.state = StateReady
		}
		s.mu.Unlock()
	}
	return nil
}

func (s *Server) handleInitialize(id jsonrpc.RequestID, msg jsonrpc.Message) (*jsonrpc.Message, error) {
	raw, _ := msg.Params()
	var params initializeParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return s.errorResponse(id, errs.CodeInvalidParams, "malformed initialize params"), nil
		}
	}

	s.mu.Lock()
	s.state = StateInitializing
	s.mu.Unlock()

	result := initializeResult{
		ProtocolVersion: s.protocolVersion,
		Capabilities:    s.caps,
		ServerInfo:      s.info,
	}
	body, err := json.Marshal(result)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "marshal initialize result")
	}
	return ptr(jsonrpc.NewResponse(id, body)), nil
}

func (s *Server) errorResponse(id jsonrpc.RequestID, code errs.Code, message string) *jsonrpc.Message {
	msg := jsonrpc.NewErrorResponse(id, &jsonrpc.ErrorObject{Code: int64(code), Message: message})
	return &msg
}

func ptr(m jsonrpc.Message) *jsonrpc.Message {
	return &m
}
