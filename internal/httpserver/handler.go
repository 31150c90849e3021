package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
	"github.com/airsstack-go/mcp-runtime/internal/jsonrpc"
	"github.com/airsstack-go/mcp-runtime/internal/mcp/server"
	"github.com/airsstack-go/mcp-runtime/internal/oauth2"
)

// MCPProtocolVersionHeader and MCPSessionIDHeader are the Streamable HTTP
// transport headers defined by the MCP specification.
const (
	MCPSessionIDHeader       = "Mcp-Session-Id"
	MCPProtocolVersionHeader = "MCP-Protocol-Version"
	maxRequestBodySize       = 1 << 20
)

// SessionFactory builds a fresh server.Server for a newly initialized
// session, so each HTTP-transport session gets its own isolated MCP
// session state machine.
type SessionFactory func() *server.Server

// Handler is the MCP Streamable HTTP transport endpoint: POST delivers
// JSON-RPC requests/notifications, GET opens an SSE stream for
// server-initiated pushes, DELETE terminates a session.
type Handler struct {
	newServer  SessionFactory
	conn       *ConnectionManager
	authorizer *oauth2.Authorizer

	mu       sync.Mutex
	sessions map[string]*server.Server
}

// NewHandler builds a Handler. conn tracks session metadata and SSE
// channels; newServer constructs the MCP session core for each new
// session established via an initialize request.
func NewHandler(conn *ConnectionManager, newServer SessionFactory) *Handler {
	return &Handler{
		newServer: newServer,
		conn:      conn,
		sessions:  make(map[string]*server.Server),
	}
}

// WithAuthorizer enables per-MCP-method scope enforcement. When set, a
// request must carry claims (attached upstream by oauth2.Middleware) that
// grant the scope its MCP method requires, checked once the JSON-RPC body
// has been parsed and the method is known.
func (h *Handler) WithAuthorizer(authorizer *oauth2.Authorizer) *Handler {
	h.authorizer = authorizer
	return h
}

// ServeHTTP routes by HTTP method, matching the Streamable HTTP transport.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodDelete:
		h.handleDelete(w, r)
	case http.MethodOptions:
		h.handleOptions(w, r)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if contentType != "" && contentType != "application/json" {
		writeJSONRPCError(w, nil, errs.CodeParse, "content type must be application/json")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSONRPCError(w, nil, errs.CodeParse, "request body too large")
			return
		}
		writeJSONRPCError(w, nil, errs.CodeParse, "failed to read request body")
		return
	}
	if len(body) == 0 {
		writeJSONRPCError(w, nil, errs.CodeParse, "empty request body")
		return
	}

	msg, err := jsonrpc.Decode(body)
	if err != nil {
		writeJSONRPCError(w, nil, errs.CodeParse, "invalid JSON-RPC message")
		return
	}

	sessionID := r.Header.Get(MCPSessionIDHeader)
	method, _ := msg.Method()

	if h.authorizer != nil {
		claims, ok := oauth2.ClaimsFromContext(r.Context())
		if !ok {
			writeJSONRPCError(w, nil, errs.CodeInvalidRequest, "missing bearer token claims")
			return
		}
		if err := h.authorizer.Authorize(r.Context(), claims, method, toolNameFromParams(msg)); err != nil {
			writeJSONRPCError(w, nil, errs.CodeInvalidRequest, err.Error())
			return
		}
	}

	var srv *server.Server
	if method == "initialize" {
		sessionID = uuid.NewString()
		srv = h.newServer()
		h.mu.Lock()
		h.sessions[sessionID] = srv
		h.mu.Unlock()
		h.conn.Create(sessionID, r.RemoteAddr, r.Header.Get("User-Agent"))
	} else {
		h.mu.Lock()
		var ok bool
		srv, ok = h.sessions[sessionID]
		h.mu.Unlock()
		if !ok {
			writeJSONRPCError(w, nil, errs.CodeInvalidRequest, "unknown or missing session")
			return
		}
		_ = h.conn.Touch(sessionID)
	}

	w.Header().Set(MCPProtocolVersionHeader, server.ProtocolVersion)
	if sessionID != "" {
		w.Header().Set(MCPSessionIDHeader, sessionID)
	}

	if msg.IsNotification() {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	resp, err := srv.Handle(r.Context(), msg)
	if err != nil {
		writeJSONRPCError(w, nil, errs.CodeInternal, "internal error")
		return
	}
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	respBytes, err := jsonrpc.Encode(*resp)
	if err != nil {
		writeJSONRPCError(w, nil, errs.CodeInternal, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(respBytes)
}

// toolNameFromParams extracts the "name" field from a tools/call request's
// params, for scope checks that distinguish between tools. Any other method
// or a malformed payload yields an empty string; the downstream handler
// still validates params itself and rejects the call if they're malformed.
func toolNameFromParams(msg jsonrpc.Message) string {
	method, _ := msg.Method()
	if method != "tools/call" {
		return ""
	}
	raw, ok := msg.Params()
	if !ok {
		return ""
	}
	var params struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return ""
	}
	return params.Name
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}
	sessionID := r.Header.Get(MCPSessionIDHeader)
	if sessionID == "" {
		http.Error(w, "Mcp-Session-Id header required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set(MCPProtocolVersionHeader, server.ProtocolVersion)
	w.Header().Set(MCPSessionIDHeader, sessionID)

	msgChan := make(chan sseMessage, 100)
	h.conn.RegisterChannel(sessionID, msgChan)
	defer h.conn.UnregisterChannel(sessionID, msgChan)

	_, _ = fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	if lastEventID, err := strconv.ParseInt(r.Header.Get("Last-Event-ID"), 10, 64); err == nil {
		for _, msg := range h.conn.Replay(sessionID, lastEventID) {
			_, _ = fmt.Fprintf(w, "id: %d\ndata: %s\n\n", msg.ID, msg.Data)
		}
		flusher.Flush()
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			_, _ = fmt.Fprintf(w, "id: %d\ndata: %s\n\n", msg.ID, msg.Data)
			flusher.Flush()
		}
	}
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(MCPSessionIDHeader)
	if sessionID == "" {
		http.Error(w, "Mcp-Session-Id header required", http.StatusBadRequest)
		return
	}
	h.mu.Lock()
	delete(h.sessions, sessionID)
	h.mu.Unlock()
	if !h.conn.Terminate(sessionID) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Mcp-Session-Id, MCP-Protocol-Version")
	w.Header().Set("Access-Control-Max-Age", "86400")
	w.WriteHeader(http.StatusNoContent)
}

// rawJSONRPCError is used instead of jsonrpc.Message when there is no
// request ID to correlate against (a parse error before the envelope
// could even be discriminated) — the JSON-RPC spec requires id: null
// here, which RequestID's two real variants can't represent.
type rawJSONRPCError struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      any                 `json:"id"`
	Error   jsonrpc.ErrorObject `json:"error"`
}

func writeJSONRPCError(w http.ResponseWriter, id *jsonrpc.RequestID, code errs.Code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if id != nil {
		errResp := jsonrpc.NewErrorResponse(*id, &jsonrpc.ErrorObject{Code: int64(code), Message: message})
		b, _ := jsonrpc.Encode(errResp)
		_, _ = w.Write(bytes.TrimSpace(b))
		return
	}
	b, _ := json.Marshal(rawJSONRPCError{
		JSONRPC: "2.0",
		ID:      nil,
		Error:   jsonrpc.ErrorObject{Code: int64(code), Message: message},
	})
	_, _ = w.Write(b)
}
