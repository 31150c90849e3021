package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/airsstack-go/mcp-runtime/internal/jsonrpc"
	"github.com/airsstack-go/mcp-runtime/internal/mcp/server"
	"github.com/airsstack-go/mcp-runtime/internal/oauth2"
)

func newTestHandler() *Handler {
	conn := NewConnectionManager()
	return NewHandler(conn, func() *server.Server { return server.New() })
}

func initializeBody() []byte {
	req := jsonrpc.NewRequest(jsonrpc.NewStringID("1"), "initialize", json.RawMessage(`{"protocolVersion":"2025-06-18"}`))
	b, _ := jsonrpc.Encode(req)
	return b
}

func TestHandlerRejectsMissingClaimsWhenAuthorizerConfigured(t *testing.T) {
	h := newTestHandler().WithAuthorizer(oauth2.NewAuthorizer(nil))

	req := httptest.NewRequest("POST", "/mcp", bytes.NewReader(initializeBody()))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp struct {
		Error *jsonrpc.ErrorObject `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == nil {
		t.Fatal("expected a JSON-RPC error when no claims are attached to the request context")
	}
}

func TestHandlerRejectsInsufficientScope(t *testing.T) {
	h := newTestHandler().WithAuthorizer(oauth2.NewAuthorizer(nil))

	callReq := jsonrpc.NewRequest(jsonrpc.NewStringID("2"), "tools/call", json.RawMessage(`{"name":"echo","arguments":{}}`))
	body, _ := jsonrpc.Encode(callReq)

	claims := &oauth2.Claims{Scope: "mcp:resources:read"}
	req := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(MCPSessionIDHeader, "nonexistent-session")
	req = req.WithContext(oauth2.ContextWithClaims(req.Context(), claims))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp struct {
		Error *jsonrpc.ErrorObject `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == nil {
		t.Fatal("expected a JSON-RPC error when the token lacks the scope tools/call requires")
	}
}

func TestHandlerAllowsSufficientScopeThroughToDispatch(t *testing.T) {
	h := newTestHandler().WithAuthorizer(oauth2.NewAuthorizer(nil))

	claims := &oauth2.Claims{Scope: "mcp:tools:execute mcp:resources:read"}
	req := httptest.NewRequest("POST", "/mcp", bytes.NewReader(initializeBody()))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(oauth2.ContextWithClaims(req.Context(), claims))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp struct {
		Error *jsonrpc.ErrorObject `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("initialize is absent from the static scope table and should not be blocked, got error: %+v", resp.Error)
	}
}
