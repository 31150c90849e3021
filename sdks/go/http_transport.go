package mcpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

const (
	headerSessionID      = "Mcp-Session-Id"
	headerProtocolVer    = "MCP-Protocol-Version"
	initializeMethodName = "initialize"
)

// httpTransport speaks the Streamable HTTP transport: one POST per
// call, with the session correlated by the Mcp-Session-Id header the
// server hands back on the initialize response.
type httpTransport struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string

	mu        sync.Mutex
	sessionID string
	closed    bool
}

func newHTTPTransport(baseURL string, httpClient *http.Client, apiKey string) *httpTransport {
	return &httpTransport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		apiKey:     apiKey,
	}
}

func (t *httpTransport) call(ctx context.Context, req envelope) (envelope, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return envelope{}, &ServerUnreachableError{Cause: fmt.Errorf("transport is closed")}
	}
	sessionID := t.sessionID
	t.mu.Unlock()

	body, err := json.Marshal(req)
	if err != nil {
		return envelope{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, bytes.NewReader(body))
	if err != nil {
		return envelope{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(headerProtocolVer, ProtocolVersion)
	if sessionID != "" {
		httpReq.Header.Set(headerSessionID, sessionID)
	}
	if t.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return envelope{}, &ServerUnreachableError{Cause: err}
	}
	defer httpResp.Body.Close()

	if sid := httpResp.Header.Get(headerSessionID); sid != "" {
		t.mu.Lock()
		t.sessionID = sid
		t.mu.Unlock()
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return envelope{}, &ServerUnreachableError{Cause: err}
	}

	if httpResp.StatusCode == http.StatusAccepted {
		// Notification or async-only response; caller did not expect one.
		return envelope{}, nil
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return envelope{}, &ProtocolError{
			Code: fmt.Sprintf("HTTP_%d", httpResp.StatusCode),
			Err:  fmt.Errorf("server returned %d: %s", httpResp.StatusCode, string(respBody)),
		}
	}

	var env envelope
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &env); err != nil {
			return envelope{}, &ProtocolError{Code: "DECODE", Err: err}
		}
	}
	return env, nil
}

func (t *httpTransport) notify(ctx context.Context, req envelope) error {
	_, err := t.call(ctx, req)
	return err
}

func (t *httpTransport) close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
