package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

// Client is an MCP client session over either a stdio subprocess or a
// Streamable HTTP endpoint. Create one with NewStdio or NewHTTP; both
// perform the initialize handshake before returning.
type Client struct {
	tr              transport
	timeout         time.Duration
	clientInfo      Implementation
	protocolVersion string
	bearerToken     string
	logger          *slog.Logger

	nextID int64

	mu         sync.Mutex
	serverInfo Implementation
}

// NewStdio spawns command with args and speaks MCP over its
// stdin/stdout, performing the initialize handshake before returning.
// The subprocess's stderr is left connected to the SDK process's
// stderr so server-side logging is visible to the operator.
func NewStdio(ctx context.Context, command string, args []string, opts ...Option) (*Client, error) {
	c := newClient(opts...)

	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &ServerUnreachableError{Cause: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &ServerUnreachableError{Cause: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &ServerUnreachableError{Cause: err}
	}

	c.tr = newStdioTransport(cmd, stdin, stdout)
	if err := c.initialize(ctx); err != nil {
		_ = c.tr.close()
		return nil, err
	}
	return c, nil
}

// NewHTTP connects to a Streamable HTTP MCP endpoint at baseURL (e.g.
// "http://localhost:8080/mcp"), performing the initialize handshake
// before returning.
func NewHTTP(ctx context.Context, baseURL string, opts ...Option) (*Client, error) {
	c := newClient(opts...)

	httpClient := &http.Client{Timeout: c.timeout}
	c.tr = newHTTPTransport(baseURL, httpClient, c.apiKey())

	if err := c.initialize(ctx); err != nil {
		_ = c.tr.close()
		return nil, err
	}
	return c, nil
}

func newClient(opts ...Option) *Client {
	c := &Client{
		timeout:         10 * time.Second,
		clientInfo:      Implementation{Name: "mcp-runtime-sdk", Version: "0.1.0"},
		protocolVersion: ProtocolVersion,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiKey returns the bearer token configured via WithBearerToken, if
// any.
func (c *Client) apiKey() string {
	return c.bearerToken
}

func (c *Client) initialize(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := map[string]any{
		"protocolVersion": c.protocolVersion,
		"clientInfo":      c.clientInfo,
		"capabilities":    map[string]any{},
	}
	raw, err := c.call(ctx, initializeMethodName, params)
	if err != nil {
		return err
	}

	var result InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return &ProtocolError{Code: "DECODE", Err: err}
	}

	c.mu.Lock()
	c.serverInfo = result.ServerInfo
	c.mu.Unlock()

	return c.notify(ctx, "notifications/initialized", nil)
}

// ServerInfo returns the peer's self-reported name/version, populated
// after a successful initialize handshake.
func (c *Client) ServerInfo() Implementation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverInfo
}

// call issues a request and returns its raw result bytes, translating a
// JSON-RPC error object into a *ProtocolError.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	id := atomic.AddInt64(&c.nextID, 1)
	req, err := newRequest(id, method, params)
	if err != nil {
		return nil, err
	}

	resp, err := c.tr.call(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, &ProtocolError{Code: fmt.Sprintf("RPC_%d", resp.Error.Code), Err: resp.Error}
	}
	return resp.Result, nil
}

// notify sends a one-way JSON-RPC notification (no id, no response
// expected). Best-effort: stdio notifications are fire-and-forget, and
// an HTTP 202 Accepted with no body is the expected success path.
func (c *Client) notify(ctx context.Context, method string, params any) error {
	var raw json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return err
		}
		raw = b
	}
	req := envelope{JSONRPC: "2.0", Method: method, Params: raw}
	return c.tr.notify(ctx, req)
}

// ListTools calls tools/list and decodes the result.
func (c *Client) ListTools(ctx context.Context, cursor string) ([]Tool, string, error) {
	params := map[string]string{}
	if cursor != "" {
		params["cursor"] = cursor
	}
	raw, err := c.call(ctx, "tools/list", params)
	if err != nil {
		return nil, "", err
	}
	var result struct {
		Tools      []Tool `json:"tools"`
		NextCursor string `json:"nextCursor,omitempty"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, "", &ProtocolError{Code: "DECODE", Err: err}
	}
	return result.Tools, result.NextCursor, nil
}

// CallTool calls tools/call for name with the given arguments and
// decodes the result. If the server reports isError=true, CallTool
// returns a *ToolCallError wrapping the result's content instead of
// the raw result, so callers can branch with errors.As without
// inspecting IsError themselves.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (*CallToolResult, error) {
	raw, err := c.call(ctx, "tools/call", map[string]any{"name": name, "arguments": arguments})
	if err != nil {
		return nil, err
	}
	var result CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &ProtocolError{Code: "DECODE", Err: err}
	}
	if result.IsError {
		return nil, &ToolCallError{ToolName: name, Message: firstText(result.Content), Content: result.Content}
	}
	return &result, nil
}

// ListResources calls resources/list and decodes the result.
func (c *Client) ListResources(ctx context.Context, cursor string) ([]Resource, string, error) {
	params := map[string]string{}
	if cursor != "" {
		params["cursor"] = cursor
	}
	raw, err := c.call(ctx, "resources/list", params)
	if err != nil {
		return nil, "", err
	}
	var result struct {
		Resources  []Resource `json:"resources"`
		NextCursor string     `json:"nextCursor,omitempty"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, "", &ProtocolError{Code: "DECODE", Err: err}
	}
	return result.Resources, result.NextCursor, nil
}

// ReadResource calls resources/read for uri and decodes the result.
func (c *Client) ReadResource(ctx context.Context, uri string) ([]ResourceContent, error) {
	raw, err := c.call(ctx, "resources/read", map[string]string{"uri": uri})
	if err != nil {
		return nil, err
	}
	var result struct {
		Contents []ResourceContent `json:"contents"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &ProtocolError{Code: "DECODE", Err: err}
	}
	return result.Contents, nil
}

// Ping calls the no-op ping method, useful as a liveness check.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, "ping", nil)
	return err
}

// Close shuts down the transport. Safe to call multiple times.
func (c *Client) Close() error {
	return c.tr.close()
}

func firstText(blocks []ContentBlock) string {
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			return b.Text
		}
	}
	return ""
}
