// Package mcpclient is a Go SDK for talking to Model Context Protocol
// servers. It performs the initialize handshake and exposes tool
// discovery/invocation over either a spawned stdio subprocess or a
// Streamable HTTP endpoint. It uses only the Go standard library, so
// embedding it in a consumer application pulls in no transitive
// dependencies.
//
// Quick start:
//
//	client, err := mcpclient.NewStdio(ctx, "my-mcp-server", []string{"--flag"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	tools, _, err := client.ListTools(ctx, "")
//	result, err := client.CallTool(ctx, "read_file", map[string]any{"path": "a.txt"})
//	if err != nil {
//	    var toolErr *ToolCallError
//	    if errors.As(err, &toolErr) {
//	        fmt.Printf("tool %s failed: %s\n", toolErr.ToolName, toolErr.Message)
//	    }
//	}
package mcpclient

import "encoding/json"

// ProtocolVersion is the MCP protocol revision this SDK requests during
// initialize by default (see WithProtocolVersion) and sends in the
// MCP-Protocol-Version header of every HTTP request. The version a
// server answers with is decoded into InitializeResult but not stored
// or used afterwards.
const ProtocolVersion = "2025-06-18"

// Implementation identifies a client or server name/version pair, sent
// during the initialize handshake and echoed back by the peer.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Tool describes one tool advertised by a server's tools/list response.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// ContentBlock is one element of a tool call result. It decodes the
// fields of MCP text and image content; an embedded resource's payload
// has no field here and is dropped.
type ContentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// CallToolResult is the decoded result of a tools/call request.
type CallToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// InitializeResult is the decoded result of the initialize handshake.
type InitializeResult struct {
	ProtocolVersion string          `json:"protocolVersion"`
	ServerInfo      Implementation  `json:"serverInfo"`
	Capabilities    json.RawMessage `json:"capabilities,omitempty"`
}

// Resource describes one resource advertised by a server's
// resources/list response.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ResourceContent is one element of a resources/read response.
type ResourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}
