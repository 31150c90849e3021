// Package capability defines the MCP provider interfaces (resources,
// tools, prompts, logging) and the data types they exchange, matching the
// MCP specification's content model. This package ships the interfaces
// only; concrete providers (a filesystem resource server, a math tool
// server) are out of scope and left to embedding applications.
package capability

import (
	"context"
	"encoding/json"
	"time"
)

// RiskLevel classifies a Tool's operational risk, surfaced to callers
// deciding whether a tool call needs confirmation or policy review.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Tool is a single callable tool as returned by tools/list, per the MCP
// 2025-06-18 content model.
type Tool struct {
	Name         string           `json:"name"`
	Title        string           `json:"title,omitempty"`
	Description  string           `json:"description,omitempty"`
	InputSchema  json.RawMessage  `json:"inputSchema"`
	OutputSchema *json.RawMessage `json:"outputSchema,omitempty"`
	RiskLevel    RiskLevel        `json:"-"`
}

// Resource is a single addressable resource as returned by resources/list.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Prompt is a single named prompt template as returned by prompts/list.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptArgument describes one templated argument a Prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// ContentKind discriminates the content block variants MCP messages carry.
type ContentKind string

const (
	ContentText     ContentKind = "text"
	ContentImage    ContentKind = "image"
	ContentResource ContentKind = "resource"
)

// Content is a single block of a tool result, prompt message, or resource
// read, tagged by Kind. Only the fields matching Kind are populated.
type Content struct {
	Kind     ContentKind     `json:"type"`
	Text     string          `json:"text,omitempty"`
	Data     string          `json:"data,omitempty"`     // base64, for image content
	MimeType string          `json:"mimeType,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
}

// CallToolResponse is the result of a tools/call invocation. Per the
// design decision recorded in DESIGN.md, provider-level tool failures are
// always reported this way (IsError=true) rather than as a JSON-RPC
// protocol-level error, since the call itself succeeded as an RPC even
// when the tool's own execution failed.
type CallToolResponse struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// PromptMessage is one turn of a rendered prompt, returned by prompts/get.
type PromptMessage struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// GetPromptResponse is the result of a prompts/get invocation.
type GetPromptResponse struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// ReadResourceResponse is the result of a resources/read invocation.
type ReadResourceResponse struct {
	Contents []Content `json:"contents"`
}

// LogLevel mirrors the MCP logging/setLevel level vocabulary (RFC 5424
// syslog severities).
type LogLevel string

const (
	LogDebug     LogLevel = "debug"
	LogInfo      LogLevel = "info"
	LogNotice    LogLevel = "notice"
	LogWarning   LogLevel = "warning"
	LogError     LogLevel = "error"
	LogCritical  LogLevel = "critical"
	LogAlert     LogLevel = "alert"
	LogEmergency LogLevel = "emergency"
)

// LogEntry is a single structured log record a server may push to a
// client via notifications/message once logging/setLevel has been called.
type LogEntry struct {
	Level  LogLevel    `json:"level"`
	Logger string      `json:"logger,omitempty"`
	Data   any         `json:"data"`
	Time   time.Time   `json:"-"`
}

// ResourceProvider exposes a server's readable resources.
type ResourceProvider interface {
	ListResources(ctx context.Context, cursor string) (resources []Resource, nextCursor string, err error)
	ReadResource(ctx context.Context, uri string) (ReadResourceResponse, error)
}

// ResourceSubscriber is an optional extension a ResourceProvider may also
// implement to support resources/subscribe and resources/unsubscribe. Not
// every provider tracks resource change notifications, so this is kept
// separate from ResourceProvider rather than forcing every implementer to
// provide it; the server type-asserts for it at dispatch time.
type ResourceSubscriber interface {
	Subscribe(ctx context.Context, uri string) error
	Unsubscribe(ctx context.Context, uri string) error
}

// ToolProvider exposes a server's callable tools.
type ToolProvider interface {
	ListTools(ctx context.Context, cursor string) (tools []Tool, nextCursor string, err error)
	CallTool(ctx context.Context, name string, arguments json.RawMessage) (CallToolResponse, error)
}

// PromptProvider exposes a server's prompt templates.
type PromptProvider interface {
	ListPrompts(ctx context.Context, cursor string) (prompts []Prompt, nextCursor string, err error)
	GetPrompt(ctx context.Context, name string, arguments map[string]string) (GetPromptResponse, error)
}

// LoggingHandler receives the client's requested minimum log level and
// decides whether/how to honor it.
type LoggingHandler interface {
	SetLevel(ctx context.Context, level LogLevel) error
}

// CapabilityFlag marks a capability as present. MCP advertises capabilities
// as object values (potentially carrying sub-fields in a future protocol
// revision), not booleans, so a present capability marshals to "{}" and an
// absent one is omitted entirely rather than marshaling to "false".
type CapabilityFlag struct {
	// Subscribe indicates whether the resources capability additionally
	// supports resources/subscribe and resources/unsubscribe. Only
	// meaningful on the Resources flag.
	Subscribe bool `json:"subscribe,omitempty"`
}

// Capabilities advertises which provider interfaces a server instance
// actually implements, echoed in the initialize response per spec.md §4.7.
type Capabilities struct {
	Resources *CapabilityFlag `json:"resources,omitempty"`
	Tools     *CapabilityFlag `json:"tools,omitempty"`
	Prompts   *CapabilityFlag `json:"prompts,omitempty"`
	Logging   *CapabilityFlag `json:"logging,omitempty"`
}
