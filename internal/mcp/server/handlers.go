package server

import (
	"context"
	"encoding/json"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
	"github.com/airsstack-go/mcp-runtime/internal/jsonrpc"
	"github.com/airsstack-go/mcp-runtime/internal/mcp/capability"
)

type listParams struct {
	Cursor string `json:"cursor,omitempty"`
}

type toolsListResult struct {
	Tools      []capability.Tool `json:"tools"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

func (s *Server) handleToolsList(ctx context.Context, id jsonrpc.RequestID, msg jsonrpc.Message) (*jsonrpc.Message, error) {
	if s.tools == nil {
		return s.errorResponse(id, errs.CodeMethodNotFound, "server does not support tools"), nil
	}
	var params listParams
	if raw, ok := msg.Params(); ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return s.errorResponse(id, errs.CodeInvalidParams, "malformed tools/list params"), nil
		}
	}
	tools, next, err := s.tools.ListTools(ctx, params.Cursor)
	if err != nil {
		return s.errorResponse(id, errs.CodeInternal, err.Error()), nil
	}
	body, err := json.Marshal(toolsListResult{Tools: tools, NextCursor: next})
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "marshal tools/list result")
	}
	return ptr(jsonrpc.NewResponse(id, body)), nil
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

func (s *Server) handleToolsCall(ctx context.Context, id jsonrpc.RequestID, msg jsonrpc.Message) (*jsonrpc.Message, error) {
	if s.tools == nil {
		return s.errorResponse(id, errs.CodeMethodNotFound, "server does not support tools"), nil
	}
	raw, _ := msg.Params()
	var params callToolParams
	if err := json.Unmarshal(raw, &params); err != nil || params.Name == "" {
		return s.errorResponse(id, errs.CodeInvalidParams, "malformed tools/call params"), nil
	}

	// Per the design decision recorded in DESIGN.md, a provider-level tool
	// failure is never surfaced as a JSON-RPC error: the call itself
	// succeeded, so the result is always a CallToolResponse, with
	// IsError=true carrying the failure.
	result, err := s.tools.CallTool(ctx, params.Name, params.Arguments)
	if err != nil {
		result = capability.CallToolResponse{
			Content: []capability.Content{{Kind: capability.ContentText, Text: err.Error()}},
			IsError: true,
		}
	}
	body, err := json.Marshal(result)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "marshal tools/call result")
	}
	return ptr(jsonrpc.NewResponse(id, body)), nil
}

type resourcesListResult struct {
	Resources  []capability.Resource `json:"resources"`
	NextCursor string                `json:"nextCursor,omitempty"`
}

func (s *Server) handleResourcesList(ctx context.Context, id jsonrpc.RequestID, msg jsonrpc.Message) (*jsonrpc.Message, error) {
	if s.resources == nil {
		return s.errorResponse(id, errs.CodeMethodNotFound, "server does not support resources"), nil
	}
	var params listParams
	if raw, ok := msg.Params(); ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return s.errorResponse(id, errs.CodeInvalidParams, "malformed resources/list params"), nil
		}
	}
	resources, next, err := s.resources.ListResources(ctx, params.Cursor)
	if err != nil {
		return s.errorResponse(id, errs.CodeInternal, err.Error()), nil
	}
	body, err := json.Marshal(resourcesListResult{Resources: resources, NextCursor: next})
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "marshal resources/list result")
	}
	return ptr(jsonrpc.NewResponse(id, body)), nil
}

type readResourceParams struct {
	URI string `json:"uri"`
}

func (s *Server) handleResourcesRead(ctx context.Context, id jsonrpc.RequestID, msg jsonrpc.Message) (*jsonrpc.Message, error) {
	if s.resources == nil {
		return s.errorResponse(id, errs.CodeMethodNotFound, "server does not support resources"), nil
	}
	raw, _ := msg.Params()
	var params readResourceParams
	if err := json.Unmarshal(raw, &params); err != nil || params.URI == "" {
		return s.errorResponse(id, errs.CodeInvalidParams, "malformed resources/read params"), nil
	}
	result, err := s.resources.ReadResource(ctx, params.URI)
	if err != nil {
		if errs.Of(err, errs.KindResourceNotFound) {
			return s.errorResponse(id, errs.CodeInvalidParams, err.Error()), nil
		}
		return s.errorResponse(id, errs.CodeInternal, err.Error()), nil
	}
	body, err := json.Marshal(result)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "marshal resources/read result")
	}
	return ptr(jsonrpc.NewResponse(id, body)), nil
}

type subscribeParams struct {
	URI string `json:"uri"`
}

func (s *Server) handleResourcesSubscribe(ctx context.Context, id jsonrpc.RequestID, msg jsonrpc.Message) (*jsonrpc.Message, error) {
	if s.resources == nil {
		return s.errorResponse(id, errs.CodeMethodNotFound, "server does not support resources"), nil
	}
	sub, ok := s.resources.(capability.ResourceSubscriber)
	if !ok {
		return s.errorResponse(id, errs.CodeMethodNotFound, "server does not support resource subscriptions"), nil
	}
	raw, _ := msg.Params()
	var params subscribeParams
	if err := json.Unmarshal(raw, &params); err != nil || params.URI == "" {
		return s.errorResponse(id, errs.CodeInvalidParams, "malformed resources/subscribe params"), nil
	}
	if err := sub.Subscribe(ctx, params.URI); err != nil {
		return s.errorResponse(id, errs.CodeInternal, err.Error()), nil
	}
	return ptr(jsonrpc.NewResponse(id, json.RawMessage(`{}`))), nil
}

func (s *Server) handleResourcesUnsubscribe(ctx context.Context, id jsonrpc.RequestID, msg jsonrpc.Message) (*jsonrpc.Message, error) {
	if s.resources == nil {
		return s.errorResponse(id, errs.CodeMethodNotFound, "server does not support resources"), nil
	}
	sub, ok := s.resources.(capability.ResourceSubscriber)
	if !ok {
		return s.errorResponse(id, errs.CodeMethodNotFound, "server does not support resource subscriptions"), nil
	}
	raw, _ := msg.Params()
	var params subscribeParams
	if err := json.Unmarshal(raw, &params); err != nil || params.URI == "" {
		return s.errorResponse(id, errs.CodeInvalidParams, "malformed resources/unsubscribe params"), nil
	}
	if err := sub.Unsubscribe(ctx, params.URI); err != nil {
		return s.errorResponse(id, errs.CodeInternal, err.Error()), nil
	}
	return ptr(jsonrpc.NewResponse(id, json.RawMessage(`{}`))), nil
}

type promptsListResult struct {
	Prompts    []capability.Prompt `json:"prompts"`
	NextCursor string              `json:"nextCursor,omitempty"`
}

func (s *Server) handlePromptsList(ctx context.Context, id jsonrpc.RequestID, msg jsonrpc.Message) (*jsonrpc.Message, error) {
	if s.prompts == nil {
		return s.errorResponse(id, errs.CodeMethodNotFound, "server does not support prompts"), nil
	}
	var params listParams
	if raw, ok := msg.Params(); ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return s.errorResponse(id, errs.CodeInvalidParams, "malformed prompts/list params"), nil
		}
	}
	prompts, next, err := s.prompts.ListPrompts(ctx, params.Cursor)
	if err != nil {
		return s.errorResponse(id, errs.CodeInternal, err.Error()), nil
	}
	body, err := json.Marshal(promptsListResult{Prompts: prompts, NextCursor: next})
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "marshal prompts/list result")
	}
	return ptr(jsonrpc.NewResponse(id, body)), nil
}

type getPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

func (s *Server) handlePromptsGet(ctx context.Context, id jsonrpc.RequestID, msg jsonrpc.Message) (*jsonrpc.Message, error) {
	if s.prompts == nil {
		return s.errorResponse(id, errs.CodeMethodNotFound, "server does not support prompts"), nil
	}
	raw, _ := msg.Params()
	var params getPromptParams
	if err := json.Unmarshal(raw, &params); err != nil || params.Name == "" {
		return s.errorResponse(id, errs.CodeInvalidParams, "malformed prompts/get params"), nil
	}
	result, err := s.prompts.GetPrompt(ctx, params.Name, params.Arguments)
	if err != nil {
		if errs.Of(err, errs.KindPromptNotFound) {
			return s.errorResponse(id, errs.CodeInvalidParams, err.Error()), nil
		}
		return s.errorResponse(id, errs.CodeInternal, err.Error()), nil
	}
	body, err := json.Marshal(result)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, err, "marshal prompts/get result")
	}
	return ptr(jsonrpc.NewResponse(id, body)), nil
}

type setLevelParams struct {
	Level capability.LogLevel `json:"level"`
}

func (s *Server) handleLoggingSetLevel(ctx context.Context, id jsonrpc.RequestID, msg jsonrpc.Message) (*jsonrpc.Message, error) {
	if s.logging == nil {
		return s.errorResponse(id, errs.CodeMethodNotFound, "server does not support logging"), nil
	}
	raw, _ := msg.Params()
	var params setLevelParams
	if err := json.Unmarshal(raw, &params); err != nil || params.Level == "" {
		return s.errorResponse(id, errs.CodeInvalidParams, "malformed logging/setLevel params"), nil
	}
	if err := s.logging.SetLevel(ctx, params.Level); err != nil {
		return s.errorResponse(id, errs.CodeInternal, err.Error()), nil
	}
	return ptr(jsonrpc.NewResponse(id, json.RawMessage(`{}`))), nil
}
