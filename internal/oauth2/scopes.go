package oauth2

import (
	"context"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
)

// methodScopes is the static MCP-method-to-required-scope table. A method
// absent from this table requires no scope beyond a valid bearer token.
// This is the default authorization surface; a configured ScopePolicy
// overrides it rather than extending it.
var methodScopes = map[string]string{
	"tools/list":            "mcp:tools:read",
	"tools/call":            "mcp:tools:execute",
	"resources/list":        "mcp:resources:read",
	"resources/read":        "mcp:resources:read",
	"resources/subscribe":   "mcp:resources:subscribe",
	"resources/unsubscribe": "mcp:resources:subscribe",
	"prompts/list":          "mcp:prompts:read",
	"prompts/get":           "mcp:prompts:read",
	"logging/setLevel":      "mcp:logging:write",
}

// RequiredScope returns the scope method requires under the static table,
// and whether method has an entry at all.
func RequiredScope(method string) (string, bool) {
	scope, ok := methodScopes[method]
	return scope, ok
}

// SupportedScopes lists every scope the static table references, for the
// authorization server's discovery metadata.
func SupportedScopes() []string {
	seen := make(map[string]bool, len(methodScopes))
	var out []string
	for _, scope := range methodScopes {
		if seen[scope] {
			continue
		}
		seen[scope] = true
		out = append(out, scope)
	}
	return out
}

// Authorizer decides whether a caller's granted scopes permit invoking a
// given MCP method, consulting a ScopePolicy as a configurable override of
// the static method scope table when one is configured.
type Authorizer struct {
	policy *ScopePolicy
}

// NewAuthorizer builds an Authorizer. policy may be nil to fall back to
// the static method scope table.
func NewAuthorizer(policy *ScopePolicy) *Authorizer {
	return &Authorizer{policy: policy}
}

// Authorize checks claims against method (and, for tool calls, toolName)
// and returns a *errs.Error of KindInsufficientScope if the request is not
// authorized.
func (a *Authorizer) Authorize(ctx context.Context, claims *Claims, method, toolName string) error {
	act := Activation{
		Method:   method,
		ToolName: toolName,
		Scopes:   claims.Scopes(),
		Issuer:   claims.Issuer,
		Subject:  claims.Subject,
	}

	var authorized bool
	var err error
	if a.policy != nil {
		authorized, err = a.policy.Authorize(ctx, act)
	} else {
		authorized, err = staticAuthorize(act)
	}
	if err != nil {
		return err
	}
	if !authorized {
		return errs.New(errs.KindInsufficientScope, "method %q requires a scope not granted to this token", method)
	}
	return nil
}

func staticAuthorize(act Activation) (bool, error) {
	required, ok := methodScopes[act.Method]
	if !ok {
		return true, nil
	}
	for _, s := range act.Scopes {
		if s == required {
			return true, nil
		}
	}
	return false, nil
}
