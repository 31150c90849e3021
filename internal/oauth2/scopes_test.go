package oauth2

import (
	"context"
	"testing"
)

func TestRequiredScopeLooksUpStaticTable(t *testing.T) {
	scope, ok := RequiredScope("tools/call")
	if !ok || scope != "mcp:tools:execute" {
		t.Errorf("RequiredScope(tools/call) = (%q, %v), want (mcp:tools:execute, true)", scope, ok)
	}

	if _, ok := RequiredScope("ping"); ok {
		t.Error("RequiredScope(ping) should report no entry")
	}
}

func TestSupportedScopesDeduplicates(t *testing.T) {
	scopes := SupportedScopes()
	seen := make(map[string]bool, len(scopes))
	for _, s := range scopes {
		if seen[s] {
			t.Errorf("SupportedScopes() contains duplicate %q", s)
		}
		seen[s] = true
	}
	if !seen["mcp:tools:execute"] {
		t.Error("SupportedScopes() missing mcp:tools:execute")
	}
}

func TestAuthorizerStaticTableRejectsMissingScope(t *testing.T) {
	authz := NewAuthorizer(nil)
	claims := &Claims{Scope: "mcp:resources:read"}

	if err := authz.Authorize(context.Background(), claims, "tools/call", "some-tool"); err == nil {
		t.Fatal("expected an error when the token lacks the required scope")
	}
}

func TestAuthorizerStaticTableAllowsGrantedScope(t *testing.T) {
	authz := NewAuthorizer(nil)
	claims := &Claims{Scope: "mcp:tools:execute"}

	if err := authz.Authorize(context.Background(), claims, "tools/call", "some-tool"); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
}

func TestAuthorizerAllowsMethodsAbsentFromTable(t *testing.T) {
	authz := NewAuthorizer(nil)
	claims := &Claims{}

	if err := authz.Authorize(context.Background(), claims, "initialize", ""); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
}

func TestAuthorizerPrefersConfiguredPolicyOverStaticTable(t *testing.T) {
	policy, err := NewScopePolicy(`has_scope(scopes, "custom:scope")`)
	if err != nil {
		t.Fatalf("NewScopePolicy: %v", err)
	}
	authz := NewAuthorizer(policy)

	claims := &Claims{Scope: "mcp:tools:execute"}
	if err := authz.Authorize(context.Background(), claims, "tools/call", "some-tool"); err == nil {
		t.Fatal("expected the configured policy to override the static table and reject this token")
	}

	claims = &Claims{Scope: "custom:scope"}
	if err := authz.Authorize(context.Background(), claims, "tools/call", "some-tool"); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
}
