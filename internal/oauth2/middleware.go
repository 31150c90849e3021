package oauth2

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/airsstack-go/mcp-runtime/internal/errs"
)

type contextKey int

const claimsContextKey contextKey = iota

// ContextWithClaims attaches claims to ctx, so a handler downstream of
// Middleware.Wrap can recover the caller's identity and granted scopes.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext recovers the claims Middleware.Wrap attached to ctx.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok
}

// Middleware validates bearer tokens on every request it wraps, except
// those whose path is in skipPaths. It does not itself authorize MCP
// methods or tools: the HTTP method (always POST on the MCP endpoint) is
// not the MCP method carried in the JSON-RPC body, so per-method scope
// enforcement happens downstream, once the body has been parsed, using
// Authorize with the claims this middleware stashes in the request
// context.
type Middleware struct {
	validator *Validator
	skipPaths map[string]bool
	realm     string
}

// NewMiddleware builds a Middleware. realm is reported in the
// WWW-Authenticate challenge on a failed check; it defaults to "mcp" if
// empty.
func NewMiddleware(validator *Validator, skipPaths []string, realm string) *Middleware {
	sp := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		sp[p] = true
	}
	if realm == "" {
		realm = "mcp"
	}
	return &Middleware{validator: validator, skipPaths: sp, realm: realm}
}

// Wrap returns an http.Handler that validates the Authorization header
// before delegating to next, unless the request path is exempted.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		rawToken, err := bearerToken(r)
		if err != nil {
			m.writeUnauthorized(w, err.Error())
			return
		}

		claims, err := m.validator.Validate(r.Context(), rawToken)
		if err != nil {
			m.writeUnauthorized(w, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errs.New(errs.KindTokenValidation, "missing Authorization header")
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", errs.New(errs.KindTokenValidation, "Authorization header must use the Bearer scheme")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", errs.New(errs.KindTokenValidation, "empty bearer token")
	}
	return token, nil
}

func (m *Middleware) writeUnauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm=%q, error="invalid_token"`, m.realm))
	http.Error(w, reason, http.StatusUnauthorized)
}
