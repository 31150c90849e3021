package oauth2

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	_, pubJWK := generateTestKeyPair(t)
	srv := newTestJWKSServer(t, pubJWK)
	t.Cleanup(srv.Close)
	cache := NewJWKSCache(srv.URL, time.Hour)
	return NewValidator(cache, "https://issuer.example.com", "mcp-runtime")
}

func passthroughHandler() (http.Handler, *bool) {
	called := false
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	return h, &called
}

func TestMiddlewareRejectsMissingAuthorizationHeader(t *testing.T) {
	validator := newTestValidator(t)
	mw := NewMiddleware(validator, nil, "")
	next, called := passthroughHandler()

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	rec := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if *called {
		t.Error("next handler should not have been called")
	}
}

func TestMiddlewareRejectsMalformedAuthorizationHeader(t *testing.T) {
	validator := newTestValidator(t)
	mw := NewMiddleware(validator, nil, "")
	next, called := passthroughHandler()

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if *called {
		t.Error("next handler should not have been called")
	}
}

func TestMiddlewareRejectsInvalidToken(t *testing.T) {
	validator := newTestValidator(t)
	mw := NewMiddleware(validator, nil, "")
	next, called := passthroughHandler()

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if *called {
		t.Error("next handler should not have been called")
	}
}

func TestMiddlewareAllowsValidTokenAndAttachesClaims(t *testing.T) {
	key, pubJWK := generateTestKeyPair(t)
	srv := newTestJWKSServer(t, pubJWK)
	defer srv.Close()
	cache := NewJWKSCache(srv.URL, time.Hour)
	validator := NewValidator(cache, "https://issuer.example.com", "mcp-runtime")
	mw := NewMiddleware(validator, nil, "")

	var gotClaims *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://issuer.example.com",
			Subject:   "user-1",
			Audience:  jwt.ClaimStrings{"mcp-runtime"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Scope: "mcp:tools:execute",
	}
	token := signTestToken(t, key, pubJWK.Kid, claims)

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotClaims == nil || gotClaims.Subject != "user-1" {
		t.Errorf("claims not attached to request context: %+v", gotClaims)
	}
}

func TestMiddlewareSkipsPathsInSkipList(t *testing.T) {
	validator := newTestValidator(t)
	mw := NewMiddleware(validator, []string{"/health"}, "")
	next, called := passthroughHandler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mw.Wrap(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !*called {
		t.Error("next handler should have been called for a skip-listed path")
	}
}
