package httpserver

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDMiddlewareGeneratesIDWhenMissing(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var gotID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = r.Context().Value(RequestIDKey).(string)
	})

	handler := RequestIDMiddleware(logger)(next)
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotID == "" {
		t.Fatal("expected a generated request id in context")
	}
	if rec.Header().Get("X-Request-ID") != gotID {
		t.Errorf("X-Request-ID header = %q, want %q", rec.Header().Get("X-Request-ID"), gotID)
	}
}

func TestRequestIDMiddlewarePreservesIncomingID(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var gotID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = r.Context().Value(RequestIDKey).(string)
	})

	handler := RequestIDMiddleware(logger)(next)
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotID != "req-123" {
		t.Errorf("request id = %q, want req-123", gotID)
	}
}

func TestLoggerFromContextFallsBackToDefault(t *testing.T) {
	logger := LoggerFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	if logger == nil {
		t.Fatal("expected a non-nil fallback logger")
	}
}

func TestDNSRebindingProtectionAllowsNoOriginHeader(t *testing.T) {
	handler := DNSRebindingProtection(nil)(okHandler())
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestDNSRebindingProtectionRejectsUnlistedOrigin(t *testing.T) {
	handler := DNSRebindingProtection([]string{"https://trusted.example"})(okHandler())
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestDNSRebindingProtectionAllowsListedOrigin(t *testing.T) {
	handler := DNSRebindingProtection([]string{"https://trusted.example"})(okHandler())
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Origin", "https://trusted.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRealIPMiddlewarePrefersForwardedFor(t *testing.T) {
	var gotIP string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = RealIPFromContext(r.Context())
	})

	handler := RealIPMiddleware(next)
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	req.RemoteAddr = "10.0.0.1:54321"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotIP != "203.0.113.5" {
		t.Errorf("RealIP = %q, want 203.0.113.5", gotIP)
	}
}

func TestRealIPMiddlewareFallsBackToRemoteAddr(t *testing.T) {
	var gotIP string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = RealIPFromContext(r.Context())
	})

	handler := RealIPMiddleware(next)
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.RemoteAddr = "198.51.100.7:54321"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotIP != "198.51.100.7" {
		t.Errorf("RealIP = %q, want 198.51.100.7", gotIP)
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
