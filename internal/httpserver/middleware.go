package httpserver

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/airsstack-go/mcp-runtime/internal/ctxkey"
)

// requestIDContextKey is the context key type for the per-request
// correlation id, distinct from the MCP session id carried by
// ctxkey.SessionIDKey.
type requestIDContextKey struct{}

// RequestIDKey is the context key for the per-request correlation id.
var RequestIDKey = requestIDContextKey{}

// LoggerKey is the context key for the request-enriched logger. It uses
// the shared ctxkey type so other packages can read it without an
// import on httpserver.
var LoggerKey = ctxkey.LoggerKey{}

// RequestIDMiddleware extracts or generates a request id, enriches the
// logger with it plus the MCP session id header if present, stores both
// in the request context, and echoes the id back as a response header.
func RequestIDMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			enriched := logger.With("request_id", requestID)
			if sessionID := r.Header.Get(MCPSessionIDHeader); sessionID != "" {
				enriched = enriched.With("session_id", sessionID)
			}

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			ctx = context.WithValue(ctx, LoggerKey, enriched)

			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggerFromContext retrieves the request-enriched logger, falling back
// to slog.Default() if RequestIDMiddleware did not run.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// DNSRebindingProtection validates the Origin header against an
// allowlist, the standard defense against a browser-hosted page using
// the user's cookies/local-network trust to reach a local MCP server.
// Requests without an Origin header are allowed (same-origin or a
// non-browser client such as this module's own SDK).
func DNSRebindingProtection(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := allowed[origin]; !ok {
				http.Error(w, "Forbidden: origin not allowed", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RealIPMiddleware extracts the client's real IP address for logging
// and rate limiting, checking X-Forwarded-For and X-Real-IP before
// falling back to RemoteAddr. Only the first X-Forwarded-For hop is
// trusted, since later hops are attacker-controllable.
func RealIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := extractRealIP(r)
		ctx := context.WithValue(r.Context(), realIPContextKey{}, ip)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type realIPContextKey struct{}

// RealIPFromContext retrieves the IP address RealIPMiddleware resolved,
// or the empty string if it did not run.
func RealIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(realIPContextKey{}).(string)
	return ip
}

func extractRealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if ip := strings.TrimSpace(ips[0]); ip != "" {
			return ip
		}
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
