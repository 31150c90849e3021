package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"

	"github.com/airsstack-go/mcp-runtime/internal/correlation"
	"github.com/airsstack-go/mcp-runtime/internal/procpool"
)

// HealthResponse is the JSON response from the /health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version,omitempty"`
}

// HealthChecker verifies the health of the runtime's background
// components, grounded on the teacher's HealthChecker (session store,
// rate limiter, audit channel depth) generalized to this module's own
// backpressure-bearing components (correlation table, worker pool).
type HealthChecker struct {
	conn    *ConnectionManager
	corr    *correlation.Manager
	pool    *procpool.Pool
	version string
}

// NewHealthChecker builds a HealthChecker. Any argument may be nil for a
// component that isn't wired into this deployment.
func NewHealthChecker(conn *ConnectionManager, corr *correlation.Manager, pool *procpool.Pool, version string) *HealthChecker {
	return &HealthChecker{conn: conn, corr: corr, pool: pool, version: version}
}

// Check runs all configured component checks.
func (h *HealthChecker) Check() HealthResponse {
	checks := make(map[string]string)
	healthy := true

	if h.conn != nil {
		checks["sessions"] = fmt.Sprintf("ok: %d active", h.conn.Count())
	} else {
		checks["sessions"] = "not configured"
	}

	if h.corr != nil {
		pending := h.corr.Pending()
		if pending >= correlation.DefaultCapacity {
			checks["correlation"] = fmt.Sprintf("degraded: %d/%d pending", pending, correlation.DefaultCapacity)
			healthy = false
		} else {
			checks["correlation"] = fmt.Sprintf("ok: %d pending", pending)
		}
	} else {
		checks["correlation"] = "not configured"
	}

	if h.pool == nil {
		checks["worker_pool"] = "not configured"
	} else {
		checks["worker_pool"] = "ok"
	}

	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	return HealthResponse{Status: status, Checks: checks, Version: h.version}
}

// Handler returns the /health HTTP handler.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check()
		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(health)
	})
}
