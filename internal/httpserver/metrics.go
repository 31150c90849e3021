package httpserver

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the MCP runtime's HTTP
// transport, grounded on the teacher's Metrics/MetricsMiddleware pair but
// re-scoped from proxy/policy counters to MCP request and session
// counters.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	ActiveSessions    prometheus.Gauge
	ToolCallsTotal    *prometheus.CounterVec
	CorrelationTimeouts prometheus.Counter
	QueueDepth        prometheus.Gauge
}

// NewMetrics creates and registers every metric against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcpruntime",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed by the MCP transport",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mcpruntime",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ActiveSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mcpruntime",
				Name:      "active_sessions",
				Help:      "Number of active MCP sessions",
			},
		),
		ToolCallsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcpruntime",
				Name:      "tool_calls_total",
				Help:      "Total tools/call invocations",
			},
			[]string{"tool", "result"}, // result=ok/error
		),
		CorrelationTimeouts: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "mcpruntime",
				Name:      "correlation_timeouts_total",
				Help:      "Total requests whose correlated response never arrived in time",
			},
		),
		QueueDepth: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mcpruntime",
				Name:      "worker_pool_queue_depth",
				Help:      "Pending job count in the worker pool's bounded queue",
			},
		),
	}
}

// Middleware wraps an HTTP handler to record request_duration_seconds and
// requests_total, skipping /health and /metrics so scraping itself never
// inflates the counters it produces.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		m.RequestDuration.WithLabelValues(r.Method).Observe(duration)
		m.RequestsTotal.WithLabelValues(r.Method, statusToLabel(wrapped.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush delegates to the underlying ResponseWriter, required for SSE
// responses to pass through the metrics middleware without buffering.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func statusToLabel(code int) string {
	if code >= 200 && code < 400 {
		return "ok"
	}
	return "error"
}
