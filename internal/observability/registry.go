// Package observability provides Prometheus registry construction and its
// /metrics handler, used by the mcpd serve command, plus OpenTelemetry
// tracer and span helpers. No other package in this module calls the
// tracing helpers.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry builds a Prometheus registry pre-populated with the Go
// runtime and process collectors, matching the default metrics every
// `promauto`-registered collector in this module is expected to sit
// alongside.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns the `/metrics` HTTP handler serving reg in the
// Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
