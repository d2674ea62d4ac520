package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects tool-invocation counters and latencies. Each instance
// owns its registry, so constructing several servers in one process (tests,
// mostly) cannot trip duplicate registration.
type Metrics struct {
	registry    *prometheus.Registry
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// New builds the collectors and registers them.
func New() *Metrics {
	invocations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prolognerd_tool_invocations_total",
			Help: "Total tool invocations by tool name and outcome.",
		},
		[]string{"tool", "outcome"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prolognerd_tool_duration_seconds",
			Help:    "Tool invocation duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(invocations, duration)

	return &Metrics{
		registry:    registry,
		invocations: invocations,
		duration:    duration,
	}
}

// Observe records one finished invocation. outcome is "ok" or "error".
func (m *Metrics) Observe(tool, outcome string, elapsed time.Duration) {
	m.invocations.WithLabelValues(tool, outcome).Inc()
	m.duration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// Handler exposes the registry in Prometheus text format, for mounting at
// /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
