// Package metrics defines the Prometheus instruments exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catchat_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catchat_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// RouteDecisions counts which path answered a chat message.
	RouteDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catchat_route_decisions_total",
			Help: "Chat messages answered per routing path",
		},
		[]string{"path"},
	)

	CompletionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catchat_completion_latency_seconds",
			Help:    "Completion provider latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
		[]string{"provider"},
	)

	// CompletionFallbacks counts replies served from fallback text.
	CompletionFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catchat_completion_fallbacks_total",
			Help: "Completions replaced by deterministic fallback text",
		},
		[]string{"kind"},
	)

	RecorderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catchat_recorder_attempts_total",
			Help: "Chat history insert attempts by outcome",
		},
		[]string{"outcome"},
	)

	ActiveWebsockets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catchat_active_websockets",
			Help: "Number of open websocket chat sessions",
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
