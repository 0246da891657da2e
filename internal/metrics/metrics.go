// Package metrics defines the Prometheus instrumentation shared by all four
// gateway services, following the counter/gauge-per-label conventions used
// throughout proxy-nlb's router and rate limiter.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set holds the counters and gauges one service instance registers.
type Set struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	BackendPing     *prometheus.GaugeVec
	RoundRobinIndex *prometheus.GaugeVec
}

// New registers a fresh metric Set under the given namespace, e.g.
// "gatekeeper", "trustedhost", "proxy", "executor".
func New(namespace string) *Set {
	return &Set{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests handled, labeled by endpoint and outcome.",
			},
			[]string{"endpoint", "outcome"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request handling latency in seconds, labeled by endpoint.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		BackendPing: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "backend_ping_duration_ms",
				Help:      "Most recently observed /ping round-trip time per backend, in milliseconds.",
			},
			[]string{"backend"},
		),
		RoundRobinIndex: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "round_robin_cursor",
				Help:      "Current round-robin cursor position.",
			},
			[]string{},
		),
	}
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Healthz is the uniform liveness probe handler every service exposes.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
