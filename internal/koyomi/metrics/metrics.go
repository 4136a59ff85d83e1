// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registry every Koyomi collector is registered on. It is
// separate from prometheus.DefaultRegisterer so tests and embedders get a
// predictable set of series.
var Registry = prometheus.NewRegistry()

var (
	// Events counts inbound chat events by kind (message, action) and
	// outcome (replied, no_action, error, dropped).
	Events = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "koyomi",
		Name:      "events_total",
		Help:      "Inbound chat events by kind and outcome.",
	}, []string{"kind", "outcome"})

	// Intents counts classified messages by top intent.
	Intents = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "koyomi",
		Name:      "intents_total",
		Help:      "Classified messages by top-ranked intent.",
	}, []string{"intent"})

	// GatewayRequests counts calendar gateway calls by operation and
	// outcome (ok, gateway_error, transport_error).
	GatewayRequests = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "koyomi",
		Name:      "calendar_requests_total",
		Help:      "Calendar gateway calls by operation and outcome.",
	}, []string{"operation", "outcome"})

	// GatewayLatency observes calendar gateway round-trip time.
	GatewayLatency = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "koyomi",
		Name:      "calendar_request_duration_seconds",
		Help:      "Calendar gateway round-trip time.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveGateway records one calendar gateway call.
func ObserveGateway(operation, outcome string, started time.Time) {
	GatewayRequests.WithLabelValues(operation, outcome).Inc()
	GatewayLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
