// Package metrics holds the Prometheus collectors for the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "herald"

var (
	// HTTPRequestsTotal counts served requests.
	// Labels:
	//   - route: the registered echo path, e.g. "/api/v1/notifications/:id/read"
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// CredentialFailures counts rejected credentials.
	// Labels:
	//   - surface: "http", "socket" or "refresh"
	//   - reason: "missing", "invalid", "expired" or "rotated"
	CredentialFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_failures_total",
			Help:      "Total number of rejected credentials",
		},
		[]string{"surface", "reason"},
	)

	// TokenIssued counts issued pairs by flow ("login", "register", "refresh").
	TokenIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Total number of token pairs issued",
		},
		[]string{"flow"},
	)

	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_connections",
			Help:      "Number of authenticated websocket connections",
		},
	)

	RealtimeEventsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_events_sent_total",
			Help:      "Events queued to websocket connections",
		},
		[]string{"type"},
	)

	// RealtimeEventsDropped counts events discarded because a connection's buffer was full.
	RealtimeEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_events_dropped_total",
			Help:      "Events dropped for slow websocket connections",
		},
		[]string{"type"},
	)

	// RelayMessages counts cross-instance relay traffic.
	// Labels:
	//   - direction: "publish" or "receive"
	//   - outcome: "ok", "error", "rejected" (breaker open) or "echo" (own message)
	RelayMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_messages_total",
			Help:      "Cross-instance relay messages",
		},
		[]string{"provider", "direction", "outcome"},
	)

	PushSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_sent_total",
			Help:      "Offline push deliveries by outcome",
		},
		[]string{"outcome"},
	)

	DBPoolWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_pool_waits_total",
			Help:      "Connections that had to wait for a free slot in the pool",
		},
	)

	DBSlowQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_slow_queries_total",
			Help:      "Queries slower than the configured threshold",
		},
	)
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordCredentialFailure records a rejected credential on surface.
func RecordCredentialFailure(surface, reason string) {
	CredentialFailures.WithLabelValues(surface, reason).Inc()
}

// RecordRelay records one relay message.
func RecordRelay(provider, direction, outcome string) {
	RelayMessages.WithLabelValues(provider, direction, outcome).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
