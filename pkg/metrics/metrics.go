package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Spam scores of drafts and sent messages.
	SpamScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spam_score",
			Help:    "Spam score distribution",
			Buckets: prometheus.LinearBuckets(0, 1, 16),
		},
		[]string{"operation"}, // operation: send, score, refine
	)

	RefineCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draft_refine_count",
			Help: "Total number of draft refinements",
		},
		[]string{"provider", "outcome"}, // outcome: ok, fallback, unparsed
	)

	// Remote text-generation latency in milliseconds.
	RemoteCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remote_call_latency_ms",
			Help:    "Remote text-generation call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"endpoint", "status"},
	)

	DispatchCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_dispatch_count",
			Help: "Total number of dispatch attempts",
		},
		[]string{"transport", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation", "table"},
	)

	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of queries above the slow threshold",
		},
		[]string{"command"},
	)

	EventPublishCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_publish_count",
			Help: "Total number of published events",
		},
		[]string{"routing_key", "status"},
	)
)

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func ObserveSpamScore(operation string, score int) {
	SpamScore.WithLabelValues(operation).Observe(float64(score))
}

func IncrementRefine(provider, outcome string) {
	RefineCount.WithLabelValues(provider, outcome).Inc()
}

func RecordRemoteCallLatency(endpoint, status string, duration time.Duration) {
	RemoteCallLatency.WithLabelValues(endpoint, status).Observe(float64(duration.Milliseconds()))
}

func IncrementDispatch(transport, status string) {
	DispatchCount.WithLabelValues(transport, status).Inc()
}

func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery counts a slow statement under its leading SQL keyword.
func IncrementSlowQuery(command string) {
	SlowQueryCount.WithLabelValues(command).Inc()
}

func IncrementEventPublish(routingKey, status string) {
	EventPublishCount.WithLabelValues(routingKey, status).Inc()
}
