package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "damara_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheOperations counts cache lookups and writes by result.
	CacheOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "damara_cache_operations_total",
		Help: "Cache operations by operation and result",
	}, []string{"op", "result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "damara_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ParticipationEvents counts join and leave attempts by outcome.
	ParticipationEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "damara_participation_events_total",
		Help: "Join and leave attempts by result",
	}, []string{"action", "result"})

	// FavoriteEvents counts favorite adds and removes.
	FavoriteEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "damara_favorite_events_total",
		Help: "Favorite adds and removes",
	}, []string{"action"})

	// StatusTransitions counts applied status changes.
	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "damara_status_transitions_total",
		Help: "Post status transitions applied",
	}, []string{"from", "to"})

	// ProxyUpstreamRequests counts forwarded requests by method and upstream status.
	ProxyUpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "damara_proxy_upstream_requests_total",
		Help: "Requests forwarded by the proxy",
	}, []string{"method", "status"})

	// ProxyUpstreamDuration records upstream round-trip time.
	ProxyUpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "damara_proxy_upstream_duration_seconds",
		Help:    "Upstream round-trip time in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	// RateLimitRejections counts writes refused with 429, per budget.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "damara_rate_limit_rejections_total",
		Help: "Write requests rejected by the rate limiter",
	}, []string{"resource"})

	// ChatPollErrors counts failed chat fetch cycles on the client.
	ChatPollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "damara_chat_poll_errors_total",
		Help: "Failed chat fetch cycles",
	})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// Result labels a metric by success or failure.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
