package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records repository call latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gatherly_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ConnectionTransitions counts connection actions by action and outcome.
	ConnectionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatherly_connection_transitions_total",
		Help: "Connection requests and status transitions by action and result",
	}, []string{"action", "result"})

	// RecommendationLatency records the time spent scoring recommendations.
	RecommendationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gatherly_recommendation_latency_seconds",
		Help:    "Time to load inputs and score recommendations",
		Buckets: prometheus.DefBuckets,
	})

	// RecommendationCandidates records how many candidates survived scoring.
	RecommendationCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gatherly_recommendation_candidates",
		Help:    "Number of scored candidates before the limit is applied",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	// RSVPUpserts counts RSVP writes by resulting status and whether a row was created.
	RSVPUpserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatherly_rsvp_upserts_total",
		Help: "RSVP upserts by status and result",
	}, []string{"status", "result"})

	// NotificationsPublished counts realtime events by type.
	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatherly_notifications_published_total",
		Help: "Realtime notification events published",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatherly_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
