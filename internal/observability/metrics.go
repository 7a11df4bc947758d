package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
	submissionsTotal       *prometheus.CounterVec
	scoringLatencySeconds  *prometheus.HistogramVec
	realtimeConnections    prometheus.Gauge
	realtimeBroadcasts     *prometheus.CounterVec
	realtimeDroppedFrames  prometheus.Counter
	realtimeReplicatedRecv *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arena",
			Name:      "http_latency_seconds",
			Help:      "Latency distribution for HTTP requests.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5, 10, 30},
		}, []string{"method", "route"})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena",
			Name:      "submissions_total",
			Help:      "Submissions processed, by scoring mode and outcome kind.",
		}, []string{"mode", "outcome"})

		scoringLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arena",
			Name:      "scoring_latency_seconds",
			Help:      "Time spent inside a scorer.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"})

		realtimeConnections = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arena",
			Name:      "realtime_connections",
			Help:      "Currently connected realtime clients.",
		})

		realtimeBroadcasts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena",
			Name:      "realtime_broadcasts_total",
			Help:      "Leaderboard broadcasts, by origin.",
		}, []string{"origin"})

		realtimeDroppedFrames = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arena",
			Name:      "realtime_dropped_frames_total",
			Help:      "Frames dropped because a client queue was full.",
		})

		realtimeReplicatedRecv = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena",
			Name:      "realtime_replicated_events_total",
			Help:      "Submissions received from other nodes, by transport.",
		}, []string{"transport"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			submissionsTotal,
			scoringLatencySeconds,
			realtimeConnections,
			realtimeBroadcasts,
			realtimeDroppedFrames,
			realtimeReplicatedRecv,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// Submissions exposes the submission outcome counter.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// ScoringLatency exposes the scorer latency histogram.
func ScoringLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return scoringLatencySeconds
}

// RealtimeConnections exposes the connected client gauge.
func RealtimeConnections() prometheus.Gauge {
	RegisterMetrics()
	return realtimeConnections
}

// RealtimeBroadcasts exposes the broadcast counter.
func RealtimeBroadcasts() *prometheus.CounterVec {
	RegisterMetrics()
	return realtimeBroadcasts
}

// RealtimeDroppedFrames exposes the slow-client drop counter.
func RealtimeDroppedFrames() prometheus.Counter {
	RegisterMetrics()
	return realtimeDroppedFrames
}

// RealtimeReplicatedEvents exposes the cross-node receive counter.
func RealtimeReplicatedEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return realtimeReplicatedRecv
}
