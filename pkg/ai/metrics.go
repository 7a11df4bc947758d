package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arena",
		Subsystem: "ai",
		Name:      "upstream_duration_seconds",
		Help:      "Duration of calls to scoring dependencies",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"provider"})

	upstreamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arena",
		Subsystem: "ai",
		Name:      "upstream_failures_total",
		Help:      "Number of failed calls to scoring dependencies",
	}, []string{"provider", "kind"})
)

func recordFailure(provider string, err error) {
	kind := string(KindOf(err))
	if kind == "" {
		kind = "unknown"
	}
	upstreamFailures.WithLabelValues(provider, kind).Inc()
}
