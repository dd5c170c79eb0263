package workload

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mtdbench",
			Name:      "client_requests_total",
			Help:      "Workload client polls by outcome",
		},
		[]string{"outcome"},
	)

	metricLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mtdbench",
			Name:      "client_latency_seconds",
			Help:      "Latency of successful workload client polls",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)
)

func observe(s Sample) {
	metricRequests.WithLabelValues(string(s.Outcome)).Inc()
	if s.OK() {
		metricLatency.Observe(s.Latency.Seconds())
	}
}
