package capture

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	kindTail   = "tail"
	kindSanity = "sanity"
)

var (
	metricCapturesStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mtdbench",
			Name:      "captures_started_total",
			Help:      "Log captures started, by kind (tail, sanity)",
		},
		[]string{"kind"},
	)

	metricCaptureFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mtdbench",
			Name:      "capture_failures_total",
			Help:      "Log captures that failed to start or exited with an error, by kind",
		},
		[]string{"kind"},
	)

	metricRunningPods = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mtdbench",
			Name:      "running_pods",
			Help:      "Ensemble pods in Running phase at the last poll",
		},
	)

	metricUniquePods = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mtdbench",
			Name:      "unique_pods",
			Help:      "Distinct pod identities seen in the current capture run",
		},
	)
)
