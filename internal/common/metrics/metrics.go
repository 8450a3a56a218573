// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_runs_total",
			Help: "Total number of notification pipeline runs by outcome",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notifier_run_duration_seconds",
			Help:    "Duration of notification pipeline runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	SubscribersMatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifier_subscribers_matched_total",
			Help: "Total number of subscriber profiles that matched a job",
		},
	)

	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_dispatch_total",
			Help: "Total number of external dispatch attempts by channel and outcome",
		},
		[]string{"channel", "status"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active workflow jobs per worker",
		},
		[]string{"task_type"},
	)
)
