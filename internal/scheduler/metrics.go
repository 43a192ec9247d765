package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skylearn",
		Subsystem: "scheduler",
		Name:      "job_runs_total",
		Help:      "Number of scheduler job executions.",
	}, []string{"job"})

	jobErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skylearn",
		Subsystem: "scheduler",
		Name:      "job_errors_total",
		Help:      "Number of failed scheduler job executions.",
	}, []string{"job"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "skylearn",
		Subsystem: "scheduler",
		Name:      "job_duration_seconds",
		Help:      "Scheduler job wall-clock duration.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})

	lockSkips = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "skylearn",
		Subsystem: "scheduler",
		Name:      "lock_skips_total",
		Help:      "Ticks skipped because another replica held the sweep lock.",
	})
)
