package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// runsTotal counts expansion passes by outcome: ok, partial, error, canceled.
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recurrence_scheduler_runs_total",
		Help: "Expansion passes over the active rules",
	}, []string{"outcome"})

	runDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recurrence_scheduler_run_duration_seconds",
		Help:    "Duration of one expansion pass in seconds",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30, 120, 600},
	})
)
