package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// occurrencesCreatedTotal counts events materialized from rules.
	occurrencesCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recurrence_occurrences_created_total",
		Help: "Events created from recurring rules",
	}, []string{"recurrence_type"})

	// occurrencesSkippedTotal counts occurrences that already had an event.
	occurrencesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recurrence_occurrences_skipped_total",
		Help: "Occurrences skipped because a live event already exists",
	}, []string{"reason"})

	// agendaFailuresTotal counts best-effort agenda writes that failed.
	agendaFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recurrence_agenda_failures_total",
		Help: "Agenda records that could not be created for new events",
	})

	// materializeErrorsTotal counts aborted materializations by failing stage.
	materializeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recurrence_materialize_errors_total",
		Help: "Materialization calls aborted by a storage failure",
	}, []string{"stage"})

	// materializeDurationSeconds observes whole materialization calls.
	materializeDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recurrence_materialize_duration_seconds",
		Help:    "Duration of one rule materialization in seconds",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	})
)
