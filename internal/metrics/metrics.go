// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for script invocations.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeTimeout = "timeout"
	OutcomeParse   = "parse_error"
)

var (
	// ScriptInvocations counts automation script runs.
	ScriptInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shorts",
			Subsystem: "automation",
			Name:      "invocations_total",
			Help:      "Automation script invocations by verb and outcome.",
		},
		[]string{"verb", "outcome"},
	)

	// ScriptDuration observes automation script wall time.
	ScriptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shorts",
			Subsystem: "automation",
			Name:      "duration_seconds",
			Help:      "Automation script run time by verb.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 900},
		},
		[]string{"verb"},
	)

	// HTTPRequests counts API requests.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shorts",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		},
		[]string{"route", "method", "status"},
	)

	// UploadsRecorded counts history records written.
	UploadsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shorts",
			Subsystem: "uploads",
			Name:      "recorded_total",
			Help:      "Completed uploads recorded to history, by source.",
		},
		[]string{"source"},
	)

	// OrchestratorRuns counts orchestrated function runs.
	OrchestratorRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shorts",
			Subsystem: "orchestrator",
			Name:      "runs_total",
			Help:      "Orchestrated function runs by function and outcome.",
		},
		[]string{"function", "outcome"},
	)
)

// Register adds every collector to reg. Collectors already present are skipped.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		ScriptInvocations, ScriptDuration, HTTPRequests, UploadsRecorded, OrchestratorRuns,
	} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}
