// Package metrics holds the prometheus collectors of the runtime.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowcore_steps_total",
			Help: "Total number of executed steps",
		},
		[]string{"operation", "result"},
	)

	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowcore_step_duration_seconds",
			Help:    "Step duration in seconds, persistence included",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	NodeTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowcore_node_transitions_total",
			Help: "Node status transitions committed",
		},
		[]string{"node_type", "to"},
	)

	NodeFaultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowcore_node_faults_total",
			Help: "Node faults attached to a process",
		},
		[]string{"definition_id"},
	)

	WorkflowsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowcore_workflows_finished_total",
			Help: "Workflow instances that reached a terminal status",
		},
		[]string{"definition_id", "status"},
	)

	PersistenceConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flowcore_persistence_conflicts_total",
			Help: "State writes rejected by the optimistic version check",
		},
	)

	StaleEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flowcore_stale_events_total",
			Help: "Dispatches against a missing or already completed event record",
		},
	)
)
