package protocol

import (
	"time"

	"github.com/dukex/flowcore/pkg/models"
)

type ResultKind string

const (
	ResultOutcomes ResultKind = "outcomes"
	ResultNoop     ResultKind = "noop"
	ResultFault    ResultKind = "fault"
	ResultWaiting  ResultKind = "waiting"
)

// Wait describes the signal a suspended node expects.
type Wait struct {
	Kind          models.EventKind
	CorrelationID string
	DueAt         *time.Time
}

// Result is the outcome of executing one node. It is consumed by the executor and
// never persisted.
type Result struct {
	Kind   ResultKind
	Flows  []string
	Reason string
	Wait   *Wait

	// Variables are merged into the workflow variables, Output into the workflow output.
	Variables map[string]any
	Output    map[string]any

	// User records who completed a user task.
	User string

	// Interrupting is set by boundary events that cancel their host.
	Interrupting bool
}

func Outcomes(flows ...string) Result {
	return Result{Kind: ResultOutcomes, Flows: flows}
}

func Noop(reason string) Result {
	return Result{Kind: ResultNoop, Reason: reason}
}

func Fault(reason string) Result {
	return Result{Kind: ResultFault, Reason: reason}
}

func Waiting(wait Wait) Result {
	return Result{Kind: ResultWaiting, Wait: &wait}
}

func (r Result) WithVariables(variables map[string]any) Result {
	r.Variables = variables

	return r
}

func (r Result) WithOutput(output map[string]any) Result {
	r.Output = output

	return r
}

func (r Result) WithReason(reason string) Result {
	r.Reason = reason

	return r
}

func (r Result) IsOutcomes() bool {
	return r.Kind == ResultOutcomes
}
