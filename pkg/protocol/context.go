package protocol

import (
	"log/slog"
	"time"
)

// Context is the read view a node behavior gets of the running workflow. The
// activation queries are the only way behaviors reason about the graph.
type Context interface {
	WorkflowID() string
	DefinitionID() string
	CorrelationID() string

	// Input holds the parameters delivered with the current step.
	Input() map[string]any

	// Variables holds the workflow variables, including the merged input.
	Variables() map[string]any

	Now() time.Time
	Logger() *slog.Logger

	// AnyActiveFlowTo reports whether an incoming flow of nodeID other than
	// excludingFlowID is active.
	AnyActiveFlowTo(nodeID, excludingFlowID string) bool

	// AllFlowActiveTo reports whether every incoming flow of nodeID fired in this run.
	AllFlowActiveTo(nodeID string) bool

	// AnyIncompleteActivePathTo reports whether a pending upstream token can still
	// reach nodeID through an incoming flow that has not fired.
	AnyIncompleteActivePathTo(nodeID string) bool

	// IsNodeFinished reports whether the node snapshot is terminal.
	IsNodeFinished(nodeID string) bool

	OutgoingFlows(nodeID string) []*FlowContext
	IncomingFlows(nodeID string) []*FlowContext
}
