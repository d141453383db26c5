// Package protocol defines the interfaces and contracts for pluggable nodes.
package protocol

import (
	"context"

	"github.com/dukex/flowcore/pkg/models"
)

// NodeFactory creates node behaviors and provides metadata about the node type.
type NodeFactory interface {
	// Create creates a new node behavior with the given configuration
	Create(ctx context.Context, id string, config map[string]any) (Node, error)

	// ID returns the type tag this factory is registered under
	ID() string

	// Name returns the human-readable name for this node type
	Name() string

	// Description returns a description of what this node does
	Description() string

	// Schema returns the JSON schema for configuring this node
	Schema() map[string]any
}

// Node is the execution behavior of a node type.
type Node interface {
	// Start runs when the node becomes eligible. incoming is nil for start nodes.
	// Calling it twice for the same activation must not fire outgoing flows twice.
	Start(ctx context.Context, wctx Context, node *NodeContext, incoming *FlowContext) (Result, error)

	// Resume runs for nodes left Waiting; delivered data is in wctx.Input().
	Resume(ctx context.Context, wctx Context, node *NodeContext) (Result, error)

	// PossibleOutcomes declares the exits the node can take.
	PossibleOutcomes(wctx Context, node *NodeContext) []Outcome

	// PostExecuteCheck verifies the structural contract of the node type after
	// Start or Resume. An error is fatal to the step.
	PostExecuteCheck(ctx context.Context, wctx Context, node *NodeContext, result Result) error
}

// Flow is the behavior attached to a flow, typically a guard.
type Flow interface {
	Evaluate(ctx context.Context, wctx Context, flow *models.FlowRecord) (bool, error)
}

// Outcome is a named exit of a node.
type Outcome struct {
	FlowID      string `json:"flow_id"`
	Destination string `json:"destination"`
	Condition   string `json:"condition,omitempty"`
	IsDefault   bool   `json:"is_default,omitempty"`
}

// NodeContext pairs a node record with its resolved behavior for one step.
type NodeContext struct {
	Record     *models.NodeRecord
	Behavior   Node
	Properties map[string]any
}

func (n *NodeContext) ID() string {
	return n.Record.ID
}

// Property returns a declared property or nil.
func (n *NodeContext) Property(name string) any {
	if n.Properties == nil {
		return nil
	}

	return n.Properties[name]
}

// FlowContext pairs a flow record with its behavior for one step.
type FlowContext struct {
	Record   *models.FlowRecord
	Behavior Flow
}

func (f *FlowContext) ID() string {
	return f.Record.ID
}

// Evaluate runs the flow guard; flows without behavior always hold.
func (f *FlowContext) Evaluate(ctx context.Context, wctx Context) (bool, error) {
	if f.Behavior == nil {
		return true, nil
	}

	return f.Behavior.Evaluate(ctx, wctx, f.Record)
}
