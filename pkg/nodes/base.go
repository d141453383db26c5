// Package nodes provides helpers shared by the built-in node types.
package nodes

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/dukex/flowcore/pkg/protocol"
)

// ErrStructural marks violations of a node type contract detected after execution.
var ErrStructural = errors.New("structural violation")

// Base provides the default behavior of the optional parts of protocol.Node.
type Base struct{}

func (Base) Resume(_ context.Context, _ protocol.Context, node *protocol.NodeContext) (protocol.Result, error) {
	return protocol.Fault(fmt.Sprintf("node %s (%s) cannot be resumed", node.ID(), node.Record.Type)), nil
}

// PossibleOutcomes lists every outgoing flow.
func (Base) PossibleOutcomes(wctx protocol.Context, node *protocol.NodeContext) []protocol.Outcome {
	return Outcomes(wctx, node)
}

func (Base) PostExecuteCheck(context.Context, protocol.Context, *protocol.NodeContext, protocol.Result) error {
	return nil
}

// Outcomes describes the outgoing flows of a node.
func Outcomes(wctx protocol.Context, node *protocol.NodeContext) []protocol.Outcome {
	flows := wctx.OutgoingFlows(node.ID())
	outcomes := make([]protocol.Outcome, 0, len(flows))

	for _, flow := range flows {
		outcomes = append(outcomes, protocol.Outcome{
			FlowID:      flow.ID(),
			Destination: flow.Record.DestinationRef,
			Condition:   flow.Record.ConditionExpression,
			IsDefault:   flow.ID() == node.Record.Default,
		})
	}

	return outcomes
}

// SelectFlows returns every outgoing flow whose guard holds; when none holds the
// default flow is taken.
func SelectFlows(ctx context.Context, wctx protocol.Context, node *protocol.NodeContext) ([]string, error) {
	var selected []string

	for _, flow := range wctx.OutgoingFlows(node.ID()) {
		if flow.ID() == node.Record.Default {
			continue
		}

		ok, err := flow.Evaluate(ctx, wctx)
		if err != nil {
			return nil, fmt.Errorf("flow %s: %w", flow.ID(), err)
		}

		if ok {
			selected = append(selected, flow.ID())
		}
	}

	if len(selected) == 0 && node.Record.Default != "" {
		selected = append(selected, node.Record.Default)
	}

	return selected, nil
}

// PassThrough completes the node along its selected flows.
func PassThrough(ctx context.Context, wctx protocol.Context, node *protocol.NodeContext) protocol.Result {
	flows, err := SelectFlows(ctx, wctx, node)
	if err != nil {
		return protocol.Fault(err.Error())
	}

	return protocol.Outcomes(flows...)
}

type overlayContext struct {
	protocol.Context

	variables map[string]any
}

func (o overlayContext) Variables() map[string]any {
	return o.variables
}

// WithVariables returns a context whose variables include the given values, so
// guards can see assignments a node is about to return.
func WithVariables(wctx protocol.Context, variables map[string]any) protocol.Context {
	merged := maps.Clone(wctx.Variables())
	if merged == nil {
		merged = make(map[string]any, len(variables))
	}

	maps.Copy(merged, variables)

	return overlayContext{Context: wctx, variables: merged}
}
