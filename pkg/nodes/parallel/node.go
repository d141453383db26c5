// Package parallel provides the parallel (AND) gateway.
package parallel

import (
	"context"
	"fmt"

	"github.com/dukex/flowcore/pkg/nodes"
	"github.com/dukex/flowcore/pkg/protocol"
)

type ParallelGateway struct {
	nodes.Base

	id string
}

func NewParallelGateway(id string, _ map[string]any) (*ParallelGateway, error) {
	return &ParallelGateway{id: id}, nil
}

func (g *ParallelGateway) Start(_ context.Context, wctx protocol.Context, node *protocol.NodeContext, incoming *protocol.FlowContext) (protocol.Result, error) {
	incomings := wctx.IncomingFlows(node.ID())
	if len(incomings) == 0 || incoming == nil {
		return protocol.Fault(fmt.Sprintf("parallel gateway %s requires incoming flows", g.id)), nil
	}

	if wctx.IsNodeFinished(node.ID()) {
		return protocol.Noop("parallel gateway already joined"), nil
	}

	if !wctx.AllFlowActiveTo(node.ID()) {
		return protocol.Noop(fmt.Sprintf("waiting for %d incoming flows", len(incomings))), nil
	}

	outgoing := wctx.OutgoingFlows(node.ID())
	flows := make([]string, 0, len(outgoing))

	for _, flow := range outgoing {
		flows = append(flows, flow.ID())
	}

	return protocol.Outcomes(flows...), nil
}

// PossibleOutcomes lists every outgoing flow unguarded: a fork takes them all.
func (g *ParallelGateway) PossibleOutcomes(wctx protocol.Context, node *protocol.NodeContext) []protocol.Outcome {
	outcomes := nodes.Outcomes(wctx, node)
	for i := range outcomes {
		outcomes[i].Condition = ""
		outcomes[i].IsDefault = false
	}

	return outcomes
}

// PostExecuteCheck requires a fork to take every outgoing flow.
func (g *ParallelGateway) PostExecuteCheck(_ context.Context, wctx protocol.Context, node *protocol.NodeContext, result protocol.Result) error {
	if result.IsOutcomes() && len(result.Flows) != len(wctx.OutgoingFlows(node.ID())) {
		return fmt.Errorf("%w: parallel gateway %s took %d of %d outgoing flows", nodes.ErrStructural, g.id, len(result.Flows), len(wctx.OutgoingFlows(node.ID())))
	}

	return nil
}
