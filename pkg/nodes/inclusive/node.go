// Package inclusive provides the inclusive (OR) gateway.
package inclusive

import (
	"context"
	"fmt"

	"github.com/dukex/flowcore/pkg/nodes"
	"github.com/dukex/flowcore/pkg/protocol"
)

// InclusiveGateway waits for every path that can still reach it and then fires the
// matching outgoing flows once per run.
type InclusiveGateway struct {
	nodes.Base

	id string
}

func NewInclusiveGateway(id string, _ map[string]any) (*InclusiveGateway, error) {
	return &InclusiveGateway{id: id}, nil
}

func (g *InclusiveGateway) Start(ctx context.Context, wctx protocol.Context, node *protocol.NodeContext, _ *protocol.FlowContext) (protocol.Result, error) {
	if wctx.IsNodeFinished(node.ID()) {
		return protocol.Noop("inclusive gateway already joined"), nil
	}

	if wctx.AnyIncompleteActivePathTo(node.ID()) {
		return protocol.Noop("waiting for upstream paths"), nil
	}

	flows, err := nodes.SelectFlows(ctx, wctx, node)
	if err != nil {
		return protocol.Fault(err.Error()), nil
	}

	return protocol.Outcomes(flows...), nil
}

// PostExecuteCheck rejects a join that fired no outgoing flow.
func (g *InclusiveGateway) PostExecuteCheck(_ context.Context, _ protocol.Context, _ *protocol.NodeContext, result protocol.Result) error {
	if result.IsOutcomes() && len(result.Flows) == 0 {
		return fmt.Errorf("%w: inclusive gateway %s matched no outgoing flow and has no default", nodes.ErrStructural, g.id)
	}

	return nil
}
