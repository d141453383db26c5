// Package exclusive provides the exclusive (XOR) gateway.
package exclusive

import (
	"context"
	"fmt"

	"github.com/dukex/flowcore/pkg/nodes"
	"github.com/dukex/flowcore/pkg/protocol"
)

// ExclusiveGateway lets exactly one token through per activation.
type ExclusiveGateway struct {
	nodes.Base

	id string
}

func NewExclusiveGateway(id string, _ map[string]any) (*ExclusiveGateway, error) {
	return &ExclusiveGateway{id: id}, nil
}

func (g *ExclusiveGateway) Start(ctx context.Context, wctx protocol.Context, node *protocol.NodeContext, incoming *protocol.FlowContext) (protocol.Result, error) {
	if incoming == nil {
		return protocol.Fault(fmt.Sprintf("exclusive gateway %s requires an incoming flow", g.id)), nil
	}

	if wctx.AnyActiveFlowTo(node.ID(), incoming.ID()) {
		return protocol.Fault(fmt.Sprintf("exclusive gateway %s has more than one active incoming flow", g.id)), nil
	}

	for _, flow := range wctx.OutgoingFlows(node.ID()) {
		if flow.ID() == node.Record.Default {
			continue
		}

		ok, err := flow.Evaluate(ctx, wctx)
		if err != nil {
			return protocol.Fault(fmt.Sprintf("flow %s: %v", flow.ID(), err)), nil
		}

		if ok {
			return protocol.Outcomes(flow.ID()), nil
		}
	}

	if node.Record.Default != "" {
		return protocol.Outcomes(node.Record.Default), nil
	}

	return protocol.Outcomes(), nil
}

// PostExecuteCheck requires exactly one outgoing flow to be taken.
func (g *ExclusiveGateway) PostExecuteCheck(_ context.Context, _ protocol.Context, _ *protocol.NodeContext, result protocol.Result) error {
	if result.IsOutcomes() && len(result.Flows) != 1 {
		return fmt.Errorf("%w: exclusive gateway %s took %d outgoing flows, expected exactly one", nodes.ErrStructural, g.id, len(result.Flows))
	}

	return nil
}
