// Package boundary provides boundary events attached to waiting nodes.
package boundary

import (
	"context"
	"fmt"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/nodes"
	"github.com/dukex/flowcore/pkg/nodes/catch"
	"github.com/dukex/flowcore/pkg/protocol"
)

// BoundaryEvent is armed by the executor when its host suspends.
type BoundaryEvent struct {
	nodes.Base

	id             string
	message        *catch.Message
	timer          *catch.Timer
	cancelActivity bool
}

func NewBoundaryEvent(id string, config map[string]any) (*BoundaryEvent, error) {
	event, err := nodes.RequiredString(config, "event")
	if err != nil {
		return nil, err
	}

	cancelActivity, err := nodes.Bool(config, "cancel_activity", true)
	if err != nil {
		return nil, err
	}

	node := &BoundaryEvent{id: id, cancelActivity: cancelActivity}

	switch event {
	case "message":
		node.message, err = catch.ParseMessage(config)
	case "timer":
		node.timer, err = catch.ParseTimer(config)
	default:
		err = fmt.Errorf("unsupported boundary event '%s'", event)
	}

	if err != nil {
		return nil, err
	}

	return node, nil
}

func (n *BoundaryEvent) Start(_ context.Context, wctx protocol.Context, _ *protocol.NodeContext, _ *protocol.FlowContext) (protocol.Result, error) {
	if n.timer != nil {
		due := n.timer.DueAt(wctx.Now())

		return protocol.Waiting(protocol.Wait{
			Kind:          models.EventKindTimer,
			CorrelationID: "timer:" + wctx.WorkflowID() + ":" + n.id,
			DueAt:         &due,
		}), nil
	}

	correlationID, err := n.message.CorrelationID(wctx)
	if err != nil {
		return protocol.Fault(err.Error()), nil
	}

	return protocol.Waiting(protocol.Wait{Kind: models.EventKindMessage, CorrelationID: correlationID}), nil
}

func (n *BoundaryEvent) Resume(ctx context.Context, wctx protocol.Context, node *protocol.NodeContext) (protocol.Result, error) {
	result := nodes.PassThrough(ctx, wctx, node)
	result.Interrupting = result.IsOutcomes() && n.cancelActivity

	return result, nil
}

func (n *BoundaryEvent) IsInterrupting() bool {
	return n.cancelActivity
}
