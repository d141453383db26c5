// Package catch provides intermediate catch events that suspend a path until a
// message arrives or a timer fires.
package catch

import (
	"context"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/nodes"
	"github.com/dukex/flowcore/pkg/protocol"
)

type MessageCatchEvent struct {
	nodes.Base

	id      string
	message *Message
}

func NewMessageCatchEvent(id string, config map[string]any) (*MessageCatchEvent, error) {
	message, err := ParseMessage(config)
	if err != nil {
		return nil, err
	}

	return &MessageCatchEvent{id: id, message: message}, nil
}

func (n *MessageCatchEvent) Start(_ context.Context, wctx protocol.Context, _ *protocol.NodeContext, _ *protocol.FlowContext) (protocol.Result, error) {
	correlationID, err := n.message.CorrelationID(wctx)
	if err != nil {
		return protocol.Fault(err.Error()), nil
	}

	return protocol.Waiting(protocol.Wait{Kind: models.EventKindMessage, CorrelationID: correlationID}), nil
}

func (n *MessageCatchEvent) Resume(ctx context.Context, wctx protocol.Context, node *protocol.NodeContext) (protocol.Result, error) {
	return nodes.PassThrough(ctx, wctx, node), nil
}

type TimerCatchEvent struct {
	nodes.Base

	id    string
	timer *Timer
}

func NewTimerCatchEvent(id string, config map[string]any) (*TimerCatchEvent, error) {
	timer, err := ParseTimer(config)
	if err != nil {
		return nil, err
	}

	return &TimerCatchEvent{id: id, timer: timer}, nil
}

func (n *TimerCatchEvent) Start(_ context.Context, wctx protocol.Context, _ *protocol.NodeContext, _ *protocol.FlowContext) (protocol.Result, error) {
	due := n.timer.DueAt(wctx.Now())

	return protocol.Waiting(protocol.Wait{
		Kind:          models.EventKindTimer,
		CorrelationID: "timer:" + wctx.WorkflowID() + ":" + n.id,
		DueAt:         &due,
	}), nil
}

func (n *TimerCatchEvent) Resume(ctx context.Context, wctx protocol.Context, node *protocol.NodeContext) (protocol.Result, error) {
	return nodes.PassThrough(ctx, wctx, node), nil
}
