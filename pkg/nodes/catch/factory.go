// Package catch provides the message and timer catch event factories.
package catch

import (
	"context"

	"github.com/dukex/flowcore/pkg/protocol"
)

const (
	MessageTypeID = "messageCatchEvent"
	TimerTypeID   = "timerCatchEvent"
)

type MessageCatchEventFactory struct{}

func (f *MessageCatchEventFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewMessageCatchEvent(id, config)
}

func (f *MessageCatchEventFactory) ID() string {
	return MessageTypeID
}

func (f *MessageCatchEventFactory) Name() string {
	return "Message Catch Event"
}

func (f *MessageCatchEventFactory) Description() string {
	return "Suspends the path until a message with the matching correlation key is dispatched."
}

func (f *MessageCatchEventFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Name of the awaited message",
			},
			"correlation": map[string]any{
				"type":        "string",
				"description": "Template rendering the correlation key, e.g. order-{{ .variables.order_id }}",
			},
		},
		"required": []string{"message"},
	}
}

func NewMessageCatchEventFactory() protocol.NodeFactory {
	return &MessageCatchEventFactory{}
}

type TimerCatchEventFactory struct{}

func (f *TimerCatchEventFactory) Create(ctx context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewTimerCatchEvent(id, config)
}

func (f *TimerCatchEventFactory) ID() string {
	return TimerTypeID
}

func (f *TimerCatchEventFactory) Name() string {
	return "Timer Catch Event"
}

func (f *TimerCatchEventFactory) Description() string {
	return "Suspends the path until the timer event record is dispatched by a scheduler."
}

func (f *TimerCatchEventFactory) Schema() map[string]any {
	return TimerSchema()
}

// TimerSchema is shared with boundary timers.
func TimerSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"duration": map[string]any{
				"type":        "string",
				"description": "Delay after activation, as a Go duration (e.g. 15m, 2h)",
			},
			"cron": map[string]any{
				"type":        "string",
				"description": "5-field cron expression; the timer is due at the next match",
			},
			"at": map[string]any{
				"type":        "string",
				"format":      "date-time",
				"description": "Absolute RFC3339 due time",
			},
		},
	}
}

func NewTimerCatchEventFactory() protocol.NodeFactory {
	return &TimerCatchEventFactory{}
}
