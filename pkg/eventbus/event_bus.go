// Package eventbus carries domain and command events between the runtime and its workers.
package eventbus

import (
	"context"
	"fmt"

	"github.com/dukex/flowcore/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

// EventPublisher sends an event. key orders delivery: events sharing a key (the
// workflow id) reach consumers in publish order.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the decoded event. Returning an error nacks the
// message so the transport redelivers it.
type EventHandler func(ctx context.Context, event any) error

// Handlers binds event types to handlers.
type Handlers map[events.EventType]EventHandler

// Register installs every handler on the subscriber.
func (h Handlers) Register(subscriber EventSubscriber) error {
	for eventType, handler := range h {
		if err := subscriber.Handle(eventType, handler); err != nil {
			return fmt.Errorf("failed to register handler for %s: %w", eventType, err)
		}
	}

	return nil
}

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
