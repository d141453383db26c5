package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/flowcore/pkg/events"
)

type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger

	mu            sync.RWMutex
	subscriptions map[events.EventType]EventHandler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) *WatermillEventBus {
	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		logger:        logger.With("module", "eventbus"),
		subscriptions: make(map[events.EventType]EventHandler),
	}
}

var _ EventBus = (*WatermillEventBus)(nil)

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

// Publish sends the event to the shared topic. The key becomes the partition key on
// transports that support one, so events of one workflow stay ordered.
func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", event.GetType(), err)
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(events.Topic, msg)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			eb.dispatch(ctx, msg)
		}
	}()

	return nil
}

func (eb *WatermillEventBus) dispatch(ctx context.Context, msg *message.Message) {
	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

	eb.mu.RLock()
	handler, exists := eb.subscriptions[eventType]
	eb.mu.RUnlock()

	if !exists {
		msg.Ack()

		return
	}

	event, err := Decode(eventType, msg.Payload)
	if err != nil {
		// A payload that cannot be decoded will never succeed; drop it.
		eb.logger.ErrorContext(ctx, "dropping undecodable message", "event_type", eventType, "message_id", msg.UUID, "error", err)
		msg.Ack()

		return
	}

	if err := handler(ctx, event); err != nil {
		eb.logger.WarnContext(ctx, "event handler failed", "event_type", eventType, "message_id", msg.UUID, "error", err)
		msg.Nack()

		return
	}

	msg.Ack()
}

// Decode unmarshals a payload into the event type named by eventType.
func Decode(eventType events.EventType, payload []byte) (any, error) {
	var event any

	switch eventType {
	case events.WorkflowStartedEvent:
		event = &events.WorkflowStarted{}
	case events.ProcessStartedEvent:
		event = &events.ProcessStarted{}
	case events.ProcessFinishedEvent:
		event = &events.ProcessFinished{}
	case events.WorkflowFinishedEvent:
		event = &events.WorkflowFinished{}
	case events.StartWorkflowRequestedEvent:
		event = &events.StartWorkflowRequested{}
	case events.ResumeWorkflowRequestedEvent:
		event = &events.ResumeWorkflowRequested{}
	case events.DispatchEventRequestedEvent:
		event = &events.DispatchEventRequested{}
	case events.TerminateWorkflowRequestedEvent:
		event = &events.TerminateWorkflowRequested{}
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	if err := json.Unmarshal(payload, event); err != nil {
		return nil, err
	}

	return event, nil
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscriptions[eventType] = handler

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}
