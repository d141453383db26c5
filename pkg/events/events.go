// Package events defines event types and structures for workflow lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic is the single bus topic carrying domain and command events.
const Topic = "flowcore.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Domain events raised by the executor.
	WorkflowStartedEvent  EventType = "workflow.started"
	ProcessStartedEvent   EventType = "process.started"
	ProcessFinishedEvent  EventType = "process.finished"
	WorkflowFinishedEvent EventType = "workflow.finished"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	WorkerID   string         `json:"worker_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent fills the common fields of an event.
func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

type WorkflowStarted struct {
	BaseEvent

	DefinitionID  string `json:"definition_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
	StartNodeID   string `json:"start_node_id"`
}

func (w WorkflowStarted) GetType() EventType {
	return WorkflowStartedEvent
}

type ProcessStarted struct {
	BaseEvent

	ProcessID string `json:"process_id"`
}

func (p ProcessStarted) GetType() EventType {
	return ProcessStartedEvent
}

// ProcessFinished is raised once per process when it completes, faults or is terminated.
type ProcessFinished struct {
	BaseEvent

	ProcessID    string `json:"process_id"`
	Status       string `json:"status"`
	FaultMessage string `json:"fault_message,omitempty"`
}

func (p ProcessFinished) GetType() EventType {
	return ProcessFinishedEvent
}

type WorkflowFinished struct {
	BaseEvent

	DefinitionID string         `json:"definition_id"`
	Status       string         `json:"status"`
	Output       map[string]any `json:"output,omitempty"`
	Duration     time.Duration  `json:"duration"`
}

func (w WorkflowFinished) GetType() EventType {
	return WorkflowFinishedEvent
}
