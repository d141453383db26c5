package events

const (
	// Command events consumed by the worker.
	StartWorkflowRequestedEvent     EventType = "workflow.start.requested"
	ResumeWorkflowRequestedEvent    EventType = "workflow.resume.requested"
	DispatchEventRequestedEvent     EventType = "workflow.event.dispatch.requested"
	TerminateWorkflowRequestedEvent EventType = "workflow.terminate.requested"
)

type StartWorkflowRequested struct {
	BaseEvent

	DefinitionID  string         `json:"definition_id"`
	StartNodeID   string         `json:"start_node_id,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Parameters    map[string]any `json:"parameters,omitempty"`
}

func (s StartWorkflowRequested) GetType() EventType {
	return StartWorkflowRequestedEvent
}

type ResumeWorkflowRequested struct {
	BaseEvent

	NodeID     string         `json:"node_id"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

func (r ResumeWorkflowRequested) GetType() EventType {
	return ResumeWorkflowRequestedEvent
}

// DispatchEventRequested delivers an external signal either by event record id or by
// correlation id; EventID wins when both are set.
type DispatchEventRequested struct {
	BaseEvent

	EventID       string         `json:"event_id,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	IsCompleted   bool           `json:"is_completed"`
}

func (d DispatchEventRequested) GetType() EventType {
	return DispatchEventRequestedEvent
}

type TerminateWorkflowRequested struct {
	BaseEvent

	Reason string `json:"reason,omitempty"`
}

func (t TerminateWorkflowRequested) GetType() EventType {
	return TerminateWorkflowRequestedEvent
}
