package web

// StartWorkflowRequest is the body of POST /definitions/:id/start.
type StartWorkflowRequest struct {
	StartNodeID   string         `json:"start_node_id,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Parameters    map[string]any `json:"parameters,omitempty"`
}

// ResumeWorkflowRequest is the body of POST /workflows/:id/nodes/:nodeId/resume.
type ResumeWorkflowRequest struct {
	Parameters map[string]any `json:"parameters,omitempty"`
}

type TerminateWorkflowRequest struct {
	Reason string `json:"reason" validate:"max=1024"`
}

type DispatchEventRequest struct {
	Parameters  map[string]any `json:"parameters,omitempty"`
	IsCompleted bool           `json:"is_completed"`
}

// NodeTypeResponse describes a registered node type.
type NodeTypeResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}
