package models

import (
	"time"

	"github.com/dukex/flowcore/pkg/events"
)

type NodeStatus string

const (
	NodeStatusNotStarted NodeStatus = "not_started"
	NodeStatusActive     NodeStatus = "active"
	NodeStatusCompleted  NodeStatus = "completed"
	NodeStatusFaulted    NodeStatus = "faulted"
	NodeStatusWaiting    NodeStatus = "waiting"
)

// IsTerminal reports whether the node finished for the current activation.
func (s NodeStatus) IsTerminal() bool {
	return s == NodeStatusCompleted || s == NodeStatusFaulted
}

// IsPending reports whether the node keeps its process alive.
func (s NodeStatus) IsPending() bool {
	return s == NodeStatusActive || s == NodeStatusWaiting
}

type ProcessStatus string

const (
	ProcessStatusNotStarted ProcessStatus = "not_started"
	ProcessStatusActive     ProcessStatus = "active"
	ProcessStatusCompleted  ProcessStatus = "completed"
	ProcessStatusFaulted    ProcessStatus = "faulted"
	ProcessStatusTerminated ProcessStatus = "terminated"
)

func (s ProcessStatus) IsTerminal() bool {
	return s == ProcessStatusCompleted || s == ProcessStatusFaulted || s == ProcessStatusTerminated
}

type WorkflowStatus string

const (
	WorkflowStatusActive     WorkflowStatus = "active"
	WorkflowStatusCompleted  WorkflowStatus = "completed"
	WorkflowStatusFaulted    WorkflowStatus = "faulted"
	WorkflowStatusTerminated WorkflowStatus = "terminated"
)

// NodeSnapshot is the per-run status record of a node.
type NodeSnapshot struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Status         NodeStatus `json:"status"`
	OriginalStatus NodeStatus `json:"-"`
	Outcomes       []string   `json:"outcomes,omitempty"`
	Message        string     `json:"message,omitempty"`
	User           string     `json:"user,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FlowSnapshot tracks whether a flow fired during the run. IsActive holds until the
// destination consumes the arrival; FireCount never decreases.
type FlowSnapshot struct {
	ID        string `json:"id"`
	IsActive  bool   `json:"is_active"`
	FireCount int    `json:"fire_count"`
}

// HasFired reports whether the flow fired at least once in the run.
func (f *FlowSnapshot) HasFired() bool {
	return f.FireCount > 0
}

type ProcessSnapshot struct {
	ID             string        `json:"id"`
	Status         ProcessStatus `json:"status"`
	OriginalStatus ProcessStatus `json:"-"`
	FaultMessage   string        `json:"fault_message,omitempty"`
}

// DomainEvent is an event raised while executing a step and published after commit.
type DomainEvent interface {
	GetType() events.EventType
}

// NodeChange is a node whose status differs from the one loaded at the start of a step.
type NodeChange struct {
	NodeID string
	From   NodeStatus
	To     NodeStatus
}

// WorkflowState is the durable record of a workflow instance.
type WorkflowState struct {
	ID                string             `json:"id"`
	DefinitionID      string             `json:"definition_id"`
	DefinitionVersion int                `json:"definition_version"`
	CorrelationID     string             `json:"correlation_id,omitempty"`
	Status            WorkflowStatus     `json:"status"`
	Version           int64              `json:"version"`
	Nodes             []*NodeSnapshot    `json:"nodes"`
	Flows             []*FlowSnapshot    `json:"flows"`
	Processes         []*ProcessSnapshot `json:"processes"`
	Variables         map[string]any     `json:"variables"`
	Output            map[string]any     `json:"output,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	FinishedAt        *time.Time         `json:"finished_at,omitempty"`

	domainEvents []DomainEvent
}

// NewWorkflowState creates an active, empty state for a definition.
func NewWorkflowState(id string, definition *WorkflowDefinition, correlationID string, now time.Time) *WorkflowState {
	return &WorkflowState{
		ID:                id,
		DefinitionID:      definition.ID,
		DefinitionVersion: definition.Version,
		CorrelationID:     correlationID,
		Status:            WorkflowStatusActive,
		Variables:         make(map[string]any),
		Output:            make(map[string]any),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (s *WorkflowState) IsFinished() bool {
	return s.Status != WorkflowStatusActive
}

func (s *WorkflowState) Node(id string) *NodeSnapshot {
	for _, node := range s.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// EnsureNode returns the node snapshot, creating it as not started when missing.
func (s *WorkflowState) EnsureNode(id, nodeType string) *NodeSnapshot {
	if node := s.Node(id); node != nil {
		return node
	}

	node := &NodeSnapshot{
		ID:             id,
		Type:           nodeType,
		Status:         NodeStatusNotStarted,
		OriginalStatus: NodeStatusNotStarted,
	}
	s.Nodes = append(s.Nodes, node)

	return node
}

func (s *WorkflowState) Flow(id string) *FlowSnapshot {
	for _, flow := range s.Flows {
		if flow.ID == id {
			return flow
		}
	}

	return nil
}

func (s *WorkflowState) EnsureFlow(id string) *FlowSnapshot {
	if flow := s.Flow(id); flow != nil {
		return flow
	}

	flow := &FlowSnapshot{ID: id}
	s.Flows = append(s.Flows, flow)

	return flow
}

func (s *WorkflowState) Process(id string) *ProcessSnapshot {
	for _, process := range s.Processes {
		if process.ID == id {
			return process
		}
	}

	return nil
}

func (s *WorkflowState) EnsureProcess(id string) *ProcessSnapshot {
	if process := s.Process(id); process != nil {
		return process
	}

	process := &ProcessSnapshot{
		ID:             id,
		Status:         ProcessStatusNotStarted,
		OriginalStatus: ProcessStatusNotStarted,
	}
	s.Processes = append(s.Processes, process)

	return process
}

// Raise queues a domain event for publication after the state is persisted.
func (s *WorkflowState) Raise(event DomainEvent) {
	s.domainEvents = append(s.domainEvents, event)
}

// DomainEvents returns the queued events in the order they were raised.
func (s *WorkflowState) DomainEvents() []DomainEvent {
	return s.domainEvents
}

func (s *WorkflowState) ClearDomainEvents() {
	s.domainEvents = nil
}

// Changes returns the nodes whose status moved since the state was loaded.
func (s *WorkflowState) Changes() []NodeChange {
	var changes []NodeChange

	for _, node := range s.Nodes {
		if node.Status != node.OriginalStatus {
			changes = append(changes, NodeChange{NodeID: node.ID, From: node.OriginalStatus, To: node.Status})
		}
	}

	return changes
}

// AcceptChanges marks the current statuses as the persisted baseline.
func (s *WorkflowState) AcceptChanges() {
	for _, node := range s.Nodes {
		node.OriginalStatus = node.Status
	}

	for _, process := range s.Processes {
		process.OriginalStatus = process.Status
	}
}
