package models

import "time"

type EventKind string

const (
	EventKindStart   EventKind = "start"
	EventKindMessage EventKind = "message"
	EventKindTimer   EventKind = "timer"
	EventKindService EventKind = "service"
	EventKindUser    EventKind = "user"
)

// EventRecord binds an external signal to a start node or a suspended node.
// For start records WorkflowID holds the definition id.
type EventRecord struct {
	ID            string     `json:"id"`
	WorkflowID    string     `json:"workflow_id"`
	NodeID        string     `json:"node_id"`
	IsStartEvent  bool       `json:"is_start_event"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Kind          EventKind  `json:"kind"`
	IsCompleted   bool       `json:"is_completed"`
	LastCall      *time.Time `json:"last_call,omitempty"`
	DueAt         *time.Time `json:"due_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Complete marks the signal as consumed.
func (r *EventRecord) Complete(now time.Time) {
	r.IsCompleted = true
	r.LastCall = &now
}

// Touch records a delivery that did not consume the signal.
func (r *EventRecord) Touch(now time.Time) {
	r.LastCall = &now
}

// IsDue reports whether a timer record fired at the given instant.
func (r *EventRecord) IsDue(now time.Time) bool {
	return r.DueAt != nil && !r.DueAt.After(now)
}
