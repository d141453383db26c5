package testutil

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/protocol"
)

// StubContext is a protocol.Context driven by plain maps, for node unit tests.
type StubContext struct {
	Workflow    string
	Definition  string
	Correlation string
	In          map[string]any
	Vars        map[string]any
	Clock       time.Time

	ActiveFlows map[string]bool
	FiredFlows  map[string]bool
	Finished    map[string]bool
	Incomplete  map[string]bool
	Incoming    map[string][]*protocol.FlowContext
	Outgoing    map[string][]*protocol.FlowContext
}

var _ protocol.Context = (*StubContext)(nil)

func NewStubContext() *StubContext {
	return &StubContext{
		Workflow:    "wf-test",
		Definition:  "def-test",
		In:          map[string]any{},
		Vars:        map[string]any{},
		Clock:       time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		ActiveFlows: map[string]bool{},
		FiredFlows:  map[string]bool{},
		Finished:    map[string]bool{},
		Incomplete:  map[string]bool{},
		Incoming:    map[string][]*protocol.FlowContext{},
		Outgoing:    map[string][]*protocol.FlowContext{},
	}
}

func (s *StubContext) WorkflowID() string {
	return s.Workflow
}

func (s *StubContext) DefinitionID() string {
	return s.Definition
}

func (s *StubContext) CorrelationID() string {
	return s.Correlation
}

func (s *StubContext) Input() map[string]any {
	return s.In
}

func (s *StubContext) Variables() map[string]any {
	return s.Vars
}

func (s *StubContext) Now() time.Time {
	return s.Clock
}

func (s *StubContext) Logger() *slog.Logger {
	return slog.Default()
}

func (s *StubContext) IsNodeFinished(id string) bool {
	return s.Finished[id]
}

func (s *StubContext) AnyIncompleteActivePathTo(nodeID string) bool {
	return s.Incomplete[nodeID]
}

func (s *StubContext) AnyActiveFlowTo(nodeID, excludingFlowID string) bool {
	for _, flow := range s.Incoming[nodeID] {
		if flow.ID() != excludingFlowID && s.ActiveFlows[flow.ID()] {
			return true
		}
	}

	return false
}

func (s *StubContext) AllFlowActiveTo(nodeID string) bool {
	incoming := s.Incoming[nodeID]
	if len(incoming) == 0 {
		return false
	}

	for _, flow := range incoming {
		if !s.FiredFlows[flow.ID()] {
			return false
		}
	}

	return true
}

func (s *StubContext) OutgoingFlows(nodeID string) []*protocol.FlowContext {
	return s.Outgoing[nodeID]
}

func (s *StubContext) IncomingFlows(nodeID string) []*protocol.FlowContext {
	return s.Incoming[nodeID]
}

// Connect registers a flow between two nodes of the stub graph.
func (s *StubContext) Connect(flow *models.FlowRecord, behavior protocol.Flow) *protocol.FlowContext {
	flowContext := &protocol.FlowContext{Record: flow, Behavior: behavior}

	s.Outgoing[flow.SourceRef] = append(s.Outgoing[flow.SourceRef], flowContext)
	s.Incoming[flow.DestinationRef] = append(s.Incoming[flow.DestinationRef], flowContext)

	return flowContext
}

// Guard is a flow behavior with a fixed answer.
type Guard bool

func (g Guard) Evaluate(context.Context, protocol.Context, *models.FlowRecord) (bool, error) {
	return bool(g), nil
}

// FailingGuard is a flow behavior whose evaluation always errors.
type FailingGuard struct {
	Err error
}

func (g FailingGuard) Evaluate(context.Context, protocol.Context, *models.FlowRecord) (bool, error) {
	return false, g.Err
}
