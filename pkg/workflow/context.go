package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowcore/pkg/expression"
	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/protocol"
)

// NodeLibrary builds the behavior of a node record.
type NodeLibrary interface {
	CreateNode(ctx context.Context, record *models.NodeRecord) (*protocol.NodeContext, error)
}

// Context is the execution context of one step: the definition bound to the live
// state of an instance. It is rebuilt on every start or resume.
type Context struct {
	definition *models.WorkflowDefinition
	state      *models.WorkflowState
	input      map[string]any
	logger     *slog.Logger
	now        time.Time

	nodes map[string]*protocol.NodeContext
	flows map[string]*protocol.FlowContext
}

var _ protocol.Context = (*Context)(nil)

// NewContext resolves every node behavior and makes sure a snapshot exists for each
// node, flow and process of the definition.
func NewContext(
	ctx context.Context,
	definition *models.WorkflowDefinition,
	state *models.WorkflowState,
	library NodeLibrary,
	evaluator *expression.Evaluator,
	input map[string]any,
	logger *slog.Logger,
	now time.Time,
) (*Context, error) {
	if input == nil {
		input = map[string]any{}
	}

	wctx := &Context{
		definition: definition,
		state:      state,
		input:      input,
		logger:     logger,
		now:        now,
		nodes:      make(map[string]*protocol.NodeContext, len(definition.Nodes)),
		flows:      make(map[string]*protocol.FlowContext, len(definition.Flows)),
	}

	for _, record := range definition.Nodes {
		node, err := library.CreateNode(ctx, record)
		if err != nil {
			return nil, fmt.Errorf("failed to build node %s: %w", record.ID, err)
		}

		wctx.nodes[record.ID] = node
		state.EnsureNode(record.ID, record.Type)
	}

	condition := &ConditionFlow{evaluator: evaluator}

	for _, record := range definition.Flows {
		flow := &protocol.FlowContext{Record: record}
		if record.IsConditional() {
			flow.Behavior = condition
		}

		wctx.flows[record.ID] = flow
		state.EnsureFlow(record.ID)
	}

	for _, process := range definition.Processes {
		state.EnsureProcess(process.ID)
	}

	return wctx, nil
}

func (c *Context) WorkflowID() string {
	return c.state.ID
}

func (c *Context) DefinitionID() string {
	return c.definition.ID
}

func (c *Context) CorrelationID() string {
	return c.state.CorrelationID
}

func (c *Context) Input() map[string]any {
	return c.input
}

func (c *Context) Variables() map[string]any {
	return c.state.Variables
}

func (c *Context) Now() time.Time {
	return c.now
}

func (c *Context) Logger() *slog.Logger {
	return c.logger
}

func (c *Context) Node(nodeID string) (*protocol.NodeContext, bool) {
	node, ok := c.nodes[nodeID]

	return node, ok
}

func (c *Context) FlowContext(flowID string) (*protocol.FlowContext, bool) {
	flow, ok := c.flows[flowID]

	return flow, ok
}

func (c *Context) OutgoingFlows(nodeID string) []*protocol.FlowContext {
	return c.flowContexts(c.definition.OutgoingFlows(nodeID))
}

func (c *Context) IncomingFlows(nodeID string) []*protocol.FlowContext {
	return c.flowContexts(c.definition.IncomingFlows(nodeID))
}

func (c *Context) flowContexts(records []*models.FlowRecord) []*protocol.FlowContext {
	flows := make([]*protocol.FlowContext, 0, len(records))

	for _, record := range records {
		if flow, ok := c.flows[record.ID]; ok {
			flows = append(flows, flow)
		}
	}

	return flows
}

func (c *Context) AnyActiveFlowTo(nodeID, excludingFlowID string) bool {
	for _, record := range c.definition.IncomingFlows(nodeID) {
		if record.ID == excludingFlowID {
			continue
		}

		if flow := c.state.Flow(record.ID); flow != nil && flow.IsActive {
			return true
		}
	}

	return false
}

func (c *Context) AllFlowActiveTo(nodeID string) bool {
	incoming := c.definition.IncomingFlows(nodeID)
	if len(incoming) == 0 {
		return false
	}

	for _, record := range incoming {
		flow := c.state.Flow(record.ID)
		if flow == nil || !flow.HasFired() {
			return false
		}
	}

	return true
}

func (c *Context) IsNodeFinished(nodeID string) bool {
	node := c.state.Node(nodeID)

	return node != nil && node.Status.IsTerminal()
}

// AnyIncompleteActivePathTo walks forward from every token of the run (pending
// nodes and active flows that have not reached nodeID) and reports whether one of
// them can still arrive at nodeID through an incoming flow that is not active yet.
func (c *Context) AnyIncompleteActivePathTo(nodeID string) bool {
	var frontier []string

	for _, snapshot := range c.state.Nodes {
		if snapshot.ID != nodeID && snapshot.Status.IsPending() && c.processIsLive(snapshot.ID) {
			frontier = append(frontier, snapshot.ID)
		}
	}

	for _, snapshot := range c.state.Flows {
		if !snapshot.IsActive {
			continue
		}

		record, err := c.definition.Flow(snapshot.ID)
		if err != nil || record.DestinationRef == nodeID {
			continue
		}

		if c.processIsLive(record.DestinationRef) {
			frontier = append(frontier, record.DestinationRef)
		}
	}

	visited := make(map[string]bool, len(c.definition.Nodes))

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		if visited[current] {
			continue
		}

		visited[current] = true

		for _, record := range c.definition.OutgoingFlows(current) {
			if record.DestinationRef == nodeID {
				if flow := c.state.Flow(record.ID); flow == nil || !flow.IsActive {
					return true
				}

				continue
			}

			frontier = append(frontier, record.DestinationRef)
		}

		for _, boundary := range c.definition.AttachedTo(current) {
			frontier = append(frontier, boundary.ID)
		}
	}

	return false
}

func (c *Context) processIsLive(nodeID string) bool {
	process := c.state.Process(c.definition.ProcessOf(nodeID))

	return process == nil || !process.Status.IsTerminal()
}

// ConditionFlow guards a flow with its condition expression, evaluated against the
// workflow variables.
type ConditionFlow struct {
	evaluator *expression.Evaluator
}

func NewConditionFlow(evaluator *expression.Evaluator) *ConditionFlow {
	return &ConditionFlow{evaluator: evaluator}
}

func (f *ConditionFlow) Evaluate(_ context.Context, wctx protocol.Context, flow *models.FlowRecord) (bool, error) {
	return f.evaluator.Condition(flow.ConditionLanguage, flow.ConditionExpression, wctx.Variables())
}
