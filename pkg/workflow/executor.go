// Package workflow drives workflow instances through their graph one step at a time.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/dukex/flowcore/pkg/events"
	"github.com/dukex/flowcore/pkg/expression"
	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/protocol"
)

// maxActivations bounds a single traversal so a cycle without suspension points
// faults instead of spinning forever.
const maxActivations = 10_000

var (
	ErrStructuralFault  = errors.New("structural fault")
	ErrWorkflowFinished = errors.New("workflow already finished")
	ErrNodeNotWaiting   = errors.New("node is not waiting")
	ErrInvalidStartNode = errors.New("invalid start node")
)

// WaitRequest is a node that entered Waiting during the step and needs an event record.
type WaitRequest struct {
	NodeID string
	Wait   protocol.Wait
}

// Fault is a node fault attached to its process.
type Fault struct {
	NodeID    string
	ProcessID string
	Message   string
}

// StepResult summarises one start, resume or terminate step.
type StepResult struct {
	// IsExecuted is true when the targeted node produced outcomes.
	IsExecuted bool
	Message    string
	Waits      []WaitRequest
	// Released lists nodes that stopped waiting without being resumed; their event
	// records are obsolete.
	Released []string
	Faults   []Fault
}

type workItem struct {
	nodeID   string
	incoming *protocol.FlowContext
	resume   bool
}

type Executor struct {
	library   NodeLibrary
	evaluator *expression.Evaluator
	logger    *slog.Logger
	clock     func() time.Time
}

func NewExecutor(library NodeLibrary, evaluator *expression.Evaluator, logger *slog.Logger) *Executor {
	return &Executor{
		library:   library,
		evaluator: evaluator,
		logger:    logger,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source, for tests.
func (e *Executor) WithClock(clock func() time.Time) *Executor {
	e.clock = clock

	return e
}

// Start runs the start node of a fresh instance and everything it reaches.
func (e *Executor) Start(ctx context.Context, definition *models.WorkflowDefinition, state *models.WorkflowState, startNodeID string, input map[string]any) (*StepResult, error) {
	if state.IsFinished() {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowFinished, state.ID)
	}

	record, err := definition.Resolve(startNodeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStartNode, err)
	}

	if record.Type != models.NodeTypeStartEvent {
		return nil, fmt.Errorf("%w: %s is a %s", ErrInvalidStartNode, startNodeID, record.Type)
	}

	wctx, err := e.prepare(ctx, definition, state, input)
	if err != nil {
		return nil, err
	}

	started := events.WorkflowStarted{
		BaseEvent:     events.NewBaseEvent(events.WorkflowStartedEvent, state.ID),
		DefinitionID:  definition.ID,
		CorrelationID: state.CorrelationID,
		StartNodeID:   startNodeID,
	}
	state.Raise(started)

	return e.run(ctx, definition, wctx, workItem{nodeID: startNodeID})
}

// Resume delivers a signal to a waiting node and continues the traversal from it.
func (e *Executor) Resume(ctx context.Context, definition *models.WorkflowDefinition, state *models.WorkflowState, nodeID string, input map[string]any) (*StepResult, error) {
	if state.IsFinished() {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowFinished, state.ID)
	}

	if _, err := definition.Resolve(nodeID); err != nil {
		return nil, err
	}

	snapshot := state.Node(nodeID)
	if snapshot == nil || snapshot.Status != models.NodeStatusWaiting {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotWaiting, nodeID)
	}

	if process := state.Process(definition.ProcessOf(nodeID)); process != nil && process.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: process of %s is %s", ErrNodeNotWaiting, nodeID, process.Status)
	}

	wctx, err := e.prepare(ctx, definition, state, input)
	if err != nil {
		return nil, err
	}

	return e.run(ctx, definition, wctx, workItem{nodeID: nodeID, resume: true})
}

// Terminate ends every live process of the instance.
func (e *Executor) Terminate(_ context.Context, definition *models.WorkflowDefinition, state *models.WorkflowState, reason string) (*StepResult, error) {
	if state.IsFinished() {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowFinished, state.ID)
	}

	now := e.clock()
	step := &StepResult{Message: reason}

	for _, process := range state.Processes {
		if process.Status.IsTerminal() {
			continue
		}

		process.Status = models.ProcessStatusTerminated
		process.FaultMessage = reason
		state.Raise(e.processFinished(state, process))
	}

	for _, node := range state.Nodes {
		if node.Status == models.NodeStatusWaiting {
			step.Released = append(step.Released, node.ID)
		}
	}

	e.finish(definition, state, models.WorkflowStatusTerminated, now)

	return step, nil
}

// Outcomes lists the exits a node of the definition can take, as its behavior
// declares them.
func (e *Executor) Outcomes(ctx context.Context, definition *models.WorkflowDefinition, nodeID string) ([]protocol.Outcome, error) {
	state := models.NewWorkflowState("", definition, "", e.clock())

	wctx, err := NewContext(ctx, definition, state, e.library, e.evaluator, nil, e.logger, e.clock())
	if err != nil {
		return nil, err
	}

	node, ok := wctx.Node(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNodeNotFound, nodeID)
	}

	return node.Behavior.PossibleOutcomes(wctx, node), nil
}

func (e *Executor) prepare(ctx context.Context, definition *models.WorkflowDefinition, state *models.WorkflowState, input map[string]any) (*Context, error) {
	if state.Variables == nil {
		state.Variables = make(map[string]any)
	}

	maps.Copy(state.Variables, input)

	logger := e.logger.With("workflow_id", state.ID, "definition_id", definition.ID)

	return NewContext(ctx, definition, state, e.library, e.evaluator, input, logger, e.clock())
}

// run drains the worklist. A fault, structural or not, only stops the process it
// happened in; the step reports structural faults once every other process drained.
func (e *Executor) run(ctx context.Context, definition *models.WorkflowDefinition, wctx *Context, target workItem) (*StepResult, error) {
	state := wctx.state
	step := &StepResult{}
	queue := []workItem{target}
	activations := 0

	var structural error

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		processID := definition.ProcessOf(item.nodeID)
		process := state.EnsureProcess(processID)

		if process.Status.IsTerminal() {
			continue
		}

		if process.Status == models.ProcessStatusNotStarted {
			process.Status = models.ProcessStatusActive
			state.Raise(events.ProcessStarted{
				BaseEvent: events.NewBaseEvent(events.ProcessStartedEvent, state.ID),
				ProcessID: processID,
			})
		}

		activations++
		if activations > maxActivations {
			queue = e.fault(wctx, step, queue, item.nodeID, "traversal limit exceeded, the graph loops without waiting")

			continue
		}

		node, _ := wctx.Node(item.nodeID)

		result, err := e.invoke(ctx, wctx, node, item)
		if err != nil {
			result = protocol.Fault(err.Error())
		}

		if result.Kind != protocol.ResultFault {
			if checkErr := e.check(ctx, wctx, node, result); checkErr != nil {
				structural = errors.Join(structural, checkErr)
				queue = e.fault(wctx, step, queue, item.nodeID, checkErr.Error())

				continue
			}
		}

		if item == target {
			step.IsExecuted = result.IsOutcomes()
			step.Message = result.Reason
		}

		e.logger.DebugContext(ctx, "Node executed",
			"workflow_id", state.ID,
			"node_id", item.nodeID,
			"result", result.Kind,
			"flows", result.Flows,
		)

		switch result.Kind {
		case protocol.ResultOutcomes:
			next, err := e.complete(ctx, wctx, step, node, result)
			if err != nil {
				structural = errors.Join(structural, err)
				queue = e.fault(wctx, step, queue, item.nodeID, err.Error())

				break
			}

			queue = append(queue, next...)
		case protocol.ResultNoop:
			snapshot := state.Node(item.nodeID)
			if snapshot.Status == models.NodeStatusNotStarted {
				e.setStatus(wctx, snapshot, models.NodeStatusActive)
			}

			snapshot.Message = result.Reason
		case protocol.ResultWaiting:
			e.suspend(ctx, wctx, step, node, result)
		case protocol.ResultFault:
			queue = e.fault(wctx, step, queue, item.nodeID, result.Reason)
		default:
			queue = e.fault(wctx, step, queue, item.nodeID, fmt.Sprintf("unknown result kind %q", result.Kind))
		}
	}

	e.settle(definition, state, wctx.now)

	if structural != nil {
		return step, fmt.Errorf("%w: %w", ErrStructuralFault, structural)
	}

	return step, nil
}

func (e *Executor) invoke(ctx context.Context, wctx *Context, node *protocol.NodeContext, item workItem) (result protocol.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("node %s panicked: %v", node.ID(), r)
		}
	}()

	if item.resume {
		return node.Behavior.Resume(ctx, wctx, node)
	}

	return node.Behavior.Start(ctx, wctx, node, item.incoming)
}

func (e *Executor) check(ctx context.Context, wctx *Context, node *protocol.NodeContext, result protocol.Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("post execute check of %s panicked: %v", node.ID(), r)
		}
	}()

	return node.Behavior.PostExecuteCheck(ctx, wctx, node, result)
}

// complete records the outcomes of a node, consumes its arrivals and fires the
// chosen flows. It returns the activations of the destinations.
func (e *Executor) complete(ctx context.Context, wctx *Context, step *StepResult, node *protocol.NodeContext, result protocol.Result) ([]workItem, error) {
	state := wctx.state
	snapshot := state.Node(node.ID())

	possible := node.Behavior.PossibleOutcomes(wctx, node)
	for _, flowID := range result.Flows {
		if !slices.ContainsFunc(possible, func(outcome protocol.Outcome) bool { return outcome.FlowID == flowID }) {
			return nil, fmt.Errorf("node %s returned flow %s which is not one of its possible outcomes", node.ID(), flowID)
		}
	}

	e.setStatus(wctx, snapshot, models.NodeStatusCompleted)
	snapshot.Outcomes = slices.Clone(result.Flows)
	snapshot.Message = result.Reason

	if result.User != "" {
		snapshot.User = result.User
	}

	e.consume(wctx, node.ID())
	e.merge(state, result)

	if host := node.Record.AttachedToRef; host != "" && result.Interrupting {
		e.interrupt(ctx, wctx, step, host, node.ID())
	}

	e.disarm(wctx, step, node.ID())

	next := make([]workItem, 0, len(result.Flows))

	for _, flowID := range result.Flows {
		flowSnapshot := state.EnsureFlow(flowID)
		flowSnapshot.IsActive = true
		flowSnapshot.FireCount++

		flow, _ := wctx.FlowContext(flowID)
		next = append(next, workItem{nodeID: flow.Record.DestinationRef, incoming: flow})
	}

	return next, nil
}

func (e *Executor) suspend(ctx context.Context, wctx *Context, step *StepResult, node *protocol.NodeContext, result protocol.Result) {
	state := wctx.state
	snapshot := state.Node(node.ID())
	wasWaiting := snapshot.Status == models.NodeStatusWaiting

	e.setStatus(wctx, snapshot, models.NodeStatusWaiting)
	snapshot.Message = result.Reason

	e.consume(wctx, node.ID())
	e.merge(state, result)

	if !wasWaiting && result.Wait != nil {
		step.Waits = append(step.Waits, WaitRequest{NodeID: node.ID(), Wait: *result.Wait})
	}

	e.arm(ctx, wctx, step, node.ID())
}

// arm activates the boundary events of a host that just suspended.
func (e *Executor) arm(ctx context.Context, wctx *Context, step *StepResult, hostID string) {
	for _, record := range wctx.definition.AttachedTo(hostID) {
		snapshot := wctx.state.Node(record.ID)
		if snapshot.Status == models.NodeStatusWaiting {
			continue
		}

		boundary, _ := wctx.Node(record.ID)

		result, err := e.invoke(ctx, wctx, boundary, workItem{nodeID: record.ID})
		if err != nil {
			result = protocol.Fault(err.Error())
		}

		switch result.Kind {
		case protocol.ResultWaiting:
			e.setStatus(wctx, snapshot, models.NodeStatusWaiting)

			if result.Wait != nil {
				step.Waits = append(step.Waits, WaitRequest{NodeID: record.ID, Wait: *result.Wait})
			}
		case protocol.ResultFault:
			e.fault(wctx, step, nil, record.ID, result.Reason)
		default:
			e.logger.WarnContext(ctx, "Boundary event did not suspend when armed", "node_id", record.ID, "result", result.Kind)
		}
	}
}

// disarm resets the boundary events of a host that left Waiting.
func (e *Executor) disarm(wctx *Context, step *StepResult, hostID string) {
	for _, record := range wctx.definition.AttachedTo(hostID) {
		snapshot := wctx.state.Node(record.ID)
		if snapshot.Status != models.NodeStatusWaiting {
			continue
		}

		e.setStatus(wctx, snapshot, models.NodeStatusNotStarted)
		snapshot.Message = ""
		step.Released = append(step.Released, record.ID)
	}
}

// interrupt completes a host cancelled by one of its boundary events.
func (e *Executor) interrupt(ctx context.Context, wctx *Context, step *StepResult, hostID, boundaryID string) {
	host := wctx.state.Node(hostID)
	if host == nil || host.Status != models.NodeStatusWaiting {
		return
	}

	e.logger.InfoContext(ctx, "Node interrupted by boundary event", "workflow_id", wctx.state.ID, "node_id", hostID, "boundary_id", boundaryID)

	e.setStatus(wctx, host, models.NodeStatusCompleted)
	host.Message = "interrupted by " + boundaryID
	step.Released = append(step.Released, hostID)

	e.disarm(wctx, step, hostID)
}

// consume deactivates the arrivals of a node that moved past them.
func (e *Executor) consume(wctx *Context, nodeID string) {
	for _, record := range wctx.definition.IncomingFlows(nodeID) {
		if flow := wctx.state.Flow(record.ID); flow != nil {
			flow.IsActive = false
		}
	}
}

func (e *Executor) merge(state *models.WorkflowState, result protocol.Result) {
	if len(result.Variables) > 0 {
		if state.Variables == nil {
			state.Variables = make(map[string]any, len(result.Variables))
		}

		maps.Copy(state.Variables, result.Variables)
	}

	if len(result.Output) > 0 {
		if state.Output == nil {
			state.Output = make(map[string]any, len(result.Output))
		}

		maps.Copy(state.Output, result.Output)
	}
}

// fault marks the node and its process faulted and drops the pending work of that
// process. Other processes carry on.
func (e *Executor) fault(wctx *Context, step *StepResult, queue []workItem, nodeID, message string) []workItem {
	state := wctx.state
	processID := wctx.definition.ProcessOf(nodeID)

	if snapshot := state.Node(nodeID); snapshot != nil {
		e.setStatus(wctx, snapshot, models.NodeStatusFaulted)
		snapshot.Message = message
	}

	step.Faults = append(step.Faults, Fault{NodeID: nodeID, ProcessID: processID, Message: message})

	e.logger.Warn("Node faulted", "workflow_id", state.ID, "node_id", nodeID, "process_id", processID, "message", message)

	process := state.EnsureProcess(processID)
	if !process.Status.IsTerminal() {
		process.Status = models.ProcessStatusFaulted
		process.FaultMessage = message
		state.Raise(e.processFinished(state, process))
	}

	for _, node := range state.Nodes {
		if node.Status == models.NodeStatusWaiting && wctx.definition.ProcessOf(node.ID) == processID {
			step.Released = append(step.Released, node.ID)
		}
	}

	remaining := queue[:0]

	for _, item := range queue {
		if wctx.definition.ProcessOf(item.nodeID) != processID {
			remaining = append(remaining, item)
		}
	}

	return remaining
}

// settle completes processes without pending nodes and finishes the workflow once
// every started process reached a terminal status.
func (e *Executor) settle(definition *models.WorkflowDefinition, state *models.WorkflowState, now time.Time) {
	pending := make(map[string]bool, len(state.Processes))

	for _, node := range state.Nodes {
		if node.Status.IsPending() {
			pending[definition.ProcessOf(node.ID)] = true
		}
	}

	live := false
	faulted := false

	for _, process := range state.Processes {
		if process.Status == models.ProcessStatusActive && !pending[process.ID] {
			process.Status = models.ProcessStatusCompleted
			state.Raise(e.processFinished(state, process))
		}

		switch process.Status {
		case models.ProcessStatusActive:
			live = true
		case models.ProcessStatusFaulted:
			faulted = true
		}
	}

	if live {
		return
	}

	if faulted {
		e.finish(definition, state, models.WorkflowStatusFaulted, now)
	} else {
		e.finish(definition, state, models.WorkflowStatusCompleted, now)
	}
}

func (e *Executor) finish(definition *models.WorkflowDefinition, state *models.WorkflowState, status models.WorkflowStatus, now time.Time) {
	if state.IsFinished() {
		return
	}

	state.Status = status
	state.FinishedAt = &now
	state.UpdatedAt = now

	state.Raise(events.WorkflowFinished{
		BaseEvent:    events.NewBaseEvent(events.WorkflowFinishedEvent, state.ID),
		DefinitionID: definition.ID,
		Status:       string(status),
		Output:       maps.Clone(state.Output),
		Duration:     now.Sub(state.CreatedAt),
	})
}

func (e *Executor) processFinished(state *models.WorkflowState, process *models.ProcessSnapshot) events.ProcessFinished {
	return events.ProcessFinished{
		BaseEvent:    events.NewBaseEvent(events.ProcessFinishedEvent, state.ID),
		ProcessID:    process.ID,
		Status:       string(process.Status),
		FaultMessage: process.FaultMessage,
	}
}

func (e *Executor) setStatus(wctx *Context, snapshot *models.NodeSnapshot, status models.NodeStatus) {
	snapshot.Status = status
	snapshot.UpdatedAt = wctx.now
	wctx.state.UpdatedAt = wctx.now
}
