package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowcore/pkg/eventbus"
	"github.com/dukex/flowcore/pkg/expression"
	"github.com/dukex/flowcore/pkg/metrics"
	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/otelhelper"
	"github.com/dukex/flowcore/pkg/persistence"
	"github.com/dukex/flowcore/pkg/protocol"
	"github.com/dukex/flowcore/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type StartRequest struct {
	DefinitionID  string         `json:"definition_id"            validate:"required"`
	StartNodeID   string         `json:"start_node_id,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Parameters    map[string]any `json:"parameters,omitempty"`
}

type ResumeRequest struct {
	WorkflowID string         `json:"workflow_id" validate:"required"`
	NodeID     string         `json:"node_id"     validate:"required"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type DispatchRequest struct {
	EventID    string         `json:"event_id"              validate:"required"`
	Parameters map[string]any `json:"parameters,omitempty"`
	// IsCompleted claims the signal was already consumed; an already completed
	// record then short-circuits with success.
	IsCompleted bool `json:"is_completed"`
}

// WorkflowExecutionResult reports what a step did.
type WorkflowExecutionResult struct {
	WorkflowID string                `json:"workflow_id"`
	IsExecuted bool                  `json:"is_executed"`
	Message    string                `json:"message,omitempty"`
	Status     models.WorkflowStatus `json:"status"`
	Faults     []workflow.Fault      `json:"faults,omitempty"`
}

// Runtime runs start, resume, dispatch and terminate steps and commits them.
type Runtime struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	executor    *workflow.Executor
	tracer      trace.Tracer
	logger      *slog.Logger
	validate    *validator.Validate
	locks       *keyedMutex
	clock       func() time.Time
}

func NewRuntime(
	persistence persistence.Persistence,
	publisher eventbus.EventPublisher,
	library workflow.NodeLibrary,
	evaluator *expression.Evaluator,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Runtime {
	logger = logger.With("module", "runtime")

	return &Runtime{
		persistence: persistence,
		publisher:   publisher,
		executor:    workflow.NewExecutor(library, evaluator, logger),
		tracer:      tracer,
		logger:      logger,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		locks:       newKeyedMutex(),
		clock:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source of the runtime and its executor, for tests.
func (r *Runtime) WithClock(clock func() time.Time) *Runtime {
	r.clock = clock
	r.executor.WithClock(clock)

	return r
}

// Start creates a new instance of the latest definition version and runs it from
// its start node.
func (r *Runtime) Start(ctx context.Context, req StartRequest) (result *WorkflowExecutionResult, err error) {
	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "runtime.start",
		attribute.String(otelhelper.DefinitionIDKey, req.DefinitionID),
		attribute.String(otelhelper.CorrelationIDKey, req.CorrelationID),
	)
	defer span.End()
	defer r.observe(span, "start", time.Now(), &err)
	defer recoverStep("start", req.DefinitionID, &err)

	if err := r.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	definition, err := r.loadDefinition(ctx, req.DefinitionID, 0)
	if err != nil {
		return nil, newStepError("start", "", "", err)
	}

	startNodeID, err := pickStartNode(definition, req.StartNodeID)
	if err != nil {
		return nil, newStepError("start", "", "", err)
	}

	state := models.NewWorkflowState(uuid.NewString(), definition, req.CorrelationID, r.clock())
	span.SetAttributes(attribute.String(otelhelper.WorkflowIDKey, state.ID))

	unlock := r.locks.Lock(state.ID)
	defer unlock()

	step, stepErr := r.executor.Start(ctx, definition, state, startNodeID, req.Parameters)

	return r.finishStep(ctx, "start", definition, state, step, stepErr, nil)
}

// Resume delivers parameters to a waiting node of an instance.
func (r *Runtime) Resume(ctx context.Context, req ResumeRequest) (result *WorkflowExecutionResult, err error) {
	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "runtime.resume",
		attribute.String(otelhelper.WorkflowIDKey, req.WorkflowID),
		attribute.String(otelhelper.NodeIDKey, req.NodeID),
	)
	defer span.End()
	defer r.observe(span, "resume", time.Now(), &err)
	defer recoverStep("resume", req.WorkflowID, &err)

	if err := r.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	unlock := r.locks.Lock(req.WorkflowID)
	defer unlock()

	return r.resume(ctx, req, nil)
}

// resume runs with the instance lock held. delivered is the event record that
// carried the signal, if any.
func (r *Runtime) resume(ctx context.Context, req ResumeRequest, delivered *models.EventRecord) (*WorkflowExecutionResult, error) {
	state, definition, err := r.loadInstance(ctx, req.WorkflowID)
	if err != nil {
		return nil, newStepError("resume", req.WorkflowID, req.NodeID, err)
	}

	step, stepErr := r.executor.Resume(ctx, definition, state, req.NodeID, req.Parameters)
	if step == nil && stepErr != nil {
		return nil, newStepError("resume", req.WorkflowID, req.NodeID, stepErr)
	}

	return r.finishStep(ctx, "resume", definition, state, step, stepErr, delivered)
}

// Terminate ends every live process of an instance.
func (r *Runtime) Terminate(ctx context.Context, workflowID, reason string) (result *WorkflowExecutionResult, err error) {
	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "runtime.terminate",
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
	)
	defer span.End()
	defer r.observe(span, "terminate", time.Now(), &err)
	defer recoverStep("terminate", workflowID, &err)

	if workflowID == "" {
		return nil, fmt.Errorf("%w: workflow id is required", ErrInvalidRequest)
	}

	unlock := r.locks.Lock(workflowID)
	defer unlock()

	state, definition, err := r.loadInstance(ctx, workflowID)
	if err != nil {
		return nil, newStepError("terminate", workflowID, "", err)
	}

	step, stepErr := r.executor.Terminate(ctx, definition, state, reason)
	if stepErr != nil {
		return nil, newStepError("terminate", workflowID, "", stepErr)
	}

	return r.finishStep(ctx, "terminate", definition, state, step, nil, nil)
}

// State returns the persisted state of an instance.
func (r *Runtime) State(ctx context.Context, workflowID string) (*models.WorkflowState, error) {
	state, err := r.persistence.Workflows().Get(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return state, nil
}

// Events lists the event records of an instance, open and completed.
func (r *Runtime) Events(ctx context.Context, workflowID string) ([]*models.EventRecord, error) {
	if _, err := r.persistence.Workflows().Get(ctx, workflowID); err != nil {
		return nil, err
	}

	return r.persistence.Events().FindByWorkflowID(ctx, workflowID)
}

// HealthCheck reports whether the persistence layer answers.
// Outcomes lists the possible exits of a node in the latest definition version.
func (r *Runtime) Outcomes(ctx context.Context, definitionID, nodeID string) ([]protocol.Outcome, error) {
	definition, err := r.loadDefinition(ctx, definitionID, 0)
	if err != nil {
		return nil, err
	}

	return r.executor.Outcomes(ctx, definition, nodeID)
}

func (r *Runtime) HealthCheck(ctx context.Context) (string, bool) {
	if r.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := r.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// finishStep commits the step, unless the executor refused to run it, and builds
// the result. A structural fault is committed and still returned as an error.
func (r *Runtime) finishStep(
	ctx context.Context,
	op string,
	definition *models.WorkflowDefinition,
	state *models.WorkflowState,
	step *workflow.StepResult,
	stepErr error,
	delivered *models.EventRecord,
) (*WorkflowExecutionResult, error) {
	if step == nil {
		return nil, newStepError(op, state.ID, "", stepErr)
	}

	if err := r.commit(ctx, definition, state, step, delivered); err != nil {
		return nil, newStepError(op, state.ID, "", err)
	}

	result := &WorkflowExecutionResult{
		WorkflowID: state.ID,
		IsExecuted: step.IsExecuted,
		Message:    step.Message,
		Status:     state.Status,
		Faults:     step.Faults,
	}

	if stepErr != nil {
		return result, newStepError(op, state.ID, "", stepErr)
	}

	return result, nil
}

// loadDefinition returns a compiled definition; version 0 means the latest one.
func (r *Runtime) loadDefinition(ctx context.Context, definitionID string, version int) (*models.WorkflowDefinition, error) {
	var (
		definition *models.WorkflowDefinition
		err        error
	)

	if version == 0 {
		definition, err = r.persistence.Definitions().Get(ctx, definitionID)
	} else {
		definition, err = r.persistence.Definitions().GetVersion(ctx, definitionID, version)
	}

	if err != nil {
		return nil, err
	}

	if err := definition.Compile(); err != nil {
		return nil, err
	}

	return definition, nil
}

// loadInstance returns the state and the definition version it was started with.
func (r *Runtime) loadInstance(ctx context.Context, workflowID string) (*models.WorkflowState, *models.WorkflowDefinition, error) {
	state, err := r.persistence.Workflows().Get(ctx, workflowID)
	if err != nil {
		return nil, nil, err
	}

	definition, err := r.loadDefinition(ctx, state.DefinitionID, state.DefinitionVersion)
	if err != nil {
		return nil, nil, err
	}

	return state, definition, nil
}

func pickStartNode(definition *models.WorkflowDefinition, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}

	starts := definition.StartNodes()
	if len(starts) != 1 {
		return "", fmt.Errorf("%w: definition %s has %d start nodes, start_node_id is required",
			ErrInvalidRequest, definition.ID, len(starts))
	}

	return starts[0].ID, nil
}

// recoverStep keeps panics from crossing the runtime boundary.
func recoverStep(op, id string, err *error) {
	if r := recover(); r != nil {
		*err = newStepError(op, id, "", fmt.Errorf("panic: %v", r))
	}
}

func (r *Runtime) observe(span trace.Span, op string, started time.Time, err *error) {
	metrics.StepDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())

	outcome := "ok"

	if *err != nil {
		outcome = "error"

		switch {
		case errors.Is(*err, ErrStaleEvent):
			outcome = "stale"
		case errors.Is(*err, ErrPersistenceConflict):
			outcome = "conflict"
		case errors.Is(*err, ErrStructuralFault):
			outcome = "structural_fault"
		}

		otelhelper.SetError(span, *err, attribute.String(otelhelper.OperationKey, op))
	}

	metrics.StepsTotal.WithLabelValues(op, outcome).Inc()
}
