package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/persistence"
	"github.com/dukex/flowcore/pkg/registry"
	"github.com/google/uuid"
)

// startTrigger is implemented by start nodes that can be fired by an external signal.
type startTrigger interface {
	Correlation() string
	Kind() models.EventKind
}

// Publishing validates definitions, stores a new version of them and registers
// their start event records.
type Publishing struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	logger      *slog.Logger
	clock       func() time.Time
}

func NewPublishing(persistence persistence.Persistence, registry *registry.Registry, logger *slog.Logger) *Publishing {
	return &Publishing{
		persistence: persistence,
		registry:    registry,
		logger:      logger.With("module", "publishing"),
		clock:       func() time.Time { return time.Now().UTC() },
	}
}

// Validate compiles the graph and checks every node against its registered type.
func (p *Publishing) Validate(ctx context.Context, definition *models.WorkflowDefinition) error {
	if definition == nil {
		return fmt.Errorf("%w: definition is required", ErrInvalidRequest)
	}

	if err := definition.Compile(); err != nil {
		return err
	}

	return p.registry.ValidateDefinition(ctx, definition)
}

// Publish stores the definition as its next version and replaces its start records.
func (p *Publishing) Publish(ctx context.Context, definition *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	if err := p.Validate(ctx, definition); err != nil {
		return nil, err
	}

	now := p.clock()

	latest, err := p.persistence.Definitions().Get(ctx, definition.ID)

	switch {
	case err == nil:
		definition.Version = latest.Version + 1
		definition.CreatedAt = latest.CreatedAt
	case persistence.IsDefinitionNotFound(err):
		definition.Version = 1
		definition.CreatedAt = now
	default:
		return nil, fmt.Errorf("failed to load definition %s: %w", definition.ID, err)
	}

	definition.UpdatedAt = now

	if err := p.persistence.Definitions().Save(ctx, definition); err != nil {
		return nil, fmt.Errorf("failed to save definition %s: %w", definition.ID, err)
	}

	records, err := p.startRecords(ctx, definition, now)
	if err != nil {
		return nil, err
	}

	if err := p.UpdateStartNodes(ctx, definition.ID, records); err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "Definition published",
		"definition_id", definition.ID,
		"version", definition.Version,
		"start_records", len(records),
	)

	return definition, nil
}

// UpdateStartNodes replaces the start records of a definition.
func (p *Publishing) UpdateStartNodes(ctx context.Context, definitionID string, records []*models.EventRecord) error {
	if err := p.persistence.Events().UpdateStartNodes(ctx, definitionID, records); err != nil {
		return fmt.Errorf("failed to register start nodes of %s: %w", definitionID, err)
	}

	return nil
}

// Get returns the latest version of a definition.
func (p *Publishing) Get(ctx context.Context, definitionID string) (*models.WorkflowDefinition, error) {
	return p.persistence.Definitions().Get(ctx, definitionID)
}

func (p *Publishing) List(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	return p.persistence.Definitions().List(ctx)
}

// startRecords builds one record per start node. Ids derive from the definition and
// node ids so republishing keeps them stable.
func (p *Publishing) startRecords(ctx context.Context, definition *models.WorkflowDefinition, now time.Time) ([]*models.EventRecord, error) {
	var records []*models.EventRecord

	for _, record := range definition.StartNodes() {
		node, err := p.registry.CreateNode(ctx, record)
		if err != nil {
			return nil, err
		}

		eventRecord := &models.EventRecord{
			ID:           startRecordID(definition.ID, record.ID),
			WorkflowID:   definition.ID,
			NodeID:       record.ID,
			IsStartEvent: true,
			Kind:         models.EventKindStart,
			CreatedAt:    now,
		}

		if trigger, ok := node.Behavior.(startTrigger); ok {
			eventRecord.CorrelationID = trigger.Correlation()
			eventRecord.Kind = trigger.Kind()
		}

		records = append(records, eventRecord)
	}

	return records, nil
}

func startRecordID(definitionID, nodeID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(definitionID+"/"+nodeID)).String()
}
