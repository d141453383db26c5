// Package persistence provides the storage boundary for definitions, workflow
// instance states and event records.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/flowcore/pkg/models"
)

type Persistence interface {
	Definitions() DefinitionRepository
	Workflows() WorkflowStateRepository
	Events() EventRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// DefinitionRepository stores every published version of a definition.
type DefinitionRepository interface {
	Save(ctx context.Context, definition *models.WorkflowDefinition) error
	// Get returns the latest version.
	Get(ctx context.Context, id string) (*models.WorkflowDefinition, error)
	GetVersion(ctx context.Context, id string, version int) (*models.WorkflowDefinition, error)
	List(ctx context.Context) ([]*models.WorkflowDefinition, error)
}

// WorkflowStateRepository stores instance states under optimistic versioning.
type WorkflowStateRepository interface {
	Get(ctx context.Context, id string) (*models.WorkflowState, error)

	// Persist inserts a state whose Version is 0 or replaces the stored state when
	// its version still equals state.Version. On success state.Version is
	// incremented; a concurrent writer yields ErrVersionConflict.
	Persist(ctx context.Context, state *models.WorkflowState) error
}

type EventRepository interface {
	Get(ctx context.Context, id string) (*models.EventRecord, error)
	// Save inserts or replaces a record.
	Save(ctx context.Context, record *models.EventRecord) error
	// UpdateStartNodes replaces the start records of a definition.
	UpdateStartNodes(ctx context.Context, definitionID string, records []*models.EventRecord) error
	// FindByCorrelationID returns the open records with the key, oldest first.
	FindByCorrelationID(ctx context.Context, correlationID string) ([]*models.EventRecord, error)
	FindByWorkflowID(ctx context.Context, workflowID string) ([]*models.EventRecord, error)
	// FindDue returns the open timer records due at now.
	FindDue(ctx context.Context, now time.Time) ([]*models.EventRecord, error)
}
