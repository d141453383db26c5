package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/persistence"
)

// DefinitionRepository handles definition-related database operations.
type DefinitionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// Save inserts a definition version, replacing it when the version already exists.
func (r *DefinitionRepository) Save(ctx context.Context, definition *models.WorkflowDefinition) error {
	body, err := json.Marshal(definition)
	if err != nil {
		return persistence.NewDefinitionError("Save", definition.ID, err)
	}

	query := `
		INSERT INTO workflow_definitions (id, version, name, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id, version) DO UPDATE
		SET name = EXCLUDED.name
		  , body = EXCLUDED.body
	`

	_, err = r.db.ExecContext(ctx, query, definition.ID, definition.Version, definition.Name, body, definition.CreatedAt)
	if err != nil {
		return persistence.NewDefinitionError("Save", definition.ID, err)
	}

	return nil
}

func (r *DefinitionRepository) Get(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	query := `
		SELECT body
		FROM workflow_definitions
		WHERE id = $1
		ORDER BY version DESC
		LIMIT 1
	`

	return r.scan("Get", id, r.db.QueryRowContext(ctx, query, id))
}

func (r *DefinitionRepository) GetVersion(ctx context.Context, id string, version int) (*models.WorkflowDefinition, error) {
	query := `
		SELECT body
		FROM workflow_definitions
		WHERE id = $1 AND version = $2
	`

	return r.scan("GetVersion", id, r.db.QueryRowContext(ctx, query, id, version))
}

// List returns the latest version of every definition.
func (r *DefinitionRepository) List(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	query := `
		SELECT DISTINCT ON (id) body
		FROM workflow_definitions
		ORDER BY id, version DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, persistence.NewDefinitionError("List", "*", err)
	}

	defer closeRows(ctx, r.logger, rows)

	definitions := make([]*models.WorkflowDefinition, 0)

	for rows.Next() {
		definition, err := r.scan("List", "*", rows)
		if err != nil {
			return nil, err
		}

		definitions = append(definitions, definition)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewDefinitionError("List", "*", err)
	}

	return definitions, nil
}

func (r *DefinitionRepository) scan(op, id string, row rowScanner) (*models.WorkflowDefinition, error) {
	var body []byte

	err := row.Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewDefinitionError(op, id, persistence.ErrDefinitionNotFound)
	}

	if err != nil {
		return nil, persistence.NewDefinitionError(op, id, err)
	}

	var definition models.WorkflowDefinition
	if err := json.Unmarshal(body, &definition); err != nil {
		return nil, persistence.NewDefinitionError(op, id, err)
	}

	return &definition, nil
}
