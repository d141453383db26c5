package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/persistence"
)

// WorkflowStateRepository stores instance states as JSONB documents guarded by a
// version column.
type WorkflowStateRepository struct {
	db *sql.DB
}

func (r *WorkflowStateRepository) Get(ctx context.Context, id string) (*models.WorkflowState, error) {
	var body []byte

	err := r.db.QueryRowContext(ctx, `SELECT body FROM workflow_states WHERE id = $1`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewWorkflowError("Get", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, persistence.NewWorkflowError("Get", id, err)
	}

	var state models.WorkflowState
	if err := json.Unmarshal(body, &state); err != nil {
		return nil, persistence.NewWorkflowError("Get", id, err)
	}

	state.AcceptChanges()

	return &state, nil
}

// Persist inserts a new state or updates the row whose version still matches.
func (r *WorkflowStateRepository) Persist(ctx context.Context, state *models.WorkflowState) error {
	expected := state.Version
	state.Version = expected + 1

	body, err := json.Marshal(state)
	if err != nil {
		state.Version = expected

		return persistence.NewWorkflowError("Persist", state.ID, err)
	}

	var result sql.Result

	if expected == 0 {
		result, err = r.db.ExecContext(ctx, `
			INSERT INTO workflow_states
				(id, definition_id, definition_version, correlation_id, status, version, body, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING
		`, state.ID, state.DefinitionID, state.DefinitionVersion, state.CorrelationID, string(state.Status),
			state.Version, body, state.CreatedAt, state.UpdatedAt)
	} else {
		result, err = r.db.ExecContext(ctx, `
			UPDATE workflow_states
			SET status = $2
			  , version = $3
			  , body = $4
			  , updated_at = $5
			WHERE id = $1 AND version = $6
		`, state.ID, string(state.Status), state.Version, body, state.UpdatedAt, expected)
	}

	if err != nil {
		state.Version = expected

		return persistence.NewWorkflowError("Persist", state.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		state.Version = expected

		return persistence.NewWorkflowError("Persist", state.ID, err)
	}

	if affected == 0 {
		state.Version = expected

		return persistence.NewVersionConflict(state.ID, expected)
	}

	return nil
}
