package file

import (
	"context"
	"errors"
	"io/fs"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/persistence"
)

// WorkflowStateRepository stores instance states as workflows/<id>.json.
type WorkflowStateRepository struct {
	store *Persistence
}

func (r *WorkflowStateRepository) Get(_ context.Context, id string) (*models.WorkflowState, error) {
	state, err := r.load(id)
	if err != nil {
		return nil, persistence.NewWorkflowError("Get", id, err)
	}

	return state, nil
}

func (r *WorkflowStateRepository) Persist(_ context.Context, state *models.WorkflowState) error {
	if err := validateID(state.ID); err != nil {
		return persistence.NewWorkflowError("Persist", state.ID, err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, err := r.load(state.ID)

	switch {
	case errors.Is(err, persistence.ErrWorkflowNotFound):
		if state.Version != 0 {
			return persistence.NewVersionConflict(state.ID, state.Version)
		}
	case err != nil:
		return persistence.NewWorkflowError("Persist", state.ID, err)
	case stored.Version != state.Version:
		return persistence.NewVersionConflict(state.ID, state.Version)
	}

	state.Version++

	if err := writeJSON(r.store.path("workflows", state.ID+".json"), state); err != nil {
		state.Version--

		return persistence.NewWorkflowError("Persist", state.ID, err)
	}

	return nil
}

func (r *WorkflowStateRepository) load(id string) (*models.WorkflowState, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	var state models.WorkflowState

	err := readJSON(r.store.path("workflows", id+".json"), &state)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.ErrWorkflowNotFound
	}

	if err != nil {
		return nil, err
	}

	state.AcceptChanges()

	return &state, nil
}
