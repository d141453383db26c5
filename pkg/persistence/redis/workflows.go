package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

type WorkflowStateRepository struct {
	store *Persistence
}

func (r *WorkflowStateRepository) Get(ctx context.Context, id string) (*models.WorkflowState, error) {
	var state models.WorkflowState

	err := getJSON(ctx, r.store.client, r.store.key("workflow", id), &state)
	if isMissing(err) {
		return nil, persistence.NewWorkflowError("Get", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, persistence.NewWorkflowError("Get", id, err)
	}

	state.AcceptChanges()

	return &state, nil
}

// Persist compares the stored version inside a WATCH transaction; a concurrent
// write aborts the transaction and is reported as a version conflict.
func (r *WorkflowStateRepository) Persist(ctx context.Context, state *models.WorkflowState) error {
	key := r.store.key("workflow", state.ID)
	expected := state.Version

	err := r.store.client.Watch(ctx, func(tx *goredis.Tx) error {
		var stored models.WorkflowState

		err := getJSON(ctx, tx, key, &stored)

		switch {
		case isMissing(err):
			if expected != 0 {
				return persistence.NewVersionConflict(state.ID, expected)
			}
		case err != nil:
			return err
		case stored.Version != expected:
			return persistence.NewVersionConflict(state.ID, expected)
		}

		state.Version = expected + 1

		body, err := json.Marshal(state)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, body, 0)

			return nil
		})

		return err
	}, key)

	if err == nil {
		return nil
	}

	state.Version = expected

	if errors.Is(err, goredis.TxFailedErr) {
		return persistence.NewVersionConflict(state.ID, expected)
	}

	if persistence.IsVersionConflict(err) {
		return err
	}

	return persistence.NewWorkflowError("Persist", state.ID, err)
}
