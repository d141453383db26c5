package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

// DefinitionRepository keeps each definition in a hash keyed by version and a
// sorted set of versions per id.
type DefinitionRepository struct {
	store *Persistence
}

func (r *DefinitionRepository) Save(ctx context.Context, definition *models.WorkflowDefinition) error {
	body, err := json.Marshal(definition)
	if err != nil {
		return persistence.NewDefinitionError("Save", definition.ID, err)
	}

	version := strconv.Itoa(definition.Version)

	_, err = r.store.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, r.store.key("definition", definition.ID), version, body)
		pipe.ZAdd(ctx, r.store.key("definition", definition.ID, "versions"), goredis.Z{
			Score:  float64(definition.Version),
			Member: version,
		})
		pipe.SAdd(ctx, r.store.key("definitions"), definition.ID)

		return nil
	})
	if err != nil {
		return persistence.NewDefinitionError("Save", definition.ID, err)
	}

	return nil
}

func (r *DefinitionRepository) Get(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	latest, err := r.store.client.ZRevRange(ctx, r.store.key("definition", id, "versions"), 0, 0).Result()
	if err != nil {
		return nil, persistence.NewDefinitionError("Get", id, err)
	}

	if len(latest) == 0 {
		return nil, persistence.NewDefinitionError("Get", id, persistence.ErrDefinitionNotFound)
	}

	version, err := strconv.Atoi(latest[0])
	if err != nil {
		return nil, persistence.NewDefinitionError("Get", id, fmt.Errorf("corrupt version %q: %w", latest[0], err))
	}

	return r.GetVersion(ctx, id, version)
}

func (r *DefinitionRepository) GetVersion(ctx context.Context, id string, version int) (*models.WorkflowDefinition, error) {
	body, err := r.store.client.HGet(ctx, r.store.key("definition", id), strconv.Itoa(version)).Bytes()
	if isMissing(err) {
		return nil, persistence.NewDefinitionError("GetVersion", id, persistence.ErrDefinitionNotFound)
	}

	if err != nil {
		return nil, persistence.NewDefinitionError("GetVersion", id, err)
	}

	var definition models.WorkflowDefinition
	if err := json.Unmarshal(body, &definition); err != nil {
		return nil, persistence.NewDefinitionError("GetVersion", id, err)
	}

	return &definition, nil
}

func (r *DefinitionRepository) List(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	ids, err := r.store.client.SMembers(ctx, r.store.key("definitions")).Result()
	if err != nil {
		return nil, persistence.NewDefinitionError("List", "*", err)
	}

	definitions := make([]*models.WorkflowDefinition, 0, len(ids))

	for _, id := range ids {
		definition, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		definitions = append(definitions, definition)
	}

	return definitions, nil
}
