package redis

import (
	"context"
	"encoding/json"
	"slices"
	"strconv"
	"time"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

// EventRepository stores records as JSON strings with set indexes by correlation,
// workflow and definition, plus a sorted set of open timers scored by due time.
type EventRepository struct {
	store *Persistence
}

func (r *EventRepository) Get(ctx context.Context, id string) (*models.EventRecord, error) {
	var record models.EventRecord

	err := getJSON(ctx, r.store.client, r.store.key("event", id), &record)
	if isMissing(err) {
		return nil, persistence.NewEventError("Get", id, persistence.ErrEventNotFound)
	}

	if err != nil {
		return nil, persistence.NewEventError("Get", id, err)
	}

	return &record, nil
}

func (r *EventRepository) Save(ctx context.Context, record *models.EventRecord) error {
	previous, err := r.Get(ctx, record.ID)
	if err != nil && !persistence.IsEventNotFound(err) {
		return persistence.NewEventError("Save", record.ID, err)
	}

	body, err := json.Marshal(record)
	if err != nil {
		return persistence.NewEventError("Save", record.ID, err)
	}

	_, err = r.store.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		if previous != nil {
			r.unindex(ctx, pipe, previous)
		}

		pipe.Set(ctx, r.store.key("event", record.ID), body, 0)
		r.index(ctx, pipe, record)

		return nil
	})
	if err != nil {
		return persistence.NewEventError("Save", record.ID, err)
	}

	return nil
}

func (r *EventRepository) UpdateStartNodes(ctx context.Context, definitionID string, records []*models.EventRecord) error {
	existing, err := r.load(ctx, r.store.key("events", "workflow", definitionID))
	if err != nil {
		return persistence.NewEventError("UpdateStartNodes", definitionID, err)
	}

	bodies := make(map[string][]byte, len(records))

	for _, record := range records {
		body, err := json.Marshal(record)
		if err != nil {
			return persistence.NewEventError("UpdateStartNodes", record.ID, err)
		}

		bodies[record.ID] = body
	}

	_, err = r.store.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, record := range existing {
			if record.IsStartEvent {
				r.unindex(ctx, pipe, record)
				pipe.Del(ctx, r.store.key("event", record.ID))
			}
		}

		for _, record := range records {
			pipe.Set(ctx, r.store.key("event", record.ID), bodies[record.ID], 0)
			r.index(ctx, pipe, record)
		}

		return nil
	})
	if err != nil {
		return persistence.NewEventError("UpdateStartNodes", definitionID, err)
	}

	return nil
}

func (r *EventRepository) FindByCorrelationID(ctx context.Context, correlationID string) ([]*models.EventRecord, error) {
	records, err := r.load(ctx, r.store.key("events", "correlation", correlationID))
	if err != nil {
		return nil, persistence.NewEventError("FindByCorrelationID", correlationID, err)
	}

	return filter(records, func(record *models.EventRecord) bool {
		return !record.IsCompleted && record.CorrelationID == correlationID
	}), nil
}

func (r *EventRepository) FindByWorkflowID(ctx context.Context, workflowID string) ([]*models.EventRecord, error) {
	records, err := r.load(ctx, r.store.key("events", "workflow", workflowID))
	if err != nil {
		return nil, persistence.NewEventError("FindByWorkflowID", workflowID, err)
	}

	return filter(records, func(*models.EventRecord) bool { return true }), nil
}

func (r *EventRepository) FindDue(ctx context.Context, now time.Time) ([]*models.EventRecord, error) {
	ids, err := r.store.client.ZRangeByScore(ctx, r.store.key("events", "timers"), &goredis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, persistence.NewEventError("FindDue", "*", err)
	}

	records, err := r.get(ctx, ids)
	if err != nil {
		return nil, persistence.NewEventError("FindDue", "*", err)
	}

	return filter(records, func(record *models.EventRecord) bool {
		return !record.IsCompleted && record.IsDue(now)
	}), nil
}

func (r *EventRepository) index(ctx context.Context, pipe goredis.Pipeliner, record *models.EventRecord) {
	pipe.SAdd(ctx, r.store.key("events", "workflow", record.WorkflowID), record.ID)

	if record.IsCompleted {
		return
	}

	if record.CorrelationID != "" {
		pipe.SAdd(ctx, r.store.key("events", "correlation", record.CorrelationID), record.ID)
	}

	if record.Kind == models.EventKindTimer && record.DueAt != nil {
		pipe.ZAdd(ctx, r.store.key("events", "timers"), goredis.Z{Score: float64(record.DueAt.Unix()), Member: record.ID})
	}
}

func (r *EventRepository) unindex(ctx context.Context, pipe goredis.Pipeliner, record *models.EventRecord) {
	pipe.SRem(ctx, r.store.key("events", "workflow", record.WorkflowID), record.ID)

	if record.CorrelationID != "" {
		pipe.SRem(ctx, r.store.key("events", "correlation", record.CorrelationID), record.ID)
	}

	pipe.ZRem(ctx, r.store.key("events", "timers"), record.ID)
}

func (r *EventRepository) load(ctx context.Context, setKey string) ([]*models.EventRecord, error) {
	ids, err := r.store.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, err
	}

	return r.get(ctx, ids)
}

func (r *EventRepository) get(ctx context.Context, ids []string) ([]*models.EventRecord, error) {
	if len(ids) == 0 {
		return []*models.EventRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.store.key("event", id)
	}

	values, err := r.store.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*models.EventRecord, 0, len(values))

	for _, value := range values {
		body, ok := value.(string)
		if !ok {
			continue
		}

		var record models.EventRecord
		if err := json.Unmarshal([]byte(body), &record); err != nil {
			return nil, err
		}

		records = append(records, &record)
	}

	return records, nil
}

func filter(records []*models.EventRecord, keep func(*models.EventRecord) bool) []*models.EventRecord {
	found := make([]*models.EventRecord, 0, len(records))

	for _, record := range records {
		if keep(record) {
			found = append(found, record)
		}
	}

	slices.SortStableFunc(found, func(a, b *models.EventRecord) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return found
}
