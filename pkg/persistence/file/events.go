package file

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/persistence"
)

// EventRepository stores event records as events/<id>.json.
type EventRepository struct {
	store *Persistence
}

func (r *EventRepository) Get(_ context.Context, id string) (*models.EventRecord, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewEventError("Get", id, err)
	}

	var record models.EventRecord

	err := readJSON(r.store.path("events", id+".json"), &record)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewEventError("Get", id, persistence.ErrEventNotFound)
	}

	if err != nil {
		return nil, persistence.NewEventError("Get", id, err)
	}

	return &record, nil
}

func (r *EventRepository) Save(_ context.Context, record *models.EventRecord) error {
	if err := validateID(record.ID); err != nil {
		return persistence.NewEventError("Save", record.ID, err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := writeJSON(r.store.path("events", record.ID+".json"), record); err != nil {
		return persistence.NewEventError("Save", record.ID, err)
	}

	return nil
}

func (r *EventRepository) UpdateStartNodes(_ context.Context, definitionID string, records []*models.EventRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, err := r.all()
	if err != nil {
		return persistence.NewEventError("UpdateStartNodes", definitionID, err)
	}

	for _, record := range existing {
		if record.IsStartEvent && record.WorkflowID == definitionID {
			err := os.Remove(r.store.path("events", record.ID+".json"))
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return persistence.NewEventError("UpdateStartNodes", record.ID, err)
			}
		}
	}

	for _, record := range records {
		if err := validateID(record.ID); err != nil {
			return persistence.NewEventError("UpdateStartNodes", record.ID, err)
		}

		if err := writeJSON(r.store.path("events", record.ID+".json"), record); err != nil {
			return persistence.NewEventError("UpdateStartNodes", record.ID, err)
		}
	}

	return nil
}

func (r *EventRepository) FindByCorrelationID(_ context.Context, correlationID string) ([]*models.EventRecord, error) {
	return r.find("FindByCorrelationID", correlationID, func(record *models.EventRecord) bool {
		return !record.IsCompleted && record.CorrelationID == correlationID
	})
}

func (r *EventRepository) FindByWorkflowID(_ context.Context, workflowID string) ([]*models.EventRecord, error) {
	return r.find("FindByWorkflowID", workflowID, func(record *models.EventRecord) bool {
		return record.WorkflowID == workflowID
	})
}

func (r *EventRepository) FindDue(_ context.Context, now time.Time) ([]*models.EventRecord, error) {
	return r.find("FindDue", "*", func(record *models.EventRecord) bool {
		return !record.IsCompleted && record.Kind == models.EventKindTimer && record.IsDue(now)
	})
}

func (r *EventRepository) find(op, key string, match func(*models.EventRecord) bool) ([]*models.EventRecord, error) {
	records, err := r.all()
	if err != nil {
		return nil, persistence.NewEventError(op, key, err)
	}

	found := make([]*models.EventRecord, 0)

	for _, record := range records {
		if match(record) {
			found = append(found, record)
		}
	}

	slices.SortStableFunc(found, func(a, b *models.EventRecord) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return found, nil
}

func (r *EventRepository) all() ([]*models.EventRecord, error) {
	files, err := jsonFiles(r.store.path("events"))
	if err != nil {
		return nil, err
	}

	records := make([]*models.EventRecord, 0, len(files))

	for _, file := range files {
		var record models.EventRecord

		err := readJSON(file, &record)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return nil, err
		}

		records = append(records, &record)
	}

	return records, nil
}
