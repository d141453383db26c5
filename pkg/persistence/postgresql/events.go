package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/dukex/flowcore/pkg/models"
	"github.com/dukex/flowcore/pkg/persistence"
)

const eventColumns = `
	id
  , workflow_id
  , node_id
  , is_start_event
  , correlation_id
  , kind
  , is_completed
  , last_call
  , due_at
  , created_at
`

// EventRepository handles event record database operations.
type EventRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *EventRepository) Get(ctx context.Context, id string) (*models.EventRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM event_records WHERE id = $1`, id)

	record, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewEventError("Get", id, persistence.ErrEventNotFound)
	}

	if err != nil {
		return nil, persistence.NewEventError("Get", id, err)
	}

	return record, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *EventRepository) Save(ctx context.Context, record *models.EventRecord) error {
	if err := upsertEvent(ctx, r.db, record); err != nil {
		return persistence.NewEventError("Save", record.ID, err)
	}

	return nil
}

func upsertEvent(ctx context.Context, db execer, record *models.EventRecord) error {
	query := `
		INSERT INTO event_records (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET workflow_id = EXCLUDED.workflow_id
		  , node_id = EXCLUDED.node_id
		  , is_start_event = EXCLUDED.is_start_event
		  , correlation_id = EXCLUDED.correlation_id
		  , kind = EXCLUDED.kind
		  , is_completed = EXCLUDED.is_completed
		  , last_call = EXCLUDED.last_call
		  , due_at = EXCLUDED.due_at
	`

	_, err := db.ExecContext(ctx, query,
		record.ID,
		record.WorkflowID,
		record.NodeID,
		record.IsStartEvent,
		nullString(record.CorrelationID),
		string(record.Kind),
		record.IsCompleted,
		record.LastCall,
		record.DueAt,
		record.CreatedAt,
	)

	return err
}

// UpdateStartNodes swaps the start records of a definition in one transaction.
func (r *EventRepository) UpdateStartNodes(ctx context.Context, definitionID string, records []*models.EventRecord) error {
	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewEventError("UpdateStartNodes", definitionID, err)
	}

	_, err = transaction.ExecContext(ctx, `DELETE FROM event_records WHERE workflow_id = $1 AND is_start_event`, definitionID)
	if err != nil {
		_ = transaction.Rollback()

		return persistence.NewEventError("UpdateStartNodes", definitionID, err)
	}

	for _, record := range records {
		if err := upsertEvent(ctx, transaction, record); err != nil {
			_ = transaction.Rollback()

			return persistence.NewEventError("UpdateStartNodes", record.ID, err)
		}
	}

	if err := transaction.Commit(); err != nil {
		return persistence.NewEventError("UpdateStartNodes", definitionID, err)
	}

	return nil
}

func (r *EventRepository) FindByCorrelationID(ctx context.Context, correlationID string) ([]*models.EventRecord, error) {
	return r.query(ctx, "FindByCorrelationID", correlationID, `
		SELECT `+eventColumns+`
		FROM event_records
		WHERE correlation_id = $1 AND NOT is_completed
		ORDER BY created_at
	`, correlationID)
}

func (r *EventRepository) FindByWorkflowID(ctx context.Context, workflowID string) ([]*models.EventRecord, error) {
	return r.query(ctx, "FindByWorkflowID", workflowID, `
		SELECT `+eventColumns+`
		FROM event_records
		WHERE workflow_id = $1
		ORDER BY created_at
	`, workflowID)
}

func (r *EventRepository) FindDue(ctx context.Context, now time.Time) ([]*models.EventRecord, error) {
	return r.query(ctx, "FindDue", "*", `
		SELECT `+eventColumns+`
		FROM event_records
		WHERE kind = 'timer' AND NOT is_completed AND due_at <= $1
		ORDER BY due_at
	`, now)
}

func (r *EventRepository) query(ctx context.Context, op, key, query string, args ...any) ([]*models.EventRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistence.NewEventError(op, key, err)
	}

	defer closeRows(ctx, r.logger, rows)

	records := make([]*models.EventRecord, 0)

	for rows.Next() {
		record, err := scanEvent(rows)
		if err != nil {
			return nil, persistence.NewEventError(op, key, err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewEventError(op, key, err)
	}

	return records, nil
}

func scanEvent(row rowScanner) (*models.EventRecord, error) {
	var (
		record        models.EventRecord
		correlationID sql.NullString
		kind          string
		lastCall      sql.NullTime
		dueAt         sql.NullTime
	)

	err := row.Scan(
		&record.ID,
		&record.WorkflowID,
		&record.NodeID,
		&record.IsStartEvent,
		&correlationID,
		&kind,
		&record.IsCompleted,
		&lastCall,
		&dueAt,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.CorrelationID = correlationID.String
	record.Kind = models.EventKind(kind)

	if lastCall.Valid {
		t := lastCall.Time.UTC()
		record.LastCall = &t
	}

	if dueAt.Valid {
		t := dueAt.Time.UTC()
		record.DueAt = &t
	}

	record.CreatedAt = record.CreatedAt.UTC()

	return &record, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
