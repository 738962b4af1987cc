package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/loyaltyhub/backend/internal/models"
)

// OutboxRepository stores domain events in the same database as the business
// rows so that enqueueing joins the command's transaction.
type OutboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, event *models.OutboxEvent) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO points_outbox (id, tenant_id, aggregate_type, aggregate_id, event_type, payload, status, retry_count, scheduled_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.ID, event.TenantID, event.AggregateType, event.AggregateID, event.EventType,
		[]byte(event.Payload), event.Status, event.RetryCount, event.ScheduledAt, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("enqueue outbox event: %w", err)
	}
	return nil
}

// PullPending claims a batch of due PENDING rows. SKIP LOCKED lets N pollers
// drain the same queue without double-publishing a row while its claim is
// held.
func (r *OutboxRepository) PullPending(ctx context.Context, batchSize int) ([]*models.OutboxEvent, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, `
		SELECT id, tenant_id, aggregate_type, aggregate_id, event_type, payload, status, retry_count, scheduled_at, last_error, created_at
		FROM points_outbox
		WHERE status = 'PENDING' AND scheduled_at <= NOW()
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED`,
		batchSize)
	if err != nil {
		return nil, fmt.Errorf("pull pending events: %w", err)
	}
	defer rows.Close()

	var events []*models.OutboxEvent
	for rows.Next() {
		var event models.OutboxEvent
		var payload []byte
		var lastError sql.NullString
		if err := rows.Scan(
			&event.ID, &event.TenantID, &event.AggregateType, &event.AggregateID, &event.EventType,
			&payload, &event.Status, &event.RetryCount, &event.ScheduledAt, &lastError, &event.CreatedAt,
		); err != nil {
			return nil, err
		}
		event.Payload = json.RawMessage(payload)
		event.LastError = lastError.String
		events = append(events, &event)
	}
	return events, rows.Err()
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id string) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `
		UPDATE points_outbox
		SET status = 'PUBLISHED', last_error = NULL
		WHERE id = $1`,
		id)
	if err != nil {
		return fmt.Errorf("mark event published: %w", err)
	}
	return nil
}

// MarkFailed reschedules the row with backoff; it stays PENDING so a later
// pull retries it.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, nextAttemptAt time.Time, lastError string) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `
		UPDATE points_outbox
		SET retry_count = retry_count + 1, scheduled_at = $1, last_error = $2
		WHERE id = $3`,
		nextAttemptAt, lastError, id)
	if err != nil {
		return fmt.Errorf("mark event failed: %w", err)
	}
	return nil
}
