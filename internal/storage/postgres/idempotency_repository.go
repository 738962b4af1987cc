package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/loyaltyhub/backend/internal/models"
)

// IdempotencyRepository deduplicates commands on (scope, tenant, key), the
// table's primary key.
type IdempotencyRepository struct {
	db *sql.DB
}

func NewIdempotencyRepository(db *sql.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// TryBegin inserts an IN_PROGRESS record, reporting isNew=true on first
// sight. A seen key returns the existing record locked for the transaction;
// FAILED records are reclaimed in place so the command can retry.
func (r *IdempotencyRepository) TryBegin(ctx context.Context, record *models.IdempotencyRecord) (*models.IdempotencyRecord, bool, error) {
	result, err := q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO points_idempotency (scope, tenant_id, idempotency_key, request_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (scope, tenant_id, idempotency_key) DO NOTHING`,
		record.Scope, record.TenantID, record.Key, record.RequestHash,
		record.Status, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("begin idempotency record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if affected == 1 {
		return record, true, nil
	}

	var existing models.IdempotencyRecord
	var responseBody, errorBody []byte
	err = q(ctx, r.db).QueryRowContext(ctx, `
		SELECT scope, tenant_id, idempotency_key, request_hash, status, response_body, error_body, created_at, updated_at
		FROM points_idempotency
		WHERE scope = $1 AND tenant_id = $2 AND idempotency_key = $3
		FOR UPDATE`,
		record.Scope, record.TenantID, record.Key).Scan(
		&existing.Scope, &existing.TenantID, &existing.Key, &existing.RequestHash,
		&existing.Status, &responseBody, &errorBody, &existing.CreatedAt, &existing.UpdatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("load idempotency record: %w", err)
	}
	existing.ResponseBody = json.RawMessage(responseBody)
	existing.ErrorBody = json.RawMessage(errorBody)

	if existing.Status == models.IdempotencyStatusFailed {
		_, err := q(ctx, r.db).ExecContext(ctx, `
			UPDATE points_idempotency
			SET status = $1, request_hash = $2, error_body = NULL, updated_at = $3
			WHERE scope = $4 AND tenant_id = $5 AND idempotency_key = $6`,
			models.IdempotencyStatusInProgress, record.RequestHash, record.UpdatedAt,
			record.Scope, record.TenantID, record.Key)
		if err != nil {
			return nil, false, fmt.Errorf("reclaim failed idempotency record: %w", err)
		}
		return record, true, nil
	}

	return &existing, false, nil
}

func (r *IdempotencyRepository) Complete(ctx context.Context, scope, tenantID, key string, responseBody json.RawMessage) error {
	result, err := q(ctx, r.db).ExecContext(ctx, `
		UPDATE points_idempotency
		SET status = $1, response_body = $2, updated_at = $3
		WHERE scope = $4 AND tenant_id = $5 AND idempotency_key = $6`,
		models.IdempotencyStatusCompleted, []byte(responseBody), time.Now().UTC(),
		scope, tenantID, key)
	if err != nil {
		return fmt.Errorf("complete idempotency record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("idempotency record %s/%s not found", scope, key)
	}
	return nil
}

// Fail upserts the FAILED marker. It runs on the base connection after the
// business transaction rolled back, where the IN_PROGRESS row may no longer
// exist.
func (r *IdempotencyRepository) Fail(ctx context.Context, scope, tenantID, key string, errorBody json.RawMessage) error {
	now := time.Now().UTC()
	_, err := q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO points_idempotency (scope, tenant_id, idempotency_key, request_hash, status, error_body, created_at, updated_at)
		VALUES ($1, $2, $3, '', $4, $5, $6, $6)
		ON CONFLICT (scope, tenant_id, idempotency_key)
		DO UPDATE SET status = $4, error_body = $5, updated_at = $6`,
		scope, tenantID, key, models.IdempotencyStatusFailed, []byte(errorBody), now)
	if err != nil {
		return fmt.Errorf("fail idempotency record: %w", err)
	}
	return nil
}
