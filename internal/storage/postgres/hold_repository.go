package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/loyaltyhub/backend/internal/models"
)

// HoldRepository persists reservations. The store enforces at most one
// ACTIVE hold per (tenant, account, reference) via a partial unique index.
type HoldRepository struct {
	db *sql.DB
}

func NewHoldRepository(db *sql.DB) *HoldRepository {
	return &HoldRepository{db: db}
}

const holdColumns = `id, tenant_id, account_id, reference_type, reference_id, amount, status, expires_at, created_at, updated_at`

func (r *HoldRepository) FindActiveByReference(ctx context.Context, tenantID, accountID string, ref models.Reference) (*models.Hold, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+holdColumns+`
		FROM points_holds
		WHERE tenant_id = $1 AND account_id = $2 AND reference_type = $3 AND reference_id = $4 AND status = 'ACTIVE'`,
		tenantID, accountID, ref.Type, ref.ID)
	return scanHold(row)
}

func (r *HoldRepository) FindByReference(ctx context.Context, tenantID, accountID string, ref models.Reference) (*models.Hold, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+holdColumns+`
		FROM points_holds
		WHERE tenant_id = $1 AND account_id = $2 AND reference_type = $3 AND reference_id = $4
		ORDER BY created_at DESC
		LIMIT 1`,
		tenantID, accountID, ref.Type, ref.ID)
	return scanHold(row)
}

func (r *HoldRepository) Create(ctx context.Context, hold *models.Hold) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO points_holds (`+holdColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		hold.ID, hold.TenantID, hold.AccountID, hold.Reference.Type, hold.Reference.ID,
		hold.Amount, hold.Status, hold.ExpiresAt, hold.CreatedAt, hold.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create hold: %w", err)
	}
	return nil
}

// UpdateStatus persists a terminal transition. The WHERE clause pins the row
// to ACTIVE so exactly one transition can ever win.
func (r *HoldRepository) UpdateStatus(ctx context.Context, hold *models.Hold) error {
	result, err := q(ctx, r.db).ExecContext(ctx, `
		UPDATE points_holds
		SET status = $1, updated_at = $2
		WHERE tenant_id = $3 AND id = $4 AND status = 'ACTIVE'`,
		hold.Status, hold.UpdatedAt, hold.TenantID, hold.ID)
	if err != nil {
		return fmt.Errorf("update hold status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrHoldNotActive
	}
	return nil
}

func (r *HoldRepository) ActiveHoldsTotal(ctx context.Context, tenantID, accountID string) (int64, error) {
	var total int64
	err := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM points_holds
		WHERE tenant_id = $1 AND account_id = $2 AND status = 'ACTIVE'`,
		tenantID, accountID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("active holds total: %w", err)
	}
	return total, nil
}

func (r *HoldRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.Hold, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, `
		SELECT `+holdColumns+`
		FROM points_holds
		WHERE status = 'ACTIVE' AND expires_at IS NOT NULL AND expires_at <= $1
		ORDER BY expires_at ASC
		LIMIT $2`,
		now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	defer rows.Close()

	var holds []*models.Hold
	for rows.Next() {
		var hold models.Hold
		var expiresAt sql.NullTime
		if err := rows.Scan(
			&hold.ID, &hold.TenantID, &hold.AccountID, &hold.Reference.Type, &hold.Reference.ID,
			&hold.Amount, &hold.Status, &expiresAt, &hold.CreatedAt, &hold.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			hold.ExpiresAt = &t
		}
		holds = append(holds, &hold)
	}
	return holds, rows.Err()
}

func scanHold(row *sql.Row) (*models.Hold, error) {
	var hold models.Hold
	var expiresAt sql.NullTime
	err := row.Scan(
		&hold.ID, &hold.TenantID, &hold.AccountID, &hold.Reference.Type, &hold.Reference.ID,
		&hold.Amount, &hold.Status, &expiresAt, &hold.CreatedAt, &hold.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		hold.ExpiresAt = &t
	}
	return &hold, nil
}
