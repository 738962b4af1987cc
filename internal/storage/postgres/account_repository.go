package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/loyaltyhub/backend/internal/models"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, tenant_id, owner_type, owner_id, status, created_at, updated_at`

func (r *AccountRepository) FindByOwner(ctx context.Context, tenantID string, owner models.Owner) (*models.Account, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM points_accounts
		WHERE tenant_id = $1 AND owner_type = $2 AND owner_id = $3`,
		tenantID, owner.Type, owner.ID)
	return scanAccount(row)
}

func (r *AccountRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Account, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM points_accounts
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, id)
	return scanAccount(row)
}

// LockForUpdate acquires the exclusive row lock that serializes all
// balance-affecting work on one account for the rest of the transaction.
func (r *AccountRepository) LockForUpdate(ctx context.Context, tenantID, accountID string) (*models.Account, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM points_accounts
		WHERE tenant_id = $1 AND id = $2
		FOR UPDATE`,
		tenantID, accountID)
	return scanAccount(row)
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO points_accounts (id, tenant_id, owner_type, owner_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		account.ID, account.TenantID, account.Owner.Type, account.Owner.ID,
		account.Status, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *AccountRepository) Update(ctx context.Context, account *models.Account) error {
	result, err := q(ctx, r.db).ExecContext(ctx, `
		UPDATE points_accounts
		SET status = $1, updated_at = $2
		WHERE tenant_id = $3 AND id = $4`,
		account.Status, account.UpdatedAt, account.TenantID, account.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrAccountNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID, &account.TenantID, &account.Owner.Type, &account.Owner.ID,
		&account.Status, &account.CreatedAt, &account.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}
