package memory

import (
	"context"

	"github.com/loyaltyhub/backend/internal/models"
)

type AccountRepository struct {
	store *Store
}

func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

func (r *AccountRepository) FindByOwner(ctx context.Context, tenantID string, owner models.Owner) (*models.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	id, ok := r.store.ownerIndex[ownerKey(tenantID, owner)]
	if !ok {
		return nil, nil
	}
	return cloneAccount(r.store.accounts[accountKey(tenantID, id)]), nil
}

func (r *AccountRepository) FindByID(ctx context.Context, tenantID, id string) (*models.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	account, ok := r.store.accounts[accountKey(tenantID, id)]
	if !ok {
		return nil, nil
	}
	return cloneAccount(account), nil
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.accounts[accountKey(account.TenantID, account.ID)] = cloneAccount(account)
	r.store.ownerIndex[ownerKey(account.TenantID, account.Owner)] = account.ID
	return nil
}

func (r *AccountRepository) Update(ctx context.Context, account *models.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := accountKey(account.TenantID, account.ID)
	if _, ok := r.store.accounts[key]; !ok {
		return models.ErrAccountNotFound
	}
	r.store.accounts[key] = cloneAccount(account)
	return nil
}

// LockForUpdate is a plain read here; the unit of work already serializes
// whole transactions, so the per-row lock is implicit.
func (r *AccountRepository) LockForUpdate(ctx context.Context, tenantID, accountID string) (*models.Account, error) {
	return r.FindByID(ctx, tenantID, accountID)
}
