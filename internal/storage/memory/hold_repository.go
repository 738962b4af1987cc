package memory

import (
	"context"
	"sort"
	"time"

	"github.com/loyaltyhub/backend/internal/models"
)

type HoldRepository struct {
	store *Store
}

func NewHoldRepository(store *Store) *HoldRepository {
	return &HoldRepository{store: store}
}

func (r *HoldRepository) FindActiveByReference(ctx context.Context, tenantID, accountID string, ref models.Reference) (*models.Hold, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, hold := range r.store.holds {
		if hold.TenantID == tenantID && hold.AccountID == accountID && hold.Reference == ref && hold.Status == models.HoldStatusActive {
			return cloneHold(hold), nil
		}
	}
	return nil, nil
}

// FindByReference returns the most recently created hold for the reference,
// whatever its status.
func (r *HoldRepository) FindByReference(ctx context.Context, tenantID, accountID string, ref models.Reference) (*models.Hold, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var latest *models.Hold
	for _, hold := range r.store.holds {
		if hold.TenantID != tenantID || hold.AccountID != accountID || hold.Reference != ref {
			continue
		}
		if latest == nil || hold.CreatedAt.After(latest.CreatedAt) {
			latest = hold
		}
	}
	return cloneHold(latest), nil
}

func (r *HoldRepository) Create(ctx context.Context, hold *models.Hold) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.holds = append(r.store.holds, cloneHold(hold))
	return nil
}

func (r *HoldRepository) UpdateStatus(ctx context.Context, hold *models.Hold) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i, existing := range r.store.holds {
		if existing.TenantID == hold.TenantID && existing.ID == hold.ID {
			if existing.Status != models.HoldStatusActive {
				return models.ErrHoldNotActive
			}
			r.store.holds[i] = cloneHold(hold)
			return nil
		}
	}
	return models.ErrHoldNotFound
}

func (r *HoldRepository) ActiveHoldsTotal(ctx context.Context, tenantID, accountID string) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var total int64
	for _, hold := range r.store.holds {
		if hold.TenantID == tenantID && hold.AccountID == accountID && hold.Status == models.HoldStatusActive {
			total += hold.Amount
		}
	}
	return total, nil
}

func (r *HoldRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.Hold, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var due []*models.Hold
	for _, hold := range r.store.holds {
		if hold.Status == models.HoldStatusActive && hold.IsExpiredAt(now) {
			due = append(due, cloneHold(hold))
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].ExpiresAt.Before(*due[j].ExpiresAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}
