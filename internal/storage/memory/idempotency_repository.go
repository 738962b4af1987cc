package memory

import (
	"context"
	"encoding/json"

	"github.com/loyaltyhub/backend/internal/models"
)

type IdempotencyRepository struct {
	store *Store
}

func NewIdempotencyRepository(store *Store) *IdempotencyRepository {
	return &IdempotencyRepository{store: store}
}

func (r *IdempotencyRepository) TryBegin(ctx context.Context, record *models.IdempotencyRecord) (*models.IdempotencyRecord, bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := idempotencyKey(record.Scope, record.TenantID, record.Key)
	existing, ok := r.store.idempotency[key]
	if !ok {
		r.store.idempotency[key] = cloneIdempotency(record)
		return cloneIdempotency(record), true, nil
	}
	if existing.Status == models.IdempotencyStatusFailed {
		// Reclaim: the previous attempt failed, this one retries in place.
		existing.Status = models.IdempotencyStatusInProgress
		existing.RequestHash = record.RequestHash
		existing.ErrorBody = nil
		existing.UpdatedAt = r.store.clock.Now()
		return cloneIdempotency(existing), true, nil
	}
	return cloneIdempotency(existing), false, nil
}

func (r *IdempotencyRepository) Complete(ctx context.Context, scope, tenantID, key string, responseBody json.RawMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	record, ok := r.store.idempotency[idempotencyKey(scope, tenantID, key)]
	if !ok {
		return nil
	}
	record.Status = models.IdempotencyStatusCompleted
	record.ResponseBody = append([]byte(nil), responseBody...)
	record.UpdatedAt = r.store.clock.Now()
	return nil
}

func (r *IdempotencyRepository) Fail(ctx context.Context, scope, tenantID, key string, errorBody json.RawMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	mapKey := idempotencyKey(scope, tenantID, key)
	record, ok := r.store.idempotency[mapKey]
	if !ok {
		// The IN_PROGRESS record was rolled back with the failed
		// transaction; record the failure outside it.
		now := r.store.clock.Now()
		r.store.idempotency[mapKey] = &models.IdempotencyRecord{
			Scope:     scope,
			TenantID:  tenantID,
			Key:       key,
			Status:    models.IdempotencyStatusFailed,
			ErrorBody: append([]byte(nil), errorBody...),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return nil
	}
	record.Status = models.IdempotencyStatusFailed
	record.ErrorBody = append([]byte(nil), errorBody...)
	record.UpdatedAt = r.store.clock.Now()
	return nil
}
