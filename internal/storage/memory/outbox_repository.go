package memory

import (
	"context"
	"time"

	"github.com/loyaltyhub/backend/internal/models"
)

type OutboxRepository struct {
	store *Store
}

func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{store: store}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, event *models.OutboxEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.outboxEvents = append(r.store.outboxEvents, cloneOutbox(event))
	return nil
}

func (r *OutboxRepository) PullPending(ctx context.Context, batchSize int) ([]*models.OutboxEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	now := r.store.clock.Now()
	var due []*models.OutboxEvent
	for _, event := range r.store.outboxEvents {
		if event.Status != models.OutboxStatusPending || event.ScheduledAt.After(now) {
			continue
		}
		due = append(due, cloneOutbox(event))
		if batchSize > 0 && len(due) == batchSize {
			break
		}
	}
	return due, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, event := range r.store.outboxEvents {
		if event.ID == id {
			event.Status = models.OutboxStatusPublished
			event.LastError = ""
			return nil
		}
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, nextAttemptAt time.Time, lastError string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, event := range r.store.outboxEvents {
		if event.ID == id {
			event.RetryCount++
			event.ScheduledAt = nextAttemptAt
			event.LastError = lastError
			return nil
		}
	}
	return nil
}
