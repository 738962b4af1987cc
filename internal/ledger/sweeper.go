package ledger

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/loyaltyhub/backend/internal/models"
)

// ExpireDueHolds sweeps ACTIVE holds whose deadline has passed. Each hold is
// expired in its own transaction; a failing item is logged and skipped so it
// cannot stall the rest of the batch. Batches are pulled until a short page
// is returned, capped at maxIterations as a runaway-loop safety valve.
func (s *Service) ExpireDueHolds(ctx context.Context, batchSize, maxIterations int) (int, error) {
	expired := 0
	for i := 0; i < maxIterations; i++ {
		now := s.clock.Now()
		batch, err := s.holds.ListExpired(ctx, now, batchSize)
		if err != nil {
			return expired, err
		}
		for _, hold := range batch {
			if err := s.expireHold(ctx, hold); err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"hold_id":   hold.ID,
					"tenant_id": hold.TenantID,
				}).Error("hold expiry failed, skipping")
				continue
			}
			expired++
		}
		if len(batch) < batchSize {
			break
		}
	}
	return expired, nil
}

func (s *Service) expireHold(ctx context.Context, stale *models.Hold) error {
	return s.uow.Execute(ctx, func(txCtx context.Context) error {
		locked, err := s.accounts.LockForUpdate(txCtx, stale.TenantID, stale.AccountID)
		if err != nil {
			return err
		}
		if locked == nil {
			return models.ErrAccountNotFound
		}

		// Re-read under the lock: a concurrent commit or release may have
		// settled the hold since the batch was listed.
		hold, err := s.holds.FindByReference(txCtx, stale.TenantID, stale.AccountID, stale.Reference)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if hold == nil || !hold.IsActive() || !hold.IsExpiredAt(now) {
			return nil
		}

		if err := hold.Expire(now); err != nil {
			return err
		}
		if err := s.holds.UpdateStatus(txCtx, hold); err != nil {
			return err
		}

		entry, err := models.NewLedgerEntry(s.ids.NewID(), hold.TenantID, hold.AccountID, models.EntryTypeRelease, hold.Amount, "HOLD_EXPIRED", hold.Reference, now)
		if err != nil {
			return err
		}
		if err := s.entries.AppendEntry(txCtx, entry); err != nil {
			return err
		}

		balance, err := s.freshBalance(txCtx, hold.TenantID, hold.AccountID)
		if err != nil {
			return err
		}
		event, err := s.buildEvent(hold.TenantID, aggregateHold, hold.ID, EventHoldExpired, s.holdPayload(hold, balance, now), now)
		if err != nil {
			return err
		}
		return s.outbox.Enqueue(txCtx, event)
	})
}

// Sweeper periodically expires overdue holds. It is expected to run as a
// singleton per process; overlapping runs are skipped via a compare-and-swap
// reentry guard rather than queued.
type Sweeper struct {
	service       *Service
	interval      time.Duration
	batchSize     int
	maxIterations int
	logger        logrus.FieldLogger
	running       atomic.Bool
}

func NewSweeper(service *Service, interval time.Duration, batchSize, maxIterations int, logger logrus.FieldLogger) *Sweeper {
	return &Sweeper{
		service:       service,
		interval:      interval,
		batchSize:     batchSize,
		maxIterations: maxIterations,
		logger:        logger,
	}
}

// Run blocks until ctx is cancelled. Start it with `go sweeper.Run(ctx)`.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.WithField("interval", w.interval.String()).Info("hold expiry sweeper started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("hold expiry sweeper stopped")
			return
		case <-ticker.C:
			w.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep unless one is already in flight.
func (w *Sweeper) SweepOnce(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		w.logger.Debug("hold sweep already running, skipping tick")
		return
	}
	defer w.running.Store(false)

	expired, err := w.service.ExpireDueHolds(ctx, w.batchSize, w.maxIterations)
	if err != nil {
		w.logger.WithError(err).Error("hold sweep failed")
		return
	}
	if expired > 0 {
		w.logger.WithField("expired", expired).Info("expired overdue holds")
	}
}
