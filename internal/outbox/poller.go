package outbox

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/loyaltyhub/backend/internal/clock"
	"github.com/loyaltyhub/backend/internal/ledger"
)

// Poller drains the transactional outbox. Multiple poller instances may run
// concurrently against the same table: PullPending skips rows claimed by
// another worker, so no row is double-published while its claim is held.
// Publish failures are isolated per event and rescheduled with exponential
// backoff; they never propagate back to the originating command.
type Poller struct {
	repo        ledger.OutboxRepository
	uow         ledger.UnitOfWork
	publisher   Publisher
	clock       clock.Clock
	interval    time.Duration
	batchSize   int
	backoffBase time.Duration
	backoffMax  time.Duration
	logger      logrus.FieldLogger
}

func NewPoller(
	repo ledger.OutboxRepository,
	uow ledger.UnitOfWork,
	publisher Publisher,
	clk clock.Clock,
	interval time.Duration,
	batchSize int,
	backoffBase, backoffMax time.Duration,
	logger logrus.FieldLogger,
) *Poller {
	return &Poller{
		repo:        repo,
		uow:         uow,
		publisher:   publisher,
		clock:       clk,
		interval:    interval,
		batchSize:   batchSize,
		backoffBase: backoffBase,
		backoffMax:  backoffMax,
		logger:      logger,
	}
}

// Run blocks until ctx is cancelled. Start it with `go poller.Run(ctx)`.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.WithField("interval", p.interval.String()).Info("outbox poller started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox poller stopped")
			return
		case <-ticker.C:
			if _, err := p.DrainOnce(ctx); err != nil {
				p.logger.WithError(err).Error("outbox drain failed")
			}
		}
	}
}

// DrainOnce claims one batch of due events and publishes each, finalizing
// rows inside the claiming transaction. Returns the number published.
func (p *Poller) DrainOnce(ctx context.Context) (int, error) {
	published := 0
	err := p.uow.Execute(ctx, func(txCtx context.Context) error {
		events, err := p.repo.PullPending(txCtx, p.batchSize)
		if err != nil {
			return err
		}
		for _, event := range events {
			if err := p.publisher.Publish(txCtx, event); err != nil {
				retryIn := p.backoffFor(event.RetryCount)
				p.logger.WithError(err).WithFields(logrus.Fields{
					"event_id":   event.ID,
					"event_type": event.EventType,
					"retry_in":   retryIn.String(),
				}).Warn("event publish failed, rescheduling")
				if mErr := p.repo.MarkFailed(txCtx, event.ID, p.clock.Now().Add(retryIn), err.Error()); mErr != nil {
					return mErr
				}
				continue
			}
			if err := p.repo.MarkPublished(txCtx, event.ID); err != nil {
				return err
			}
			published++
		}
		return nil
	})
	return published, err
}

// backoffFor doubles the delay per prior attempt, capped at backoffMax.
func (p *Poller) backoffFor(retryCount int) time.Duration {
	delay := p.backoffBase
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if delay >= p.backoffMax {
			return p.backoffMax
		}
	}
	return delay
}
