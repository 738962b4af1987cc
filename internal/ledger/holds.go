package ledger

import (
	"context"
	"time"

	"github.com/loyaltyhub/backend/internal/models"
)

// HoldPoints reserves points against a reference. At most one ACTIVE hold may
// exist per (tenant, account, reference); a second attempt fails rather than
// creating a duplicate.
func (s *Service) HoldPoints(ctx context.Context, cmd HoldCommand) (*HoldReceipt, error) {
	if err := s.validator.ValidateCommand(cmd); err != nil {
		return nil, err
	}
	hash, err := requestHash(cmd)
	if err != nil {
		return nil, err
	}
	return runCommand(ctx, s, scopeHold, cmd.TenantID, cmd.IdempotencyKey, hash, func(txCtx context.Context) (*HoldReceipt, error) {
		account, err := s.lockAccount(txCtx, cmd.TenantID, cmd.Owner)
		if err != nil {
			return nil, err
		}
		if !account.IsActive() {
			return nil, models.ErrAccountSuspended
		}

		existing, err := s.holds.FindActiveByReference(txCtx, cmd.TenantID, account.ID, cmd.Reference)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, models.ErrHoldAlreadyActive
		}

		now := s.clock.Now()
		hold, err := models.NewHold(s.ids.NewID(), cmd.TenantID, account.ID, cmd.Reference, cmd.Amount, cmd.ExpiresAt, now)
		if err != nil {
			return nil, err
		}
		if err := s.holds.Create(txCtx, hold); err != nil {
			return nil, err
		}

		reason := cmd.ReasonCode
		if reason == "" {
			reason = "POINTS_HELD"
		}
		entry, err := models.NewLedgerEntry(s.ids.NewID(), cmd.TenantID, account.ID, models.EntryTypeHold, cmd.Amount, reason, cmd.Reference, now)
		if err != nil {
			return nil, err
		}
		entry.IdempotencyKey = cmd.IdempotencyKey
		if err := s.entries.AppendEntry(txCtx, entry); err != nil {
			return nil, err
		}

		balance, err := s.freshBalance(txCtx, cmd.TenantID, account.ID)
		if err != nil {
			return nil, err
		}

		event, err := s.buildEvent(cmd.TenantID, aggregateHold, hold.ID, EventHoldPlaced, s.holdPayload(hold, balance, now), now)
		if err != nil {
			return nil, err
		}
		if err := s.outbox.Enqueue(txCtx, event); err != nil {
			return nil, err
		}

		return holdReceiptFor(hold, balance), nil
	})
}

// ReleaseHold gives the held points back to the available balance.
func (s *Service) ReleaseHold(ctx context.Context, cmd ReleaseCommand) (*HoldReceipt, error) {
	if err := s.validator.ValidateCommand(cmd); err != nil {
		return nil, err
	}
	hash, err := requestHash(cmd)
	if err != nil {
		return nil, err
	}
	return runCommand(ctx, s, scopeRelease, cmd.TenantID, cmd.IdempotencyKey, hash, func(txCtx context.Context) (*HoldReceipt, error) {
		return s.settleHold(txCtx, cmd.TenantID, cmd.Owner, cmd.Reference, cmd.ReasonCode, cmd.IdempotencyKey, false)
	})
}

// CommitHold consumes the held points, debiting them from the balance.
func (s *Service) CommitHold(ctx context.Context, cmd CommitCommand) (*HoldReceipt, error) {
	if err := s.validator.ValidateCommand(cmd); err != nil {
		return nil, err
	}
	hash, err := requestHash(cmd)
	if err != nil {
		return nil, err
	}
	return runCommand(ctx, s, scopeCommit, cmd.TenantID, cmd.IdempotencyKey, hash, func(txCtx context.Context) (*HoldReceipt, error) {
		return s.settleHold(txCtx, cmd.TenantID, cmd.Owner, cmd.Reference, cmd.ReasonCode, cmd.IdempotencyKey, true)
	})
}

// settleHold resolves the unique ACTIVE hold for (tenant, account,
// reference) into its COMMITTED or RELEASED terminal state and appends the
// corresponding ledger entry. Must run inside a unit of work.
func (s *Service) settleHold(ctx context.Context, tenantID string, owner models.Owner, ref models.Reference, reasonCode, idemKey string, commit bool) (*HoldReceipt, error) {
	account, err := s.accounts.FindByOwner(ctx, tenantID, owner)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, models.ErrHoldNotFound
	}
	locked, err := s.accounts.LockForUpdate(ctx, tenantID, account.ID)
	if err != nil {
		return nil, err
	}
	if locked == nil {
		return nil, models.ErrAccountNotFound
	}
	if !locked.IsActive() {
		return nil, models.ErrAccountSuspended
	}

	hold, err := s.holds.FindActiveByReference(ctx, tenantID, locked.ID, ref)
	if err != nil {
		return nil, err
	}
	if hold == nil {
		return nil, models.ErrHoldNotFound
	}

	now := s.clock.Now()
	entryType := models.EntryTypeRelease
	eventType := EventHoldReleased
	defaultReason := "HOLD_RELEASED"
	if commit {
		entryType = models.EntryTypeCommit
		eventType = EventHoldCommitted
		defaultReason = "HOLD_COMMITTED"
		err = hold.Commit(now)
	} else {
		err = hold.Release(now)
	}
	if err != nil {
		return nil, err
	}
	if err := s.holds.UpdateStatus(ctx, hold); err != nil {
		return nil, err
	}

	reason := reasonCode
	if reason == "" {
		reason = defaultReason
	}
	entry, err := models.NewLedgerEntry(s.ids.NewID(), tenantID, locked.ID, entryType, hold.Amount, reason, ref, now)
	if err != nil {
		return nil, err
	}
	entry.IdempotencyKey = idemKey
	if err := s.entries.AppendEntry(ctx, entry); err != nil {
		return nil, err
	}

	balance, err := s.freshBalance(ctx, tenantID, locked.ID)
	if err != nil {
		return nil, err
	}

	event, err := s.buildEvent(tenantID, aggregateHold, hold.ID, eventType, s.holdPayload(hold, balance, now), now)
	if err != nil {
		return nil, err
	}
	if err := s.outbox.Enqueue(ctx, event); err != nil {
		return nil, err
	}

	return holdReceiptFor(hold, balance), nil
}

func (s *Service) holdPayload(hold *models.Hold, balance models.Balance, occurredAt time.Time) holdChangedPayload {
	return holdChangedPayload{
		HoldID:        hold.ID,
		TenantID:      hold.TenantID,
		AccountID:     hold.AccountID,
		Status:        hold.Status,
		Amount:        hold.Amount,
		ReferenceType: hold.Reference.Type,
		ReferenceID:   hold.Reference.ID,
		ExpiresAt:     hold.ExpiresAt,
		Balance:       balance,
		OccurredAt:    occurredAt,
	}
}

func holdReceiptFor(hold *models.Hold, balance models.Balance) *HoldReceipt {
	return &HoldReceipt{
		HoldID:        hold.ID,
		AccountID:     hold.AccountID,
		Status:        hold.Status,
		Amount:        hold.Amount,
		ReferenceType: hold.Reference.Type,
		ReferenceID:   hold.Reference.ID,
		ExpiresAt:     hold.ExpiresAt,
		CreatedAt:     hold.CreatedAt,
		Balance:       balance,
	}
}
