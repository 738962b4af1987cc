package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/loyaltyhub/backend/internal/clock"
	"github.com/loyaltyhub/backend/internal/models"
)

// Service orchestrates the points ledger commands. Every money-moving
// operation runs inside one unit of work: idempotency begin, account lock,
// ledger/hold mutation, fresh balance, outbox enqueue and idempotency
// completion commit or roll back together.
type Service struct {
	uow         UnitOfWork
	accounts    AccountRepository
	entries     LedgerRepository
	holds       HoldRepository
	idempotency IdempotencyRepository
	outbox      OutboxRepository
	clock       clock.Clock
	ids         IDGenerator
	validator   *ValidationHelper
	logger      logrus.FieldLogger
}

func NewService(
	uow UnitOfWork,
	accounts AccountRepository,
	entries LedgerRepository,
	holds HoldRepository,
	idempotency IdempotencyRepository,
	outbox OutboxRepository,
	clk clock.Clock,
	ids IDGenerator,
	logger logrus.FieldLogger,
) *Service {
	return &Service{
		uow:         uow,
		accounts:    accounts,
		entries:     entries,
		holds:       holds,
		idempotency: idempotency,
		outbox:      outbox,
		clock:       clk,
		ids:         ids,
		validator:   NewValidationHelper(),
		logger:      logger,
	}
}

// runCommand wraps one command in the unit of work with idempotency
// bookkeeping. fn performs the mutation and returns the response to cache.
// A replayed COMPLETED key returns the cached response after the stored
// request hash is compared; a mismatching hash is rejected rather than
// silently served. Errors raised after TryBegin mark the record FAILED
// outside the rolled-back transaction so the key stays retryable.
func runCommand[T any](ctx context.Context, s *Service, scope, tenantID, key, hash string, fn func(txCtx context.Context) (*T, error)) (*T, error) {
	var result *T
	began := false

	err := s.uow.Execute(ctx, func(txCtx context.Context) error {
		if key != "" {
			now := s.clock.Now()
			existing, isNew, err := s.idempotency.TryBegin(txCtx, &models.IdempotencyRecord{
				Scope:       scope,
				TenantID:    tenantID,
				Key:         key,
				RequestHash: hash,
				Status:      models.IdempotencyStatusInProgress,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
			if err != nil {
				return err
			}
			if !isNew {
				switch existing.Status {
				case models.IdempotencyStatusCompleted:
					if existing.RequestHash != hash {
						return models.ErrIdempotencyConflict
					}
					cached := new(T)
					if err := json.Unmarshal(existing.ResponseBody, cached); err != nil {
						return fmt.Errorf("decode cached response: %w", err)
					}
					result = cached
					return nil
				case models.IdempotencyStatusInProgress:
					return models.ErrOperationInProgress
				default:
					return fmt.Errorf("unexpected idempotency status %q", existing.Status)
				}
			}
			began = true
		}

		resp, err := fn(txCtx)
		if err != nil {
			return err
		}

		if key != "" {
			body, err := canonicalJSON(resp)
			if err != nil {
				return err
			}
			if err := s.idempotency.Complete(txCtx, scope, tenantID, key, body); err != nil {
				return err
			}
		}
		result = resp
		return nil
	})
	if err != nil {
		if began {
			errBody, _ := json.Marshal(map[string]string{"error": err.Error()})
			if fErr := s.idempotency.Fail(ctx, scope, tenantID, key, errBody); fErr != nil {
				s.logger.WithError(fErr).WithFields(logrus.Fields{
					"scope": scope, "key": key,
				}).Error("failed to mark idempotency record FAILED")
			}
		}
		return nil, err
	}
	return result, nil
}

// lockAccount finds the account for (tenant, owner), creating it lazily on
// first use, and acquires its exclusive row lock for the transaction.
func (s *Service) lockAccount(ctx context.Context, tenantID string, owner models.Owner) (*models.Account, error) {
	account, err := s.accounts.FindByOwner(ctx, tenantID, owner)
	if err != nil {
		return nil, err
	}
	if account == nil {
		account = models.NewAccount(s.ids.NewID(), tenantID, owner, s.clock.Now())
		if err := s.accounts.Create(ctx, account); err != nil {
			return nil, err
		}
	}
	locked, err := s.accounts.LockForUpdate(ctx, tenantID, account.ID)
	if err != nil {
		return nil, err
	}
	if locked == nil {
		return nil, models.ErrAccountNotFound
	}
	return locked, nil
}

func (s *Service) freshBalance(ctx context.Context, tenantID, accountID string) (models.Balance, error) {
	agg, err := s.entries.BalanceAggregates(ctx, tenantID, accountID)
	if err != nil {
		return models.Balance{}, err
	}
	held, err := s.holds.ActiveHoldsTotal(ctx, tenantID, accountID)
	if err != nil {
		return models.Balance{}, err
	}
	return CalculateBalance(agg, held), nil
}

func receiptFor(entry *models.LedgerEntry, balance models.Balance) *Receipt {
	return &Receipt{
		TransactionID: entry.ID,
		AccountID:     entry.AccountID,
		EntryType:     entry.EntryType,
		Amount:        entry.Amount,
		ReferenceType: entry.Reference.Type,
		ReferenceID:   entry.Reference.ID,
		CreatedAt:     entry.CreatedAt,
		Balance:       balance,
	}
}

func (s *Service) movedPayload(account *models.Account, entry *models.LedgerEntry, balance models.Balance) pointsMovedPayload {
	p := pointsMovedPayload{
		TransactionID: entry.ID,
		TenantID:      entry.TenantID,
		AccountID:     entry.AccountID,
		OwnerType:     account.Owner.Type,
		OwnerID:       account.Owner.ID,
		EntryType:     entry.EntryType,
		Amount:        entry.Amount,
		ReasonCode:    entry.ReasonCode,
		ReferenceType: entry.Reference.Type,
		ReferenceID:   entry.Reference.ID,
		ReversalOfID:  entry.ReversalOfID,
		Balance:       balance,
		OccurredAt:    entry.CreatedAt,
	}
	if entry.Journey != nil {
		p.JourneyCode = entry.Journey.JourneyCode
		p.JourneyTrigger = entry.Journey.JourneyTrigger
	}
	return p
}

// Credit adds points to the owner's account.
func (s *Service) Credit(ctx context.Context, cmd CreditCommand) (*Receipt, error) {
	if err := s.validator.ValidateCommand(cmd); err != nil {
		return nil, err
	}
	hash, err := requestHash(cmd)
	if err != nil {
		return nil, err
	}
	return runCommand(ctx, s, scopeCredit, cmd.TenantID, cmd.IdempotencyKey, hash, func(txCtx context.Context) (*Receipt, error) {
		return s.appendMovement(txCtx, cmd.TenantID, cmd.Owner, models.EntryTypeCredit, cmd.Amount, cmd.ReasonCode, cmd.Reference, cmd.IdempotencyKey, cmd.Metadata, nil)
	})
}

// Debit removes points; it fails with ErrInsufficientFunds and zero effect
// when the available balance does not cover the amount.
func (s *Service) Debit(ctx context.Context, cmd DebitCommand) (*Receipt, error) {
	if err := s.validator.ValidateCommand(cmd); err != nil {
		return nil, err
	}
	hash, err := requestHash(cmd)
	if err != nil {
		return nil, err
	}
	return runCommand(ctx, s, scopeDebit, cmd.TenantID, cmd.IdempotencyKey, hash, func(txCtx context.Context) (*Receipt, error) {
		return s.appendMovement(txCtx, cmd.TenantID, cmd.Owner, models.EntryTypeDebit, cmd.Amount, cmd.ReasonCode, cmd.Reference, cmd.IdempotencyKey, cmd.Metadata, nil)
	})
}

// PostJourneyEntry posts a CREDIT or DEBIT attributed to a journey run.
func (s *Service) PostJourneyEntry(ctx context.Context, cmd PostJourneyEntryCommand) (*Receipt, error) {
	if cmd.JourneyCode == "" || cmd.JourneyTrigger == "" {
		return nil, models.ErrJourneyReferenceRequired
	}
	if cmd.IdempotencyKey == "" {
		return nil, models.ErrIdempotencyKeyRequired
	}
	if err := s.validator.ValidateCommand(cmd); err != nil {
		return nil, err
	}
	hash, err := requestHash(cmd)
	if err != nil {
		return nil, err
	}
	journey := &models.JourneyReference{
		JourneyCode:        cmd.JourneyCode,
		JourneyTrigger:     cmd.JourneyTrigger,
		ApprovalPolicyCode: cmd.ApprovalPolicyCode,
		ApprovalRequestID:  cmd.ApprovalRequestID,
		SourceEventID:      cmd.SourceEventID,
	}
	return runCommand(ctx, s, scopeJourneyEntry, cmd.TenantID, cmd.IdempotencyKey, hash, func(txCtx context.Context) (*Receipt, error) {
		return s.appendMovement(txCtx, cmd.TenantID, cmd.Member, cmd.EntryType, cmd.Amount, cmd.ReasonCode, cmd.Reference, cmd.IdempotencyKey, cmd.Metadata, journey)
	})
}

// appendMovement is the shared credit/debit/journey posting path. It must be
// called inside a unit of work.
func (s *Service) appendMovement(ctx context.Context, tenantID string, owner models.Owner, entryType models.EntryType, amount int64, reasonCode string, ref models.Reference, idemKey string, metadata map[string]string, journey *models.JourneyReference) (*Receipt, error) {
	account, err := s.lockAccount(ctx, tenantID, owner)
	if err != nil {
		return nil, err
	}
	if !account.IsActive() {
		return nil, models.ErrAccountSuspended
	}

	if entryType == models.EntryTypeDebit {
		balance, err := s.freshBalance(ctx, tenantID, account.ID)
		if err != nil {
			return nil, err
		}
		if balance.AvailableBalance < amount {
			return nil, models.ErrInsufficientFunds
		}
	}

	now := s.clock.Now()
	var entry *models.LedgerEntry
	if journey != nil {
		entry, err = models.NewJourneyLedgerEntry(s.ids.NewID(), tenantID, account.ID, entryType, amount, reasonCode, ref, *journey, now)
	} else {
		entry, err = models.NewLedgerEntry(s.ids.NewID(), tenantID, account.ID, entryType, amount, reasonCode, ref, now)
	}
	if err != nil {
		return nil, err
	}
	entry.IdempotencyKey = idemKey
	entry.Metadata = metadata

	if err := s.entries.AppendEntry(ctx, entry); err != nil {
		return nil, err
	}

	balance, err := s.freshBalance(ctx, tenantID, account.ID)
	if err != nil {
		return nil, err
	}

	eventType := EventPointsCredited
	if entryType == models.EntryTypeDebit {
		eventType = EventPointsDebited
	}
	if journey != nil {
		eventType = EventJourneyEntryPosted
	}
	event, err := s.buildEvent(tenantID, aggregateAccount, account.ID, eventType, s.movedPayload(account, entry, balance), now)
	if err != nil {
		return nil, err
	}
	if err := s.outbox.Enqueue(ctx, event); err != nil {
		return nil, err
	}

	return receiptFor(entry, balance), nil
}

// Reverse cancels the economic effect of a prior entry with a counter-entry
// of the opposite type and equal amount. The original transitions
// POSTED -> REVERSED exactly once.
func (s *Service) Reverse(ctx context.Context, cmd ReverseCommand) (*Receipt, error) {
	if cmd.IdempotencyKey == "" {
		return nil, models.ErrIdempotencyKeyRequired
	}
	if err := s.validator.ValidateCommand(cmd); err != nil {
		return nil, err
	}
	hash, err := requestHash(cmd)
	if err != nil {
		return nil, err
	}
	return runCommand(ctx, s, scopeReverse, cmd.TenantID, cmd.IdempotencyKey, hash, func(txCtx context.Context) (*Receipt, error) {
		original, err := s.entries.FindByID(txCtx, cmd.TenantID, cmd.EntryID)
		if err != nil {
			return nil, err
		}
		if original == nil {
			return nil, models.ErrEntryNotFound
		}

		account, err := s.accounts.LockForUpdate(txCtx, cmd.TenantID, original.AccountID)
		if err != nil {
			return nil, err
		}
		if account == nil {
			return nil, models.ErrAccountNotFound
		}
		if !account.IsActive() {
			return nil, models.ErrAccountSuspended
		}

		if original.Status == models.EntryStatusReversed {
			return nil, models.ErrEntryAlreadyReversed
		}

		counterType, err := oppositeEntryType(original.EntryType)
		if err != nil {
			return nil, err
		}

		now := s.clock.Now()
		counter, err := models.NewLedgerEntry(s.ids.NewID(), cmd.TenantID, original.AccountID, counterType, original.Amount, cmd.ReasonCode, original.Reference, now)
		if err != nil {
			return nil, err
		}
		counter.ReversalOfID = original.ID
		counter.IdempotencyKey = cmd.IdempotencyKey

		if err := original.MarkReversed(counter.ID); err != nil {
			return nil, err
		}

		if err := s.entries.AppendEntry(txCtx, counter); err != nil {
			return nil, err
		}
		if err := s.entries.UpdateStatus(txCtx, original); err != nil {
			return nil, err
		}

		balance, err := s.freshBalance(txCtx, cmd.TenantID, original.AccountID)
		if err != nil {
			return nil, err
		}

		event, err := s.buildEvent(cmd.TenantID, aggregateAccount, account.ID, EventEntryReversed, s.movedPayload(account, counter, balance), now)
		if err != nil {
			return nil, err
		}
		if err := s.outbox.Enqueue(txCtx, event); err != nil {
			return nil, err
		}

		return receiptFor(counter, balance), nil
	})
}

// oppositeEntryType maps an entry to its reversing counter-entry type. Only
// balance-affecting entries can be reversed.
func oppositeEntryType(t models.EntryType) (models.EntryType, error) {
	switch t {
	case models.EntryTypeCredit:
		return models.EntryTypeDebit, nil
	case models.EntryTypeDebit, models.EntryTypeCommit:
		return models.EntryTypeCredit, nil
	default:
		return "", models.ErrEntryNotReversible
	}
}

// GetBalance derives the owner's balance without taking the account lock.
// Unknown owners report a zero balance, consistent with lazy account
// creation.
func (s *Service) GetBalance(ctx context.Context, tenantID string, owner models.Owner) (models.Balance, error) {
	account, err := s.accounts.FindByOwner(ctx, tenantID, owner)
	if err != nil {
		return models.Balance{}, err
	}
	if account == nil {
		return models.Balance{}, nil
	}
	return s.freshBalance(ctx, tenantID, account.ID)
}

// GetStatement returns a filtered, paginated view of the owner's ledger.
func (s *Service) GetStatement(ctx context.Context, tenantID string, owner models.Owner, filter StatementFilter, page Pagination) (*PagedLedgerEntries, error) {
	if page.Limit <= 0 {
		page.Limit = 50
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	account, err := s.accounts.FindByOwner(ctx, tenantID, owner)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return &PagedLedgerEntries{Entries: []*models.LedgerEntry{}, Limit: page.Limit, Offset: page.Offset}, nil
	}
	entries, total, err := s.entries.ListEntries(ctx, tenantID, account.ID, filter, page)
	if err != nil {
		return nil, err
	}
	return &PagedLedgerEntries{Entries: entries, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

// SuspendAccount gates the owner's account against money-moving commands.
func (s *Service) SuspendAccount(ctx context.Context, tenantID string, owner models.Owner) error {
	return s.setAccountStatus(ctx, tenantID, owner, models.AccountStatusSuspended)
}

func (s *Service) ActivateAccount(ctx context.Context, tenantID string, owner models.Owner) error {
	return s.setAccountStatus(ctx, tenantID, owner, models.AccountStatusActive)
}

func (s *Service) setAccountStatus(ctx context.Context, tenantID string, owner models.Owner, target models.AccountStatus) error {
	return s.uow.Execute(ctx, func(txCtx context.Context) error {
		account, err := s.accounts.FindByOwner(txCtx, tenantID, owner)
		if err != nil {
			return err
		}
		if account == nil {
			return models.ErrAccountNotFound
		}
		locked, err := s.accounts.LockForUpdate(txCtx, tenantID, account.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return models.ErrAccountNotFound
		}

		now := s.clock.Now()
		if target == models.AccountStatusSuspended {
			err = locked.Suspend(now)
		} else {
			err = locked.Activate(now)
		}
		if err != nil {
			return err
		}
		if err := s.accounts.Update(txCtx, locked); err != nil {
			return err
		}

		eventType := EventAccountSuspended
		if target == models.AccountStatusActive {
			eventType = EventAccountActivated
		}
		event, err := s.buildEvent(tenantID, aggregateAccount, locked.ID, eventType, accountStatusPayload{
			AccountID:  locked.ID,
			TenantID:   tenantID,
			OwnerType:  locked.Owner.Type,
			OwnerID:    locked.Owner.ID,
			Status:     locked.Status,
			OccurredAt: now,
		}, now)
		if err != nil {
			return err
		}
		return s.outbox.Enqueue(txCtx, event)
	})
}
