package models

import "errors"

var (
	ErrValidation               = errors.New("validation failed")
	ErrInvalidAmount            = errors.New("amount must be a positive integer")
	ErrEntryNotReversible       = errors.New("entry type cannot be reversed")
	ErrJourneyReferenceRequired = errors.New("journey code and journey trigger are required")
	ErrIdempotencyKeyRequired   = errors.New("idempotency key required")
	ErrIdempotencyConflict      = errors.New("idempotency key reused with a different payload")
	ErrOperationInProgress      = errors.New("operation already in progress")
	ErrInsufficientFunds        = errors.New("insufficient available balance")
	ErrAccountNotFound          = errors.New("account not found")
	ErrAccountSuspended         = errors.New("account is suspended")
	ErrAccountStatusUnchanged   = errors.New("account already in target status")
	ErrEntryNotFound            = errors.New("ledger entry not found")
	ErrEntryAlreadyReversed     = errors.New("ledger entry already reversed")
	ErrHoldNotFound             = errors.New("no active hold for reference")
	ErrHoldAlreadyActive        = errors.New("an active hold already exists for reference")
	ErrHoldNotActive            = errors.New("hold is not active")
)
