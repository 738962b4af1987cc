package models

import (
	"time"
)

type EntryType string

const (
	EntryTypeCredit   EntryType = "CREDIT"
	EntryTypeDebit    EntryType = "DEBIT"
	EntryTypeHold     EntryType = "HOLD"
	EntryTypeRelease  EntryType = "RELEASE"
	EntryTypeCommit   EntryType = "COMMIT"
	EntryTypeReversal EntryType = "REVERSAL"
)

type EntryStatus string

const (
	EntryStatusPosted   EntryStatus = "POSTED"
	EntryStatusReversed EntryStatus = "REVERSED"
)

// Reference links a ledger entry or hold to the external object that caused
// it (a reservation, an order, a journey run).
type Reference struct {
	Type string `json:"type" db:"reference_type"`
	ID   string `json:"id" db:"reference_id"`
}

// JourneyReference carries the workflow context for entries posted by the
// journey engine.
type JourneyReference struct {
	JourneyCode        string `json:"journey_code" db:"journey_code"`
	JourneyTrigger     string `json:"journey_trigger" db:"journey_trigger"`
	ApprovalPolicyCode string `json:"approval_policy_code,omitempty" db:"approval_policy_code"`
	ApprovalRequestID  string `json:"approval_request_id,omitempty" db:"approval_request_id"`
	SourceEventID      string `json:"source_event_id,omitempty" db:"source_event_id"`
}

// LedgerEntry is an immutable fact recording one point movement. The only
// permitted mutation after creation is the single POSTED -> REVERSED
// transition.
type LedgerEntry struct {
	ID             string            `json:"id" db:"id"`
	TenantID       string            `json:"tenant_id" db:"tenant_id"`
	AccountID      string            `json:"account_id" db:"account_id"`
	EntryType      EntryType         `json:"entry_type" db:"entry_type"`
	Amount         int64             `json:"amount" db:"amount"`
	ReasonCode     string            `json:"reason_code" db:"reason_code"`
	Reference      Reference         `json:"reference"`
	IdempotencyKey string            `json:"idempotency_key,omitempty" db:"idempotency_key"`
	Journey        *JourneyReference `json:"journey,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty" db:"metadata"`
	Status         EntryStatus       `json:"status" db:"status"`
	ReversalOfID   string            `json:"reversal_of_id,omitempty" db:"reversal_of_id"`
	ReversedByID   string            `json:"reversed_by_id,omitempty" db:"reversed_by_id"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
}

func NewLedgerEntry(id, tenantID, accountID string, entryType EntryType, amount int64, reasonCode string, ref Reference, now time.Time) (*LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return &LedgerEntry{
		ID:         id,
		TenantID:   tenantID,
		AccountID:  accountID,
		EntryType:  entryType,
		Amount:     amount,
		ReasonCode: reasonCode,
		Reference:  ref,
		Status:     EntryStatusPosted,
		CreatedAt:  now,
	}, nil
}

// NewJourneyLedgerEntry builds an entry attributed to a journey run. Both the
// journey code and trigger must be present.
func NewJourneyLedgerEntry(id, tenantID, accountID string, entryType EntryType, amount int64, reasonCode string, ref Reference, journey JourneyReference, now time.Time) (*LedgerEntry, error) {
	if journey.JourneyCode == "" || journey.JourneyTrigger == "" {
		return nil, ErrJourneyReferenceRequired
	}
	entry, err := NewLedgerEntry(id, tenantID, accountID, entryType, amount, reasonCode, ref, now)
	if err != nil {
		return nil, err
	}
	entry.Journey = &journey
	return entry, nil
}

// MarkReversed records the entry as cancelled by a counter-entry. It fails on
// a second call; an entry is reversed at most once.
func (e *LedgerEntry) MarkReversed(reversalID string) error {
	if e.Status == EntryStatusReversed {
		return ErrEntryAlreadyReversed
	}
	e.Status = EntryStatusReversed
	e.ReversedByID = reversalID
	return nil
}

// IsCredit reports whether the entry records points flowing toward the
// account's available balance.
func (e *LedgerEntry) IsCredit() bool {
	return e.EntryType == EntryTypeCredit || e.EntryType == EntryTypeRelease
}

// IsDebit reports whether the entry records points flowing out of the
// account.
func (e *LedgerEntry) IsDebit() bool {
	return e.EntryType == EntryTypeDebit || e.EntryType == EntryTypeCommit
}

func (e *LedgerEntry) IsHold() bool {
	return e.EntryType == EntryTypeHold
}
