package ledger

import (
	"time"

	"github.com/loyaltyhub/backend/internal/models"
)

// Idempotency scopes, one per money-moving command.
const (
	scopeCredit       = "points.credit"
	scopeDebit        = "points.debit"
	scopeHold         = "points.hold"
	scopeRelease      = "points.release"
	scopeCommit       = "points.commit"
	scopeReverse      = "points.reverse"
	scopeJourneyEntry = "points.journey_entry"
)

type CreditCommand struct {
	TenantID       string            `json:"tenant_id" validate:"required"`
	Owner          models.Owner      `json:"owner" validate:"required"`
	Amount         int64             `json:"amount" validate:"required,gt=0"`
	ReasonCode     string            `json:"reason_code" validate:"required"`
	Reference      models.Reference  `json:"reference"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type DebitCommand struct {
	TenantID       string            `json:"tenant_id" validate:"required"`
	Owner          models.Owner      `json:"owner" validate:"required"`
	Amount         int64             `json:"amount" validate:"required,gt=0"`
	ReasonCode     string            `json:"reason_code" validate:"required"`
	Reference      models.Reference  `json:"reference"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type HoldCommand struct {
	TenantID       string           `json:"tenant_id" validate:"required"`
	Owner          models.Owner     `json:"owner" validate:"required"`
	Reference      models.Reference `json:"reference" validate:"required"`
	Amount         int64            `json:"amount" validate:"required,gt=0"`
	ReasonCode     string           `json:"reason_code"`
	ExpiresAt      *time.Time       `json:"expires_at,omitempty"`
	IdempotencyKey string           `json:"idempotency_key,omitempty"`
}

type ReleaseCommand struct {
	TenantID       string           `json:"tenant_id" validate:"required"`
	Owner          models.Owner     `json:"owner" validate:"required"`
	Reference      models.Reference `json:"reference" validate:"required"`
	ReasonCode     string           `json:"reason_code"`
	IdempotencyKey string           `json:"idempotency_key,omitempty"`
}

type CommitCommand struct {
	TenantID       string           `json:"tenant_id" validate:"required"`
	Owner          models.Owner     `json:"owner" validate:"required"`
	Reference      models.Reference `json:"reference" validate:"required"`
	ReasonCode     string           `json:"reason_code"`
	IdempotencyKey string           `json:"idempotency_key,omitempty"`
}

type ReverseCommand struct {
	TenantID       string `json:"tenant_id" validate:"required"`
	EntryID        string `json:"entry_id" validate:"required"`
	ReasonCode     string `json:"reason_code" validate:"required"`
	IdempotencyKey string `json:"idempotency_key" validate:"required"`
}

type PostJourneyEntryCommand struct {
	TenantID           string            `json:"tenant_id" validate:"required"`
	Member             models.Owner      `json:"member" validate:"required"`
	EntryType          models.EntryType  `json:"entry_type" validate:"required,oneof=CREDIT DEBIT"`
	Amount             int64             `json:"amount" validate:"required,gt=0"`
	ReasonCode         string            `json:"reason_code"`
	Reference          models.Reference  `json:"reference"`
	JourneyCode        string            `json:"journey_code" validate:"required"`
	JourneyTrigger     string            `json:"journey_trigger" validate:"required"`
	ApprovalPolicyCode string            `json:"approval_policy_code,omitempty"`
	ApprovalRequestID  string            `json:"approval_request_id,omitempty"`
	SourceEventID      string            `json:"source_event_id,omitempty"`
	IdempotencyKey     string            `json:"idempotency_key" validate:"required"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// Receipt is the caller-facing result of a money-moving command. It is also
// the body cached for idempotent replays, so it must marshal stably.
type Receipt struct {
	TransactionID string           `json:"transaction_id"`
	AccountID     string           `json:"account_id"`
	EntryType     models.EntryType `json:"entry_type"`
	Amount        int64            `json:"amount"`
	ReferenceType string           `json:"reference_type,omitempty"`
	ReferenceID   string           `json:"reference_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	Balance       models.Balance   `json:"balance"`
}

type HoldReceipt struct {
	HoldID        string            `json:"hold_id"`
	AccountID     string            `json:"account_id"`
	Status        models.HoldStatus `json:"status"`
	Amount        int64             `json:"amount"`
	ReferenceType string            `json:"reference_type"`
	ReferenceID   string            `json:"reference_id"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	Balance       models.Balance    `json:"balance"`
}
