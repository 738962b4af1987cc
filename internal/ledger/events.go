package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/loyaltyhub/backend/internal/models"
)

// Event types handed off to downstream consumers via the outbox.
const (
	EventPointsCredited     = "points.credited"
	EventPointsDebited      = "points.debited"
	EventHoldPlaced         = "points.hold_placed"
	EventHoldReleased       = "points.hold_released"
	EventHoldCommitted      = "points.hold_committed"
	EventHoldExpired        = "points.hold_expired"
	EventEntryReversed      = "points.entry_reversed"
	EventJourneyEntryPosted = "points.journey_entry_posted"
	EventAccountSuspended   = "points.account_suspended"
	EventAccountActivated   = "points.account_activated"
)

const (
	aggregateAccount = "ACCOUNT"
	aggregateHold    = "HOLD"
)

type pointsMovedPayload struct {
	TransactionID  string           `json:"transaction_id"`
	TenantID       string           `json:"tenant_id"`
	AccountID      string           `json:"account_id"`
	OwnerType      models.OwnerType `json:"owner_type"`
	OwnerID        string           `json:"owner_id"`
	EntryType      models.EntryType `json:"entry_type"`
	Amount         int64            `json:"amount"`
	ReasonCode     string           `json:"reason_code"`
	ReferenceType  string           `json:"reference_type,omitempty"`
	ReferenceID    string           `json:"reference_id,omitempty"`
	ReversalOfID   string           `json:"reversal_of_id,omitempty"`
	JourneyCode    string           `json:"journey_code,omitempty"`
	JourneyTrigger string           `json:"journey_trigger,omitempty"`
	Balance        models.Balance   `json:"balance"`
	OccurredAt     time.Time        `json:"occurred_at"`
}

type holdChangedPayload struct {
	HoldID        string            `json:"hold_id"`
	TenantID      string            `json:"tenant_id"`
	AccountID     string            `json:"account_id"`
	Status        models.HoldStatus `json:"status"`
	Amount        int64             `json:"amount"`
	ReferenceType string            `json:"reference_type"`
	ReferenceID   string            `json:"reference_id"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
	Balance       models.Balance    `json:"balance"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

type accountStatusPayload struct {
	AccountID  string               `json:"account_id"`
	TenantID   string               `json:"tenant_id"`
	OwnerType  models.OwnerType     `json:"owner_type"`
	OwnerID    string               `json:"owner_id"`
	Status     models.AccountStatus `json:"status"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// buildEvent wraps a payload into a PENDING outbox row scheduled immediately.
func (s *Service) buildEvent(tenantID, aggregateType, aggregateID, eventType string, payload any, now time.Time) (*models.OutboxEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &models.OutboxEvent{
		ID:            s.ids.NewID(),
		TenantID:      tenantID,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       body,
		Status:        models.OutboxStatusPending,
		ScheduledAt:   now,
		CreatedAt:     now,
	}, nil
}
