package models

import (
	"time"
)

type HoldStatus string

const (
	HoldStatusActive    HoldStatus = "ACTIVE"
	HoldStatusCommitted HoldStatus = "COMMITTED"
	HoldStatusReleased  HoldStatus = "RELEASED"
	HoldStatusExpired   HoldStatus = "EXPIRED"
)

// Hold reserves points against a balance until it is committed, released or
// expired. At most one ACTIVE hold exists per (tenant, account, reference);
// the terminal states are final.
type Hold struct {
	ID        string     `json:"id" db:"id"`
	TenantID  string     `json:"tenant_id" db:"tenant_id"`
	AccountID string     `json:"account_id" db:"account_id"`
	Reference Reference  `json:"reference"`
	Amount    int64      `json:"amount" db:"amount"`
	Status    HoldStatus `json:"status" db:"status"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

func NewHold(id, tenantID, accountID string, ref Reference, amount int64, expiresAt *time.Time, now time.Time) (*Hold, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return &Hold{
		ID:        id,
		TenantID:  tenantID,
		AccountID: accountID,
		Reference: ref,
		Amount:    amount,
		Status:    HoldStatusActive,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (h *Hold) IsActive() bool {
	return h.Status == HoldStatusActive
}

// Commit consumes the held points. Only an ACTIVE hold can transition.
func (h *Hold) Commit(now time.Time) error {
	return h.transition(HoldStatusCommitted, now)
}

// Release gives the held points back to the available balance.
func (h *Hold) Release(now time.Time) error {
	return h.transition(HoldStatusReleased, now)
}

// Expire is driven by the sweep, not by a user command.
func (h *Hold) Expire(now time.Time) error {
	return h.transition(HoldStatusExpired, now)
}

// IsExpiredAt reports whether the hold's deadline has passed. A hold with no
// deadline never expires.
func (h *Hold) IsExpiredAt(now time.Time) bool {
	return h.ExpiresAt != nil && !h.ExpiresAt.After(now)
}

func (h *Hold) transition(target HoldStatus, now time.Time) error {
	if h.Status != HoldStatusActive {
		return ErrHoldNotActive
	}
	h.Status = target
	h.UpdatedAt = now
	return nil
}
