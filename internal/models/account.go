package models

import (
	"time"
)

type OwnerType string

const (
	OwnerTypeUser OwnerType = "USER"
	OwnerTypeOrg  OwnerType = "ORG"
)

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
)

// Owner identifies who a points account belongs to. One account exists per
// (tenant, owner) pair.
type Owner struct {
	Type OwnerType `json:"type" db:"owner_type"`
	ID   string    `json:"id" db:"owner_id"`
}

type Account struct {
	ID        string        `json:"id" db:"id"`
	TenantID  string        `json:"tenant_id" db:"tenant_id"`
	Owner     Owner         `json:"owner"`
	Status    AccountStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

func NewAccount(id, tenantID string, owner Owner, now time.Time) *Account {
	return &Account{
		ID:        id,
		TenantID:  tenantID,
		Owner:     owner,
		Status:    AccountStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// Suspend gates the account against further money-moving commands.
func (a *Account) Suspend(now time.Time) error {
	if a.Status == AccountStatusSuspended {
		return ErrAccountStatusUnchanged
	}
	a.Status = AccountStatusSuspended
	a.UpdatedAt = now
	return nil
}

func (a *Account) Activate(now time.Time) error {
	if a.Status == AccountStatusActive {
		return ErrAccountStatusUnchanged
	}
	a.Status = AccountStatusActive
	a.UpdatedAt = now
	return nil
}
