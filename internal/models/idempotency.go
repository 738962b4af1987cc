package models

import (
	"encoding/json"
	"time"
)

type IdempotencyStatus string

const (
	IdempotencyStatusInProgress IdempotencyStatus = "IN_PROGRESS"
	IdempotencyStatusCompleted  IdempotencyStatus = "COMPLETED"
	IdempotencyStatusFailed     IdempotencyStatus = "FAILED"
)

// IdempotencyRecord deduplicates command execution by (scope, tenant, key).
// It is created IN_PROGRESS at the start of a command and finalized at its
// end; a FAILED record permits a later retry with the same key.
type IdempotencyRecord struct {
	Scope        string            `json:"scope" db:"scope"`
	TenantID     string            `json:"tenant_id" db:"tenant_id"`
	Key          string            `json:"key" db:"idempotency_key"`
	RequestHash  string            `json:"request_hash" db:"request_hash"`
	Status       IdempotencyStatus `json:"status" db:"status"`
	ResponseBody json.RawMessage   `json:"response_body,omitempty" db:"response_body"`
	ErrorBody    json.RawMessage   `json:"error_body,omitempty" db:"error_body"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}
