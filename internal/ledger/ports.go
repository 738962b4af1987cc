package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/loyaltyhub/backend/internal/models"
)

// BalanceAggregates are the per-entry-type sums for one account, as produced
// by a single grouped query. Reversals is carried for the contract but is
// irrelevant to the balance: a reversal's effect comes from its counter-entry.
type BalanceAggregates struct {
	Credits   int64
	Debits    int64
	Commits   int64
	Reversals int64
}

// StatementFilter narrows a ledger statement. Zero values mean "no filter".
// The time window is half-open: From inclusive, To exclusive.
type StatementFilter struct {
	EntryTypes    []models.EntryType
	ReferenceType string
	ReasonCode    string
	From          *time.Time
	To            *time.Time
}

type Pagination struct {
	Limit  int
	Offset int
}

type PagedLedgerEntries struct {
	Entries []*models.LedgerEntry `json:"entries"`
	Total   int                   `json:"total"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

// AccountRepository persists ledger owners. Find methods return (nil, nil)
// when no row matches.
type AccountRepository interface {
	FindByOwner(ctx context.Context, tenantID string, owner models.Owner) (*models.Account, error)
	FindByID(ctx context.Context, tenantID, id string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) error
	Update(ctx context.Context, account *models.Account) error
	// LockForUpdate acquires the exclusive per-account row lock for the
	// remainder of the surrounding transaction.
	LockForUpdate(ctx context.Context, tenantID, accountID string) (*models.Account, error)
}

type LedgerRepository interface {
	AppendEntry(ctx context.Context, entry *models.LedgerEntry) error
	FindByID(ctx context.Context, tenantID, id string) (*models.LedgerEntry, error)
	// UpdateStatus persists the single POSTED -> REVERSED transition.
	UpdateStatus(ctx context.Context, entry *models.LedgerEntry) error
	ListEntries(ctx context.Context, tenantID, accountID string, filter StatementFilter, page Pagination) ([]*models.LedgerEntry, int, error)
	BalanceAggregates(ctx context.Context, tenantID, accountID string) (BalanceAggregates, error)
}

type HoldRepository interface {
	FindActiveByReference(ctx context.Context, tenantID, accountID string, ref models.Reference) (*models.Hold, error)
	FindByReference(ctx context.Context, tenantID, accountID string, ref models.Reference) (*models.Hold, error)
	Create(ctx context.Context, hold *models.Hold) error
	UpdateStatus(ctx context.Context, hold *models.Hold) error
	ActiveHoldsTotal(ctx context.Context, tenantID, accountID string) (int64, error)
	// ListExpired returns ACTIVE holds whose deadline has passed, oldest
	// first, bounded by limit.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.Hold, error)
}

// IdempotencyRepository deduplicates commands by (scope, tenant, key).
// TryBegin inserts an IN_PROGRESS record and reports isNew=true when the key
// was unseen; a FAILED record is reclaimed in place (retry permitted).
type IdempotencyRepository interface {
	TryBegin(ctx context.Context, record *models.IdempotencyRecord) (*models.IdempotencyRecord, bool, error)
	Complete(ctx context.Context, scope, tenantID, key string, responseBody json.RawMessage) error
	Fail(ctx context.Context, scope, tenantID, key string, errorBody json.RawMessage) error
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, event *models.OutboxEvent) error
	// PullPending claims up to batchSize due PENDING rows, skipping rows
	// already claimed by a concurrent poller, ordered by enqueue time.
	PullPending(ctx context.Context, batchSize int) ([]*models.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, nextAttemptAt time.Time, lastError string) error
}

// UnitOfWork runs fn inside one atomic transaction. Repository calls made
// with the context passed to fn join that transaction.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
}

// IDGenerator supplies unique identifiers; fixed in tests for determinism.
type IDGenerator interface {
	NewID() string
}
