package memory

import (
	"context"
	"sort"

	"github.com/loyaltyhub/backend/internal/ledger"
	"github.com/loyaltyhub/backend/internal/models"
)

type LedgerRepository struct {
	store *Store
}

func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

func (r *LedgerRepository) AppendEntry(ctx context.Context, entry *models.LedgerEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := entryKey(entry.TenantID, entry.ID)
	r.store.entries[key] = cloneEntry(entry)
	r.store.entryOrder = append(r.store.entryOrder, key)
	return nil
}

func (r *LedgerRepository) FindByID(ctx context.Context, tenantID, id string) (*models.LedgerEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	entry, ok := r.store.entries[entryKey(tenantID, id)]
	if !ok {
		return nil, nil
	}
	return cloneEntry(entry), nil
}

func (r *LedgerRepository) UpdateStatus(ctx context.Context, entry *models.LedgerEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := entryKey(entry.TenantID, entry.ID)
	existing, ok := r.store.entries[key]
	if !ok || existing.Status != models.EntryStatusPosted {
		return models.ErrEntryAlreadyReversed
	}
	r.store.entries[key] = cloneEntry(entry)
	return nil
}

func (r *LedgerRepository) ListEntries(ctx context.Context, tenantID, accountID string, filter ledger.StatementFilter, page ledger.Pagination) ([]*models.LedgerEntry, int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var matches []*models.LedgerEntry
	for _, key := range r.store.entryOrder {
		entry := r.store.entries[key]
		if entry.TenantID != tenantID || entry.AccountID != accountID {
			continue
		}
		if !matchesFilter(entry, filter) {
			continue
		}
		matches = append(matches, cloneEntry(entry))
	}
	// Newest first; ties keep append order.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	total := len(matches)
	start := page.Offset
	if start > total {
		start = total
	}
	end := start + page.Limit
	if page.Limit <= 0 || end > total {
		end = total
	}
	return matches[start:end], total, nil
}

func matchesFilter(entry *models.LedgerEntry, filter ledger.StatementFilter) bool {
	if len(filter.EntryTypes) > 0 {
		found := false
		for _, t := range filter.EntryTypes {
			if entry.EntryType == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.ReferenceType != "" && entry.Reference.Type != filter.ReferenceType {
		return false
	}
	if filter.ReasonCode != "" && entry.ReasonCode != filter.ReasonCode {
		return false
	}
	if filter.From != nil && entry.CreatedAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && !entry.CreatedAt.Before(*filter.To) {
		return false
	}
	return true
}

func (r *LedgerRepository) BalanceAggregates(ctx context.Context, tenantID, accountID string) (ledger.BalanceAggregates, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var agg ledger.BalanceAggregates
	for _, entry := range r.store.entries {
		if entry.TenantID != tenantID || entry.AccountID != accountID {
			continue
		}
		switch entry.EntryType {
		case models.EntryTypeCredit:
			agg.Credits += entry.Amount
		case models.EntryTypeDebit:
			agg.Debits += entry.Amount
		case models.EntryTypeCommit:
			agg.Commits += entry.Amount
		case models.EntryTypeReversal:
			agg.Reversals += entry.Amount
		}
	}
	return agg, nil
}
