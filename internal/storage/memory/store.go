package memory

import (
	"context"
	"sync"

	"github.com/loyaltyhub/backend/internal/clock"
	"github.com/loyaltyhub/backend/internal/models"
)

// Store keeps every aggregate in process memory behind one mutex. It backs
// the engine in tests and in single-node development runs; the Postgres
// implementations are the production counterparts.
type Store struct {
	mu sync.RWMutex

	accounts     map[string]*models.Account // tenantID/accountID
	ownerIndex   map[string]string          // tenantID/ownerType/ownerID -> accountID
	entries      map[string]*models.LedgerEntry
	entryOrder   []string // append order, tenant/entryID keys
	holds        []*models.Hold
	idempotency  map[string]*models.IdempotencyRecord
	outboxEvents []*models.OutboxEvent

	clock clock.Clock
}

func NewStore(clk clock.Clock) *Store {
	return &Store{
		accounts:    make(map[string]*models.Account),
		ownerIndex:  make(map[string]string),
		entries:     make(map[string]*models.LedgerEntry),
		idempotency: make(map[string]*models.IdempotencyRecord),
		clock:       clk,
	}
}

func accountKey(tenantID, accountID string) string {
	return tenantID + "/" + accountID
}

func ownerKey(tenantID string, owner models.Owner) string {
	return tenantID + "/" + string(owner.Type) + "/" + owner.ID
}

func entryKey(tenantID, entryID string) string {
	return tenantID + "/" + entryID
}

func idempotencyKey(scope, tenantID, key string) string {
	return scope + "/" + tenantID + "/" + key
}

type snapshot struct {
	accounts     map[string]*models.Account
	ownerIndex   map[string]string
	entries      map[string]*models.LedgerEntry
	entryOrder   []string
	holds        []*models.Hold
	idempotency  map[string]*models.IdempotencyRecord
	outboxEvents []*models.OutboxEvent
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		accounts:     make(map[string]*models.Account, len(s.accounts)),
		ownerIndex:   make(map[string]string, len(s.ownerIndex)),
		entries:      make(map[string]*models.LedgerEntry, len(s.entries)),
		entryOrder:   append([]string(nil), s.entryOrder...),
		holds:        make([]*models.Hold, 0, len(s.holds)),
		idempotency:  make(map[string]*models.IdempotencyRecord, len(s.idempotency)),
		outboxEvents: make([]*models.OutboxEvent, 0, len(s.outboxEvents)),
	}
	for k, v := range s.accounts {
		snap.accounts[k] = cloneAccount(v)
	}
	for k, v := range s.ownerIndex {
		snap.ownerIndex[k] = v
	}
	for k, v := range s.entries {
		snap.entries[k] = cloneEntry(v)
	}
	for _, h := range s.holds {
		snap.holds = append(snap.holds, cloneHold(h))
	}
	for k, v := range s.idempotency {
		snap.idempotency[k] = cloneIdempotency(v)
	}
	for _, e := range s.outboxEvents {
		snap.outboxEvents = append(snap.outboxEvents, cloneOutbox(e))
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.accounts = snap.accounts
	s.ownerIndex = snap.ownerIndex
	s.entries = snap.entries
	s.entryOrder = snap.entryOrder
	s.holds = snap.holds
	s.idempotency = snap.idempotency
	s.outboxEvents = snap.outboxEvents
}

type txKey struct{}

// UnitOfWork serializes transactions over the store and rolls back to a
// pre-transaction snapshot when fn fails. CommitHook, when set, runs after fn
// succeeds and before the commit point; an error from it also rolls back,
// which tests use to simulate a crash mid-command.
type UnitOfWork struct {
	store *Store
	txMu  sync.Mutex

	CommitHook func() error
}

func NewUnitOfWork(store *Store) *UnitOfWork {
	return &UnitOfWork{store: store}
}

func (u *UnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	u.txMu.Lock()
	defer u.txMu.Unlock()

	u.store.mu.Lock()
	snap := u.store.snapshot()
	u.store.mu.Unlock()

	err := fn(context.WithValue(ctx, txKey{}, u))
	if err == nil && u.CommitHook != nil {
		err = u.CommitHook()
	}
	if err != nil {
		u.store.mu.Lock()
		u.store.restore(snap)
		u.store.mu.Unlock()
		return err
	}
	return nil
}

func cloneAccount(a *models.Account) *models.Account {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

func cloneEntry(e *models.LedgerEntry) *models.LedgerEntry {
	if e == nil {
		return nil
	}
	cp := *e
	if e.Journey != nil {
		j := *e.Journey
		cp.Journey = &j
	}
	if e.Metadata != nil {
		cp.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

func cloneHold(h *models.Hold) *models.Hold {
	if h == nil {
		return nil
	}
	cp := *h
	if h.ExpiresAt != nil {
		t := *h.ExpiresAt
		cp.ExpiresAt = &t
	}
	return &cp
}

func cloneIdempotency(r *models.IdempotencyRecord) *models.IdempotencyRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.ResponseBody = append([]byte(nil), r.ResponseBody...)
	cp.ErrorBody = append([]byte(nil), r.ErrorBody...)
	return &cp
}

func cloneOutbox(e *models.OutboxEvent) *models.OutboxEvent {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Payload = append([]byte(nil), e.Payload...)
	return &cp
}
