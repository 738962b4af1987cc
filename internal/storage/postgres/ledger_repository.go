package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/loyaltyhub/backend/internal/ledger"
	"github.com/loyaltyhub/backend/internal/models"
)

// LedgerRepository persists the append-only entry log. Rows are never
// deleted; the only mutable column is the entry status pair written by
// UpdateStatus.
type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const entryColumns = `id, tenant_id, account_id, entry_type, amount, reason_code,
	reference_type, reference_id, idempotency_key,
	journey_code, journey_trigger, approval_policy_code, approval_request_id, source_event_id,
	metadata, status, reversal_of_id, reversed_by_id, created_at`

func (r *LedgerRepository) AppendEntry(ctx context.Context, entry *models.LedgerEntry) error {
	var metadata []byte
	if len(entry.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal entry metadata: %w", err)
		}
	}

	journeyCode, journeyTrigger, approvalPolicy, approvalRequest, sourceEvent := "", "", "", "", ""
	if entry.Journey != nil {
		journeyCode = entry.Journey.JourneyCode
		journeyTrigger = entry.Journey.JourneyTrigger
		approvalPolicy = entry.Journey.ApprovalPolicyCode
		approvalRequest = entry.Journey.ApprovalRequestID
		sourceEvent = entry.Journey.SourceEventID
	}

	_, err := q(ctx, r.db).ExecContext(ctx, `
		INSERT INTO points_ledger_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		entry.ID, entry.TenantID, entry.AccountID, entry.EntryType, entry.Amount, entry.ReasonCode,
		entry.Reference.Type, entry.Reference.ID, entry.IdempotencyKey,
		journeyCode, journeyTrigger, approvalPolicy, approvalRequest, sourceEvent,
		metadata, entry.Status, entry.ReversalOfID, entry.ReversedByID, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

func (r *LedgerRepository) FindByID(ctx context.Context, tenantID, id string) (*models.LedgerEntry, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM points_ledger_entries
		WHERE tenant_id = $1 AND id = $2`,
		tenantID, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// UpdateStatus persists the POSTED -> REVERSED transition. It guards the
// transition in SQL so a concurrent reversal cannot flip the row twice.
func (r *LedgerRepository) UpdateStatus(ctx context.Context, entry *models.LedgerEntry) error {
	result, err := q(ctx, r.db).ExecContext(ctx, `
		UPDATE points_ledger_entries
		SET status = $1, reversed_by_id = $2
		WHERE tenant_id = $3 AND id = $4 AND status = 'POSTED'`,
		entry.Status, entry.ReversedByID, entry.TenantID, entry.ID)
	if err != nil {
		return fmt.Errorf("update entry status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrEntryAlreadyReversed
	}
	return nil
}

func (r *LedgerRepository) ListEntries(ctx context.Context, tenantID, accountID string, filter ledger.StatementFilter, page ledger.Pagination) ([]*models.LedgerEntry, int, error) {
	where := []string{"tenant_id = $1", "account_id = $2"}
	args := []any{tenantID, accountID}

	if len(filter.EntryTypes) > 0 {
		types := make([]string, len(filter.EntryTypes))
		for i, t := range filter.EntryTypes {
			types[i] = string(t)
		}
		args = append(args, pq.Array(types))
		where = append(where, fmt.Sprintf("entry_type = ANY($%d)", len(args)))
	}
	if filter.ReferenceType != "" {
		args = append(args, filter.ReferenceType)
		where = append(where, fmt.Sprintf("reference_type = $%d", len(args)))
	}
	if filter.ReasonCode != "" {
		args = append(args, filter.ReasonCode)
		where = append(where, fmt.Sprintf("reason_code = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	err := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM points_ledger_entries WHERE `+whereClause, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	args = append(args, page.Limit, page.Offset)
	rows, err := q(ctx, r.db).QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM points_ledger_entries
		WHERE `+whereClause+`
		ORDER BY created_at DESC
		LIMIT $`+fmt.Sprint(len(args)-1)+` OFFSET $`+fmt.Sprint(len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// BalanceAggregates sums entry amounts grouped by type in one query. Entry
// types outside the aggregation contract (HOLD, RELEASE) are audit facts and
// are folded away here.
func (r *LedgerRepository) BalanceAggregates(ctx context.Context, tenantID, accountID string) (ledger.BalanceAggregates, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, `
		SELECT entry_type, COALESCE(SUM(amount), 0)
		FROM points_ledger_entries
		WHERE tenant_id = $1 AND account_id = $2
		GROUP BY entry_type`,
		tenantID, accountID)
	if err != nil {
		return ledger.BalanceAggregates{}, fmt.Errorf("balance aggregates: %w", err)
	}
	defer rows.Close()

	var agg ledger.BalanceAggregates
	for rows.Next() {
		var entryType string
		var sum int64
		if err := rows.Scan(&entryType, &sum); err != nil {
			return ledger.BalanceAggregates{}, err
		}
		switch models.EntryType(entryType) {
		case models.EntryTypeCredit:
			agg.Credits = sum
		case models.EntryTypeDebit:
			agg.Debits = sum
		case models.EntryTypeCommit:
			agg.Commits = sum
		case models.EntryTypeReversal:
			agg.Reversals = sum
		}
	}
	return agg, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	var metadata []byte
	var journeyCode, journeyTrigger, approvalPolicy, approvalRequest, sourceEvent string

	err := row.Scan(
		&entry.ID, &entry.TenantID, &entry.AccountID, &entry.EntryType, &entry.Amount, &entry.ReasonCode,
		&entry.Reference.Type, &entry.Reference.ID, &entry.IdempotencyKey,
		&journeyCode, &journeyTrigger, &approvalPolicy, &approvalRequest, &sourceEvent,
		&metadata, &entry.Status, &entry.ReversalOfID, &entry.ReversedByID, &entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if journeyCode != "" {
		entry.Journey = &models.JourneyReference{
			JourneyCode:        journeyCode,
			JourneyTrigger:     journeyTrigger,
			ApprovalPolicyCode: approvalPolicy,
			ApprovalRequestID:  approvalRequest,
			SourceEventID:      sourceEvent,
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal entry metadata: %w", err)
		}
	}
	return &entry, nil
}
