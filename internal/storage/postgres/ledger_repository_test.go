package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loyaltyhub/backend/internal/ledger"
	"github.com/loyaltyhub/backend/internal/models"
)

var entryRow = []string{
	"id", "tenant_id", "account_id", "entry_type", "amount", "reason_code",
	"reference_type", "reference_id", "idempotency_key",
	"journey_code", "journey_trigger", "approval_policy_code", "approval_request_id", "source_event_id",
	"metadata", "status", "reversal_of_id", "reversed_by_id", "created_at",
}

func TestLedgerRepository_AppendEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewLedgerRepository(db)
	entry, err := models.NewLedgerEntry("e1", "acme", "a1", models.EntryTypeCredit, 100, "SIGNUP_BONUS",
		models.Reference{Type: "CAMPAIGN", ID: "c1"}, repoTime)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO points_ledger_entries").
		WithArgs("e1", "acme", "a1", "CREDIT", int64(100), "SIGNUP_BONUS",
			"CAMPAIGN", "c1", "",
			"", "", "", "", "",
			// database/sql passes a nil []byte arg to the driver as
			// driver.Value([]byte(nil)), not untyped nil.
			[]byte(nil), "POSTED", "", "", repoTime).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.AppendEntry(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewLedgerRepository(db)
	entry := &models.LedgerEntry{
		ID: "e1", TenantID: "acme", Status: models.EntryStatusReversed, ReversedByID: "e2",
	}

	t.Run("posted row transitions", func(t *testing.T) {
		mock.ExpectExec("UPDATE points_ledger_entries SET status = \\$1, reversed_by_id = \\$2 WHERE tenant_id = \\$3 AND id = \\$4 AND status = 'POSTED'").
			WithArgs("REVERSED", "e2", "acme", "e1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.UpdateStatus(context.Background(), entry))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already reversed row loses the race", func(t *testing.T) {
		mock.ExpectExec("UPDATE points_ledger_entries SET status = \\$1, reversed_by_id = \\$2 WHERE tenant_id = \\$3 AND id = \\$4 AND status = 'POSTED'").
			WithArgs("REVERSED", "e2", "acme", "e1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.UpdateStatus(context.Background(), entry), models.ErrEntryAlreadyReversed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_BalanceAggregates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewLedgerRepository(db)

	mock.ExpectQuery("SELECT entry_type, COALESCE\\(SUM\\(amount\\), 0\\) FROM points_ledger_entries WHERE tenant_id = \\$1 AND account_id = \\$2 GROUP BY entry_type").
		WithArgs("acme", "a1").
		WillReturnRows(sqlmock.NewRows([]string{"entry_type", "sum"}).
			AddRow("CREDIT", int64(500)).
			AddRow("DEBIT", int64(120)).
			AddRow("COMMIT", int64(80)).
			AddRow("HOLD", int64(999)).
			AddRow("RELEASE", int64(999)))

	agg, err := repo.BalanceAggregates(context.Background(), "acme", "a1")
	require.NoError(t, err)
	assert.Equal(t, ledger.BalanceAggregates{Credits: 500, Debits: 120, Commits: 80}, agg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_ListEntries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewLedgerRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM points_ledger_entries WHERE tenant_id = \\$1 AND account_id = \\$2").
		WithArgs("acme", "a1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM points_ledger_entries WHERE tenant_id = \\$1 AND account_id = \\$2 ORDER BY created_at DESC LIMIT \\$3 OFFSET \\$4").
		WithArgs("acme", "a1", 50, 0).
		WillReturnRows(sqlmock.NewRows(entryRow).
			AddRow("e1", "acme", "a1", "CREDIT", int64(100), "SIGNUP_BONUS",
				"", "", "", "", "", "", "", "", nil, "POSTED", "", "", repoTime))

	entries, total, err := repo.ListEntries(context.Background(), "acme", "a1", ledger.StatementFilter{}, ledger.Pagination{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, models.EntryTypeCredit, entries[0].EntryType)
	assert.Nil(t, entries[0].Journey)
	assert.NoError(t, mock.ExpectationsWereMet())
}
