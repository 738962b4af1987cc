package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loyaltyhub/backend/internal/clock"
	"github.com/loyaltyhub/backend/internal/ledger"
	"github.com/loyaltyhub/backend/internal/models"
)

func appendEntryAt(t *testing.T, repo *LedgerRepository, id string, at time.Time) {
	t.Helper()
	entry, err := models.NewLedgerEntry(id, "acme", "acc-1", models.EntryTypeCredit, 10, "SIGNUP_BONUS",
		models.Reference{Type: "CAMPAIGN", ID: "c1"}, at)
	require.NoError(t, err)
	require.NoError(t, repo.AppendEntry(context.Background(), entry))
}

func TestLedgerRepository_ListEntries_TimeWindow(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := NewLedgerRepository(NewStore(clock.NewFixed(base)))

	appendEntryAt(t, repo, "e1", base)
	appendEntryAt(t, repo, "e2", base.Add(time.Hour))
	appendEntryAt(t, repo, "e3", base.Add(2*time.Hour))

	t.Run("From is inclusive", func(t *testing.T) {
		from := base.Add(time.Hour)
		entries, total, err := repo.ListEntries(ctx, "acme", "acc-1",
			ledger.StatementFilter{From: &from}, ledger.Pagination{})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		for _, e := range entries {
			assert.NotEqual(t, "e1", e.ID)
		}
	})

	t.Run("To is exclusive", func(t *testing.T) {
		to := base.Add(time.Hour)
		entries, total, err := repo.ListEntries(ctx, "acme", "acc-1",
			ledger.StatementFilter{To: &to}, ledger.Pagination{})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		assert.Equal(t, "e1", entries[0].ID)
	})

	t.Run("half-open window", func(t *testing.T) {
		from, to := base.Add(time.Hour), base.Add(2*time.Hour)
		entries, total, err := repo.ListEntries(ctx, "acme", "acc-1",
			ledger.StatementFilter{From: &from, To: &to}, ledger.Pagination{})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		assert.Equal(t, "e2", entries[0].ID)
	})
}
