package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loyaltyhub/backend/internal/models"
)

var idempotencyRow = []string{"scope", "tenant_id", "idempotency_key", "request_hash", "status", "response_body", "error_body", "created_at", "updated_at"}

func idempotencyRecord(status models.IdempotencyStatus) *models.IdempotencyRecord {
	return &models.IdempotencyRecord{
		Scope:       "points.credit",
		TenantID:    "acme",
		Key:         "k1",
		RequestHash: "hash-a",
		Status:      status,
		CreatedAt:   repoTime,
		UpdatedAt:   repoTime,
	}
}

func TestIdempotencyRepository_TryBegin(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewIdempotencyRepository(db)
	ctx := context.Background()

	t.Run("first sight inserts in progress", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO points_idempotency (.+) ON CONFLICT \\(scope, tenant_id, idempotency_key\\) DO NOTHING").
			WithArgs("points.credit", "acme", "k1", "hash-a", "IN_PROGRESS", repoTime, repoTime).
			WillReturnResult(sqlmock.NewResult(0, 1))

		record, isNew, err := repo.TryBegin(ctx, idempotencyRecord(models.IdempotencyStatusInProgress))
		require.NoError(t, err)
		assert.True(t, isNew)
		assert.Equal(t, models.IdempotencyStatusInProgress, record.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("seen key returns the stored record", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO points_idempotency").
			WithArgs("points.credit", "acme", "k1", "hash-a", "IN_PROGRESS", repoTime, repoTime).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT (.+) FROM points_idempotency WHERE scope = \\$1 AND tenant_id = \\$2 AND idempotency_key = \\$3 FOR UPDATE").
			WithArgs("points.credit", "acme", "k1").
			WillReturnRows(sqlmock.NewRows(idempotencyRow).
				AddRow("points.credit", "acme", "k1", "hash-a", "COMPLETED", []byte(`{"transaction_id":"tx1"}`), nil, repoTime, repoTime))

		record, isNew, err := repo.TryBegin(ctx, idempotencyRecord(models.IdempotencyStatusInProgress))
		require.NoError(t, err)
		assert.False(t, isNew)
		assert.Equal(t, models.IdempotencyStatusCompleted, record.Status)
		assert.JSONEq(t, `{"transaction_id":"tx1"}`, string(record.ResponseBody))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed record is reclaimed for a retry", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO points_idempotency").
			WithArgs("points.credit", "acme", "k1", "hash-a", "IN_PROGRESS", repoTime, repoTime).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT (.+) FROM points_idempotency WHERE scope = \\$1 AND tenant_id = \\$2 AND idempotency_key = \\$3 FOR UPDATE").
			WithArgs("points.credit", "acme", "k1").
			WillReturnRows(sqlmock.NewRows(idempotencyRow).
				AddRow("points.credit", "acme", "k1", "hash-old", "FAILED", nil, []byte(`{"error":"boom"}`), repoTime, repoTime))
		mock.ExpectExec("UPDATE points_idempotency SET status = \\$1, request_hash = \\$2, error_body = NULL, updated_at = \\$3").
			WithArgs("IN_PROGRESS", "hash-a", repoTime, "points.credit", "acme", "k1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		record, isNew, err := repo.TryBegin(ctx, idempotencyRecord(models.IdempotencyStatusInProgress))
		require.NoError(t, err)
		assert.True(t, isNew)
		assert.Equal(t, "hash-a", record.RequestHash)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestIdempotencyRepository_Complete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewIdempotencyRepository(db)

	mock.ExpectExec("UPDATE points_idempotency SET status = \\$1, response_body = \\$2, updated_at = \\$3").
		WithArgs("COMPLETED", []byte(`{"ok":true}`), sqlmock.AnyArg(), "points.credit", "acme", "k1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Complete(context.Background(), "points.credit", "acme", "k1", []byte(`{"ok":true}`))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepository_Fail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewIdempotencyRepository(db)

	mock.ExpectExec("INSERT INTO points_idempotency (.+) ON CONFLICT \\(scope, tenant_id, idempotency_key\\) DO UPDATE SET status = \\$4").
		WithArgs("points.credit", "acme", "k1", "FAILED", []byte(`{"error":"boom"}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Fail(context.Background(), "points.credit", "acme", "k1", []byte(`{"error":"boom"}`))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
