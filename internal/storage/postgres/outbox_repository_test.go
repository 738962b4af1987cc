package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loyaltyhub/backend/internal/models"
)

func TestOutboxRepository_PullPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOutboxRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM points_outbox WHERE status = 'PENDING' AND scheduled_at <= NOW\\(\\) ORDER BY created_at ASC LIMIT \\$1 FOR UPDATE SKIP LOCKED").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "aggregate_type", "aggregate_id", "event_type",
			"payload", "status", "retry_count", "scheduled_at", "last_error", "created_at",
		}).
			AddRow("ev1", "acme", "ACCOUNT", "a1", "points.credited",
				[]byte(`{"amount":100}`), "PENDING", 0, repoTime, nil, repoTime).
			AddRow("ev2", "acme", "HOLD", "h1", "points.hold_expired",
				[]byte(`{}`), "PENDING", 2, repoTime, "broker down", repoTime))

	events, err := repo.PullPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "ev1", events[0].ID)
	assert.JSONEq(t, `{"amount":100}`, string(events[0].Payload))
	assert.Equal(t, 2, events[1].RetryCount)
	assert.Equal(t, "broker down", events[1].LastError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_MarkPublished(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOutboxRepository(db)

	mock.ExpectExec("UPDATE points_outbox SET status = 'PUBLISHED', last_error = NULL WHERE id = \\$1").
		WithArgs("ev1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.MarkPublished(context.Background(), "ev1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_MarkFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOutboxRepository(db)
	next := repoTime.Add(30 * time.Second)

	mock.ExpectExec("UPDATE points_outbox SET retry_count = retry_count \\+ 1, scheduled_at = \\$1, last_error = \\$2 WHERE id = \\$3").
		WithArgs(next, "broker down", "ev1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.MarkFailed(context.Background(), "ev1", next, "broker down"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_Enqueue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewOutboxRepository(db)
	event := &models.OutboxEvent{
		ID:            "ev1",
		TenantID:      "acme",
		AggregateType: "ACCOUNT",
		AggregateID:   "a1",
		EventType:     "points.credited",
		Payload:       []byte(`{"amount":100}`),
		Status:        models.OutboxStatusPending,
		ScheduledAt:   repoTime,
		CreatedAt:     repoTime,
	}

	mock.ExpectExec("INSERT INTO points_outbox").
		WithArgs("ev1", "acme", "ACCOUNT", "a1", "points.credited",
			[]byte(`{"amount":100}`), "PENDING", 0, repoTime, repoTime).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Enqueue(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}
