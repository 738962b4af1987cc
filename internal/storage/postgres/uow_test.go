package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_Execute(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectCommit()

		uow := NewUnitOfWork(db)
		err = uow.Execute(context.Background(), func(ctx context.Context) error { return nil })
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		uow := NewUnitOfWork(db)
		boom := errors.New("boom")
		err = uow.Execute(context.Background(), func(ctx context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("repository calls join the ambient transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE points_outbox SET status = 'PUBLISHED'").
			WithArgs("ev1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		uow := NewUnitOfWork(db)
		repo := NewOutboxRepository(db)
		err = uow.Execute(context.Background(), func(ctx context.Context) error {
			return repo.MarkPublished(ctx, "ev1")
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested execute reuses the transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectCommit()

		uow := NewUnitOfWork(db)
		err = uow.Execute(context.Background(), func(outer context.Context) error {
			return uow.Execute(outer, func(inner context.Context) error { return nil })
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
