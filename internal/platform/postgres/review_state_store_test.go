package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/scry-review/internal/domain"
	"github.com/phrazzld/scry-review/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stateColumns = []string{
	"item_id", "interval_days", "ease_factor", "repetitions",
	"total_attempts", "correct_attempts", "incorrect_attempts", "average_performance",
	"last_reviewed_at", "next_review_at", "last_performance_grade",
}

func newMockStore(t *testing.T) (*PostgresReviewStateStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresReviewStateStore(db, nil), mock
}

func TestNewPostgresReviewStateStore_PanicsOnNilDB(t *testing.T) {
	assert.Panics(t, func() { NewPostgresReviewStateStore(nil, nil) })
}

func TestGet(t *testing.T) {
	learner := uuid.New()
	last := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	next := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)

	t.Run("Found", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT item_id").
			WithArgs(learner, "q-1").
			WillReturnRows(sqlmock.NewRows(stateColumns).
				AddRow("q-1", 1, 2.36, 1, 1, 1, 0, 1.0, last, next, 3))

		got, err := s.Get(context.Background(), learner, "q-1")

		require.NoError(t, err)
		assert.Equal(t, "q-1", got.ItemID)
		assert.Equal(t, domain.GradeEasy, got.LastPerformanceGrade)
		require.NotNil(t, got.NextReviewAt)
		assert.True(t, next.Equal(*got.NextReviewAt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Null timestamps", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT item_id").
			WithArgs(learner, "fresh").
			WillReturnRows(sqlmock.NewRows(stateColumns).
				AddRow("fresh", 1, 2.5, 0, 0, 0, 0, 0.0, nil, nil, 0))

		got, err := s.Get(context.Background(), learner, "fresh")

		require.NoError(t, err)
		assert.True(t, got.IsNew())
		assert.Nil(t, got.LastReviewedAt)
	})

	t.Run("Not found", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT item_id").
			WithArgs(learner, "missing").
			WillReturnRows(sqlmock.NewRows(stateColumns))

		_, err := s.Get(context.Background(), learner, "missing")

		assert.ErrorIs(t, err, store.ErrReviewStateNotFound)
	})

	t.Run("Query error", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT item_id").
			WithArgs(learner, "q-1").
			WillReturnError(errors.New("connection reset"))

		_, err := s.Get(context.Background(), learner, "q-1")

		var storeErr *store.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "get", storeErr.Operation)
	})
}

func TestLoadAll(t *testing.T) {
	learner := uuid.New()

	t.Run("Valid rows", func(t *testing.T) {
		s, mock := newMockStore(t)
		last := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
		next := time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery("SELECT item_id .* ORDER BY item_id").
			WithArgs(learner).
			WillReturnRows(sqlmock.NewRows(stateColumns).
				AddRow("a", 1, 2.5, 0, 0, 0, 0, 0.0, nil, nil, 0).
				AddRow("b", 6, 2.5, 2, 2, 2, 0, 1.0, last, next, 2))

		got, err := s.LoadAll(context.Background(), learner)

		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, got.ItemIDs())
	})

	t.Run("Invalid row fails closed", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT item_id").
			WithArgs(learner).
			WillReturnRows(sqlmock.NewRows(stateColumns).
				AddRow("a", 1, 9.0, 0, 0, 0, 0, 0.0, nil, nil, 0))

		got, err := s.LoadAll(context.Background(), learner)

		assert.ErrorIs(t, err, store.ErrCorruptState)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("Failed row with stale schedule fails closed", func(t *testing.T) {
		s, mock := newMockStore(t)
		last := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
		mock.ExpectQuery("SELECT item_id").
			WithArgs(learner).
			WillReturnRows(sqlmock.NewRows(stateColumns).
				AddRow("a", 10, 2.5, 4, 5, 4, 1, 0.8, last, last.AddDate(0, 0, 83), 0))

		_, err := s.LoadAll(context.Background(), learner)

		assert.ErrorIs(t, err, store.ErrCorruptState)
	})
}

func TestUpdate(t *testing.T) {
	learner := uuid.New()
	lockKey := learner.String() + "/q-1"

	t.Run("Creates missing state", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").
			WithArgs(lockKey).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT item_id .* FOR UPDATE").
			WithArgs(learner, "q-1").
			WillReturnRows(sqlmock.NewRows(stateColumns))
		mock.ExpectExec("INSERT INTO review_states").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		var seen *domain.ReviewState
		got, err := s.Update(context.Background(), learner, "q-1",
			func(current *domain.ReviewState) (*domain.ReviewState, error) {
				seen = current
				return domain.NewItemState("q-1"), nil
			})

		require.NoError(t, err)
		assert.Nil(t, seen)
		assert.Equal(t, "q-1", got.ItemID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Function error rolls back", func(t *testing.T) {
		s, mock := newMockStore(t)
		boom := errors.New("boom")
		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT item_id").
			WillReturnRows(sqlmock.NewRows(stateColumns).
				AddRow("q-1", 1, 2.5, 0, 0, 0, 0, 0.0, nil, nil, 0))
		mock.ExpectRollback()

		_, err := s.Update(context.Background(), learner, "q-1",
			func(*domain.ReviewState) (*domain.ReviewState, error) { return nil, boom })

		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Invalid result rolls back", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT item_id").
			WillReturnRows(sqlmock.NewRows(stateColumns))
		mock.ExpectRollback()

		_, err := s.Update(context.Background(), learner, "q-1",
			func(*domain.ReviewState) (*domain.ReviewState, error) {
				bad := domain.NewItemState("q-1")
				bad.EaseFactor = 0.5
				return bad, nil
			})

		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Check constraint rejection is a validation error", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT item_id").
			WillReturnRows(sqlmock.NewRows(stateColumns))
		mock.ExpectExec("INSERT INTO review_states").
			WillReturnError(&pgconn.PgError{Code: checkViolationCode, ConstraintName: "review_states_ease_factor_check"})
		mock.ExpectRollback()

		_, err := s.Update(context.Background(), learner, "q-1",
			func(*domain.ReviewState) (*domain.ReviewState, error) { return domain.NewItemState("q-1"), nil })

		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		var storeErr *store.StoreError
		assert.False(t, errors.As(err, &storeErr), "check violation must not surface as a store failure")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Write failure is a store error", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT item_id").
			WillReturnRows(sqlmock.NewRows(stateColumns))
		mock.ExpectExec("INSERT INTO review_states").
			WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		_, err := s.Update(context.Background(), learner, "q-1",
			func(*domain.ReviewState) (*domain.ReviewState, error) { return domain.NewItemState("q-1"), nil })

		var storeErr *store.StoreError
		assert.True(t, errors.As(err, &storeErr))
		assert.NotErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Lock failure", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec("SELECT pg_advisory_xact_lock").
			WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		_, err := s.Update(context.Background(), learner, "q-1",
			func(*domain.ReviewState) (*domain.ReviewState, error) { return domain.NewItemState("q-1"), nil })

		assert.ErrorIs(t, err, sql.ErrConnDone)
	})
}

func TestDelete(t *testing.T) {
	learner := uuid.New()

	t.Run("Deleted", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec("DELETE FROM review_states").
			WithArgs(learner, "q-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, s.Delete(context.Background(), learner, "q-1"))
	})

	t.Run("Not found", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec("DELETE FROM review_states").
			WithArgs(learner, "q-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, s.Delete(context.Background(), learner, "q-1"), store.ErrReviewStateNotFound)
	})
}
