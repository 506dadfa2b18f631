package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/scry-review/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "no rows", err: sql.ErrNoRows, expected: store.ErrNotFound},
		{name: "unique", err: &pgconn.PgError{Code: uniqueViolationCode}, expected: store.ErrDuplicate},
		{name: "foreign key", err: &pgconn.PgError{Code: foreignKeyViolationCode}, expected: store.ErrInvalidEntity},
		{name: "check", err: &pgconn.PgError{Code: checkViolationCode, ConstraintName: "review_states_attempts_sum"}, expected: store.ErrInvalidEntity},
		{name: "not null", err: &pgconn.PgError{Code: notNullViolationCode, ColumnName: "item_id"}, expected: store.ErrInvalidEntity},
		{name: "wrapped check", err: fmt.Errorf("exec: %w", &pgconn.PgError{Code: checkViolationCode}), expected: store.ErrInvalidEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapError(tt.err)
			assert.ErrorIs(t, mapped, tt.expected)
		})
	}

	assert.NoError(t, MapError(nil))

	other := errors.New("connection reset")
	assert.Equal(t, other, MapError(other), "unmapped errors pass through")
}

func TestIsCheckConstraintViolation(t *testing.T) {
	assert.True(t, IsCheckConstraintViolation(&pgconn.PgError{Code: checkViolationCode}))
	assert.False(t, IsCheckConstraintViolation(&pgconn.PgError{Code: uniqueViolationCode}))
	assert.False(t, IsCheckConstraintViolation(errors.New("plain")))
}

func TestCheckRowsAffected(t *testing.T) {
	assert.NoError(t, CheckRowsAffected(sqlmock.NewResult(0, 1), store.ErrReviewStateNotFound))
	assert.ErrorIs(t, CheckRowsAffected(sqlmock.NewResult(0, 0), store.ErrReviewStateNotFound),
		store.ErrReviewStateNotFound)
	assert.Error(t, CheckRowsAffected(nil, store.ErrReviewStateNotFound))
	assert.Error(t, CheckRowsAffected(sqlmock.NewErrorResult(errors.New("driver")), store.ErrReviewStateNotFound))
}
