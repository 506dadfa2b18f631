package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-review/internal/domain"
	"github.com/phrazzld/scry-review/internal/platform/logger"
	"github.com/phrazzld/scry-review/internal/store"
)

const reviewStateColumns = `item_id, interval_days, ease_factor, repetitions,
	total_attempts, correct_attempts, incorrect_attempts, average_performance,
	last_reviewed_at, next_review_at, last_performance_grade`

// PostgresReviewStateStore implements the store.ReviewStateStore interface
// using a PostgreSQL database as the storage backend.
type PostgresReviewStateStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresReviewStateStore creates a new PostgreSQL implementation of the ReviewStateStore interface.
// It accepts a database connection that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresReviewStateStore(db *sql.DB, logger *slog.Logger) *PostgresReviewStateStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReviewStateStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_state_store")),
	}
}

// Ensure PostgresReviewStateStore implements store.ReviewStateStore interface
var _ store.ReviewStateStore = (*PostgresReviewStateStore)(nil)

// Get implements store.ReviewStateStore.Get
func (s *PostgresReviewStateStore) Get(
	ctx context.Context,
	learnerID uuid.UUID,
	itemID string,
) (*domain.ReviewState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	state, err := getReviewState(ctx, s.db, learnerID, itemID, false)
	if err != nil {
		if errors.Is(err, store.ErrReviewStateNotFound) {
			return nil, err
		}
		log.Error("failed to get review state",
			slog.String("learner_id", learnerID.String()),
			slog.String("item_id", itemID),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("review_state", "get", "query failed", MapError(err))
	}
	return state, nil
}

// LoadAll implements store.ReviewStateStore.LoadAll
// Rows that fail domain validation make the whole load fail closed with store.ErrCorruptState.
func (s *PostgresReviewStateStore) LoadAll(ctx context.Context, learnerID uuid.UUID) (domain.Collection, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reviewStateColumns+` FROM review_states WHERE learner_id = $1 ORDER BY item_id`,
		learnerID)
	if err != nil {
		log.Error("failed to query review states",
			slog.String("learner_id", learnerID.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("review_state", "load", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	states := domain.Collection{}
	for rows.Next() {
		state, err := scanReviewState(rows)
		if err != nil {
			return nil, store.NewStoreError("review_state", "load", "scan failed", err)
		}
		states[state.ItemID] = state
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("review_state", "load", "row iteration failed", MapError(err))
	}

	if err := states.Validate(); err != nil {
		log.Warn("stored review states are invalid",
			slog.String("learner_id", learnerID.String()),
			slog.String("error", err.Error()))
		return domain.Collection{}, store.NewStoreError("review_state", "load", "invalid stored state",
			errors.Join(store.ErrCorruptState, err))
	}
	return states, nil
}

// Update implements store.ReviewStateStore.Update
func (s *PostgresReviewStateStore) Update(
	ctx context.Context,
	learnerID uuid.UUID,
	itemID string,
	fn store.UpdateFn,
) (*domain.ReviewState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var result *domain.ReviewState
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		// Serializes writers of this pair even when no row exists yet
		if _, err := tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
			learnerID.String()+"/"+itemID); err != nil {
			return store.NewStoreError("review_state", "update", "failed to lock item", MapError(err))
		}

		current, err := getReviewState(ctx, tx, learnerID, itemID, true)
		if err != nil && !errors.Is(err, store.ErrReviewStateNotFound) {
			return store.NewStoreError("review_state", "update", "failed to read current state", MapError(err))
		}

		next, err := store.ApplyUpdate(itemID, current, fn)
		if err != nil {
			return err
		}

		if err := upsertReviewState(ctx, tx, learnerID, next); err != nil {
			if IsCheckConstraintViolation(err) {
				return domain.NewValidationError("reviewState", MapError(err))
			}
			return store.NewStoreError("review_state", "update", "failed to write state", MapError(err))
		}
		result = next
		return nil
	})
	if err != nil {
		log.Debug("review state update aborted",
			slog.String("learner_id", learnerID.String()),
			slog.String("item_id", itemID),
			slog.String("error", err.Error()))
		return nil, err
	}

	return result, nil
}

// Delete implements store.ReviewStateStore.Delete
func (s *PostgresReviewStateStore) Delete(ctx context.Context, learnerID uuid.UUID, itemID string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM review_states WHERE learner_id = $1 AND item_id = $2`,
		learnerID, itemID)
	if err != nil {
		log.Error("failed to delete review state",
			slog.String("learner_id", learnerID.String()),
			slog.String("item_id", itemID),
			slog.String("error", err.Error()))
		return store.NewStoreError("review_state", "delete", "delete failed", MapError(err))
	}

	return CheckRowsAffected(result, store.ErrReviewStateNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func getReviewState(
	ctx context.Context,
	db store.DBTX,
	learnerID uuid.UUID,
	itemID string,
	forUpdate bool,
) (*domain.ReviewState, error) {
	query := `SELECT ` + reviewStateColumns + ` FROM review_states WHERE learner_id = $1 AND item_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	state, err := scanReviewState(db.QueryRowContext(ctx, query, learnerID, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrReviewStateNotFound
	}
	return state, err
}

func scanReviewState(row rowScanner) (*domain.ReviewState, error) {
	var (
		state        domain.ReviewState
		lastReviewed sql.NullTime
		nextReview   sql.NullTime
		grade        int
	)

	if err := row.Scan(
		&state.ItemID,
		&state.Interval,
		&state.EaseFactor,
		&state.Repetitions,
		&state.TotalAttempts,
		&state.CorrectAttempts,
		&state.IncorrectAttempts,
		&state.AveragePerformance,
		&lastReviewed,
		&nextReview,
		&grade,
	); err != nil {
		return nil, err
	}

	state.LastPerformanceGrade = domain.PerformanceGrade(grade)
	if lastReviewed.Valid {
		t := lastReviewed.Time.UTC()
		state.LastReviewedAt = &t
	}
	if nextReview.Valid {
		t := nextReview.Time.UTC()
		state.NextReviewAt = &t
	}
	return &state, nil
}

func upsertReviewState(ctx context.Context, db store.DBTX, learnerID uuid.UUID, s *domain.ReviewState) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO review_states (
			learner_id, `+reviewStateColumns+`
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (learner_id, item_id) DO UPDATE SET
			interval_days = EXCLUDED.interval_days,
			ease_factor = EXCLUDED.ease_factor,
			repetitions = EXCLUDED.repetitions,
			total_attempts = EXCLUDED.total_attempts,
			correct_attempts = EXCLUDED.correct_attempts,
			incorrect_attempts = EXCLUDED.incorrect_attempts,
			average_performance = EXCLUDED.average_performance,
			last_reviewed_at = EXCLUDED.last_reviewed_at,
			next_review_at = EXCLUDED.next_review_at,
			last_performance_grade = EXCLUDED.last_performance_grade,
			updated_at = NOW()`,
		learnerID,
		s.ItemID,
		s.Interval,
		s.EaseFactor,
		s.Repetitions,
		s.TotalAttempts,
		s.CorrectAttempts,
		s.IncorrectAttempts,
		s.AveragePerformance,
		nullTime(s.LastReviewedAt),
		nullTime(s.NextReviewAt),
		int(s.LastPerformanceGrade),
	)
	return err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
