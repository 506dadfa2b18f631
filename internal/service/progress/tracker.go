package progress

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-review/internal/domain"
	"github.com/phrazzld/scry-review/internal/domain/srs"
	"github.com/phrazzld/scry-review/internal/platform/clock"
	"github.com/phrazzld/scry-review/internal/platform/logger"
	"github.com/phrazzld/scry-review/internal/store"
)

// Verify interface compliance at compile time
var _ Service = (*Tracker)(nil)

// Tracker implements Service on top of a store.ReviewStateStore.
type Tracker struct {
	engine srs.Service
	states store.ReviewStateStore
	clock  clock.Clock
	logger *slog.Logger
}

// NewTracker creates a Tracker. A nil clock uses the system clock and a nil
// logger uses slog.Default().
func NewTracker(
	engine srs.Service,
	states store.ReviewStateStore,
	clk clock.Clock,
	logger *slog.Logger,
) *Tracker {
	if engine == nil {
		panic("engine cannot be nil")
	}
	if states == nil {
		panic("states cannot be nil")
	}
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Tracker{
		engine: engine,
		states: states,
		clock:  clk,
		logger: logger.With(slog.String("component", "progress_tracker")),
	}
}

func validateItemID(itemID string) error {
	if strings.TrimSpace(itemID) == "" {
		return domain.NewValidationError("itemId", domain.ErrEmptyItemID)
	}
	return nil
}

// RecordGrade implements Service.RecordGrade.
func (t *Tracker) RecordGrade(
	ctx context.Context,
	learnerID uuid.UUID,
	itemID string,
	grade domain.PerformanceGrade,
	difficulty domain.Difficulty,
) (*domain.ReviewState, error) {
	log := logger.FromContextOrDefault(ctx, t.logger).With(
		slog.String("learner_id", learnerID.String()),
		slog.String("item_id", itemID))

	if err := grade.Validate(); err != nil {
		log.Warn("rejected invalid grade", slog.Int("grade", int(grade)))
		return nil, err
	}
	if err := validateItemID(itemID); err != nil {
		return nil, err
	}
	difficulty, err := domain.ParseDifficulty(string(difficulty))
	if err != nil {
		return nil, err
	}

	now := t.clock.Now()
	defaultEase := t.engine.Params().DefaultEaseFactor

	state, err := t.states.Update(ctx, learnerID, itemID, func(current *domain.ReviewState) (*domain.ReviewState, error) {
		if current == nil {
			current = &domain.ReviewState{ItemID: itemID, Interval: 1, EaseFactor: defaultEase}
		}

		current.TotalAttempts++
		if grade.IsPassing() {
			current.CorrectAttempts++
		} else {
			current.IncorrectAttempts++
		}
		current.AveragePerformance = domain.AveragePerformance(current.CorrectAttempts, current.TotalAttempts)

		return t.engine.ComputeNextState(grade, current, now)
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			log.Error("computed review state failed validation", slog.String("error", err.Error()))
		} else {
			storeErrorsTotal.WithLabelValues("record_grade").Inc()
			log.Error("failed to record grade", slog.String("error", err.Error()))
		}
		return nil, NewServiceError("record_grade", "failed to store review state", err)
	}

	reviewsTotal.WithLabelValues(grade.String(), difficulty.Label()).Inc()
	log.Info("recorded grade",
		slog.String("grade", grade.String()),
		slog.String("difficulty", difficulty.Label()),
		slog.Int("interval", state.Interval),
		slog.Float64("ease_factor", state.EaseFactor),
		slog.Int("repetitions", state.Repetitions))

	return state, nil
}

// Reset implements Service.Reset.
func (t *Tracker) Reset(ctx context.Context, learnerID uuid.UUID, itemID string) error {
	log := logger.FromContextOrDefault(ctx, t.logger)

	if err := validateItemID(itemID); err != nil {
		return err
	}

	if err := t.states.Delete(ctx, learnerID, itemID); err != nil {
		if store.IsNotFoundError(err) {
			return ErrItemNotFound
		}
		storeErrorsTotal.WithLabelValues("reset").Inc()
		log.Error("failed to reset item",
			slog.String("learner_id", learnerID.String()),
			slog.String("item_id", itemID),
			slog.String("error", err.Error()))
		return NewServiceError("reset", "failed to delete review state", err)
	}

	log.Info("reset item",
		slog.String("learner_id", learnerID.String()),
		slog.String("item_id", itemID))
	return nil
}

// load returns the learner's collection merged with catalog. Corrupt stored
// data is replaced by an empty collection and reported as data loss.
func (t *Tracker) load(
	ctx context.Context,
	operation string,
	learnerID uuid.UUID,
	catalog []string,
) (domain.Collection, error) {
	log := logger.FromContextOrDefault(ctx, t.logger)

	states, err := t.states.LoadAll(ctx, learnerID)
	if err != nil {
		if !errors.Is(err, store.ErrCorruptState) {
			storeErrorsTotal.WithLabelValues(operation).Inc()
			log.Error("failed to load review states",
				slog.String("learner_id", learnerID.String()),
				slog.String("error", err.Error()))
			return nil, NewServiceError(operation, "failed to load review states", err)
		}

		dataLossTotal.Inc()
		log.Warn("discarding corrupt review states",
			slog.String("event", "data_loss"),
			slog.String("learner_id", learnerID.String()),
			slog.String("error", err.Error()))
		states = domain.Collection{}
	}

	return states.WithCatalog(catalog), nil
}

// DueQueue implements Service.DueQueue.
func (t *Tracker) DueQueue(ctx context.Context, learnerID uuid.UUID, catalog []string) ([]srs.DueItem, error) {
	states, err := t.load(ctx, "due_queue", learnerID, catalog)
	if err != nil {
		return nil, err
	}
	return t.engine.DueSet(states, t.clock.Now()), nil
}

// NextQuestions implements Service.NextQuestions.
func (t *Tracker) NextQuestions(
	ctx context.Context,
	learnerID uuid.UUID,
	catalog []string,
	limit int,
) ([]srs.DueItem, error) {
	states, err := t.load(ctx, "next_questions", learnerID, catalog)
	if err != nil {
		return nil, err
	}
	return t.engine.NextQuestions(states, t.clock.Now(), limit), nil
}

// Stats implements Service.Stats.
func (t *Tracker) Stats(ctx context.Context, learnerID uuid.UUID, catalog []string) (srs.Stats, error) {
	states, err := t.load(ctx, "stats", learnerID, catalog)
	if err != nil {
		return srs.Stats{}, err
	}
	return t.engine.Aggregate(states, t.clock.Now()), nil
}
