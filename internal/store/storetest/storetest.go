// Package storetest holds the behavioural test suite every store.ReviewStateStore
// backend must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-review/internal/domain"
	"github.com/phrazzld/scry-review/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.ReviewStateStore

// Reviewed returns a valid, reviewed state for itemID. Timestamps are truncated
// to microseconds so every backend round-trips them exactly.
func Reviewed(itemID string, at time.Time) *domain.ReviewState {
	last := at.UTC().Truncate(time.Microsecond)
	y, m, d := last.Date()
	next := time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
	return &domain.ReviewState{
		ItemID:               itemID,
		Interval:             1,
		EaseFactor:           2.36,
		Repetitions:          1,
		TotalAttempts:        1,
		CorrectAttempts:      1,
		AveragePerformance:   1,
		LastReviewedAt:       &last,
		NextReviewAt:         &next,
		LastPerformanceGrade: domain.GradeEasy,
	}
}

// put stores s unconditionally through Update.
func put(t *testing.T, s store.ReviewStateStore, learner uuid.UUID, state *domain.ReviewState) {
	t.Helper()
	_, err := s.Update(context.Background(), learner, state.ItemID,
		func(*domain.ReviewState) (*domain.ReviewState, error) { return state.Clone(), nil })
	require.NoError(t, err)
}

// increment records one more correct attempt, creating the state if needed.
func increment(itemID string) store.UpdateFn {
	return func(current *domain.ReviewState) (*domain.ReviewState, error) {
		if current == nil {
			current = domain.NewItemState(itemID)
		}
		current.TotalAttempts++
		current.CorrectAttempts++
		current.AveragePerformance = domain.AveragePerformance(current.CorrectAttempts, current.TotalAttempts)
		return current, nil
	}
}

// AssertStateEqual compares states field by field, using time.Equal for timestamps.
func AssertStateEqual(t *testing.T, want, got *domain.ReviewState) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.ItemID, got.ItemID)
	assert.Equal(t, want.Interval, got.Interval)
	assert.InDelta(t, want.EaseFactor, got.EaseFactor, 1e-9)
	assert.Equal(t, want.Repetitions, got.Repetitions)
	assert.Equal(t, want.TotalAttempts, got.TotalAttempts)
	assert.Equal(t, want.CorrectAttempts, got.CorrectAttempts)
	assert.Equal(t, want.IncorrectAttempts, got.IncorrectAttempts)
	assert.InDelta(t, want.AveragePerformance, got.AveragePerformance, 1e-9)
	assert.Equal(t, want.LastPerformanceGrade, got.LastPerformanceGrade)
	assertTimeEqual(t, want.LastReviewedAt, got.LastReviewedAt)
	assertTimeEqual(t, want.NextReviewAt, got.NextReviewAt)
}

func assertTimeEqual(t *testing.T, want, got *time.Time) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got), "expected %v, got %v", *want, *got)
}

// Run executes the suite against stores created by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 14, 30, 15, 123456000, time.UTC)

	t.Run("get missing returns not found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, uuid.New(), "nope")
		assert.ErrorIs(t, err, store.ErrReviewStateNotFound)
		assert.True(t, store.IsNotFoundError(err))
	})

	t.Run("update creates and get returns the state", func(t *testing.T) {
		s := newStore(t)
		learner := uuid.New()
		want := Reviewed("q-1", now)

		var seen *domain.ReviewState
		stored, err := s.Update(ctx, learner, "q-1", func(current *domain.ReviewState) (*domain.ReviewState, error) {
			seen = current
			return want.Clone(), nil
		})
		require.NoError(t, err)
		assert.Nil(t, seen, "first update must see no current state")
		AssertStateEqual(t, want, stored)

		got, err := s.Get(ctx, learner, "q-1")
		require.NoError(t, err)
		AssertStateEqual(t, want, got)
	})

	t.Run("update sees the stored state", func(t *testing.T) {
		s := newStore(t)
		learner := uuid.New()
		put(t, s, learner, Reviewed("q-1", now))

		updated, err := s.Update(ctx, learner, "q-1", increment("q-1"))
		require.NoError(t, err)
		assert.Equal(t, 2, updated.TotalAttempts)
	})

	t.Run("new item state round-trips null timestamps", func(t *testing.T) {
		s := newStore(t)
		learner := uuid.New()
		put(t, s, learner, domain.NewItemState("fresh"))

		got, err := s.Get(ctx, learner, "fresh")
		require.NoError(t, err)
		AssertStateEqual(t, domain.NewItemState("fresh"), got)
	})

	t.Run("failed update stores nothing", func(t *testing.T) {
		s := newStore(t)
		learner := uuid.New()
		boom := errors.New("boom")

		_, err := s.Update(ctx, learner, "q-1", func(*domain.ReviewState) (*domain.ReviewState, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = s.Get(ctx, learner, "q-1")
		assert.ErrorIs(t, err, store.ErrReviewStateNotFound)
	})

	t.Run("invalid state is rejected", func(t *testing.T) {
		s := newStore(t)
		learner := uuid.New()
		original := Reviewed("q-1", now)
		put(t, s, learner, original)

		_, err := s.Update(ctx, learner, "q-1", func(current *domain.ReviewState) (*domain.ReviewState, error) {
			current.Interval = 0
			return current, nil
		})
		assert.ErrorIs(t, err, domain.ErrValidation)

		got, err := s.Get(ctx, learner, "q-1")
		require.NoError(t, err)
		AssertStateEqual(t, original, got)
	})

	t.Run("load all isolates learners", func(t *testing.T) {
		s := newStore(t)
		alice, bob := uuid.New(), uuid.New()
		put(t, s, alice, Reviewed("a-1", now))
		put(t, s, alice, Reviewed("a-2", now))
		put(t, s, bob, Reviewed("b-1", now))

		got, err := s.LoadAll(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, []string{"a-1", "a-2"}, got.ItemIDs())
		AssertStateEqual(t, Reviewed("a-2", now), got["a-2"])

		empty, err := s.LoadAll(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("delete removes the state", func(t *testing.T) {
		s := newStore(t)
		learner := uuid.New()
		put(t, s, learner, Reviewed("q-1", now))

		require.NoError(t, s.Delete(ctx, learner, "q-1"))

		_, err := s.Get(ctx, learner, "q-1")
		assert.ErrorIs(t, err, store.ErrReviewStateNotFound)

		err = s.Delete(ctx, learner, "q-1")
		assert.ErrorIs(t, err, store.ErrReviewStateNotFound)
	})

	t.Run("concurrent updates are not lost", func(t *testing.T) {
		s := newStore(t)
		learner := uuid.New()
		const workers = 8
		const perWorker = 5

		var wg sync.WaitGroup
		errs := make(chan error, workers*perWorker*2)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					if _, err := s.Update(ctx, learner, "shared", increment("shared")); err != nil {
						errs <- err
					}
					own := fmt.Sprintf("own-%d", w)
					if _, err := s.Update(ctx, learner, own, increment(own)); err != nil {
						errs <- err
					}
				}
			}(w)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		all, err := s.LoadAll(ctx, learner)
		require.NoError(t, err)
		require.Len(t, all, workers+1)
		assert.Equal(t, workers*perWorker, all["shared"].TotalAttempts)
		for w := 0; w < workers; w++ {
			assert.Equal(t, perWorker, all[fmt.Sprintf("own-%d", w)].TotalAttempts)
		}
	})
}
