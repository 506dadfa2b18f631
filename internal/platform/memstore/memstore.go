// Package memstore provides an in-memory store.ReviewStateStore.
// State is lost on restart; it backs tests and the "memory" storage driver.
package memstore

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-review/internal/domain"
	"github.com/phrazzld/scry-review/internal/platform/logger"
	"github.com/phrazzld/scry-review/internal/store"
)

// Store implements store.ReviewStateStore with a mutex-guarded map.
type Store struct {
	mu       sync.Mutex
	learners map[uuid.UUID]domain.Collection
	logger   *slog.Logger
}

var _ store.ReviewStateStore = (*Store)(nil)

// New creates an empty Store.
// If logger is nil, a default logger is used.
func New(log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		learners: make(map[uuid.UUID]domain.Collection),
		logger:   log.With(slog.String("component", "memory_review_state_store")),
	}
}

// Get implements store.ReviewStateStore.
func (s *Store) Get(_ context.Context, learnerID uuid.UUID, itemID string) (*domain.ReviewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.learners[learnerID][itemID]
	if !ok {
		return nil, store.ErrReviewStateNotFound
	}
	return state.Clone(), nil
}

// LoadAll implements store.ReviewStateStore.
func (s *Store) LoadAll(_ context.Context, learnerID uuid.UUID) (domain.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	states, ok := s.learners[learnerID]
	if !ok {
		return domain.Collection{}, nil
	}
	return states.Clone(), nil
}

// Update implements store.ReviewStateStore.
func (s *Store) Update(
	ctx context.Context,
	learnerID uuid.UUID,
	itemID string,
	fn store.UpdateFn,
) (*domain.ReviewState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := store.ApplyUpdate(itemID, s.learners[learnerID][itemID], fn)
	if err != nil {
		return nil, err
	}

	states, ok := s.learners[learnerID]
	if !ok {
		states = make(domain.Collection)
		s.learners[learnerID] = states
	}
	states[itemID] = next.Clone()

	log.Debug("review state updated",
		slog.String("learner_id", learnerID.String()),
		slog.String("item_id", itemID))
	return next, nil
}

// Delete implements store.ReviewStateStore.
func (s *Store) Delete(_ context.Context, learnerID uuid.UUID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := s.learners[learnerID]
	if _, ok := states[itemID]; !ok {
		return store.ErrReviewStateNotFound
	}
	delete(states, itemID)
	return nil
}
