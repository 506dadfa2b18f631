package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-review/internal/domain"
)

// UpdateFn computes the new state of an item from its current state.
// current is nil when no state is stored. Returning an error aborts the update
// and leaves the stored state untouched.
type UpdateFn func(current *domain.ReviewState) (*domain.ReviewState, error)

// ReviewStateStore defines the interface for per-learner review state persistence.
// Implementations must be safe for concurrent use.
type ReviewStateStore interface {
	// Get retrieves the review state of one item.
	// Returns ErrReviewStateNotFound if no state is stored.
	Get(ctx context.Context, learnerID uuid.UUID, itemID string) (*domain.ReviewState, error)

	// LoadAll returns every stored review state of the learner keyed by item ID.
	// An unknown learner yields an empty collection. If persisted data is corrupt,
	// implementations return an empty collection together with ErrCorruptState.
	LoadAll(ctx context.Context, learnerID uuid.UUID) (domain.Collection, error)

	// Update atomically reads the item's state, applies fn and stores the result.
	// The state returned by fn is validated before it is written; the stored
	// state is returned. Concurrent updates of the same item are serialized.
	Update(ctx context.Context, learnerID uuid.UUID, itemID string, fn UpdateFn) (*domain.ReviewState, error)

	// Delete removes the item's state so the item reverts to never-reviewed.
	// Returns ErrReviewStateNotFound if no state is stored.
	Delete(ctx context.Context, learnerID uuid.UUID, itemID string) error
}

// CollectionStore loads and saves a learner's whole collection at once.
type CollectionStore interface {
	// Load returns the learner's collection. A learner with no data yields an
	// empty collection. Corrupt data yields an empty collection and ErrCorruptState.
	Load(ctx context.Context, learnerID uuid.UUID) (domain.Collection, error)

	// Save replaces the learner's collection. Every state is validated first.
	Save(ctx context.Context, learnerID uuid.UUID, states domain.Collection) error
}

// ApplyUpdate runs fn against current and validates the result for itemID.
// Backends call it inside their atomic section.
func ApplyUpdate(itemID string, current *domain.ReviewState, fn UpdateFn) (*domain.ReviewState, error) {
	next, err := fn(current.Clone())
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, NewStoreError("review_state", "update", "update function returned no state", ErrInvalidEntity)
	}
	if next.ItemID != itemID {
		return nil, NewStoreError("review_state", "update", "item ID changed during update",
			domain.NewValidationError("itemId", domain.ErrItemIDMismatch))
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return next, nil
}
