// Package badgerstore persists review states in an embedded BadgerDB.
//
// Each state is one key, review:<learner>:<item>, holding the JSON encoding of
// domain.ReviewState. A learner's collection is a prefix scan.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-review/internal/domain"
	"github.com/phrazzld/scry-review/internal/platform/logger"
	"github.com/phrazzld/scry-review/internal/store"
)

const (
	reviewKeyPrefix  = "review:"
	corruptKeyPrefix = "corrupt:"

	// maxConflictRetries bounds how often Update re-runs after a write conflict.
	maxConflictRetries = 10
)

// Store implements store.ReviewStateStore on top of a badger.DB.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Per-learner locks serialize updates inside this process; conflict
	// retries cover everything else.
	locks store.LearnerLocks
}

var _ store.ReviewStateStore = (*Store)(nil)

// Open opens (or creates) a BadgerDB at dir. An empty dir opens an in-memory
// database. The caller owns the returned DB and must close it.
func Open(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return db, nil
}

// New wraps an open badger.DB. If log is nil, a default logger is used.
func New(db *badger.DB, log *slog.Logger) *Store {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		db:     db,
		logger: log.With(slog.String("component", "badger_review_state_store")),
	}
}

func learnerPrefix(learnerID uuid.UUID) []byte {
	return []byte(reviewKeyPrefix + learnerID.String() + ":")
}

func stateKey(learnerID uuid.UUID, itemID string) []byte {
	return append(learnerPrefix(learnerID), itemID...)
}

func (s *Store) lock(learnerID uuid.UUID) func() {
	return s.locks.Lock(learnerID)
}

// decode parses a stored value and checks it belongs to itemID.
func decode(itemID string, val []byte) (*domain.ReviewState, error) {
	var state domain.ReviewState
	if err := json.Unmarshal(val, &state); err != nil {
		return nil, errors.Join(store.ErrCorruptState, err)
	}
	if state.ItemID != itemID {
		return nil, errors.Join(store.ErrCorruptState,
			domain.NewValidationError("itemId", domain.ErrItemIDMismatch))
	}
	if err := state.Validate(); err != nil {
		return nil, errors.Join(store.ErrCorruptState, err)
	}
	return &state, nil
}

// Get implements store.ReviewStateStore.
func (s *Store) Get(ctx context.Context, learnerID uuid.UUID, itemID string) (*domain.ReviewState, error) {
	var state *domain.ReviewState
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stateKey(learnerID, itemID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return store.ErrReviewStateNotFound
		}
		if err != nil {
			return store.NewStoreError("review_state", "get", "read failed", err)
		}
		return item.Value(func(val []byte) error {
			decoded, err := decode(itemID, val)
			if err != nil {
				return store.NewStoreError("review_state", "get", "invalid stored state", err)
			}
			state = decoded
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, store.ErrCorruptState) {
			logger.FromContextOrDefault(ctx, s.logger).Warn("stored review state is corrupt",
				slog.String("learner_id", learnerID.String()),
				slog.String("item_id", itemID),
				slog.String("error", err.Error()))
		}
		return nil, err
	}
	return state, nil
}

// LoadAll implements store.ReviewStateStore. A single corrupt value makes the
// whole load fail closed with an empty collection and store.ErrCorruptState.
func (s *Store) LoadAll(ctx context.Context, learnerID uuid.UUID) (domain.Collection, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	states := domain.Collection{}
	prefix := learnerPrefix(learnerID)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			itemID := string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				state, err := decode(itemID, val)
				if err != nil {
					return err
				}
				states[itemID] = state
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrCorruptState) {
			log.Warn("stored review states are corrupt",
				slog.String("learner_id", learnerID.String()),
				slog.String("error", err.Error()))
			return domain.Collection{}, store.NewStoreError("review_state", "load", "invalid stored state", err)
		}
		return nil, store.NewStoreError("review_state", "load", "scan failed", err)
	}
	return states, nil
}

// Update implements store.ReviewStateStore. A corrupt stored value is moved
// aside under the corrupt: prefix and the update proceeds as for a new item.
func (s *Store) Update(
	ctx context.Context,
	learnerID uuid.UUID,
	itemID string,
	fn store.UpdateFn,
) (*domain.ReviewState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	unlock := s.lock(learnerID)
	defer unlock()

	key := stateKey(learnerID, itemID)
	var result *domain.ReviewState
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		result, err = s.update(log, key, learnerID, itemID, fn)
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
		log.Debug("retrying review state update after conflict",
			slog.String("item_id", itemID),
			slog.Int("attempt", attempt+1))
	}
	if err != nil {
		if errors.Is(err, badger.ErrConflict) {
			return nil, store.NewStoreError("review_state", "update", "too many write conflicts", err)
		}
		return nil, err
	}
	return result, nil
}

func (s *Store) update(
	log *slog.Logger,
	key []byte,
	learnerID uuid.UUID,
	itemID string,
	fn store.UpdateFn,
) (*domain.ReviewState, error) {
	var result *domain.ReviewState
	err := s.db.Update(func(txn *badger.Txn) error {
		var current *domain.ReviewState
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return store.NewStoreError("review_state", "update", "read failed", err)
		default:
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return store.NewStoreError("review_state", "update", "read failed", err)
			}
			current, err = decode(itemID, raw)
			if err != nil {
				if err := txn.Set([]byte(corruptKeyPrefix+string(key)), raw); err != nil {
					return store.NewStoreError("review_state", "update", "failed to quarantine value", err)
				}
				log.Error("quarantined corrupt review state",
					slog.String("event", "data_loss"),
					slog.String("learner_id", learnerID.String()),
					slog.String("item_id", itemID),
					slog.String("error", err.Error()))
				current = nil
			}
		}

		next, err := store.ApplyUpdate(itemID, current, fn)
		if err != nil {
			return err
		}

		data, err := json.Marshal(next)
		if err != nil {
			return store.NewStoreError("review_state", "update", "encode failed", err)
		}
		if err := txn.Set(key, data); err != nil {
			return store.NewStoreError("review_state", "update", "write failed", err)
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete implements store.ReviewStateStore.
func (s *Store) Delete(ctx context.Context, learnerID uuid.UUID, itemID string) error {
	unlock := s.lock(learnerID)
	defer unlock()

	key := stateKey(learnerID, itemID)
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return store.ErrReviewStateNotFound
			}
			return store.NewStoreError("review_state", "delete", "read failed", err)
		}
		if err := txn.Delete(key); err != nil {
			return store.NewStoreError("review_state", "delete", "delete failed", err)
		}
		return nil
	})
	if err != nil && !errors.Is(err, store.ErrReviewStateNotFound) {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete review state",
			slog.String("learner_id", learnerID.String()),
			slog.String("item_id", itemID),
			slog.String("error", err.Error()))
	}
	return err
}
