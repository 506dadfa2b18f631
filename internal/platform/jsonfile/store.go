// Package jsonfile persists review states as one JSON document per learner.
//
// Each learner's collection lives in <dir>/<learnerID>.json as a JSON object
// keyed by item ID, using the ReviewState field names. Writes go to a temporary
// file that is renamed over the target, so a crash never leaves a partial file.
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-review/internal/domain"
	"github.com/phrazzld/scry-review/internal/platform/logger"
	"github.com/phrazzld/scry-review/internal/store"
)

const entity = "review_state"

// Store implements store.ReviewStateStore and store.CollectionStore on the filesystem.
type Store struct {
	dir    string
	logger *slog.Logger

	locks store.LearnerLocks
}

var (
	_ store.ReviewStateStore = (*Store)(nil)
	_ store.CollectionStore  = (*Store)(nil)
)

// New creates a Store rooted at dir, creating the directory if needed.
// If logger is nil, a default logger is used.
func New(dir string, log *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("jsonfile: directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("jsonfile: create %s: %w", dir, err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		dir:    dir,
		logger: log.With(slog.String("component", "jsonfile_review_state_store")),
	}, nil
}

// Path returns the file holding the learner's collection.
func (s *Store) Path(learnerID uuid.UUID) string {
	return filepath.Join(s.dir, learnerID.String()+".json")
}

func (s *Store) lock(learnerID uuid.UUID) func() {
	return s.locks.Lock(learnerID)
}

// Load implements store.CollectionStore.
func (s *Store) Load(ctx context.Context, learnerID uuid.UUID) (domain.Collection, error) {
	unlock := s.lock(learnerID)
	defer unlock()
	return s.read(ctx, learnerID)
}

// Save implements store.CollectionStore.
func (s *Store) Save(ctx context.Context, learnerID uuid.UUID, states domain.Collection) error {
	if err := states.Validate(); err != nil {
		return store.NewStoreError(entity, "save", "invalid collection", err)
	}

	unlock := s.lock(learnerID)
	defer unlock()
	return s.write(ctx, learnerID, states)
}

// Get implements store.ReviewStateStore.
func (s *Store) Get(ctx context.Context, learnerID uuid.UUID, itemID string) (*domain.ReviewState, error) {
	states, err := s.Load(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	state, ok := states[itemID]
	if !ok {
		return nil, store.ErrReviewStateNotFound
	}
	return state, nil
}

// LoadAll implements store.ReviewStateStore.
func (s *Store) LoadAll(ctx context.Context, learnerID uuid.UUID) (domain.Collection, error) {
	return s.Load(ctx, learnerID)
}

// Update implements store.ReviewStateStore.
//
// A corrupt file is moved aside to <learnerID>.json.corrupt before the update
// so the learner can keep studying; the moved file is kept for recovery.
func (s *Store) Update(
	ctx context.Context,
	learnerID uuid.UUID,
	itemID string,
	fn store.UpdateFn,
) (*domain.ReviewState, error) {
	unlock := s.lock(learnerID)
	defer unlock()

	states, err := s.read(ctx, learnerID)
	if errors.Is(err, store.ErrCorruptState) {
		if qErr := s.quarantine(ctx, learnerID); qErr != nil {
			return nil, qErr
		}
	} else if err != nil {
		return nil, err
	}

	next, err := store.ApplyUpdate(itemID, states[itemID], fn)
	if err != nil {
		return nil, err
	}

	states[itemID] = next
	if err := s.write(ctx, learnerID, states); err != nil {
		return nil, err
	}
	return next.Clone(), nil
}

// Delete implements store.ReviewStateStore.
func (s *Store) Delete(ctx context.Context, learnerID uuid.UUID, itemID string) error {
	unlock := s.lock(learnerID)
	defer unlock()

	states, err := s.read(ctx, learnerID)
	if err != nil {
		return err
	}
	if _, ok := states[itemID]; !ok {
		return store.ErrReviewStateNotFound
	}
	delete(states, itemID)
	return s.write(ctx, learnerID, states)
}

// read loads the learner's file. The caller holds the learner lock.
// A missing file is an empty collection; undecodable or invalid content yields
// an empty collection and ErrCorruptState.
func (s *Store) read(ctx context.Context, learnerID uuid.UUID) (domain.Collection, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	path := s.Path(learnerID)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Collection{}, nil
	}
	if err != nil {
		log.Error("failed to read review states",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError(entity, "load", "failed to read file", err)
	}

	states := domain.Collection{}
	if err := json.Unmarshal(data, &states); err != nil {
		log.Warn("review state file cannot be decoded",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return domain.Collection{}, store.NewStoreError(entity, "load", "failed to decode file",
			fmt.Errorf("%w: %v", store.ErrCorruptState, err))
	}
	if states == nil {
		states = domain.Collection{}
	}
	if err := states.Validate(); err != nil {
		log.Warn("review state file holds invalid states",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return domain.Collection{}, store.NewStoreError(entity, "load", "invalid stored state",
			fmt.Errorf("%w: %w", store.ErrCorruptState, err))
	}
	return states, nil
}

// write replaces the learner's file atomically. The caller holds the learner lock.
func (s *Store) write(ctx context.Context, learnerID uuid.UUID, states domain.Collection) error {
	log := logger.FromContextOrDefault(ctx, s.logger)
	path := s.Path(learnerID)

	data, err := Encode(states)
	if err != nil {
		return store.NewStoreError(entity, "save", "failed to encode collection", err)
	}

	tmp, err := os.CreateTemp(s.dir, learnerID.String()+".*.tmp")
	if err != nil {
		return store.NewStoreError(entity, "save", "failed to create temp file", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return store.NewStoreError(entity, "save", "failed to write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return store.NewStoreError(entity, "save", "failed to sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return store.NewStoreError(entity, "save", "failed to close temp file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return store.NewStoreError(entity, "save", "failed to replace file", err)
	}

	log.Debug("review states written",
		slog.String("learner_id", learnerID.String()),
		slog.Int("items", len(states)))
	return nil
}

func (s *Store) quarantine(ctx context.Context, learnerID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)
	path := s.Path(learnerID)
	target := path + ".corrupt"

	if err := os.Rename(path, target); err != nil {
		return store.NewStoreError(entity, "update", "failed to move corrupt file aside", err)
	}
	log.Warn("corrupt review state file moved aside",
		slog.String("event", "data_loss"),
		slog.String("learner_id", learnerID.String()),
		slog.String("path", target))
	return nil
}

// Encode renders a collection in the on-disk layout: an indented JSON object
// keyed by item ID in ascending order, with a trailing newline.
func Encode(states domain.Collection) ([]byte, error) {
	if states == nil {
		states = domain.Collection{}
	}
	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
