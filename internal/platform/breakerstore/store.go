// Package breakerstore guards a store.ReviewStateStore with a circuit breaker.
//
// Only backend failures count against the breaker. Missing states, validation
// errors, corrupt data and errors returned by update functions pass through
// untouched. While the circuit is open every call fails fast with a
// *store.StoreError wrapping store.ErrUnavailable.
package breakerstore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-review/internal/domain"
	"github.com/phrazzld/scry-review/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	gobreaker "github.com/sony/gobreaker/v2"
)

// circuitState reports 0 (closed), 1 (half-open) or 2 (open) per breaker.
var circuitState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "srs_store_circuit_state",
		Help: "Store circuit breaker state: 0 closed, 1 half-open, 2 open",
	},
	[]string{"name"},
)

// Settings configures the breaker.
type Settings struct {
	Name string
	// Consecutive backend failures that open the circuit.
	FailureThreshold uint32
	// How long the circuit stays open before a trial request is allowed.
	Timeout time.Duration
}

// Store decorates a ReviewStateStore with a gobreaker circuit breaker.
type Store struct {
	next   store.ReviewStateStore
	cb     *gobreaker.CircuitBreaker[interface{}]
	logger *slog.Logger
}

var _ store.ReviewStateStore = (*Store)(nil)

// New wraps next. If log is nil, a default logger is used.
func New(next store.ReviewStateStore, settings Settings, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	if settings.Name == "" {
		settings.Name = "review_state_store"
	}
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = 5
	}
	log = log.With(slog.String("component", "store_circuit_breaker"))

	circuitState.WithLabelValues(settings.Name).Set(float64(gobreaker.StateClosed))
	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			circuitState.WithLabelValues(name).Set(float64(to))
			log.Warn("store circuit breaker changed state",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return &Store{next: next, cb: cb, logger: log}
}

// State returns the current breaker state.
func (s *Store) State() gobreaker.State {
	return s.cb.State()
}

// isBackendFailure reports whether err says something about the backend's health.
func isBackendFailure(err error) bool {
	switch {
	case err == nil:
		return false
	case store.IsNotFoundError(err),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrCorruptState),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

// run executes call through the breaker. Errors that are not backend failures
// are returned to the caller without counting as failures.
func (s *Store) run(operation string, call func() error, isCallerError func(error) bool) error {
	var passthrough error
	_, err := s.cb.Execute(func() (interface{}, error) {
		err := call()
		if err != nil && (!isBackendFailure(err) || isCallerError(err)) {
			passthrough = err
			return nil, nil
		}
		return nil, err
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return store.NewStoreError("review_state", operation, "circuit breaker is open",
			errors.Join(store.ErrUnavailable, err))
	}
	if err != nil {
		return err
	}
	return passthrough
}

func noCallerError(error) bool { return false }

// Get implements store.ReviewStateStore.
func (s *Store) Get(ctx context.Context, learnerID uuid.UUID, itemID string) (*domain.ReviewState, error) {
	var state *domain.ReviewState
	err := s.run("get", func() error {
		var err error
		state, err = s.next.Get(ctx, learnerID, itemID)
		return err
	}, noCallerError)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// LoadAll implements store.ReviewStateStore. The collection is returned
// alongside store.ErrCorruptState so callers can still fail closed.
func (s *Store) LoadAll(ctx context.Context, learnerID uuid.UUID) (domain.Collection, error) {
	var states domain.Collection
	err := s.run("load", func() error {
		var err error
		states, err = s.next.LoadAll(ctx, learnerID)
		return err
	}, noCallerError)
	if err != nil && !errors.Is(err, store.ErrCorruptState) {
		return nil, err
	}
	return states, err
}

// Update implements store.ReviewStateStore.
func (s *Store) Update(
	ctx context.Context,
	learnerID uuid.UUID,
	itemID string,
	fn store.UpdateFn,
) (*domain.ReviewState, error) {
	var fnErr error
	wrapped := func(current *domain.ReviewState) (*domain.ReviewState, error) {
		next, err := fn(current)
		fnErr = err
		return next, err
	}

	var state *domain.ReviewState
	err := s.run("update", func() error {
		var err error
		state, err = s.next.Update(ctx, learnerID, itemID, wrapped)
		return err
	}, func(err error) bool {
		return fnErr != nil && errors.Is(err, fnErr)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Delete implements store.ReviewStateStore.
func (s *Store) Delete(ctx context.Context, learnerID uuid.UUID, itemID string) error {
	return s.run("delete", func() error {
		return s.next.Delete(ctx, learnerID, itemID)
	}, noCallerError)
}
