// Package progress records learner grades and answers queue and stats queries
// over a learner's stored review states.
package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-review/internal/domain"
	"github.com/phrazzld/scry-review/internal/domain/srs"
)

// Service tracks a learner's progress through their review items.
type Service interface {
	// RecordGrade applies a graded review of itemID and returns the stored state.
	//
	// The attempt counters and average performance are updated here; interval,
	// ease, repetitions and next review date come from the SRS engine. The
	// read-modify-write is atomic per item, so concurrent grades of different
	// items never lose updates.
	//
	// Returns:
	//   - (*domain.ReviewState, nil): the state as stored
	//   - (nil, *domain.ValidationError): invalid grade, difficulty or empty item ID
	//   - (nil, *ServiceError): the store failed; nothing is considered committed
	//
	// difficulty is informational. It is logged and counted but never stored
	// and never affects scheduling.
	RecordGrade(
		ctx context.Context,
		learnerID uuid.UUID,
		itemID string,
		grade domain.PerformanceGrade,
		difficulty domain.Difficulty,
	) (*domain.ReviewState, error)

	// Reset deletes the item's state so it is treated as never reviewed.
	// Returns ErrItemNotFound if the item has no stored state.
	Reset(ctx context.Context, learnerID uuid.UUID, itemID string) error

	// DueQueue returns every due item ordered by descending priority.
	// catalog lists item IDs known to the caller; those without stored state
	// are included as never-reviewed items. catalog may be nil.
	DueQueue(ctx context.Context, learnerID uuid.UUID, catalog []string) ([]srs.DueItem, error)

	// NextQuestions returns the first limit entries of DueQueue; limit <= 0 means all.
	NextQuestions(ctx context.Context, learnerID uuid.UUID, catalog []string, limit int) ([]srs.DueItem, error)

	// Stats aggregates the learner's collection, including catalog placeholders.
	Stats(ctx context.Context, learnerID uuid.UUID, catalog []string) (srs.Stats, error)
}

// ErrItemNotFound indicates that the item has no stored review state.
var ErrItemNotFound = errors.New("review state not found")

// ServiceError wraps errors from the progress service with additional context.
// This allows consumers to differentiate between different types of service errors
// using errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "record_grade", "stats")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError returns a new ServiceError for the given operation.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
