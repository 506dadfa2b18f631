package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidGrade is returned when a performance grade is outside 0..4.
	ErrInvalidGrade = errors.New("invalid performance grade")

	// ErrInvalidDifficulty is returned when a difficulty label is not recognized.
	ErrInvalidDifficulty = errors.New("invalid difficulty")

	// ErrEmptyItemID is returned when an item identifier is empty.
	ErrEmptyItemID = errors.New("item ID cannot be empty")

	// ErrItemIDMismatch is returned when a collection key differs from the state's item ID.
	ErrItemIDMismatch = errors.New("item ID does not match collection key")

	// ErrInvalidInterval is returned when an interval is below one day.
	ErrInvalidInterval = errors.New("interval must be at least 1 day")

	// ErrEaseFactorOutOfBounds is returned when an ease factor is outside its bounds.
	ErrEaseFactorOutOfBounds = errors.New("ease factor out of bounds")

	// ErrInvalidAttempts is returned when attempt counters are negative or inconsistent.
	ErrInvalidAttempts = errors.New("attempt counters are inconsistent")

	// ErrInvalidPerformance is returned when average performance does not match the counters.
	ErrInvalidPerformance = errors.New("average performance is inconsistent")

	// ErrInvalidSchedule is returned when the review timestamps disagree with the interval or grade.
	ErrInvalidSchedule = errors.New("review schedule is inconsistent")
)

// ValidationError reports which field of a domain value failed validation.
// It matches ErrValidation with errors.Is in addition to its wrapped cause.
type ValidationError struct {
	Field string
	Err   error
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %v", ErrValidation, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", ErrValidation, e.Field, e.Err)
}

// Unwrap returns the underlying cause so errors.Is works for specific sentinels.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
