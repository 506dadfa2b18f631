package srs

import (
	"time"

	"github.com/phrazzld/scry-review/internal/domain"
)

// Service defines the interface for SRS algorithm operations.
// Implementations hold no mutable state and are safe for concurrent use.
type Service interface {
	// ComputeNextState computes the state that follows a review of the given grade.
	// previous may be nil for an item that has never been graded.
	ComputeNextState(
		grade domain.PerformanceGrade,
		previous *domain.ReviewState,
		now time.Time,
	) (*domain.ReviewState, error)

	// DueSet returns the items due on asOf's day, ordered by descending priority.
	DueSet(states domain.Collection, asOf time.Time) []DueItem

	// NextQuestions returns at most limit entries of DueSet; limit <= 0 means all.
	NextQuestions(states domain.Collection, asOf time.Time, limit int) []DueItem

	// Aggregate summarizes a learner's collection as of asOf.
	Aggregate(states domain.Collection, asOf time.Time) Stats

	// Params returns a copy of the parameters the service was built with.
	Params() Params
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new SRS service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new SRS service with custom parameters.
// Returns ErrInvalidParams if the parameters are inconsistent.
func NewServiceWithParams(params *Params) (Service, error) {
	if params == nil {
		return NewDefaultService(), nil
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	p := *params
	return &defaultService{params: &p}, nil
}

// ComputeNextState implements the Service interface
func (s *defaultService) ComputeNextState(
	grade domain.PerformanceGrade,
	previous *domain.ReviewState,
	now time.Time,
) (*domain.ReviewState, error) {
	if err := grade.Validate(); err != nil {
		return nil, err
	}

	return calculateNextState(previous, grade, now, s.params), nil
}

// DueSet implements the Service interface
func (s *defaultService) DueSet(states domain.Collection, asOf time.Time) []DueItem {
	return DueSet(states, asOf, s.params)
}

// NextQuestions implements the Service interface
func (s *defaultService) NextQuestions(states domain.Collection, asOf time.Time, limit int) []DueItem {
	return NextQuestions(states, asOf, limit, s.params)
}

// Aggregate implements the Service interface
func (s *defaultService) Aggregate(states domain.Collection, asOf time.Time) Stats {
	return Aggregate(states, asOf, s.params)
}

// Params implements the Service interface
func (s *defaultService) Params() Params {
	return *s.params
}
