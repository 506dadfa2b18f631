package srs

import (
	"errors"
	"fmt"

	"github.com/phrazzld/scry-review/internal/domain"
)

// ErrInvalidParams is returned when scheduler parameters are inconsistent.
var ErrInvalidParams = errors.New("invalid SRS parameters")

// Params defines all configurable parameters for the SRS algorithm
type Params struct {
	// Ease factor bounds and the starting ease of never-reviewed items
	DefaultEaseFactor float64
	MinEaseFactor     float64
	MaxEaseFactor     float64

	// Intervals for the first and second consecutive passing reviews
	FirstInterval  int
	SecondInterval int

	// Due queue weights
	NewItemPriority  float64
	OverdueDayWeight float64
	DifficultyWeight float64
	ErrorRateWeight  float64
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero values keep the default.
type ParamsConfig struct {
	DefaultEaseFactor float64
	MinEaseFactor     float64
	MaxEaseFactor     float64
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		DefaultEaseFactor: domain.DefaultEaseFactor,
		MinEaseFactor:     domain.MinEaseFactor,
		MaxEaseFactor:     domain.MaxEaseFactor,

		FirstInterval:  1,
		SecondInterval: 6,

		NewItemPriority:  100,
		OverdueDayWeight: 5,
		DifficultyWeight: 10,
		ErrorRateWeight:  50,
	}
}

// NewParams creates a new Params instance with custom configuration and validates it.
func NewParams(config ParamsConfig) (*Params, error) {
	params := NewDefaultParams()

	if config.DefaultEaseFactor > 0 {
		params.DefaultEaseFactor = config.DefaultEaseFactor
	}
	if config.MinEaseFactor > 0 {
		params.MinEaseFactor = config.MinEaseFactor
	}
	if config.MaxEaseFactor > 0 {
		params.MaxEaseFactor = config.MaxEaseFactor
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

// Validate checks that the ease bounds are ordered and lie within the bounds
// a persisted ReviewState accepts.
func (p *Params) Validate() error {
	if p.MinEaseFactor < domain.MinEaseFactor || p.MaxEaseFactor > domain.MaxEaseFactor {
		return fmt.Errorf("%w: ease bounds [%v, %v] must lie within [%v, %v]",
			ErrInvalidParams, p.MinEaseFactor, p.MaxEaseFactor, domain.MinEaseFactor, domain.MaxEaseFactor)
	}
	if p.MinEaseFactor > p.DefaultEaseFactor || p.DefaultEaseFactor > p.MaxEaseFactor {
		return fmt.Errorf("%w: default ease %v must lie within [%v, %v]",
			ErrInvalidParams, p.DefaultEaseFactor, p.MinEaseFactor, p.MaxEaseFactor)
	}
	if p.FirstInterval < 1 || p.SecondInterval < 1 {
		return fmt.Errorf("%w: initial intervals must be at least 1 day", ErrInvalidParams)
	}
	return nil
}
