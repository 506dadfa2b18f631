package domain

import (
	"fmt"
	"math"
	"time"
)

// Ease factor bounds and the default applied to never-reviewed items.
const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3
	MaxEaseFactor     = 4.0
)

// Mastery thresholds used by ReviewState.Mastery.
const (
	MasteryRepetitions = 3
	MasteryAccuracy    = 0.8
)

// ReviewState is a learner's scheduling state for a single item.
// It is the only persisted entity; the JSON layout below is the storage format.
type ReviewState struct {
	ItemID               string           `json:"itemId"`
	Interval             int              `json:"interval"`    // days until the next review, >= 1
	EaseFactor           float64          `json:"easeFactor"`  // bounded to [MinEaseFactor, MaxEaseFactor]
	Repetitions          int              `json:"repetitions"` // consecutive passing grades since the last failure
	TotalAttempts        int              `json:"totalAttempts"`
	CorrectAttempts      int              `json:"correctAttempts"`
	IncorrectAttempts    int              `json:"incorrectAttempts"`
	AveragePerformance   float64          `json:"averagePerformance"`
	LastReviewedAt       *time.Time       `json:"lastReviewedAt"`
	NextReviewAt         *time.Time       `json:"nextReviewAt"`
	LastPerformanceGrade PerformanceGrade `json:"lastPerformanceGrade"`
}

// NewItemState returns the placeholder state of an item that has never been graded.
// It has no review timestamps, so it is always due.
func NewItemState(itemID string) *ReviewState {
	return &ReviewState{
		ItemID:     itemID,
		Interval:   1,
		EaseFactor: DefaultEaseFactor,
	}
}

// IsNew reports whether the item has never been reviewed.
func (s *ReviewState) IsNew() bool {
	return s.NextReviewAt == nil
}

// DueToday reports whether the scheduled interval keeps the item in today's session.
func (s *ReviewState) DueToday() bool {
	return s.Interval <= 1
}

// ErrorRate returns incorrect/total, or 0 when the item has no attempts.
func (s *ReviewState) ErrorRate() float64 {
	if s.TotalAttempts == 0 {
		return 0
	}
	return float64(s.IncorrectAttempts) / float64(s.TotalAttempts)
}

// Mastery derives the item's mastery classification. It is recomputed from the
// current counters on every call and is never stored, so a mastered item is
// demoted as soon as its accuracy drops below MasteryAccuracy.
func (s *ReviewState) Mastery() MasteryState {
	switch {
	case s.Repetitions == 0:
		return MasteryNew
	case s.Repetitions < MasteryRepetitions:
		return MasteryLearning
	case s.AveragePerformance >= MasteryAccuracy:
		return MasteryMastered
	default:
		return MasteryStruggling
	}
}

// Clone returns a deep copy of the state.
func (s *ReviewState) Clone() *ReviewState {
	if s == nil {
		return nil
	}
	c := *s
	if s.LastReviewedAt != nil {
		t := *s.LastReviewedAt
		c.LastReviewedAt = &t
	}
	if s.NextReviewAt != nil {
		t := *s.NextReviewAt
		c.NextReviewAt = &t
	}
	return &c
}

// Validate checks the structural invariants of a persisted state.
func (s *ReviewState) Validate() error {
	if s.ItemID == "" {
		return NewValidationError("itemId", ErrEmptyItemID)
	}

	if s.Interval < 1 {
		return NewValidationError("interval", fmt.Errorf("%w: %d", ErrInvalidInterval, s.Interval))
	}

	if math.IsNaN(s.EaseFactor) || s.EaseFactor < MinEaseFactor || s.EaseFactor > MaxEaseFactor {
		return NewValidationError("easeFactor", fmt.Errorf("%w: %v", ErrEaseFactorOutOfBounds, s.EaseFactor))
	}

	if s.Repetitions < 0 {
		return NewValidationError("repetitions", fmt.Errorf("%w: negative repetitions", ErrInvalidAttempts))
	}

	if s.CorrectAttempts < 0 || s.IncorrectAttempts < 0 ||
		s.TotalAttempts != s.CorrectAttempts+s.IncorrectAttempts {
		return NewValidationError("totalAttempts", fmt.Errorf("%w: total=%d correct=%d incorrect=%d",
			ErrInvalidAttempts, s.TotalAttempts, s.CorrectAttempts, s.IncorrectAttempts))
	}

	if math.Abs(s.AveragePerformance-AveragePerformance(s.CorrectAttempts, s.TotalAttempts)) > 1e-9 {
		return NewValidationError("averagePerformance",
			fmt.Errorf("%w: %v", ErrInvalidPerformance, s.AveragePerformance))
	}

	if (s.LastReviewedAt == nil) != (s.NextReviewAt == nil) {
		return NewValidationError("nextReviewAt",
			fmt.Errorf("%w: review timestamps must be set together", ErrInvalidSchedule))
	}

	if s.LastReviewedAt != nil {
		if err := s.LastPerformanceGrade.Validate(); err != nil {
			return err
		}

		if !s.LastPerformanceGrade.IsPassing() && (s.Repetitions != 0 || s.Interval != 1) {
			return NewValidationError("repetitions", fmt.Errorf("%w: failing grade with repetitions=%d interval=%d",
				ErrInvalidSchedule, s.Repetitions, s.Interval))
		}

		if want := NextReviewDate(*s.LastReviewedAt, s.Interval); !s.NextReviewAt.Equal(want) {
			return NewValidationError("nextReviewAt", fmt.Errorf("%w: got %s, want %s",
				ErrInvalidSchedule, s.NextReviewAt.UTC().Format(time.RFC3339), want.Format(time.RFC3339)))
		}
	}

	return nil
}

// NextReviewDate returns UTC midnight of reviewedAt's UTC calendar day plus
// interval days.
func NextReviewDate(reviewedAt time.Time, interval int) time.Time {
	y, m, d := reviewedAt.UTC().Date()
	return time.Date(y, m, d+interval, 0, 0, 0, 0, time.UTC)
}

// AveragePerformance returns correct/total, or 0 when there are no attempts.
func AveragePerformance(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

// MasteryState is the derived new/learning/mastered classification of an item.
type MasteryState string

// Mastery states.
const (
	MasteryNew        MasteryState = "new"
	MasteryLearning   MasteryState = "learning"
	MasteryMastered   MasteryState = "mastered"
	MasteryStruggling MasteryState = "struggling"
)
