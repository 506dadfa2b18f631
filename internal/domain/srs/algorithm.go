package srs

import (
	"math"
	"time"

	"github.com/phrazzld/scry-review/internal/domain"
)

// calculateNewEaseFactor applies the SM-2 ease update for a grade.
//
// The update is ease + (0.1 - q*(0.08 + q*0.02)) with q = 5 - grade, so grade 4
// leaves the ease unchanged and every lower grade decreases it. The update runs
// for failing grades too. The result is clamped to
// [params.MinEaseFactor, params.MaxEaseFactor].
func calculateNewEaseFactor(
	currentEF float64,
	grade domain.PerformanceGrade,
	params *Params,
) float64 {
	q := float64(5 - grade)
	newEF := currentEF + (0.1 - q*(0.08+q*0.02))

	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}
	if newEF > params.MaxEaseFactor {
		newEF = params.MaxEaseFactor
	}

	return newEF
}

// calculateNewInterval determines the interval in days after a review.
//
// Parameters:
//   - repetitions: the consecutive-success count after this review
//   - previousInterval: the interval before this review
//   - previousEF: the ease factor before this review
//   - grade: the review grade
//
// A failing grade (below 2) always yields 1. Otherwise the first success yields
// params.FirstInterval, the second params.SecondInterval, and every later one
// round(previousInterval * previousEF). The result is never below 1.
func calculateNewInterval(
	repetitions int,
	previousInterval int,
	previousEF float64,
	grade domain.PerformanceGrade,
	params *Params,
) int {
	if !grade.IsPassing() {
		return 1
	}

	switch repetitions {
	case 1:
		return params.FirstInterval
	case 2:
		return params.SecondInterval
	}

	interval := int(math.Round(float64(previousInterval) * previousEF))
	if interval < 1 {
		interval = 1
	}
	return interval
}

// calculateNextReviewDate returns UTC midnight of now's UTC day plus interval days.
// Scheduling has day granularity, so the time of day of the review is dropped.
func calculateNextReviewDate(interval int, now time.Time) time.Time {
	return domain.NextReviewDate(now, interval)
}

// calculateNextState builds the state that follows a review of the given grade.
//
// A nil previous state is treated as a never-reviewed item (interval 1, default
// ease, no repetitions). The previous state is never modified; attempt counters
// are carried over unchanged because they are owned by the progress tracker.
func calculateNextState(
	previous *domain.ReviewState,
	grade domain.PerformanceGrade,
	now time.Time,
	params *Params,
) *domain.ReviewState {
	var next *domain.ReviewState
	if previous == nil {
		next = &domain.ReviewState{
			Interval:   1,
			EaseFactor: params.DefaultEaseFactor,
		}
	} else {
		next = previous.Clone()
	}

	previousInterval := next.Interval
	previousEF := next.EaseFactor

	if grade.IsPassing() {
		next.Repetitions++
	} else {
		next.Repetitions = 0
	}

	next.Interval = calculateNewInterval(next.Repetitions, previousInterval, previousEF, grade, params)
	next.EaseFactor = calculateNewEaseFactor(previousEF, grade, params)

	reviewedAt := now.UTC()
	nextReviewAt := calculateNextReviewDate(next.Interval, now)
	next.LastReviewedAt = &reviewedAt
	next.NextReviewAt = &nextReviewAt
	next.LastPerformanceGrade = grade

	return next
}
