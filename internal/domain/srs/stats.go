package srs

import (
	"math"
	"time"

	"github.com/phrazzld/scry-review/internal/domain"
)

// Stats summarizes a learner's progress over a collection.
// New, Learning, Mastered and Struggling partition Total.
type Stats struct {
	Total           int `json:"total"`
	New             int `json:"new"`
	Learning        int `json:"learning"`
	Mastered        int `json:"mastered"`
	Struggling      int `json:"struggling"`
	DueToday        int `json:"dueToday"`
	AverageAccuracy int `json:"averageAccuracy"` // percent, 0..100
	TotalReviews    int `json:"totalReviews"`
}

// Aggregate computes Stats for the collection as of asOf. Classification goes
// through ReviewState.Mastery, so it reflects the current counters only.
func Aggregate(states domain.Collection, asOf time.Time, params *Params) Stats {
	var stats Stats
	var correct int

	for _, s := range states {
		if s == nil {
			continue
		}
		stats.Total++
		stats.TotalReviews += s.TotalAttempts
		correct += s.CorrectAttempts

		switch s.Mastery() {
		case domain.MasteryNew:
			stats.New++
		case domain.MasteryLearning:
			stats.Learning++
		case domain.MasteryMastered:
			stats.Mastered++
		case domain.MasteryStruggling:
			stats.Struggling++
		}
	}

	stats.DueToday = len(DueSet(states, asOf, params))

	if stats.TotalReviews > 0 {
		stats.AverageAccuracy = int(math.Round(100 * float64(correct) / float64(stats.TotalReviews)))
	}

	return stats
}
