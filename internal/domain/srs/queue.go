package srs

import (
	"math"
	"sort"
	"time"

	"github.com/phrazzld/scry-review/internal/domain"
)

// DueItem is one entry of the due queue.
type DueItem struct {
	ItemID      string              `json:"itemId"`
	State       *domain.ReviewState `json:"state"`
	Priority    float64             `json:"priority"`
	DaysOverdue int                 `json:"daysOverdue"`
}

// DueSet computes the items due on asOf's calendar day.
//
// An item is due when it has never been reviewed or when its next review falls
// on or before asOf's day; comparison is by calendar day, never by timestamp.
// Never-reviewed items get params.NewItemPriority. Reviewed items score
//
//	max(0, daysOverdue*OverdueDayWeight + (DefaultEase-ease)*DifficultyWeight + errorRate*ErrorRateWeight)
//
// The result is ordered by descending priority, ties by ascending item ID.
// Nothing is retained between calls.
func DueSet(states domain.Collection, asOf time.Time, params *Params) []DueItem {
	items := make([]DueItem, 0, len(states))

	for id, s := range states {
		if s == nil {
			continue
		}

		if s.NextReviewAt == nil {
			items = append(items, DueItem{
				ItemID:   id,
				State:    s,
				Priority: params.NewItemPriority,
			})
			continue
		}

		overdue := DaysBetween(*s.NextReviewAt, asOf)
		if overdue < 0 {
			continue
		}

		items = append(items, DueItem{
			ItemID:      id,
			State:       s,
			Priority:    priority(s, overdue, params),
			DaysOverdue: overdue,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].ItemID < items[j].ItemID
	})

	return items
}

// NextQuestions returns the first limit entries of DueSet. A limit <= 0 returns all of them.
func NextQuestions(states domain.Collection, asOf time.Time, limit int, params *Params) []DueItem {
	items := DueSet(states, asOf, params)
	if limit > 0 && limit < len(items) {
		return items[:limit]
	}
	return items
}

func priority(s *domain.ReviewState, daysOverdue int, params *Params) float64 {
	overdueScore := float64(daysOverdue) * params.OverdueDayWeight
	difficultyScore := (params.DefaultEaseFactor - s.EaseFactor) * params.DifficultyWeight
	errorScore := s.ErrorRate() * params.ErrorRateWeight

	return math.Max(0, overdueScore+difficultyScore+errorScore)
}
