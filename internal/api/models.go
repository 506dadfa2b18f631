package api

import (
	"github.com/phrazzld/scry-review/internal/domain"
	"github.com/phrazzld/scry-review/internal/domain/srs"
)

// RecordGradeRequest is the body of POST .../items/{itemID}/grades.
type RecordGradeRequest struct {
	// Grade is a pointer so a missing grade is distinguishable from 0 (fail).
	Grade *int `json:"grade" validate:"required,min=0,max=4"`
	// Difficulty is optional: easy, medium or hard.
	Difficulty string `json:"difficulty,omitempty" validate:"max=16"`
}

// GradeResponse is the stored review state plus the values a session
// controller needs to decide what to ask next.
type GradeResponse struct {
	*domain.ReviewState
	DueToday bool                `json:"dueToday"`
	Mastery  domain.MasteryState `json:"mastery"`
}

// QueueResponse lists due items in the order they should be asked.
type QueueResponse struct {
	Items []srs.DueItem `json:"items"`
	Count int           `json:"count"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}
