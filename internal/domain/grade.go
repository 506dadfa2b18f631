package domain

import (
	"fmt"
	"strings"
)

// PerformanceGrade rates recall quality for a single review, from 0 (fail) to 4 (very easy).
type PerformanceGrade int

// Performance grade values.
const (
	GradeFail     PerformanceGrade = 0
	GradeHard     PerformanceGrade = 1
	GradeNormal   PerformanceGrade = 2
	GradeEasy     PerformanceGrade = 3
	GradeVeryEasy PerformanceGrade = 4
)

// PassingGrade is the lowest grade counted as a successful recall.
const PassingGrade = GradeNormal

var gradeNames = [...]string{
	GradeFail:     "fail",
	GradeHard:     "hard",
	GradeNormal:   "normal",
	GradeEasy:     "easy",
	GradeVeryEasy: "very_easy",
}

// ParseGrade converts a raw integer into a PerformanceGrade.
// Values outside 0..4 are rejected, never clamped.
func ParseGrade(v int) (PerformanceGrade, error) {
	g := PerformanceGrade(v)
	if err := g.Validate(); err != nil {
		return 0, err
	}
	return g, nil
}

// IsValid reports whether g is within 0..4.
func (g PerformanceGrade) IsValid() bool {
	return g >= GradeFail && g <= GradeVeryEasy
}

// Validate returns a ValidationError when g is out of range.
func (g PerformanceGrade) Validate() error {
	if !g.IsValid() {
		return NewValidationError("grade", fmt.Errorf("%w: %d", ErrInvalidGrade, int(g)))
	}
	return nil
}

// IsPassing reports whether the grade counts as a correct answer (grade >= 2).
func (g PerformanceGrade) IsPassing() bool {
	return g >= PassingGrade
}

// String returns the grade name, or "PerformanceGrade(n)" for invalid values.
func (g PerformanceGrade) String() string {
	if g.IsValid() {
		return gradeNames[g]
	}
	return fmt.Sprintf("PerformanceGrade(%d)", int(g))
}

// Difficulty is the learner's optional self-reported difficulty for a review.
// It is informational only and never affects scheduling.
type Difficulty string

// Difficulty values.
const (
	DifficultyUnspecified Difficulty = ""
	DifficultyEasy        Difficulty = "easy"
	DifficultyMedium      Difficulty = "medium"
	DifficultyHard        Difficulty = "hard"
)

// ParseDifficulty normalizes a difficulty label. An empty string yields DifficultyUnspecified.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DifficultyUnspecified, DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	default:
		return "", NewValidationError("difficulty", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s))
	}
}

// Label returns a non-empty label suitable for logs and metrics.
func (d Difficulty) Label() string {
	if d == DifficultyUnspecified {
		return "unspecified"
	}
	return string(d)
}
