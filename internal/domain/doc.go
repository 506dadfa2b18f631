// Package domain contains the core business entities of the scheduler: the
// persisted ReviewState, the bounded PerformanceGrade accepted at the boundary,
// and the derived MasteryState classification.
package domain
