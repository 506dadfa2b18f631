package progress

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// reviewsTotal counts recorded grades.
	reviewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "srs_reviews_total",
			Help: "Total number of recorded reviews by grade and self-reported difficulty",
		},
		[]string{"grade", "difficulty"},
	)

	// storeErrorsTotal counts store failures seen by the tracker.
	storeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "srs_store_errors_total",
			Help: "Total number of review state store failures by operation",
		},
		[]string{"operation"},
	)

	// dataLossTotal counts collections discarded because they were corrupt.
	dataLossTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "srs_data_loss_total",
			Help: "Total number of corrupt review state collections replaced by an empty one",
		},
	)
)
