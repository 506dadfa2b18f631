package store

import (
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
)

// LearnerLockStripes is the number of mutexes in a LearnerLocks.
const LearnerLockStripes = 256

// LearnerLocks serializes work per learner inside one process using a fixed
// set of mutexes. Distinct learners may share a stripe; memory stays constant
// no matter how many learners are seen. Callers must not hold two learner
// locks at once.
//
// The zero value is ready to use.
type LearnerLocks struct {
	stripes [LearnerLockStripes]sync.Mutex
}

// Lock acquires the learner's stripe and returns the matching unlock func.
func (l *LearnerLocks) Lock(learnerID uuid.UUID) func() {
	mu := &l.stripes[stripeIndex(learnerID)]
	mu.Lock()
	return mu.Unlock
}

func stripeIndex(learnerID uuid.UUID) int {
	h := fnv.New32a()
	_, _ = h.Write(learnerID[:])
	return int(h.Sum32() % LearnerLockStripes)
}
