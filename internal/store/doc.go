// Package store defines the persistence contracts for review states.
//
// ReviewStateStore is the per-item atomic contract used by the progress
// tracker: Update runs a read-modify-write for one (learner, item) pair so that
// concurrent grades on different items never lose updates. CollectionStore is
// the whole-collection Load/Save contract for backends that keep one document
// per learner. Backends live under internal/platform.
package store
