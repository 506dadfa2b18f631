package domain

import (
	"fmt"
	"sort"
)

// Collection is one learner's snapshot of review states keyed by item ID.
type Collection map[string]*ReviewState

// Clone returns a deep copy of the collection.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for id, s := range c {
		out[id] = s.Clone()
	}
	return out
}

// WithCatalog returns a copy of the collection in which every catalog item
// without a stored state appears as a never-reviewed placeholder.
func (c Collection) WithCatalog(itemIDs []string) Collection {
	out := make(Collection, len(c)+len(itemIDs))
	for id, s := range c {
		out[id] = s
	}
	for _, id := range itemIDs {
		if id == "" {
			continue
		}
		if _, ok := out[id]; !ok {
			out[id] = NewItemState(id)
		}
	}
	return out
}

// ItemIDs returns the collection's item IDs in ascending order.
func (c Collection) ItemIDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate validates every state and checks that map keys match item IDs.
func (c Collection) Validate() error {
	for _, id := range c.ItemIDs() {
		s := c[id]
		if s == nil {
			return NewValidationError(id, ErrEmptyItemID)
		}
		if s.ItemID != id {
			return NewValidationError("itemId", fmt.Errorf("%w: key %q holds %q", ErrItemIDMismatch, id, s.ItemID))
		}
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}
