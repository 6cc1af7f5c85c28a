// Package catalog defines the product catalog model and the loaders that
// supply the full, unfiltered item set to the catalog cache.
package catalog

import "time"

// Item is a single catalog product. ID is the identity; uniqueness within a
// snapshot is assumed, not enforced.
type Item struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Category    string  `json:"category,omitempty"`
}

// Snapshot is an immutable, ordered view of the full catalog.
// A refresh produces a new Snapshot; existing ones are never edited.
type Snapshot struct {
	items     []Item
	createdAt time.Time
}

// NewSnapshot copies items into a new Snapshot stamped with createdAt.
func NewSnapshot(items []Item, createdAt time.Time) *Snapshot {
	cp := make([]Item, len(items))
	copy(cp, items)
	return &Snapshot{items: cp, createdAt: createdAt}
}

// Items returns the snapshot's items. Callers must treat the slice as read-only.
func (s *Snapshot) Items() []Item {
	return s.items
}

// Len returns the number of items in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.items)
}

// CreatedAt returns when the snapshot was built.
func (s *Snapshot) CreatedAt() time.Time {
	return s.createdAt
}
