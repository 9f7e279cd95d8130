package market

import (
	"slices"

	"github.com/bobmcallan/coinboard/internal/models"
)

// MaxSelection caps the comparison selection.
const MaxSelection = 4

// SelectionSet is the ordered, duplicate-free set of assets under comparison.
// It is not safe for concurrent use; Comparison guards it.
type SelectionSet struct {
	items []models.Asset
}

// Len returns the number of selected assets.
func (s *SelectionSet) Len() int { return len(s.items) }

// Full reports whether the set is at MaxSelection.
func (s *SelectionSet) Full() bool { return len(s.items) >= MaxSelection }

// Contains reports whether id is selected.
func (s *SelectionSet) Contains(id string) bool {
	return slices.ContainsFunc(s.items, func(a models.Asset) bool { return a.ID == id })
}

// Add appends a and reports whether it was added. Adding a duplicate or
// adding to a full set is a no-op.
func (s *SelectionSet) Add(a models.Asset) bool {
	if s.Full() || s.Contains(a.ID) {
		return false
	}
	s.items = append(s.items, a)
	return true
}

// Remove drops id and reports whether it was present.
func (s *SelectionSet) Remove(id string) bool {
	n := len(s.items)
	s.items = slices.DeleteFunc(s.items, func(a models.Asset) bool { return a.ID == id })
	return len(s.items) != n
}

// IDs returns the selected ids in order.
func (s *SelectionSet) IDs() []string {
	ids := make([]string, len(s.items))
	for i, a := range s.items {
		ids[i] = a.ID
	}
	return ids
}

// Items returns a copy of the selected assets in order.
func (s *SelectionSet) Items() []models.Asset {
	return append([]models.Asset{}, s.items...)
}
