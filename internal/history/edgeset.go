// Package history records annotation edits as snapshots of the edge vertex
// set and moves between them with undo, redo and timeline jumps.
package history

import (
	"maps"
	"slices"
)

// EdgeSet is a set of edge vertex indices.
type EdgeSet map[int]struct{}

// NewEdgeSet creates a set holding the given vertices.
func NewEdgeSet(vertices ...int) EdgeSet {
	s := make(EdgeSet, len(vertices))
	for _, v := range vertices {
		s[v] = struct{}{}
	}
	return s
}

// Clone returns an independent copy. Cloning a nil set yields an empty one.
func (s EdgeSet) Clone() EdgeSet {
	if s == nil {
		return EdgeSet{}
	}
	return maps.Clone(s)
}

// Equal reports whether both sets hold the same vertices.
func (s EdgeSet) Equal(other EdgeSet) bool {
	if len(s) != len(other) {
		return false
	}
	for v := range s {
		if _, ok := other[v]; !ok {
			return false
		}
	}
	return true
}

// Has reports whether v is in the set.
func (s EdgeSet) Has(v int) bool {
	_, ok := s[v]
	return ok
}

// Add inserts v.
func (s EdgeSet) Add(v int) { s[v] = struct{}{} }

// Remove deletes v.
func (s EdgeSet) Remove(v int) { delete(s, v) }

// Len returns the number of vertices in the set.
func (s EdgeSet) Len() int { return len(s) }

// Sorted returns the vertices in ascending order.
func (s EdgeSet) Sorted() []int {
	return slices.Sorted(maps.Keys(s))
}
