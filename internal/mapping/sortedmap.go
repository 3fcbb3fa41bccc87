package mapping

import "slices"

// SortedMap is a sparse map from position to value that keeps its keys
// sorted, so the last key is always known.
type SortedMap struct {
	keys   []int
	values map[int]any
}

// NewSortedMap returns an empty map.
func NewSortedMap() *SortedMap {
	return &SortedMap{values: make(map[int]any)}
}

// Get returns the value at position i.
func (m *SortedMap) Get(i int) (any, bool) {
	v, ok := m.values[i]
	return v, ok
}

// Put stores v at i and returns the value it replaced.
func (m *SortedMap) Put(i int, v any) (any, bool) {
	prev, had := m.values[i]
	if !had {
		at, _ := slices.BinarySearch(m.keys, i)
		m.keys = slices.Insert(m.keys, at, i)
	}
	m.values[i] = v
	return prev, had
}

// Remove deletes position i.
func (m *SortedMap) Remove(i int) {
	if _, ok := m.values[i]; !ok {
		return
	}
	delete(m.values, i)
	if at, found := slices.BinarySearch(m.keys, i); found {
		m.keys = slices.Delete(m.keys, at, at+1)
	}
}

// Len returns the number of stored positions.
func (m *SortedMap) Len() int {
	return len(m.keys)
}

// LastKey returns the highest stored position.
func (m *SortedMap) LastKey() (int, bool) {
	if len(m.keys) == 0 {
		return 0, false
	}
	return m.keys[len(m.keys)-1], true
}

// Size is the caller-visible element count: 0 when empty, else lastKey + 1.
func (m *SortedMap) Size() int {
	last, ok := m.LastKey()
	if !ok {
		return 0
	}
	return last + 1
}

// Keys returns the stored positions in ascending order.
func (m *SortedMap) Keys() []int {
	return slices.Clone(m.keys)
}
