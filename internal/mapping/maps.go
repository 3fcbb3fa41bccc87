package mapping

import (
	"fmt"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Maps stores a multi-valued slot as one *SortedMap under the unpositioned
// key, loaded and saved as a whole.
type Maps struct{}

func (Maps) Variant() string { return types.MappingMaps }

func (Maps) load(s Slots, key types.FeatureKey) (*SortedMap, bool, error) {
	v, ok, err := s.Slot(key)
	if err != nil || !ok {
		return nil, false, err
	}
	m, isMap := v.(*SortedMap)
	if !isMap {
		return nil, false, slotHolds(key, v)
	}
	return m, true, nil
}

func (mm Maps) ValueAt(s Slots, key types.ManyFeatureKey) (any, bool, error) {
	if err := key.CheckPosition(); err != nil {
		return nil, false, err
	}
	m, ok, err := mm.load(s, key.WithoutPosition())
	if err != nil || !ok {
		return nil, false, err
	}
	if key.Position >= m.Size() {
		return nil, false, nil
	}
	v, ok := m.Get(key.Position)
	return v, ok, nil
}

func (mm Maps) AllValuesOf(s Slots, key types.FeatureKey) ([]any, error) {
	m, ok, err := mm.load(s, key)
	if err != nil || !ok {
		return nil, err
	}
	size := m.Size()
	values := make([]any, 0, size)
	for i := range size {
		v, _ := m.Get(i)
		values = append(values, v)
	}
	return values, nil
}

func (mm Maps) SetValueAt(s Slots, key types.ManyFeatureKey, value any) (any, error) {
	if err := key.CheckPosition(); err != nil {
		return nil, err
	}
	m, ok, err := mm.load(s, key.WithoutPosition())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, types.ErrNotFound)
	}
	if key.Position >= m.Size() {
		return nil, fmt.Errorf("%s (size %d): %w", key, m.Size(), types.ErrIndexOutOfRange)
	}
	prev, _ := m.Put(key.Position, value)
	if err := s.SetSlot(key.WithoutPosition(), m); err != nil {
		return nil, err
	}
	return prev, nil
}

// AddValue shifts every entry at or above the target position up by one,
// walking down from the current size so no entry is overwritten before it
// has moved, then inserts value.
func (mm Maps) AddValue(s Slots, key types.ManyFeatureKey, value any) error {
	if err := key.CheckPosition(); err != nil {
		return err
	}
	m, ok, err := mm.load(s, key.WithoutPosition())
	if err != nil {
		return err
	}
	if !ok {
		m = NewSortedMap()
	}
	size := m.Size()
	if key.Position > size {
		return fmt.Errorf("%s (size %d): %w", key, size, types.ErrIndexOutOfRange)
	}
	for i := size; i > key.Position; i-- {
		if moving, ok := m.Get(i - 1); ok {
			m.Put(i, moving)
		}
	}
	m.Put(key.Position, value)
	return s.SetSlot(key.WithoutPosition(), m)
}

// RemoveValue shifts every entry above the target position down by one,
// walking up, then drops the duplicated last entry. An emptied slot is
// deleted rather than stored as an empty map.
func (mm Maps) RemoveValue(s Slots, key types.ManyFeatureKey) (any, bool, error) {
	if err := key.CheckPosition(); err != nil {
		return nil, false, err
	}
	m, ok, err := mm.load(s, key.WithoutPosition())
	if err != nil || !ok {
		return nil, false, err
	}
	size := m.Size()
	if key.Position >= size {
		return nil, false, nil
	}
	prev, _ := m.Get(key.Position)
	for i := key.Position; i < size-1; i++ {
		if moving, ok := m.Get(i + 1); ok {
			m.Put(i, moving)
		}
	}
	m.Remove(size - 1)

	if m.Len() == 0 {
		err = s.DeleteSlot(key.WithoutPosition())
	} else {
		err = s.SetSlot(key.WithoutPosition(), m)
	}
	if err != nil {
		return nil, false, err
	}
	return prev, true, nil
}

func (mm Maps) SizeOfValue(s Slots, key types.FeatureKey) (int, error) {
	m, ok, err := mm.load(s, key)
	if err != nil || !ok {
		return 0, err
	}
	return m.Size(), nil
}

func (Maps) RemoveAllValues(s Slots, key types.FeatureKey) error {
	return s.DeleteSlot(key)
}
