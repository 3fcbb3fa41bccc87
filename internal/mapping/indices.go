package mapping

import (
	"fmt"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Indices stores every element under its own ManyFeatureKey and the slot
// size under the unpositioned key.
type Indices struct{}

func (Indices) Variant() string { return types.MappingIndices }

func (Indices) size(s Slots, key types.FeatureKey) (int, error) {
	v, ok, err := s.Slot(key)
	if err != nil || !ok {
		return 0, err
	}
	n, isInt := v.(int)
	if !isInt {
		return 0, slotHolds(key, v)
	}
	return n, nil
}

func (ii Indices) ValueAt(s Slots, key types.ManyFeatureKey) (any, bool, error) {
	if err := key.CheckPosition(); err != nil {
		return nil, false, err
	}
	size, err := ii.size(s, key.WithoutPosition())
	if err != nil || key.Position >= size {
		return nil, false, err
	}
	return s.Element(key)
}

func (ii Indices) AllValuesOf(s Slots, key types.FeatureKey) ([]any, error) {
	size, err := ii.size(s, key)
	if err != nil || size == 0 {
		return nil, err
	}
	values := make([]any, 0, size)
	for i := range size {
		v, _, err := s.Element(key.At(i))
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func (ii Indices) SetValueAt(s Slots, key types.ManyFeatureKey, value any) (any, error) {
	if err := key.CheckPosition(); err != nil {
		return nil, err
	}
	size, err := ii.size(s, key.WithoutPosition())
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, fmt.Errorf("%s: %w", key, types.ErrNotFound)
	}
	if key.Position >= size {
		return nil, fmt.Errorf("%s (size %d): %w", key, size, types.ErrIndexOutOfRange)
	}
	prev, _, err := s.Element(key)
	if err != nil {
		return nil, err
	}
	if err := s.SetElement(key, value); err != nil {
		return nil, err
	}
	return prev, nil
}

func (ii Indices) AddValue(s Slots, key types.ManyFeatureKey, value any) error {
	if err := key.CheckPosition(); err != nil {
		return err
	}
	slot := key.WithoutPosition()
	size, err := ii.size(s, slot)
	if err != nil {
		return err
	}
	if key.Position > size {
		return fmt.Errorf("%s (size %d): %w", key, size, types.ErrIndexOutOfRange)
	}
	for i := size; i > key.Position; i-- {
		if err := moveElement(s, slot.At(i-1), slot.At(i)); err != nil {
			return err
		}
	}
	if err := s.SetElement(key, value); err != nil {
		return err
	}
	return s.SetSlot(slot, size+1)
}

func (ii Indices) RemoveValue(s Slots, key types.ManyFeatureKey) (any, bool, error) {
	if err := key.CheckPosition(); err != nil {
		return nil, false, err
	}
	slot := key.WithoutPosition()
	size, err := ii.size(s, slot)
	if err != nil || key.Position >= size {
		return nil, false, err
	}
	prev, _, err := s.Element(key)
	if err != nil {
		return nil, false, err
	}
	for i := key.Position; i < size-1; i++ {
		if err := moveElement(s, slot.At(i+1), slot.At(i)); err != nil {
			return nil, false, err
		}
	}
	if err := s.DeleteElement(slot.At(size - 1)); err != nil {
		return nil, false, err
	}
	if size == 1 {
		err = s.DeleteSlot(slot)
	} else {
		err = s.SetSlot(slot, size-1)
	}
	if err != nil {
		return nil, false, err
	}
	return prev, true, nil
}

func (ii Indices) SizeOfValue(s Slots, key types.FeatureKey) (int, error) {
	return ii.size(s, key)
}

func (ii Indices) RemoveAllValues(s Slots, key types.FeatureKey) error {
	size, err := ii.size(s, key)
	if err != nil {
		return err
	}
	for i := range size {
		if err := s.DeleteElement(key.At(i)); err != nil {
			return err
		}
	}
	return s.DeleteSlot(key)
}

func moveElement(s Slots, from, to types.ManyFeatureKey) error {
	v, ok, err := s.Element(from)
	if err != nil || !ok {
		return err
	}
	return s.SetElement(to, v)
}
