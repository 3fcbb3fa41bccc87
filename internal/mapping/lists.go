package mapping

import (
	"fmt"
	"slices"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Lists stores a multi-valued slot as one dense []any under the unpositioned
// key.
type Lists struct{}

func (Lists) Variant() string { return types.MappingLists }

func (Lists) load(s Slots, key types.FeatureKey) ([]any, bool, error) {
	v, ok, err := s.Slot(key)
	if err != nil || !ok {
		return nil, false, err
	}
	l, isList := v.([]any)
	if !isList {
		return nil, false, slotHolds(key, v)
	}
	return l, true, nil
}

func (ll Lists) ValueAt(s Slots, key types.ManyFeatureKey) (any, bool, error) {
	if err := key.CheckPosition(); err != nil {
		return nil, false, err
	}
	l, _, err := ll.load(s, key.WithoutPosition())
	if err != nil || key.Position >= len(l) {
		return nil, false, err
	}
	return l[key.Position], true, nil
}

func (ll Lists) AllValuesOf(s Slots, key types.FeatureKey) ([]any, error) {
	l, _, err := ll.load(s, key)
	return l, err
}

func (ll Lists) SetValueAt(s Slots, key types.ManyFeatureKey, value any) (any, error) {
	if err := key.CheckPosition(); err != nil {
		return nil, err
	}
	l, ok, err := ll.load(s, key.WithoutPosition())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, types.ErrNotFound)
	}
	if key.Position >= len(l) {
		return nil, fmt.Errorf("%s (size %d): %w", key, len(l), types.ErrIndexOutOfRange)
	}
	prev := l[key.Position]
	l[key.Position] = value
	if err := s.SetSlot(key.WithoutPosition(), l); err != nil {
		return nil, err
	}
	return prev, nil
}

func (ll Lists) AddValue(s Slots, key types.ManyFeatureKey, value any) error {
	if err := key.CheckPosition(); err != nil {
		return err
	}
	l, _, err := ll.load(s, key.WithoutPosition())
	if err != nil {
		return err
	}
	if key.Position > len(l) {
		return fmt.Errorf("%s (size %d): %w", key, len(l), types.ErrIndexOutOfRange)
	}
	return s.SetSlot(key.WithoutPosition(), slices.Insert(l, key.Position, value))
}

func (ll Lists) RemoveValue(s Slots, key types.ManyFeatureKey) (any, bool, error) {
	if err := key.CheckPosition(); err != nil {
		return nil, false, err
	}
	l, _, err := ll.load(s, key.WithoutPosition())
	if err != nil || key.Position >= len(l) {
		return nil, false, err
	}
	prev := l[key.Position]
	l = slices.Delete(l, key.Position, key.Position+1)
	if len(l) == 0 {
		err = s.DeleteSlot(key.WithoutPosition())
	} else {
		err = s.SetSlot(key.WithoutPosition(), l)
	}
	if err != nil {
		return nil, false, err
	}
	return prev, true, nil
}

func (ll Lists) SizeOfValue(s Slots, key types.FeatureKey) (int, error) {
	l, _, err := ll.load(s, key)
	return len(l), err
}

func (Lists) RemoveAllValues(s Slots, key types.FeatureKey) error {
	return s.DeleteSlot(key)
}
