package mapping

import (
	"fmt"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Slots is the flat key-to-value surface of a substrate. Slot values are
// whatever the encoding stores: a plain value, a *SortedMap, a []any or an
// int size. Element values are plain values.
type Slots interface {
	Slot(key types.FeatureKey) (any, bool, error)
	SetSlot(key types.FeatureKey, value any) error
	DeleteSlot(key types.FeatureKey) error
	Element(key types.ManyFeatureKey) (any, bool, error)
	SetElement(key types.ManyFeatureKey, value any) error
	DeleteElement(key types.ManyFeatureKey) error
}

// ManyValueMapper implements the multi-valued slot operations over Slots.
// Callers have already checked that the owner exists.
type ManyValueMapper interface {
	// Variant returns the encoding name recorded in backend metadata.
	Variant() string

	ValueAt(s Slots, key types.ManyFeatureKey) (any, bool, error)
	AllValuesOf(s Slots, key types.FeatureKey) ([]any, error)
	SetValueAt(s Slots, key types.ManyFeatureKey, value any) (any, error)
	AddValue(s Slots, key types.ManyFeatureKey, value any) error
	RemoveValue(s Slots, key types.ManyFeatureKey) (any, bool, error)
	SizeOfValue(s Slots, key types.FeatureKey) (int, error)
	RemoveAllValues(s Slots, key types.FeatureKey) error
}

// ForVariant returns the mapper for an encoding name. The empty name selects
// maps.
func ForVariant(name string) (ManyValueMapper, error) {
	switch name {
	case "", types.MappingMaps:
		return Maps{}, nil
	case types.MappingLists:
		return Lists{}, nil
	case types.MappingIndices:
		return Indices{}, nil
	default:
		return nil, fmt.Errorf("%w: %q has no key-value encoding", types.ErrMappingUnknown, name)
	}
}

// Variants lists the encodings ForVariant accepts.
var Variants = []string{types.MappingMaps, types.MappingLists, types.MappingIndices}

func slotHolds(key types.FeatureKey, v any) error {
	return fmt.Errorf("%s holds %T: %w", key, v, types.ErrInvalidData)
}
