package mapping

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// memSlots is a map-backed Slots used to exercise the encodings directly.
type memSlots struct {
	slots    map[types.FeatureKey]any
	elements map[types.ManyFeatureKey]any
	writes   int
}

func newMemSlots() *memSlots {
	return &memSlots{
		slots:    make(map[types.FeatureKey]any),
		elements: make(map[types.ManyFeatureKey]any),
	}
}

func (m *memSlots) Slot(key types.FeatureKey) (any, bool, error) {
	v, ok := m.slots[key]
	return v, ok, nil
}

func (m *memSlots) SetSlot(key types.FeatureKey, value any) error {
	m.writes++
	m.slots[key] = value
	return nil
}

func (m *memSlots) DeleteSlot(key types.FeatureKey) error {
	delete(m.slots, key)
	return nil
}

func (m *memSlots) Element(key types.ManyFeatureKey) (any, bool, error) {
	v, ok := m.elements[key]
	return v, ok, nil
}

func (m *memSlots) SetElement(key types.ManyFeatureKey, value any) error {
	m.elements[key] = value
	return nil
}

func (m *memSlots) DeleteElement(key types.ManyFeatureKey) error {
	delete(m.elements, key)
	return nil
}

var names = types.KeyOf("id1", "names")

func eachMapper(t *testing.T, fn func(t *testing.T, mapper ManyValueMapper, s *memSlots)) {
	for _, variant := range Variants {
		t.Run(variant, func(t *testing.T) {
			mapper, err := ForVariant(variant)
			require.NoError(t, err)
			require.Equal(t, variant, mapper.Variant())
			fn(t, mapper, newMemSlots())
		})
	}
}

func TestForVariant(t *testing.T) {
	m, err := ForVariant("")
	require.NoError(t, err)
	assert.Equal(t, types.MappingMaps, m.Variant())

	_, err = ForVariant(types.MappingNative)
	assert.True(t, errors.Is(err, types.ErrMappingUnknown))
}

func TestAppendRemoveScenario(t *testing.T) {
	eachMapper(t, func(t *testing.T, mapper ManyValueMapper, s *memSlots) {
		for i, v := range []string{"a", "b", "c"} {
			require.NoError(t, mapper.AddValue(s, names.At(i), v))
		}

		prev, ok, err := mapper.RemoveValue(s, names.At(1))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "b", prev)

		all, err := mapper.AllValuesOf(s, names)
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "c"}, all)

		size, err := mapper.SizeOfValue(s, names)
		require.NoError(t, err)
		assert.Equal(t, 2, size)
	})
}

func TestShiftOnInsert(t *testing.T) {
	eachMapper(t, func(t *testing.T, mapper ManyValueMapper, s *memSlots) {
		for i, v := range []string{"a", "b", "c", "d"} {
			require.NoError(t, mapper.AddValue(s, names.At(i), v))
		}
		require.NoError(t, mapper.AddValue(s, names.At(1), "x"))

		all, err := mapper.AllValuesOf(s, names)
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "x", "b", "c", "d"}, all)

		require.NoError(t, mapper.AddValue(s, names.At(0), "first"))
		require.NoError(t, mapper.AddValue(s, names.At(6), "last"))
		all, err = mapper.AllValuesOf(s, names)
		require.NoError(t, err)
		assert.Equal(t, []any{"first", "a", "x", "b", "c", "d", "last"}, all)
	})
}

func TestAddOutOfRange(t *testing.T) {
	eachMapper(t, func(t *testing.T, mapper ManyValueMapper, s *memSlots) {
		err := mapper.AddValue(s, names.At(1), "gap")
		assert.True(t, errors.Is(err, types.ErrIndexOutOfRange))

		size, err := mapper.SizeOfValue(s, names)
		require.NoError(t, err)
		assert.Zero(t, size)
	})
}

func TestSetValueAt(t *testing.T) {
	eachMapper(t, func(t *testing.T, mapper ManyValueMapper, s *memSlots) {
		_, err := mapper.SetValueAt(s, names.At(0), "x")
		assert.True(t, errors.Is(err, types.ErrNotFound), "empty slot: %v", err)

		require.NoError(t, mapper.AddValue(s, names.At(0), "a"))
		_, err = mapper.SetValueAt(s, names.At(1), "x")
		assert.True(t, errors.Is(err, types.ErrIndexOutOfRange), "past end: %v", err)

		prev, err := mapper.SetValueAt(s, names.At(0), "z")
		require.NoError(t, err)
		assert.Equal(t, "a", prev)

		v, ok, err := mapper.ValueAt(s, names.At(0))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "z", v)
	})
}

func TestReadsPastEnd(t *testing.T) {
	eachMapper(t, func(t *testing.T, mapper ManyValueMapper, s *memSlots) {
		_, ok, err := mapper.ValueAt(s, names.At(0))
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, mapper.AddValue(s, names.At(0), "a"))
		_, ok, err = mapper.ValueAt(s, names.At(1))
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = mapper.RemoveValue(s, names.At(5))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRemovingLastElementDropsSlot(t *testing.T) {
	eachMapper(t, func(t *testing.T, mapper ManyValueMapper, s *memSlots) {
		require.NoError(t, mapper.AddValue(s, names.At(0), "only"))
		_, ok, err := mapper.RemoveValue(s, names.At(0))
		require.NoError(t, err)
		require.True(t, ok)

		assert.Empty(t, s.slots, "emptied slot must be removed, not stored empty")
		assert.Empty(t, s.elements)
	})
}

func TestRemoveAllValues(t *testing.T) {
	eachMapper(t, func(t *testing.T, mapper ManyValueMapper, s *memSlots) {
		for i := range 5 {
			require.NoError(t, mapper.AddValue(s, names.At(i), i))
		}
		require.NoError(t, mapper.RemoveAllValues(s, names))

		size, err := mapper.SizeOfValue(s, names)
		require.NoError(t, err)
		assert.Zero(t, size)
		assert.Empty(t, s.slots)
		assert.Empty(t, s.elements)
	})
}

func TestSlotHoldingWrongShape(t *testing.T) {
	eachMapper(t, func(t *testing.T, mapper ManyValueMapper, s *memSlots) {
		s.slots[names] = struct{}{}
		_, err := mapper.SizeOfValue(s, names)
		assert.True(t, errors.Is(err, types.ErrInvalidData))
	})
}

// TestContiguityUnderRandomEdits compares every encoding against a plain
// slice model over random insert/remove sequences.
func TestContiguityUnderRandomEdits(t *testing.T) {
	eachMapper(t, func(t *testing.T, mapper ManyValueMapper, s *memSlots) {
		rng := rand.New(rand.NewPCG(42, 7))
		var model []any

		for step := range 500 {
			if len(model) > 0 && rng.IntN(3) == 0 {
				p := rng.IntN(len(model))
				prev, ok, err := mapper.RemoveValue(s, names.At(p))
				require.NoError(t, err)
				require.True(t, ok)
				require.Equal(t, model[p], prev)
				model = append(model[:p], model[p+1:]...)
			} else {
				p := rng.IntN(len(model) + 1)
				require.NoError(t, mapper.AddValue(s, names.At(p), step))
				model = append(model[:p], append([]any{step}, model[p:]...)...)
			}

			size, err := mapper.SizeOfValue(s, names)
			require.NoError(t, err)
			require.Equal(t, len(model), size, "step %d", step)
		}

		for i, want := range model {
			got, ok, err := mapper.ValueAt(s, names.At(i))
			require.NoError(t, err)
			require.True(t, ok, "gap at %d", i)
			require.Equal(t, want, got)
		}
	})
}

func TestSortedMap(t *testing.T) {
	m := NewSortedMap()
	assert.Zero(t, m.Size())
	_, ok := m.LastKey()
	assert.False(t, ok)

	m.Put(3, "d")
	m.Put(0, "a")
	prev, had := m.Put(3, "D")
	assert.True(t, had)
	assert.Equal(t, "d", prev)

	assert.Equal(t, []int{0, 3}, m.Keys())
	assert.Equal(t, 4, m.Size())
	assert.Equal(t, 2, m.Len())

	m.Remove(3)
	m.Remove(99)
	assert.Equal(t, 1, m.Size())
	v, ok := m.Get(0)
	assert.True(t, ok)
	assert.Equal(t, "a", v)
}
