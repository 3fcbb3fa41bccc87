package mapping

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// slotCore is a minimal Core over memSlots and the maps encoding.
type slotCore struct {
	Extended
	s          *memSlots
	containers map[types.ID]types.ContainerDescriptor
}

func newSlotCore() *slotCore {
	c := &slotCore{s: newMemSlots(), containers: make(map[types.ID]types.ContainerDescriptor)}
	c.Extended = Extend(c)
	return c
}

func (c *slotCore) ContainerFor(id types.ID, container types.ContainerDescriptor) error {
	c.containers[id] = container
	return nil
}

func (c *slotCore) ValueOf(key types.FeatureKey) (any, bool, error) { return c.s.Slot(key) }

func (c *slotCore) ValueFor(key types.FeatureKey, value any) (any, bool, error) {
	prev, ok, _ := c.s.Slot(key)
	return prev, ok, c.s.SetSlot(key, value)
}

func (c *slotCore) UnsetValue(key types.FeatureKey) error { return c.s.DeleteSlot(key) }

func (c *slotCore) HasValue(key types.FeatureKey) (bool, error) {
	_, ok, err := c.s.Slot(key)
	return ok, err
}

func (c *slotCore) ValueAt(key types.ManyFeatureKey) (any, bool, error) {
	return Maps{}.ValueAt(c.s, key)
}

func (c *slotCore) AllValuesOf(key types.FeatureKey) ([]any, error) {
	return Maps{}.AllValuesOf(c.s, key)
}

func (c *slotCore) AddValue(key types.ManyFeatureKey, value any) error {
	return Maps{}.AddValue(c.s, key, value)
}

func (c *slotCore) RemoveValue(key types.ManyFeatureKey) (any, bool, error) {
	return Maps{}.RemoveValue(c.s, key)
}

func (c *slotCore) SizeOfValue(key types.FeatureKey) (int, error) {
	return Maps{}.SizeOfValue(c.s, key)
}

func TestExtendedAppend(t *testing.T) {
	c := newSlotCore()

	pos, err := c.AppendValue(names, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, pos)

	pos, err = c.AppendAllValues(names, []any{"b", "c", "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	first, ok, err := c.IndexOfValue(names, "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, first)

	last, ok, err := c.LastIndexOfValue(names, "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, last)

	_, ok, err = c.IndexOfValue(names, "zzz")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExtendedMove(t *testing.T) {
	c := newSlotCore()
	_, err := c.AppendAllValues(names, []any{"a", "b", "c", "d"})
	require.NoError(t, err)

	moved, ok, err := c.MoveValue(names.At(0), names.At(3))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", moved)

	all, err := c.AllValuesOf(names)
	require.NoError(t, err)
	assert.Equal(t, []any{"b", "c", "d", "a"}, all)

	_, ok, err = c.MoveValue(names.At(10), names.At(0))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExtendedMoveRejectsBadTarget(t *testing.T) {
	c := newSlotCore()
	_, err := c.AppendAllValues(names, []any{"a", "b", "c"})
	require.NoError(t, err)

	_, _, err = c.MoveValue(names.At(0), names.At(3))
	assert.ErrorIs(t, err, types.ErrIndexOutOfRange)

	_, _, err = c.MoveValue(names.At(0), types.ManyFeatureKey{FeatureKey: names, Position: -1})
	assert.ErrorIs(t, err, types.ErrIndexOutOfRange)

	_, _, err = c.MoveValue(types.ManyFeatureKey{FeatureKey: names, Position: -1}, names.At(0))
	assert.ErrorIs(t, err, types.ErrIndexOutOfRange)

	all, err := c.AllValuesOf(names)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, all)
}

func TestExtendedMoveAcrossSlots(t *testing.T) {
	c := newSlotCore()
	other := types.KeyOf("id1", "others")
	_, err := c.AppendAllValues(names, []any{"a", "b"})
	require.NoError(t, err)
	_, err = c.AppendValue(other, "x")
	require.NoError(t, err)

	_, _, err = c.MoveValue(names.At(0), other.At(2))
	assert.ErrorIs(t, err, types.ErrIndexOutOfRange)

	moved, ok, err := c.MoveValue(names.At(0), other.At(1))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", moved)

	all, err := c.AllValuesOf(other)
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "a"}, all)
}

// failingAdd rejects one AddValue call at a chosen key.
type failingAdd struct {
	*slotCore
	fail types.ManyFeatureKey
}

func (f *failingAdd) AddValue(key types.ManyFeatureKey, value any) error {
	if key == f.fail {
		f.fail = types.ManyFeatureKey{Position: -1}
		return errors.New("disk full")
	}
	return f.slotCore.AddValue(key, value)
}

func TestExtendedMoveRestoresOnFailedInsert(t *testing.T) {
	c := &failingAdd{slotCore: newSlotCore(), fail: names.At(2)}
	_, err := c.AppendAllValues(names, []any{"a", "b", "c"})
	require.NoError(t, err)

	_, ok, err := Extend(c).MoveValue(names.At(0), names.At(2))
	assert.EqualError(t, err, "disk full")
	assert.False(t, ok)

	all, err := c.AllValuesOf(names)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, all)
}

func TestExtendedReferences(t *testing.T) {
	c := newSlotCore()
	parent := types.KeyOf("parent", "child")

	_, ok, err := c.ReferenceFor(parent, "kid1", true)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, types.ContainerDescriptor{ID: "parent", Name: "child"}, c.containers["kid1"])

	prev, ok, err := c.ReferenceFor(parent, "kid2", false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.ID("kid1"), prev)
	assert.NotContains(t, c.containers, types.ID("kid2"))

	kids := types.KeyOf("parent", "kids")
	require.NoError(t, c.AddReference(kids.At(0), "k1", true))
	require.NoError(t, c.AddReference(kids.At(0), "k0", true))
	refs, err := c.AllReferencesOf(kids)
	require.NoError(t, err)
	assert.Equal(t, []types.ID{"k0", "k1"}, refs)
	assert.Equal(t, "kids", c.containers["k0"].Name)

	ref, ok, err := c.ReferenceAt(kids.At(1))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.ID("k1"), ref)

	has, err := c.HasReference(parent)
	require.NoError(t, err)
	assert.True(t, has)
	require.NoError(t, c.UnsetReference(parent))
	has, err = c.HasReference(parent)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestExtendedReferenceOfAttribute(t *testing.T) {
	c := newSlotCore()
	key := types.KeyOf("o", "age")
	_, _, err := c.ValueFor(key, 30)
	require.NoError(t, err)

	_, _, err = c.ReferenceOf(key)
	assert.True(t, errors.Is(err, types.ErrInvalidData))
}

func TestEqual(t *testing.T) {
	now := time.Now()
	assert.True(t, Equal([]byte("x"), []byte("x")))
	assert.False(t, Equal([]byte("x"), "x"))
	assert.True(t, Equal(now, now.Round(0)))
	assert.True(t, Equal(types.ID("a"), types.ID("a")))
	assert.False(t, Equal(types.ID("a"), "a"))
	assert.False(t, Equal(30, int64(30)))
}
