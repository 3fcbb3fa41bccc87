package storetest

import (
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Harness opens stores of one configuration.
type Harness struct {
	// New returns an empty, open store. The suite closes it.
	New func(t *testing.T) types.FeatureStore

	// Reopen closes s and returns a store over the same data. Nil for
	// transient stores.
	Reopen func(t *testing.T, s types.FeatureStore) types.FeatureStore

	// Copy copies from into to. Nil skips the copy test.
	Copy func(from, to types.FeatureStore) error
}

// Run exercises h against the full FeatureStore contract.
func Run(t *testing.T, h Harness) {
	tests := []struct {
		name string
		fn   func(t *testing.T, h Harness)
	}{
		{"CreateAndHas", testCreateAndHas},
		{"UnknownOwner", testUnknownOwner},
		{"SingleValued", testSingleValued},
		{"ValueKinds", testValueKinds},
		{"AppendRemove", testAppendRemove},
		{"ShiftOnInsert", testShiftOnInsert},
		{"Contiguity", testContiguity},
		{"PositionErrors", testPositionErrors},
		{"Search", testSearch},
		{"MoveAndClear", testMoveAndClear},
		{"References", testReferences},
		{"Containers", testContainers},
		{"Metaclasses", testMetaclasses},
		{"Closed", testClosed},
		{"Copy", testCopy},
		{"Reopen", testReopen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, h)
		})
	}
}

func open(t *testing.T, h Harness) types.FeatureStore {
	t.Helper()
	s := h.New(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func create(t *testing.T, s types.FeatureStore, ids ...types.ID) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, s.Create(id))
	}
}

func testCreateAndHas(t *testing.T, h Harness) {
	s := open(t, h)

	ok, err := s.Has("id1")
	require.NoError(t, err)
	assert.False(t, ok)

	create(t, s, "id1")
	ok, err = s.Has("id1")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, s.Create(""), types.ErrInvalidID)
}

func testUnknownOwner(t *testing.T, h Harness) {
	s := open(t, h)
	for _, c := range OwnerCalls(s, "ghost") {
		assert.ErrorIs(t, c.Do(), types.ErrNotFound, c.Name)
	}
}

func testSingleValued(t *testing.T, h Harness) {
	s := open(t, h)
	create(t, s, "id1")
	age := types.KeyOf("id1", "age")

	_, ok, err := s.ValueOf(age)
	require.NoError(t, err)
	assert.False(t, ok, "unset slot")

	prev, ok, err := s.ValueFor(age, 30)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, prev)

	prev, ok, err = s.ValueFor(age, 31)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 30, prev)

	v, ok, err := s.ValueOf(age)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 31, v)

	has, err := s.HasValue(age)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, s.UnsetValue(age))
	has, err = s.HasValue(age)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.UnsetValue(age), "unsetting an unset slot")
}

func testValueKinds(t *testing.T, h Harness) {
	s := open(t, h)
	create(t, s, "id1")

	when := time.Date(2024, 3, 1, 12, 30, 0, 500, time.UTC)
	values := map[string]any{
		"string":  "text",
		"empty":   "",
		"int":     42,
		"int64":   int64(-7),
		"uint8":   uint8(200),
		"float64": 2.5,
		"float32": float32(0.25),
		"bool":    true,
		"bytes":   []byte{0, 1, 2},
		"time":    when,
	}
	for name, v := range values {
		_, _, err := s.ValueFor(types.KeyOf("id1", name), v)
		require.NoError(t, err, name)
	}
	for name, want := range values {
		got, ok, err := s.ValueOf(types.KeyOf("id1", name))
		require.NoError(t, err, name)
		require.True(t, ok, name)
		if w, isTime := want.(time.Time); isTime {
			assert.True(t, w.Equal(got.(time.Time)), name)
			continue
		}
		assert.Equal(t, want, got, name)
	}
}

func testAppendRemove(t *testing.T, h Harness) {
	s := open(t, h)
	create(t, s, "id1")
	names := types.KeyOf("id1", "names")

	for i, v := range []string{"a", "b", "c"} {
		pos, err := s.AppendValue(names, v)
		require.NoError(t, err)
		assert.Equal(t, i, pos)
	}

	removed, ok, err := s.RemoveValue(names.At(1))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", removed)

	all, err := s.AllValuesOf(names)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "c"}, all)

	size, err := s.SizeOfValue(names)
	require.NoError(t, err)
	assert.Equal(t, 2, size)
}

func testShiftOnInsert(t *testing.T, h Harness) {
	for p := 0; p <= 3; p++ {
		s := open(t, h)
		create(t, s, "id1")
		k := types.KeyOf("id1", "items")

		_, err := s.AppendAllValues(k, []any{"a", "b", "c"})
		require.NoError(t, err)
		require.NoError(t, s.AddValue(k.At(p), "x"))

		want := slices.Insert([]any{"a", "b", "c"}, p, any("x"))
		all, err := s.AllValuesOf(k)
		require.NoError(t, err)
		assert.Equal(t, want, all, "insert at %d", p)

		v, ok, err := s.ValueAt(k.At(p))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "x", v)
	}
}

func testContiguity(t *testing.T, h Harness) {
	s := open(t, h)
	create(t, s, "id1")
	k := types.KeyOf("id1", "items")

	r := rand.New(rand.NewPCG(1, 2))
	var model []any
	for i := range 150 {
		if len(model) > 0 && r.IntN(3) == 0 {
			p := r.IntN(len(model))
			got, ok, err := s.RemoveValue(k.At(p))
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, model[p], got)
			model = slices.Delete(model, p, p+1)
		} else {
			p := r.IntN(len(model) + 1)
			require.NoError(t, s.AddValue(k.At(p), i))
			model = slices.Insert(model, p, any(i))
		}

		size, err := s.SizeOfValue(k)
		require.NoError(t, err)
		require.Equal(t, len(model), size)
	}

	for p, want := range model {
		got, ok, err := s.ValueAt(k.At(p))
		require.NoError(t, err)
		require.True(t, ok, "position %d", p)
		assert.Equal(t, want, got)
	}
	all, err := s.AllValuesOf(k)
	require.NoError(t, err)
	if len(model) == 0 {
		assert.Empty(t, all)
	} else {
		assert.Equal(t, model, all)
	}
}

func testPositionErrors(t *testing.T, h Harness) {
	s := open(t, h)
	create(t, s, "id1")
	k := types.KeyOf("id1", "items")

	_, err := s.SetValueAt(k.At(0), "x")
	assert.ErrorIs(t, err, types.ErrNotFound, "set on empty slot")

	assert.ErrorIs(t, s.AddValue(k.At(1), "x"), types.ErrIndexOutOfRange, "add past size")

	_, err = s.AppendAllValues(k, []any{"a", "b"})
	require.NoError(t, err)

	_, err = s.SetValueAt(k.At(2), "x")
	assert.ErrorIs(t, err, types.ErrIndexOutOfRange, "set past end")

	prev, err := s.SetValueAt(k.At(1), "B")
	require.NoError(t, err)
	assert.Equal(t, "b", prev)

	_, ok, err := s.ValueAt(k.At(5))
	require.NoError(t, err)
	assert.False(t, ok, "read past end")

	_, ok, err = s.RemoveValue(k.At(5))
	require.NoError(t, err)
	assert.False(t, ok, "remove past end")

	all, err := s.AllValuesOf(k)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "B"}, all)

	negative := types.ManyFeatureKey{FeatureKey: k, Position: -1}
	_, _, err = s.ValueAt(negative)
	assert.ErrorIs(t, err, types.ErrIndexOutOfRange, "read negative")
	_, err = s.SetValueAt(negative, "x")
	assert.ErrorIs(t, err, types.ErrIndexOutOfRange, "set negative")
	assert.ErrorIs(t, s.AddValue(negative, "x"), types.ErrIndexOutOfRange, "add negative")
	_, _, err = s.RemoveValue(negative)
	assert.ErrorIs(t, err, types.ErrIndexOutOfRange, "remove negative")
	_, _, err = s.ReferenceAt(negative)
	assert.ErrorIs(t, err, types.ErrIndexOutOfRange, "reference negative")
	assert.ErrorIs(t, s.AddReference(negative, "id1", false), types.ErrIndexOutOfRange, "add reference negative")

	all, err = s.AllValuesOf(k)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "B"}, all, "negative positions leave the slot intact")

	empty := types.KeyOf("id1", "empty")
	assert.ErrorIs(t, s.AddValue(types.ManyFeatureKey{FeatureKey: empty, Position: -1}, "x"), types.ErrIndexOutOfRange)
	size, err := s.SizeOfValue(empty)
	require.NoError(t, err)
	assert.Zero(t, size)
}

func testSearch(t *testing.T, h Harness) {
	s := open(t, h)
	create(t, s, "id1")
	k := types.KeyOf("id1", "tags")

	first, err := s.AppendAllValues(k, []any{"x", "y", "x", "z"})
	require.NoError(t, err)
	assert.Equal(t, 0, first)

	i, ok, err := s.IndexOfValue(k, "x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	i, ok, err = s.LastIndexOfValue(k, "x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok, err = s.IndexOfValue(k, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	next, err := s.AppendAllValues(k, []any{"w"})
	require.NoError(t, err)
	assert.Equal(t, 4, next)
}

func testMoveAndClear(t *testing.T, h Harness) {
	s := open(t, h)
	create(t, s, "id1")
	k := types.KeyOf("id1", "items")

	_, err := s.AppendAllValues(k, []any{"a", "b", "c", "d"})
	require.NoError(t, err)

	moved, ok, err := s.MoveValue(k.At(0), k.At(2))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", moved)

	all, err := s.AllValuesOf(k)
	require.NoError(t, err)
	assert.Equal(t, []any{"b", "c", "a", "d"}, all)

	_, _, err = s.MoveValue(k.At(0), k.At(4))
	assert.ErrorIs(t, err, types.ErrIndexOutOfRange, "move past end")
	all, err = s.AllValuesOf(k)
	require.NoError(t, err)
	assert.Equal(t, []any{"b", "c", "a", "d"}, all, "rejected move keeps every element")

	require.NoError(t, s.RemoveAllValues(k))
	size, err := s.SizeOfValue(k)
	require.NoError(t, err)
	assert.Zero(t, size)

	all, err = s.AllValuesOf(k)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testReferences(t *testing.T, h Harness) {
	s := open(t, h)
	create(t, s, "parent", "child", "friend", "other")
	owner := types.KeyOf("parent", "owner")
	children := types.KeyOf("parent", "children")

	prev, ok, err := s.ReferenceFor(owner, "friend", false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, prev.IsZero())

	ref, ok, err := s.ReferenceOf(owner)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, types.ID("friend"), ref)

	_, hasContainer, err := s.ContainerOf("friend")
	require.NoError(t, err)
	assert.False(t, hasContainer, "non-containment reference")

	prev, ok, err = s.ReferenceFor(owner, "other", false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, types.ID("friend"), prev)

	require.NoError(t, s.UnsetReference(owner))
	has, err := s.HasReference(owner)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.AddReference(children.At(0), "child", true))
	require.NoError(t, s.AddReference(children.At(0), "friend", false))

	refs, err := s.AllReferencesOf(children)
	require.NoError(t, err)
	assert.Equal(t, []types.ID{"friend", "child"}, refs)

	ref, ok, err = s.ReferenceAt(children.At(1))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, types.ID("child"), ref)

	c, ok, err := s.ContainerOf("child")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, types.ContainerDescriptor{ID: "parent", Name: "children"}, c)
}

func testContainers(t *testing.T, h Harness) {
	s := open(t, h)
	create(t, s, "a", "b", "c")

	_, ok, err := s.ContainerOf("a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.ContainerFor("a", types.ContainerDescriptor{ID: "b", Name: "items"}))
	require.NoError(t, s.ContainerFor("a", types.ContainerDescriptor{ID: "c", Name: "parts"}))

	c, ok, err := s.ContainerOf("a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, types.ContainerDescriptor{ID: "c", Name: "parts"}, c, "at most one container")

	require.NoError(t, s.RemoveContainer("a"))
	_, ok, err = s.ContainerOf("a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testMetaclasses(t *testing.T, h Harness) {
	s := open(t, h)
	create(t, s, "id1", "id2", "id3")

	named := types.ClassDescriptor{Name: "Named", URI: "urn:x", Abstract: true}
	person := types.ClassOf("Person", "urn:x", named)
	employee := types.ClassOf("Employee", "urn:x", person)

	require.NoError(t, s.MetaclassFor("id1", person))
	require.NoError(t, s.MetaclassFor("id2", employee))

	got, ok, err := s.MetaclassOf("id1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, got.Equal(person))

	_, ok, err = s.MetaclassOf("id3")
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := s.AllInstances(types.ClassOf("Person", "urn:x"), true)
	require.NoError(t, err)
	assert.Equal(t, []types.ID{"id1"}, ids)

	ids, err = s.AllInstances(person, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []types.ID{"id1", "id2"}, ids)

	ids, err = s.AllInstances(named, true)
	require.NoError(t, err)
	assert.Empty(t, ids, "strict query on an abstract type")

	ids, err = s.AllInstances(named, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []types.ID{"id1", "id2"}, ids)

	assert.ErrorIs(t, s.MetaclassFor("id3", named), types.ErrInvalidData)

	require.NoError(t, s.MetaclassFor("id1", employee))
	ids, err = s.AllInstances(person, true)
	require.NoError(t, err)
	assert.Empty(t, ids, "retagged object leaves its old type")
	ids, err = s.AllInstances(employee, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []types.ID{"id1", "id2"}, ids)
}

func testClosed(t *testing.T, h Harness) {
	s := h.New(t)
	create(t, s, "id1")
	require.NoError(t, s.Close())

	for _, c := range Calls(s, "id1") {
		assert.ErrorIs(t, c.Do(), types.ErrInvalidState, c.Name)
	}
	_, _, err := s.ValueFor(types.KeyOf("id1", "name"), nil)
	assert.ErrorIs(t, err, types.ErrInvalidState, "nil value")
	_, err = s.SetValueAt(types.KeyOf("id1", "items").At(0), nil)
	assert.ErrorIs(t, err, types.ErrInvalidState, "nil element")
	assert.ErrorIs(t, s.AddValue(types.KeyOf("id1", "items").At(0), nil), types.ErrInvalidState, "nil insert")
	assert.NoError(t, s.Save())
	assert.NoError(t, s.Close())
}

func testCopy(t *testing.T, h Harness) {
	if h.Copy == nil {
		t.Skip("no copy support")
	}
	from := open(t, h)
	Populate(t, from)
	to := open(t, h)
	create(t, to, "leftover")

	require.NoError(t, h.Copy(from, to))

	if diff := cmp.Diff(Dump(t, from), Dump(t, to)); diff != "" {
		t.Errorf("copy mismatch (-source +target):\n%s", diff)
	}
}

func testReopen(t *testing.T, h Harness) {
	if h.Reopen == nil {
		t.Skip("transient store")
	}
	s := h.New(t)
	Populate(t, s)
	want := Dump(t, s)
	require.NoError(t, s.Save())

	s = h.Reopen(t, s)
	t.Cleanup(func() { _ = s.Close() })
	if diff := cmp.Diff(want, Dump(t, s)); diff != "" {
		t.Errorf("reopened store differs (-saved +reopened):\n%s", diff)
	}
}
