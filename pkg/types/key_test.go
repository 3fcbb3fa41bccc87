package types

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsUnique(t *testing.T) {
	seen := make(map[ID]bool)
	for range 100 {
		id := NewID()
		require.False(t, id.IsZero())
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID("abc")
	require.NoError(t, err)
	assert.Equal(t, ID("abc"), id)

	_, err = ParseID("")
	assert.True(t, errors.Is(err, ErrInvalidID))

	_, err = ParseID("a\x00b")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestFeatureKeyOrdering(t *testing.T) {
	keys := []FeatureKey{
		KeyOf("b", "name"),
		KeyOf("a", "zeta"),
		KeyOf("a", "alpha"),
	}
	slices.SortFunc(keys, FeatureKey.Compare)
	assert.Equal(t, []FeatureKey{
		KeyOf("a", "alpha"),
		KeyOf("a", "zeta"),
		KeyOf("b", "name"),
	}, keys)
}

func TestManyFeatureKey(t *testing.T) {
	k := KeyOf("id1", "names")

	mk, err := k.WithPosition(3)
	require.NoError(t, err)
	assert.Equal(t, 3, mk.Position)
	assert.Equal(t, k, mk.WithoutPosition())
	assert.Equal(t, "id1#names[3]", mk.String())

	_, err = k.WithPosition(-1)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))

	assert.Panics(t, func() { k.At(-1) })

	over := MaxPosition
	over++
	_, err = k.WithPosition(over)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = k.WithPosition(MaxPosition)
	assert.NoError(t, err)

	// Ordering extends the parent ordering by position.
	assert.Negative(t, k.At(1).Compare(k.At(2)))
	assert.Positive(t, KeyOf("id2", "names").At(0).Compare(k.At(9)))
	assert.Zero(t, k.At(4).Compare(k.At(4)))
}

func TestCheckPosition(t *testing.T) {
	k := KeyOf("id1", "names")
	assert.NoError(t, k.At(0).CheckPosition())
	assert.ErrorIs(t, ManyFeatureKey{FeatureKey: k, Position: -1}.CheckPosition(), ErrIndexOutOfRange)
	assert.ErrorIs(t, ManyFeatureKey{FeatureKey: k, Position: -1 << 20}.CheckPosition(), ErrIndexOutOfRange)
}

func TestKeysAreValueTypes(t *testing.T) {
	m := map[FeatureKey]int{KeyOf("x", "f"): 1}
	assert.Equal(t, 1, m[KeyOf(ID("x"), "f")])

	mm := map[ManyFeatureKey]int{KeyOf("x", "f").At(2): 7}
	assert.Equal(t, 7, mm[ManyFeatureKey{FeatureKey: KeyOf("x", "f"), Position: 2}])
}

func TestClassDescriptor(t *testing.T) {
	named := ClassOf("NamedElement", "urn:x")
	named.Abstract = true
	person := ClassOf("Person", "urn:x", named)
	student := ClassOf("Student", "urn:x", person)

	assert.Equal(t, "Person@urn:x", person.Key())
	assert.True(t, student.IsSubtypeOf(named))
	assert.True(t, student.IsSubtypeOf(student))
	assert.False(t, person.IsSubtypeOf(student))
	assert.False(t, ClassOf("Person", "urn:y").Equal(person))
}

func TestIOError(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapIO("save", cause)

	assert.True(t, errors.Is(err, ErrIO))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "save: substrate i/o failure: disk full", err.Error())

	// Wrapping twice keeps the first operation.
	assert.Same(t, err, WrapIO("close", err))
	assert.NoError(t, WrapIO("noop", nil))
}
