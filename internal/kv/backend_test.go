package kv

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/featurestore/internal/mapping"
	"github.com/mesh-intelligence/featurestore/internal/storetest"
	"github.com/mesh-intelligence/featurestore/pkg/types"
)

func copyBackends(from, to types.FeatureStore) error {
	return from.(types.Backend).CopyTo(to.(types.Backend))
}

func TestMemoryBackendContract(t *testing.T) {
	for _, variant := range mapping.Variants {
		t.Run(variant, func(t *testing.T) {
			mapper, err := mapping.ForVariant(variant)
			require.NoError(t, err)
			storetest.Run(t, storetest.Harness{
				New: func(t *testing.T) types.FeatureStore {
					return NewBackend(NewMemorySubstrate(), mapper, nil, nil)
				},
				Copy: copyBackends,
			})
		})
	}
}

func TestSQLiteBackendContract(t *testing.T) {
	for _, variant := range mapping.Variants {
		t.Run(variant, func(t *testing.T) {
			f := NewFactory(nil)
			config := types.Config{Backend: types.BackendKV, Mapping: variant}
			dirs := make(map[types.FeatureStore]string)

			storetest.Run(t, storetest.Harness{
				New: func(t *testing.T) types.FeatureStore {
					dir := t.TempDir()
					b, err := f.CreatePersistentBackend(dir, config)
					require.NoError(t, err)
					dirs[b] = dir
					return b
				},
				Reopen: func(t *testing.T, s types.FeatureStore) types.FeatureStore {
					require.NoError(t, s.Close())
					b, err := f.CreatePersistentBackend(dirs[s], types.Config{})
					require.NoError(t, err)
					return b
				},
				Copy: copyBackends,
			})
		})
	}
}

func TestCopyAcrossEncodings(t *testing.T) {
	for _, from := range mapping.Variants {
		for _, to := range mapping.Variants {
			t.Run(from+"->"+to, func(t *testing.T) {
				fm, _ := mapping.ForVariant(from)
				tm, _ := mapping.ForVariant(to)
				src := NewBackend(NewMemorySubstrate(), fm, nil, nil)
				dst := NewBackend(NewMemorySubstrate(), tm, nil, nil)
				defer src.Close()
				defer dst.Close()

				storetest.Populate(t, src)
				require.NoError(t, src.CopyTo(dst))

				if diff := cmp.Diff(storetest.Dump(t, src), storetest.Dump(t, dst)); diff != "" {
					t.Errorf("copy mismatch (-source +target):\n%s", diff)
				}
			})
		}
	}
}

func TestCopyToMemoryFromSQLite(t *testing.T) {
	f := NewFactory(nil)
	src, err := f.CreatePersistentBackend(t.TempDir(), types.Config{Mapping: types.MappingIndices})
	require.NoError(t, err)
	defer src.Close()
	dst, err := f.CreateTransientBackend(types.Config{})
	require.NoError(t, err)
	defer dst.Close()

	storetest.Populate(t, src)
	require.NoError(t, f.CopyBackend(src, dst))
	assert.Equal(t, storetest.Dump(t, src), storetest.Dump(t, dst))
}

func TestCopyRejectsOtherFamilies(t *testing.T) {
	src := NewBackend(NewMemorySubstrate(), mapping.Maps{}, nil, nil)
	defer src.Close()

	err := src.CopyTo(foreignBackend{src})
	assert.ErrorIs(t, err, types.ErrFamilyMismatch)
}

type foreignBackend struct {
	*Backend
}

func (foreignBackend) Family() string { return types.BackendGraph }

func TestCreateRejectsSeparator(t *testing.T) {
	b := NewBackend(NewMemorySubstrate(), mapping.Maps{}, nil, nil)
	defer b.Close()

	assert.ErrorIs(t, b.Create("a\x00b"), types.ErrInvalidID)
}

func TestSlotKeysSortByOwnerThenFeature(t *testing.T) {
	keys := [][]byte{
		slotKey(types.KeyOf("b", "x")),
		slotKey(types.KeyOf("a", "y")),
		slotKey(types.KeyOf("a", "x")),
		slotKey(types.KeyOf("ab", "x")),
	}
	want := []types.FeatureKey{
		types.KeyOf("a", "x"), types.KeyOf("a", "y"), types.KeyOf("ab", "x"), types.KeyOf("b", "x"),
	}

	sub := NewMemorySubstrate()
	for _, k := range keys {
		require.NoError(t, sub.Put(k, []byte("{}")))
	}
	var got []types.FeatureKey
	require.NoError(t, sub.Scan([]byte{kindSlot}, func(k, _ []byte) error {
		fk, err := parseSlotKey(k)
		got = append(got, fk)
		return err
	}))
	assert.Equal(t, want, got)
}

func TestElementKeysSortByPosition(t *testing.T) {
	k := types.KeyOf("id1", "items")
	assert.Negative(t, bytes.Compare(elementKey(k.At(2)), elementKey(k.At(10))))
	assert.Negative(t, bytes.Compare(elementKey(k.At(255)), elementKey(k.At(256))))
}

func TestUncommittedWritesAreLostWithoutSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DBFileName)

	sub, err := OpenSQLiteSubstrate(path)
	require.NoError(t, err)
	require.NoError(t, sub.Put([]byte("k1"), []byte("v1")))
	require.NoError(t, sub.Commit())
	require.NoError(t, sub.Put([]byte("k2"), []byte("v2")))
	require.NoError(t, sub.tx.Rollback())
	require.NoError(t, sub.db.Close())

	sub, err = OpenSQLiteSubstrate(path)
	require.NoError(t, err)
	defer sub.Close()

	_, ok, err := sub.Get([]byte("k1"))
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = sub.Get([]byte("k2"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteScanPrefix(t *testing.T) {
	sub, err := OpenSQLiteSubstrate(filepath.Join(t.TempDir(), DBFileName))
	require.NoError(t, err)
	defer sub.Close()

	for _, k := range []string{"a1", "a2", "b1", "a\xff", "\xff\xff"} {
		require.NoError(t, sub.Put([]byte(k), []byte(k)))
	}
	collect := func(prefix string) []string {
		var keys []string
		require.NoError(t, sub.Scan([]byte(prefix), func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		}))
		return keys
	}

	assert.Equal(t, []string{"a1", "a2", "a\xff"}, collect("a"))
	assert.Equal(t, []string{"\xff\xff"}, collect("\xff"))
	assert.Len(t, collect(""), 5)
}

func TestMemorySubstrateCopiesValues(t *testing.T) {
	sub := NewMemorySubstrate()
	v := []byte("abc")
	require.NoError(t, sub.Put([]byte("k"), v))
	v[0] = 'x'

	got, ok, err := sub.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", string(got))
	assert.Equal(t, 1, sub.Len())
}
