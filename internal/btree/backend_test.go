package btree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/featurestore/internal/storetest"
	"github.com/mesh-intelligence/featurestore/pkg/types"
)

func copyBackends(from, to types.FeatureStore) error {
	return from.(types.Backend).CopyTo(to.(types.Backend))
}

func TestMemoryContract(t *testing.T) {
	storetest.Run(t, storetest.Harness{
		New: func(t *testing.T) types.FeatureStore {
			b, err := OpenMemory(nil, nil)
			require.NoError(t, err)
			return b
		},
		Copy: copyBackends,
	})
}

func TestPersistentContract(t *testing.T) {
	f := NewFactory(nil)
	dirs := make(map[types.FeatureStore]string)

	storetest.Run(t, storetest.Harness{
		New: func(t *testing.T) types.FeatureStore {
			dir := t.TempDir()
			b, err := f.CreatePersistentBackend(dir, types.Config{})
			require.NoError(t, err)
			dirs[b] = dir
			return b
		},
		Reopen: func(t *testing.T, s types.FeatureStore) types.FeatureStore {
			require.NoError(t, s.Close())
			b, err := f.CreatePersistentBackend(dirs[s], types.Config{Mapping: types.MappingNative})
			require.NoError(t, err)
			return b
		},
		Copy: copyBackends,
	})
}

func TestTransientDatabasesArePrivate(t *testing.T) {
	a, err := OpenMemory(nil, nil)
	require.NoError(t, err)
	defer a.Close()
	b, err := OpenMemory(nil, nil)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Create("id1"))
	ok, err := b.Has("id1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, a.IsPersistent())
}

func TestSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), DBFileName)
	b, err := Open(path, nil, nil)
	require.NoError(t, err)
	defer b.Close()

	version, err := schemaVersion(b.db)
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
	assert.True(t, b.IsPersistent())
}

func TestNewerSchemaIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), DBFileName)
	db, err := openDB(path)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(path, nil, nil)
	assert.ErrorIs(t, err, types.ErrConfigMismatch)
}

func TestShiftKeepsPrimaryKeyDistinct(t *testing.T) {
	b, err := OpenMemory(nil, nil)
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, b.Create("id1"))
	k := types.KeyOf("id1", "items")

	for i := range 20 {
		require.NoError(t, b.AddValue(k.At(0), i))
	}
	var minPos, maxPos, count int
	require.NoError(t, b.tx.QueryRow(
		"SELECT MIN(position), MAX(position), COUNT(*) FROM many_values WHERE id = ? AND feature = ?",
		"id1", "items").Scan(&minPos, &maxPos, &count))
	assert.Equal(t, 0, minPos)
	assert.Equal(t, 19, maxPos)
	assert.Equal(t, 20, count)

	v, ok, err := b.ValueAt(k.At(0))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 19, v)
}

func TestFactoryRejectsKeyValueMappings(t *testing.T) {
	_, err := NewFactory(nil).CreatePersistentBackend(t.TempDir(), types.Config{Mapping: types.MappingMaps})
	assert.ErrorIs(t, err, types.ErrUnsupported)
}
