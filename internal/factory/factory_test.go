package factory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/featurestore/internal/factory"
	"github.com/mesh-intelligence/featurestore/internal/kv"
	"github.com/mesh-intelligence/featurestore/internal/mapping"
	"github.com/mesh-intelligence/featurestore/internal/store"
	"github.com/mesh-intelligence/featurestore/pkg/types"
)

func TestMetadataFileContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, factory.WriteMetadata(dir, factory.Metadata{
		Backend: types.BackendKV,
		Mapping: types.MappingIndices,
		Version: factory.MetadataVersion,
	}))

	data, err := os.ReadFile(filepath.Join(dir, factory.MetadataFile))
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "metadata", data)
}

func TestReadMetadata(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantOK  bool
		wantErr error
	}{
		{name: "missing", wantOK: false},
		{name: "valid", content: "backend: graph\nmapping: native\nversion: 1\n", wantOK: true},
		{name: "newer version", content: "backend: kv\nmapping: maps\nversion: 2\n", wantErr: types.ErrConfigMismatch},
		{name: "garbage", content: "backend: [", wantErr: types.ErrInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.content != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, factory.MetadataFile), []byte(tt.content), 0o644))
			}

			_, ok, err := factory.ReadMetadata(dir)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestPrepare(t *testing.T) {
	base := factory.NewBase(types.BackendKV, mapping.Variants, nil)

	t.Run("new directory takes the default mapping", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "data")
		variant, err := base.Prepare(dir, types.Config{})
		require.NoError(t, err)
		assert.Equal(t, types.MappingMaps, variant)

		meta, ok, err := factory.ReadMetadata(dir)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, factory.Metadata{Backend: types.BackendKV, Mapping: types.MappingMaps, Version: 1}, meta)
	})

	t.Run("reopen adopts the stored mapping", func(t *testing.T) {
		dir := t.TempDir()
		_, err := base.Prepare(dir, types.Config{Mapping: types.MappingLists})
		require.NoError(t, err)

		variant, err := base.Prepare(dir, types.Config{})
		require.NoError(t, err)
		assert.Equal(t, types.MappingLists, variant)
	})

	t.Run("reopen with another mapping", func(t *testing.T) {
		dir := t.TempDir()
		_, err := base.Prepare(dir, types.Config{Mapping: types.MappingLists})
		require.NoError(t, err)

		_, err = base.Prepare(dir, types.Config{Mapping: types.MappingIndices})
		assert.ErrorIs(t, err, types.ErrConfigMismatch)
	})

	t.Run("reopen with another family", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, factory.WriteMetadata(dir, factory.Metadata{Backend: types.BackendGraph, Mapping: types.MappingNative, Version: 1}))

		_, err := base.Prepare(dir, types.Config{})
		assert.ErrorIs(t, err, types.ErrConfigMismatch)
	})

	t.Run("unsupported mapping", func(t *testing.T) {
		_, err := base.Prepare(t.TempDir(), types.Config{Mapping: types.MappingNative})
		assert.ErrorIs(t, err, types.ErrUnsupported)
	})

	t.Run("empty directory name", func(t *testing.T) {
		_, err := base.Prepare("", types.Config{})
		assert.ErrorIs(t, err, types.ErrInvalidData)
	})
}

func TestCreateStoreStacksDecorators(t *testing.T) {
	f := kv.NewFactory(nil)
	b, err := f.CreateTransientBackend(types.Config{})
	require.NoError(t, err)

	s, err := f.CreateStore(b, types.Config{Cache: true, AutoCommit: true, Log: true})
	require.NoError(t, err)
	defer s.Close()

	logging, ok := s.(*store.Logging)
	require.True(t, ok, "log is outermost, got %T", s)
	_, ok = logging.Store.(*store.Caching)
	assert.True(t, ok, "cache wraps autocommit, got %T", logging.Store)
	assert.Same(t, b, s.Backend())
}

func TestCreateStoreRejectsForeignBackend(t *testing.T) {
	f := kv.NewFactory(nil)
	_, err := f.CreateStore(store.NewInvalidBackend(), types.Config{})
	assert.ErrorIs(t, err, types.ErrFamilyMismatch)
}

func TestCopyBackendChecksFamilies(t *testing.T) {
	f := kv.NewFactory(nil)
	b, err := f.CreateTransientBackend(types.Config{})
	require.NoError(t, err)
	defer b.Close()

	assert.ErrorIs(t, f.CopyBackend(b, store.NewInvalidBackend()), types.ErrFamilyMismatch)
	assert.ErrorIs(t, f.CopyBackend(store.NewInvalidBackend(), b), types.ErrFamilyMismatch)
}
