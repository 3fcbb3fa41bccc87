package graph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/featurestore/internal/storetest"
	"github.com/mesh-intelligence/featurestore/pkg/types"
)

func copyBackends(from, to types.FeatureStore) error {
	return from.(types.Backend).CopyTo(to.(types.Backend))
}

func TestTransientContract(t *testing.T) {
	storetest.Run(t, storetest.Harness{
		New: func(t *testing.T) types.FeatureStore {
			return NewTransient(nil)
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
			b, err := f.CreatePersistentBackend(dirs[s], types.Config{})
			require.NoError(t, err)
			return b
		},
		Copy: copyBackends,
	})
}

func TestReferencesAreEdges(t *testing.T) {
	b := NewTransient(nil)
	defer b.Close()
	storetest.Populate(t, b)

	children := b.g.outEdges("root", "children")
	require.Len(t, children, 2)
	for _, e := range children {
		assert.Contains(t, []string{"left", "right"}, e.In)
		assert.NotEqual(t, noPosition, e.Position)
	}

	container := b.g.outEdge("left", labelContainer, noPosition)
	require.NotNil(t, container)
	assert.Equal(t, "root", container.In)
	assert.Equal(t, "children", container.Feature)

	instanceOf := b.g.outEdge("left", labelInstanceOf, noPosition)
	require.NotNil(t, instanceOf)
	assert.Equal(t, storetest.LeafClass.Key(), instanceOf.In)

	root, ok := b.g.vertex("root")
	require.True(t, ok)
	assert.Equal(t, 2, root.Props["tags"+sizeSuffix])
	assert.Equal(t, "b", root.Props["tags:0"])
	assert.Equal(t, "root", root.Props["name"])
}

func TestSaveWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	b, err := Open(dir, nil, nil)
	require.NoError(t, err)
	storetest.Populate(t, b)
	require.NoError(t, b.Save())
	require.NoError(t, b.Close())

	vertices, err := os.ReadFile(filepath.Join(dir, VerticesFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(vertices)), "\n")
	assert.Len(t, lines, 6, "two metaclass vertices and four objects")
	assert.Contains(t, lines[0], `"class"`)

	edges, err := os.ReadFile(filepath.Join(dir, EdgesFile))
	require.NoError(t, err)
	assert.Contains(t, string(edges), `"label":"eContainer"`)
	assert.Contains(t, string(edges), `"containingFeature":"children"`)
	assert.Contains(t, string(edges), `"label":"kyanosInstanceOf"`)
}

func TestReplacingAReferenceDropsTheEdge(t *testing.T) {
	b := NewTransient(nil)
	defer b.Close()
	for _, id := range []types.ID{"a", "b", "c"} {
		require.NoError(t, b.Create(id))
	}
	k := types.KeyOf("a", "peer")

	_, _, err := b.ReferenceFor(k, "b", false)
	require.NoError(t, err)
	prev, ok, err := b.ValueFor(k, "plain")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, types.ID("b"), prev)
	assert.Empty(t, b.g.outEdges("a", "peer"))
	assert.Empty(t, b.g.in["b"])
}

func TestCorruptFileFailsOpen(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, VerticesFile), []byte("{\"id\":\"a\",\"props\":{\"x\":\"bm90IGpzb24=\"}}\n"), 0o644))

	_, err := Open(dir, nil, nil)
	assert.ErrorIs(t, err, types.ErrInvalidData)
}
