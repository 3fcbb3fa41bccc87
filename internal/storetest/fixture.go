package storetest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Classes used by the fixture model.
var (
	NodeClass = types.ClassOf("Node", "urn:featurestore:test")
	LeafClass = types.ClassOf("Leaf", "urn:featurestore:test", NodeClass)
)

var (
	fixtureIDs      = []types.ID{"root", "left", "right", "orphan"}
	valueFeatures   = []string{"name", "size", "weight", "when", "raw"}
	listFeatures    = []string{"tags", "scores"}
	refFeatures     = []string{"peer"}
	refListFeatures = []string{"children"}
)

// Populate fills s with a small tree: root contains left and right, both
// typed, with attributes, lists and cross references.
func Populate(t *testing.T, s types.FeatureStore) {
	t.Helper()
	for _, id := range fixtureIDs {
		require.NoError(t, s.Create(id))
	}
	require.NoError(t, s.MetaclassFor("root", NodeClass))
	require.NoError(t, s.MetaclassFor("left", LeafClass))
	require.NoError(t, s.MetaclassFor("right", LeafClass))

	set := func(id types.ID, name string, v any) {
		_, _, err := s.ValueFor(types.KeyOf(id, name), v)
		require.NoError(t, err)
	}
	set("root", "name", "root")
	set("root", "size", 3)
	set("left", "weight", 0.5)
	set("left", "when", time.Date(2023, 7, 4, 9, 0, 0, 0, time.UTC))
	set("right", "raw", []byte("payload"))

	_, err := s.AppendAllValues(types.KeyOf("root", "tags"), []any{"a", "b", "a"})
	require.NoError(t, err)
	_, err = s.AppendAllValues(types.KeyOf("left", "scores"), []any{int64(1), int64(2)})
	require.NoError(t, err)
	_, _, err = s.RemoveValue(types.KeyOf("root", "tags").At(0))
	require.NoError(t, err)

	children := types.KeyOf("root", "children")
	require.NoError(t, s.AddReference(children.At(0), "left", true))
	require.NoError(t, s.AddReference(children.At(1), "right", true))
	_, _, err = s.ReferenceFor(types.KeyOf("left", "peer"), "right", false)
	require.NoError(t, err)
}

// Object is the observable state of one fixture object.
type Object struct {
	Container *types.ContainerDescriptor
	Class     string
	Values    map[string]any
	Lists     map[string][]any
	Refs      map[string]types.ID
	RefLists  map[string][]types.ID
}

// Snapshot is everything Dump reads back.
type Snapshot struct {
	Objects   map[types.ID]Object
	Instances map[string][]types.ID
}

// Dump reads every fixture slot from s.
func Dump(t *testing.T, s types.FeatureStore) Snapshot {
	t.Helper()
	snap := Snapshot{
		Objects:   make(map[types.ID]Object),
		Instances: make(map[string][]types.ID),
	}

	for _, id := range fixtureIDs {
		has, err := s.Has(id)
		require.NoError(t, err)
		if !has {
			continue
		}
		o := Object{
			Values:   make(map[string]any),
			Lists:    make(map[string][]any),
			Refs:     make(map[string]types.ID),
			RefLists: make(map[string][]types.ID),
		}
		if c, ok, err := s.ContainerOf(id); err != nil {
			t.Fatalf("container of %s: %v", id, err)
		} else if ok {
			o.Container = &c
		}
		if c, ok, err := s.MetaclassOf(id); err != nil {
			t.Fatalf("metaclass of %s: %v", id, err)
		} else if ok {
			o.Class = c.Key()
		}
		for _, name := range valueFeatures {
			v, ok, err := s.ValueOf(types.KeyOf(id, name))
			require.NoError(t, err)
			if ok {
				o.Values[name] = v
			}
		}
		for _, name := range listFeatures {
			values, err := s.AllValuesOf(types.KeyOf(id, name))
			require.NoError(t, err)
			if len(values) > 0 {
				o.Lists[name] = values
			}
		}
		for _, name := range refFeatures {
			ref, ok, err := s.ReferenceOf(types.KeyOf(id, name))
			require.NoError(t, err)
			if ok {
				o.Refs[name] = ref
			}
		}
		for _, name := range refListFeatures {
			refs, err := s.AllReferencesOf(types.KeyOf(id, name))
			require.NoError(t, err)
			if len(refs) > 0 {
				o.RefLists[name] = refs
			}
		}
		snap.Objects[id] = o
	}

	for _, class := range []types.ClassDescriptor{NodeClass, LeafClass} {
		ids, err := s.AllInstances(class, false)
		require.NoError(t, err)
		snap.Instances[class.Key()] = ids
	}
	return snap
}
