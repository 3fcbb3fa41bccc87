// Package storetest holds the behavior every FeatureStore must show,
// written once and run against each backend family, encoding and decorator
// chain.
package storetest

import "github.com/mesh-intelligence/featurestore/pkg/types"

// Call is one FeatureStore operation reduced to its error.
type Call struct {
	Name string
	Do   func() error
}

// Calls returns one invocation of every FeatureStore operation except Save
// and Close, addressed at owner.
func Calls(s types.FeatureStore, owner types.ID) []Call {
	k := types.KeyOf(owner, "f")
	mk := k.At(0)
	class := types.ClassOf("C", "urn:t")
	container := types.ContainerDescriptor{ID: owner, Name: "f"}

	return []Call{
		{"Create", func() error { return s.Create(owner) }},
		{"Has", func() error { _, err := s.Has(owner); return err }},
		{"ContainerOf", func() error { _, _, err := s.ContainerOf(owner); return err }},
		{"ContainerFor", func() error { return s.ContainerFor(owner, container) }},
		{"RemoveContainer", func() error { return s.RemoveContainer(owner) }},
		{"MetaclassOf", func() error { _, _, err := s.MetaclassOf(owner); return err }},
		{"MetaclassFor", func() error { return s.MetaclassFor(owner, class) }},
		{"AllInstances", func() error { _, err := s.AllInstances(class, true); return err }},
		{"ValueOf", func() error { _, _, err := s.ValueOf(k); return err }},
		{"ValueFor", func() error { _, _, err := s.ValueFor(k, "v"); return err }},
		{"UnsetValue", func() error { return s.UnsetValue(k) }},
		{"HasValue", func() error { _, err := s.HasValue(k); return err }},
		{"ReferenceOf", func() error { _, _, err := s.ReferenceOf(k); return err }},
		{"ReferenceFor", func() error { _, _, err := s.ReferenceFor(k, owner, false); return err }},
		{"UnsetReference", func() error { return s.UnsetReference(k) }},
		{"HasReference", func() error { _, err := s.HasReference(k); return err }},
		{"ValueAt", func() error { _, _, err := s.ValueAt(mk); return err }},
		{"AllValuesOf", func() error { _, err := s.AllValuesOf(k); return err }},
		{"SetValueAt", func() error { _, err := s.SetValueAt(mk, "v"); return err }},
		{"AddValue", func() error { return s.AddValue(mk, "v") }},
		{"RemoveValue", func() error { _, _, err := s.RemoveValue(mk); return err }},
		{"AppendValue", func() error { _, err := s.AppendValue(k, "v"); return err }},
		{"AppendAllValues", func() error { _, err := s.AppendAllValues(k, []any{"v"}); return err }},
		{"SizeOfValue", func() error { _, err := s.SizeOfValue(k); return err }},
		{"IndexOfValue", func() error { _, _, err := s.IndexOfValue(k, "v"); return err }},
		{"LastIndexOfValue", func() error { _, _, err := s.LastIndexOfValue(k, "v"); return err }},
		{"MoveValue", func() error { _, _, err := s.MoveValue(mk, mk); return err }},
		{"RemoveAllValues", func() error { return s.RemoveAllValues(k) }},
		{"ReferenceAt", func() error { _, _, err := s.ReferenceAt(mk); return err }},
		{"AddReference", func() error { return s.AddReference(mk, owner, false) }},
		{"AllReferencesOf", func() error { _, err := s.AllReferencesOf(k); return err }},
	}
}

// OwnerCalls returns the operations that address an existing owner, which
// must fail with ErrNotFound when the owner was never created.
func OwnerCalls(s types.FeatureStore, owner types.ID) []Call {
	var calls []Call
	for _, c := range Calls(s, owner) {
		switch c.Name {
		case "Create", "Has", "AllInstances":
			continue
		}
		calls = append(calls, c)
	}
	return calls
}
