package mapping

import (
	"bytes"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/multierr"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Core is the subset of FeatureStore a backend family implements itself.
type Core interface {
	ContainerFor(id types.ID, container types.ContainerDescriptor) error
	ValueOf(key types.FeatureKey) (any, bool, error)
	ValueFor(key types.FeatureKey, value any) (any, bool, error)
	UnsetValue(key types.FeatureKey) error
	HasValue(key types.FeatureKey) (bool, error)
	ValueAt(key types.ManyFeatureKey) (any, bool, error)
	AllValuesOf(key types.FeatureKey) ([]any, error)
	AddValue(key types.ManyFeatureKey, value any) error
	RemoveValue(key types.ManyFeatureKey) (any, bool, error)
	SizeOfValue(key types.FeatureKey) (int, error)
}

// Extended derives the remaining FeatureStore operations from a Core.
// Backends embed it and set it up with their own receiver:
//
//	b := &Backend{}
//	b.Extended = mapping.Extend(b)
type Extended struct {
	core Core
}

// Extend returns the derived operations for core.
func Extend(core Core) Extended {
	return Extended{core: core}
}

func (e Extended) AppendValue(key types.FeatureKey, value any) (int, error) {
	size, err := e.core.SizeOfValue(key)
	if err != nil {
		return 0, err
	}
	if err := e.core.AddValue(key.At(size), value); err != nil {
		return 0, err
	}
	return size, nil
}

func (e Extended) AppendAllValues(key types.FeatureKey, values []any) (int, error) {
	first, err := e.core.SizeOfValue(key)
	if err != nil {
		return 0, err
	}
	for i, v := range values {
		if err := e.core.AddValue(key.At(first+i), v); err != nil {
			return 0, err
		}
	}
	return first, nil
}

func (e Extended) IndexOfValue(key types.FeatureKey, value any) (int, bool, error) {
	values, err := e.core.AllValuesOf(key)
	if err != nil {
		return 0, false, err
	}
	for i, v := range values {
		if Equal(v, value) {
			return i, true, nil
		}
	}
	return 0, false, nil
}

func (e Extended) LastIndexOfValue(key types.FeatureKey, value any) (int, bool, error) {
	values, err := e.core.AllValuesOf(key)
	if err != nil {
		return 0, false, err
	}
	for i := len(values) - 1; i >= 0; i-- {
		if Equal(values[i], value) {
			return i, true, nil
		}
	}
	return 0, false, nil
}

// MoveValue removes the element at source and inserts it at target. The
// target is validated against the slot as it will be after the removal, so
// a rejected move leaves the slot untouched.
func (e Extended) MoveValue(source, target types.ManyFeatureKey) (any, bool, error) {
	if err := source.CheckPosition(); err != nil {
		return nil, false, err
	}
	if err := target.CheckPosition(); err != nil {
		return nil, false, err
	}
	size, err := e.core.SizeOfValue(source.WithoutPosition())
	if err != nil || source.Position >= size {
		return nil, false, err
	}
	limit := size - 1
	if target.WithoutPosition() != source.WithoutPosition() {
		if limit, err = e.core.SizeOfValue(target.WithoutPosition()); err != nil {
			return nil, false, err
		}
	}
	if target.Position > limit {
		return nil, false, fmt.Errorf("move %s to %s (size %d): %w", source, target, limit, types.ErrIndexOutOfRange)
	}

	v, ok, err := e.core.RemoveValue(source)
	if err != nil || !ok {
		return nil, false, err
	}
	if err := e.core.AddValue(target, v); err != nil {
		return nil, false, multierr.Append(err, e.core.AddValue(source, v))
	}
	return v, true, nil
}

func (e Extended) ReferenceOf(key types.FeatureKey) (types.ID, bool, error) {
	v, ok, err := e.core.ValueOf(key)
	if err != nil || !ok {
		return "", false, err
	}
	return asID(key.String(), v)
}

func (e Extended) ReferenceFor(key types.FeatureKey, ref types.ID, containment bool) (types.ID, bool, error) {
	prev, ok, err := e.core.ValueFor(key, ref)
	if err != nil {
		return "", false, err
	}
	if containment {
		if err := e.core.ContainerFor(ref, types.ContainerDescriptor{ID: key.ID, Name: key.Name}); err != nil {
			return "", false, err
		}
	}
	if !ok {
		return "", false, nil
	}
	return asID(key.String(), prev)
}

func (e Extended) UnsetReference(key types.FeatureKey) error {
	return e.core.UnsetValue(key)
}

func (e Extended) HasReference(key types.FeatureKey) (bool, error) {
	return e.core.HasValue(key)
}

func (e Extended) ReferenceAt(key types.ManyFeatureKey) (types.ID, bool, error) {
	v, ok, err := e.core.ValueAt(key)
	if err != nil || !ok {
		return "", false, err
	}
	return asID(key.String(), v)
}

func (e Extended) AddReference(key types.ManyFeatureKey, ref types.ID, containment bool) error {
	if err := e.core.AddValue(key, ref); err != nil {
		return err
	}
	if containment {
		return e.core.ContainerFor(ref, types.ContainerDescriptor{ID: key.ID, Name: key.Name})
	}
	return nil
}

func (e Extended) AllReferencesOf(key types.FeatureKey) ([]types.ID, error) {
	values, err := e.core.AllValuesOf(key)
	if err != nil || len(values) == 0 {
		return nil, err
	}
	refs := make([]types.ID, 0, len(values))
	for _, v := range values {
		ref, _, err := asID(key.String(), v)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func asID(where string, v any) (types.ID, bool, error) {
	ref, ok := v.(types.ID)
	if !ok {
		return "", false, fmt.Errorf("%s holds %T, not a reference: %w", where, v, types.ErrInvalidData)
	}
	return ref, true, nil
}

// Equal compares stored values the way indexOf does: byte slices by
// content, times by instant, everything else structurally.
func Equal(a, b any) bool {
	switch av := a.(type) {
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	}
	return reflect.DeepEqual(a, b)
}
