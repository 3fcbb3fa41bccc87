package store

import "github.com/mesh-intelligence/featurestore/pkg/types"

// failing implements every FeatureStore operation by returning err. Save and
// Close succeed so that teardown paths never fail on it.
type failing struct {
	err error
}

func (f failing) Create(types.ID) error                   { return f.err }
func (f failing) Has(types.ID) (bool, error)              { return false, f.err }
func (f failing) RemoveContainer(types.ID) error          { return f.err }
func (f failing) UnsetValue(types.FeatureKey) error       { return f.err }
func (f failing) HasValue(types.FeatureKey) (bool, error) { return false, f.err }
func (f failing) UnsetReference(types.FeatureKey) error   { return f.err }
func (f failing) RemoveAllValues(types.FeatureKey) error  { return f.err }
func (f failing) Save() error                             { return nil }
func (f failing) Close() error                            { return nil }

func (f failing) ContainerOf(types.ID) (types.ContainerDescriptor, bool, error) {
	return types.ContainerDescriptor{}, false, f.err
}

func (f failing) ContainerFor(types.ID, types.ContainerDescriptor) error { return f.err }

func (f failing) MetaclassOf(types.ID) (types.ClassDescriptor, bool, error) {
	return types.ClassDescriptor{}, false, f.err
}

func (f failing) MetaclassFor(types.ID, types.ClassDescriptor) error { return f.err }

func (f failing) AllInstances(types.ClassDescriptor, bool) ([]types.ID, error) {
	return nil, f.err
}

func (f failing) ValueOf(types.FeatureKey) (any, bool, error)       { return nil, false, f.err }
func (f failing) ValueFor(types.FeatureKey, any) (any, bool, error) { return nil, false, f.err }
func (f failing) HasReference(types.FeatureKey) (bool, error)       { return false, f.err }

func (f failing) ReferenceOf(types.FeatureKey) (types.ID, bool, error) { return "", false, f.err }

func (f failing) ReferenceFor(types.FeatureKey, types.ID, bool) (types.ID, bool, error) {
	return "", false, f.err
}

func (f failing) ValueAt(types.ManyFeatureKey) (any, bool, error)      { return nil, false, f.err }
func (f failing) AllValuesOf(types.FeatureKey) ([]any, error)          { return nil, f.err }
func (f failing) SetValueAt(types.ManyFeatureKey, any) (any, error)    { return nil, f.err }
func (f failing) AddValue(types.ManyFeatureKey, any) error             { return f.err }
func (f failing) RemoveValue(types.ManyFeatureKey) (any, bool, error)  { return nil, false, f.err }
func (f failing) AppendValue(types.FeatureKey, any) (int, error)       { return 0, f.err }
func (f failing) AppendAllValues(types.FeatureKey, []any) (int, error) { return 0, f.err }
func (f failing) SizeOfValue(types.FeatureKey) (int, error)            { return 0, f.err }

func (f failing) IndexOfValue(types.FeatureKey, any) (int, bool, error)     { return 0, false, f.err }
func (f failing) LastIndexOfValue(types.FeatureKey, any) (int, bool, error) { return 0, false, f.err }

func (f failing) MoveValue(types.ManyFeatureKey, types.ManyFeatureKey) (any, bool, error) {
	return nil, false, f.err
}

func (f failing) ReferenceAt(types.ManyFeatureKey) (types.ID, bool, error) { return "", false, f.err }
func (f failing) AddReference(types.ManyFeatureKey, types.ID, bool) error  { return f.err }
func (f failing) AllReferencesOf(types.FeatureKey) ([]types.ID, error)     { return nil, f.err }

// Closed is what a store becomes once closed.
type Closed struct {
	failing
	backend types.Backend
}

var _ types.Store = Closed{}

// NewClosed returns a closed store remembering backend.
func NewClosed(backend types.Backend) Closed {
	return Closed{failing: failing{err: types.ErrInvalidState}, backend: backend}
}

func (c Closed) Backend() types.Backend { return c.backend }

// InvalidBackend stands in for a backend that could not be created.
type InvalidBackend struct {
	failing
}

var _ types.Backend = InvalidBackend{}

// NewInvalidBackend returns a backend that rejects every operation.
func NewInvalidBackend() InvalidBackend {
	return InvalidBackend{failing: failing{err: types.ErrUnsupported}}
}

func (InvalidBackend) Family() string             { return "invalid" }
func (InvalidBackend) Variant() string            { return "" }
func (InvalidBackend) IsPersistent() bool         { return false }
func (InvalidBackend) CopyTo(types.Backend) error { return types.ErrUnsupported }
