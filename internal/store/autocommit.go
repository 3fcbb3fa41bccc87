package store

import "github.com/mesh-intelligence/featurestore/pkg/types"

// AutoCommit saves the inner store after every successful mutation. A failed
// mutation is returned as is and nothing is saved.
type AutoCommit struct {
	types.Store
}

var _ types.Store = (*AutoCommit)(nil)

// NewAutoCommit wraps inner.
func NewAutoCommit(inner types.Store) *AutoCommit {
	return &AutoCommit{Store: inner}
}

func (a *AutoCommit) commit(err error) error {
	if err != nil {
		return err
	}
	return a.Store.Save()
}

func (a *AutoCommit) Create(id types.ID) error {
	return a.commit(a.Store.Create(id))
}

func (a *AutoCommit) ContainerFor(id types.ID, container types.ContainerDescriptor) error {
	return a.commit(a.Store.ContainerFor(id, container))
}

func (a *AutoCommit) RemoveContainer(id types.ID) error {
	return a.commit(a.Store.RemoveContainer(id))
}

func (a *AutoCommit) MetaclassFor(id types.ID, class types.ClassDescriptor) error {
	return a.commit(a.Store.MetaclassFor(id, class))
}

func (a *AutoCommit) ValueFor(key types.FeatureKey, value any) (any, bool, error) {
	prev, ok, err := a.Store.ValueFor(key, value)
	if err := a.commit(err); err != nil {
		return nil, false, err
	}
	return prev, ok, nil
}

func (a *AutoCommit) UnsetValue(key types.FeatureKey) error {
	return a.commit(a.Store.UnsetValue(key))
}

func (a *AutoCommit) ReferenceFor(key types.FeatureKey, ref types.ID, containment bool) (types.ID, bool, error) {
	prev, ok, err := a.Store.ReferenceFor(key, ref, containment)
	if err := a.commit(err); err != nil {
		return "", false, err
	}
	return prev, ok, nil
}

func (a *AutoCommit) UnsetReference(key types.FeatureKey) error {
	return a.commit(a.Store.UnsetReference(key))
}

func (a *AutoCommit) SetValueAt(key types.ManyFeatureKey, value any) (any, error) {
	prev, err := a.Store.SetValueAt(key, value)
	if err := a.commit(err); err != nil {
		return nil, err
	}
	return prev, nil
}

func (a *AutoCommit) AddValue(key types.ManyFeatureKey, value any) error {
	return a.commit(a.Store.AddValue(key, value))
}

func (a *AutoCommit) RemoveValue(key types.ManyFeatureKey) (any, bool, error) {
	prev, ok, err := a.Store.RemoveValue(key)
	if err := a.commit(err); err != nil {
		return nil, false, err
	}
	return prev, ok, nil
}

func (a *AutoCommit) AppendValue(key types.FeatureKey, value any) (int, error) {
	pos, err := a.Store.AppendValue(key, value)
	if err := a.commit(err); err != nil {
		return 0, err
	}
	return pos, nil
}

func (a *AutoCommit) AppendAllValues(key types.FeatureKey, values []any) (int, error) {
	pos, err := a.Store.AppendAllValues(key, values)
	if err := a.commit(err); err != nil {
		return 0, err
	}
	return pos, nil
}

func (a *AutoCommit) MoveValue(source, target types.ManyFeatureKey) (any, bool, error) {
	moved, ok, err := a.Store.MoveValue(source, target)
	if err := a.commit(err); err != nil {
		return nil, false, err
	}
	return moved, ok, nil
}

func (a *AutoCommit) RemoveAllValues(key types.FeatureKey) error {
	return a.commit(a.Store.RemoveAllValues(key))
}

func (a *AutoCommit) AddReference(key types.ManyFeatureKey, ref types.ID, containment bool) error {
	return a.commit(a.Store.AddReference(key, ref, containment))
}

func (a *AutoCommit) Close() error {
	err := a.Store.Close()
	a.Store = NewClosed(a.Store.Backend())
	return err
}
