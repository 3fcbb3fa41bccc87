package store

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Logging records every call with its arguments and outcome. Successful calls
// are logged at debug, failed ones at warn. Results and errors pass through
// unchanged.
type Logging struct {
	types.Store

	logger *zap.Logger
}

var _ types.Store = (*Logging)(nil)

// NewLogging wraps inner. A nil logger discards records.
func NewLogging(inner types.Store, logger *zap.Logger) *Logging {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logging{Store: inner, logger: logger.Named("store")}
}

func (l *Logging) record(method string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("method", method))
	if err != nil {
		l.logger.Warn("call failed", append(fields, zap.Error(err))...)
		return
	}
	l.logger.Debug("call", fields...)
}

func idField(id types.ID) zap.Field                 { return zap.Stringer("id", id) }
func keyField(k types.FeatureKey) zap.Field         { return zap.Stringer("key", k) }
func manyKeyField(k types.ManyFeatureKey) zap.Field { return zap.Stringer("key", k) }
func valueField(v any) zap.Field                    { return zap.Any("value", v) }
func resultField(v any) zap.Field                   { return zap.Any("result", v) }

func (l *Logging) Create(i types.ID) error {
	err := l.Store.Create(i)
	l.record("Create", err, idField(i))
	return err
}

func (l *Logging) Has(i types.ID) (bool, error) {
	ok, err := l.Store.Has(i)
	l.record("Has", err, idField(i), resultField(ok))
	return ok, err
}

func (l *Logging) ContainerOf(i types.ID) (types.ContainerDescriptor, bool, error) {
	c, ok, err := l.Store.ContainerOf(i)
	l.record("ContainerOf", err, idField(i), resultField(c), zap.Bool("ok", ok))
	return c, ok, err
}

func (l *Logging) ContainerFor(i types.ID, container types.ContainerDescriptor) error {
	err := l.Store.ContainerFor(i, container)
	l.record("ContainerFor", err, idField(i), valueField(container))
	return err
}

func (l *Logging) RemoveContainer(i types.ID) error {
	err := l.Store.RemoveContainer(i)
	l.record("RemoveContainer", err, idField(i))
	return err
}

func (l *Logging) MetaclassOf(i types.ID) (types.ClassDescriptor, bool, error) {
	c, ok, err := l.Store.MetaclassOf(i)
	l.record("MetaclassOf", err, idField(i), zap.Stringer("result", c), zap.Bool("ok", ok))
	return c, ok, err
}

func (l *Logging) MetaclassFor(i types.ID, class types.ClassDescriptor) error {
	err := l.Store.MetaclassFor(i, class)
	l.record("MetaclassFor", err, idField(i), zap.Stringer("value", class))
	return err
}

func (l *Logging) AllInstances(class types.ClassDescriptor, strict bool) ([]types.ID, error) {
	ids, err := l.Store.AllInstances(class, strict)
	l.record("AllInstances", err, zap.Stringer("class", class), zap.Bool("strict", strict), zap.Int("count", len(ids)))
	return ids, err
}

func (l *Logging) ValueOf(k types.FeatureKey) (any, bool, error) {
	v, ok, err := l.Store.ValueOf(k)
	l.record("ValueOf", err, keyField(k), resultField(v), zap.Bool("ok", ok))
	return v, ok, err
}

func (l *Logging) ValueFor(k types.FeatureKey, v any) (any, bool, error) {
	prev, ok, err := l.Store.ValueFor(k, v)
	l.record("ValueFor", err, keyField(k), valueField(v), resultField(prev))
	return prev, ok, err
}

func (l *Logging) UnsetValue(k types.FeatureKey) error {
	err := l.Store.UnsetValue(k)
	l.record("UnsetValue", err, keyField(k))
	return err
}

func (l *Logging) HasValue(k types.FeatureKey) (bool, error) {
	ok, err := l.Store.HasValue(k)
	l.record("HasValue", err, keyField(k), resultField(ok))
	return ok, err
}

func (l *Logging) ReferenceOf(k types.FeatureKey) (types.ID, bool, error) {
	ref, ok, err := l.Store.ReferenceOf(k)
	l.record("ReferenceOf", err, keyField(k), resultField(ref), zap.Bool("ok", ok))
	return ref, ok, err
}

func (l *Logging) ReferenceFor(k types.FeatureKey, ref types.ID, containment bool) (types.ID, bool, error) {
	prev, ok, err := l.Store.ReferenceFor(k, ref, containment)
	l.record("ReferenceFor", err, keyField(k), valueField(ref), zap.Bool("containment", containment), resultField(prev))
	return prev, ok, err
}

func (l *Logging) UnsetReference(k types.FeatureKey) error {
	err := l.Store.UnsetReference(k)
	l.record("UnsetReference", err, keyField(k))
	return err
}

func (l *Logging) HasReference(k types.FeatureKey) (bool, error) {
	ok, err := l.Store.HasReference(k)
	l.record("HasReference", err, keyField(k), resultField(ok))
	return ok, err
}

func (l *Logging) ValueAt(k types.ManyFeatureKey) (any, bool, error) {
	v, ok, err := l.Store.ValueAt(k)
	l.record("ValueAt", err, manyKeyField(k), resultField(v), zap.Bool("ok", ok))
	return v, ok, err
}

func (l *Logging) AllValuesOf(k types.FeatureKey) ([]any, error) {
	values, err := l.Store.AllValuesOf(k)
	l.record("AllValuesOf", err, keyField(k), resultField(values))
	return values, err
}

func (l *Logging) SetValueAt(k types.ManyFeatureKey, v any) (any, error) {
	prev, err := l.Store.SetValueAt(k, v)
	l.record("SetValueAt", err, manyKeyField(k), valueField(v), resultField(prev))
	return prev, err
}

func (l *Logging) AddValue(k types.ManyFeatureKey, v any) error {
	err := l.Store.AddValue(k, v)
	l.record("AddValue", err, manyKeyField(k), valueField(v))
	return err
}

func (l *Logging) RemoveValue(k types.ManyFeatureKey) (any, bool, error) {
	prev, ok, err := l.Store.RemoveValue(k)
	l.record("RemoveValue", err, manyKeyField(k), resultField(prev), zap.Bool("ok", ok))
	return prev, ok, err
}

func (l *Logging) AppendValue(k types.FeatureKey, v any) (int, error) {
	pos, err := l.Store.AppendValue(k, v)
	l.record("AppendValue", err, keyField(k), valueField(v), resultField(pos))
	return pos, err
}

func (l *Logging) AppendAllValues(k types.FeatureKey, values []any) (int, error) {
	pos, err := l.Store.AppendAllValues(k, values)
	l.record("AppendAllValues", err, keyField(k), valueField(values), resultField(pos))
	return pos, err
}

func (l *Logging) SizeOfValue(k types.FeatureKey) (int, error) {
	size, err := l.Store.SizeOfValue(k)
	l.record("SizeOfValue", err, keyField(k), resultField(size))
	return size, err
}

func (l *Logging) IndexOfValue(k types.FeatureKey, v any) (int, bool, error) {
	pos, ok, err := l.Store.IndexOfValue(k, v)
	l.record("IndexOfValue", err, keyField(k), valueField(v), resultField(pos), zap.Bool("ok", ok))
	return pos, ok, err
}

func (l *Logging) LastIndexOfValue(k types.FeatureKey, v any) (int, bool, error) {
	pos, ok, err := l.Store.LastIndexOfValue(k, v)
	l.record("LastIndexOfValue", err, keyField(k), valueField(v), resultField(pos), zap.Bool("ok", ok))
	return pos, ok, err
}

func (l *Logging) MoveValue(source, target types.ManyFeatureKey) (any, bool, error) {
	moved, ok, err := l.Store.MoveValue(source, target)
	l.record("MoveValue", err, manyKeyField(source), zap.Stringer("target", target), resultField(moved), zap.Bool("ok", ok))
	return moved, ok, err
}

func (l *Logging) RemoveAllValues(k types.FeatureKey) error {
	err := l.Store.RemoveAllValues(k)
	l.record("RemoveAllValues", err, keyField(k))
	return err
}

func (l *Logging) ReferenceAt(k types.ManyFeatureKey) (types.ID, bool, error) {
	ref, ok, err := l.Store.ReferenceAt(k)
	l.record("ReferenceAt", err, manyKeyField(k), resultField(ref), zap.Bool("ok", ok))
	return ref, ok, err
}

func (l *Logging) AddReference(k types.ManyFeatureKey, ref types.ID, containment bool) error {
	err := l.Store.AddReference(k, ref, containment)
	l.record("AddReference", err, manyKeyField(k), valueField(ref), zap.Bool("containment", containment))
	return err
}

func (l *Logging) AllReferencesOf(k types.FeatureKey) ([]types.ID, error) {
	refs, err := l.Store.AllReferencesOf(k)
	l.record("AllReferencesOf", err, keyField(k), resultField(refs))
	return refs, err
}

func (l *Logging) Save() error {
	err := l.Store.Save()
	l.record("Save", err)
	return err
}

func (l *Logging) Close() error {
	err := l.Store.Close()
	l.record("Close", err)
	l.Store = NewClosed(l.Store.Backend())
	return err
}
