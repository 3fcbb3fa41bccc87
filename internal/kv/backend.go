package kv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/featurestore/internal/mapping"
	"github.com/mesh-intelligence/featurestore/pkg/codec"
	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// present is the value stored under object and instance keys.
var present = []byte{1}

// Backend implements types.Backend over a flat key-value Substrate.
type Backend struct {
	mapping.Extended

	substrate Substrate
	mapper    mapping.ManyValueMapper
	codec     types.Codec
	logger    *zap.Logger
	closed    atomic.Bool
}

var _ types.Backend = (*Backend)(nil)

// NewBackend creates a backend over substrate using mapper for multi-valued
// slots. A nil codec selects codec.Default; a nil logger discards logs.
func NewBackend(substrate Substrate, mapper mapping.ManyValueMapper, c types.Codec, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Backend{
		substrate: substrate,
		mapper:    mapper,
		codec:     codec.Or(c),
		logger:    logger.With(zap.String("family", types.BackendKV), zap.String("mapping", mapper.Variant())),
	}
	b.Extended = mapping.Extend(b)
	return b
}

func (b *Backend) Family() string     { return types.BackendKV }
func (b *Backend) Variant() string    { return b.mapper.Variant() }
func (b *Backend) IsPersistent() bool { return b.substrate.Persistent() }

func (b *Backend) checkOpen() error {
	if b.closed.Load() {
		return types.ErrInvalidState
	}
	return nil
}

// checkOwner fails with ErrNotFound when id was never created.
func (b *Backend) checkOwner(id types.ID) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	_, ok, err := b.substrate.Get(idKey(kindObject, id))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("object %s: %w", id, types.ErrNotFound)
	}
	return nil
}

func (b *Backend) Create(id types.ID) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	if id.IsZero() || bytes.IndexByte([]byte(id), sep) >= 0 {
		return fmt.Errorf("create %q: %w", id, types.ErrInvalidID)
	}
	return b.substrate.Put(idKey(kindObject, id), present)
}

func (b *Backend) Has(id types.ID) (bool, error) {
	if err := b.checkOpen(); err != nil {
		return false, err
	}
	_, ok, err := b.substrate.Get(idKey(kindObject, id))
	return ok, err
}

func (b *Backend) ContainerOf(id types.ID) (types.ContainerDescriptor, bool, error) {
	var c types.ContainerDescriptor
	if err := b.checkOwner(id); err != nil {
		return c, false, err
	}
	data, ok, err := b.substrate.Get(idKey(kindContainer, id))
	if err != nil || !ok {
		return c, false, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, false, fmt.Errorf("container of %s: %w: %v", id, types.ErrInvalidData, err)
	}
	return c, true, nil
}

func (b *Backend) ContainerFor(id types.ID, container types.ContainerDescriptor) error {
	if err := b.checkOwner(id); err != nil {
		return err
	}
	if err := b.checkOwner(container.ID); err != nil {
		return err
	}
	data, err := json.Marshal(container)
	if err != nil {
		return err
	}
	return b.substrate.Put(idKey(kindContainer, id), data)
}

func (b *Backend) RemoveContainer(id types.ID) error {
	if err := b.checkOwner(id); err != nil {
		return err
	}
	return b.substrate.Delete(idKey(kindContainer, id))
}

func (b *Backend) MetaclassOf(id types.ID) (types.ClassDescriptor, bool, error) {
	if err := b.checkOwner(id); err != nil {
		return types.ClassDescriptor{}, false, err
	}
	key, ok, err := b.substrate.Get(idKey(kindMetaclass, id))
	if err != nil || !ok {
		return types.ClassDescriptor{}, false, err
	}
	return b.registeredClass(append([]byte{kindClass}, key...))
}

func (b *Backend) registeredClass(key []byte) (types.ClassDescriptor, bool, error) {
	var c types.ClassDescriptor
	data, ok, err := b.substrate.Get(key)
	if err != nil || !ok {
		return c, false, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, false, fmt.Errorf("class %s: %w: %v", key[1:], types.ErrInvalidData, err)
	}
	return c, true, nil
}

// MetaclassFor tags id with class. The first use of a class registers its
// descriptor; re-tagging moves the object between instance index entries.
func (b *Backend) MetaclassFor(id types.ID, class types.ClassDescriptor) error {
	if err := b.checkOwner(id); err != nil {
		return err
	}
	if class.Abstract {
		return fmt.Errorf("metaclass %s is abstract: %w", class, types.ErrInvalidData)
	}

	previous, ok, err := b.substrate.Get(idKey(kindMetaclass, id))
	if err != nil {
		return err
	}
	if ok && string(previous) != class.Key() {
		old := types.ClassDescriptor{}
		old.Name, old.URI = splitClassKey(string(previous))
		if err := b.substrate.Delete(instanceKey(old, id)); err != nil {
			return err
		}
	}

	if _, registered, err := b.substrate.Get(classKey(class)); err != nil {
		return err
	} else if !registered {
		data, err := json.Marshal(class)
		if err != nil {
			return err
		}
		if err := b.substrate.Put(classKey(class), data); err != nil {
			return err
		}
	}

	if err := b.substrate.Put(idKey(kindMetaclass, id), []byte(class.Key())); err != nil {
		return err
	}
	return b.substrate.Put(instanceKey(class, id), present)
}

func (b *Backend) AllInstances(class types.ClassDescriptor, strict bool) ([]types.ID, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	if class.Abstract && strict {
		return nil, nil
	}

	targets := []types.ClassDescriptor{class}
	if !strict {
		err := b.substrate.Scan([]byte{kindClass}, func(_, value []byte) error {
			var c types.ClassDescriptor
			if err := json.Unmarshal(value, &c); err != nil {
				return fmt.Errorf("class index: %w: %v", types.ErrInvalidData, err)
			}
			if !c.Equal(class) && !c.Abstract && c.IsSubtypeOf(class) {
				targets = append(targets, c)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	var ids []types.ID
	for _, target := range targets {
		err := b.substrate.Scan(instancePrefix(target), func(key, _ []byte) error {
			ids = append(ids, instanceID(key))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func (b *Backend) ValueOf(key types.FeatureKey) (any, bool, error) {
	if err := b.checkOwner(key.ID); err != nil {
		return nil, false, err
	}
	return b.slots().value(slotKey(key))
}

func (b *Backend) ValueFor(key types.FeatureKey, value any) (any, bool, error) {
	if err := b.checkOwner(key.ID); err != nil {
		return nil, false, err
	}
	data, err := b.encodeValue(value)
	if err != nil {
		return nil, false, err
	}
	prev, ok, err := b.slots().value(slotKey(key))
	if err != nil {
		return nil, false, err
	}
	if err := b.substrate.Put(slotKey(key), data); err != nil {
		return nil, false, err
	}
	return prev, ok, nil
}

func (b *Backend) UnsetValue(key types.FeatureKey) error {
	if err := b.checkOwner(key.ID); err != nil {
		return err
	}
	return b.substrate.Delete(slotKey(key))
}

func (b *Backend) HasValue(key types.FeatureKey) (bool, error) {
	if err := b.checkOwner(key.ID); err != nil {
		return false, err
	}
	_, ok, err := b.substrate.Get(slotKey(key))
	return ok, err
}

func (b *Backend) ValueAt(key types.ManyFeatureKey) (any, bool, error) {
	if err := b.checkOwner(key.ID); err != nil {
		return nil, false, err
	}
	return b.mapper.ValueAt(b.slots(), key)
}

func (b *Backend) AllValuesOf(key types.FeatureKey) ([]any, error) {
	if err := b.checkOwner(key.ID); err != nil {
		return nil, err
	}
	return b.mapper.AllValuesOf(b.slots(), key)
}

func (b *Backend) SetValueAt(key types.ManyFeatureKey, value any) (any, error) {
	if err := b.checkOwner(key.ID); err != nil {
		return nil, err
	}
	return b.mapper.SetValueAt(b.slots(), key, value)
}

func (b *Backend) AddValue(key types.ManyFeatureKey, value any) error {
	if err := b.checkOwner(key.ID); err != nil {
		return err
	}
	return b.mapper.AddValue(b.slots(), key, value)
}

func (b *Backend) RemoveValue(key types.ManyFeatureKey) (any, bool, error) {
	if err := b.checkOwner(key.ID); err != nil {
		return nil, false, err
	}
	return b.mapper.RemoveValue(b.slots(), key)
}

func (b *Backend) SizeOfValue(key types.FeatureKey) (int, error) {
	if err := b.checkOwner(key.ID); err != nil {
		return 0, err
	}
	return b.mapper.SizeOfValue(b.slots(), key)
}

func (b *Backend) RemoveAllValues(key types.FeatureKey) error {
	if err := b.checkOwner(key.ID); err != nil {
		return err
	}
	return b.mapper.RemoveAllValues(b.slots(), key)
}

// Save commits pending writes. Saving a closed backend does nothing.
func (b *Backend) Save() error {
	if b.closed.Load() {
		return nil
	}
	return b.substrate.Commit()
}

// Close commits and releases the substrate. The backend is closed even when
// the final commit fails; the failure is logged and returned.
func (b *Backend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := b.substrate.Close(); err != nil {
		b.logger.Warn("closing substrate", zap.Error(err))
		return err
	}
	return nil
}

// CopyTo copies every entry into target. Slots are copied logically, so the
// target may use a different encoding or codec; everything else is copied
// byte for byte.
func (b *Backend) CopyTo(target types.Backend) error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	t, ok := target.(*Backend)
	if !ok {
		return fmt.Errorf("copy kv backend to %s: %w", target.Family(), types.ErrFamilyMismatch)
	}
	if err := t.checkOpen(); err != nil {
		return err
	}

	b.logger.Debug("copying backend", zap.String("target_mapping", t.Variant()))
	err := b.substrate.Scan(nil, func(key, value []byte) error {
		switch key[0] {
		case kindElement:
			return nil
		case kindSlot:
			return b.copySlot(t, key, value)
		default:
			return t.substrate.Put(key, value)
		}
	})
	if err != nil {
		return fmt.Errorf("copy kv backend: %w", err)
	}
	return t.substrate.Commit()
}

func (b *Backend) copySlot(t *Backend, rawKey, data []byte) error {
	key, err := parseSlotKey(rawKey)
	if err != nil {
		return err
	}
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("slot %s: %w: %v", key, types.ErrInvalidData, err)
	}

	if r.Kind == recordValue {
		v, err := b.codec.Unmarshal(r.Value)
		if err != nil {
			return err
		}
		encoded, err := t.encodeValue(v)
		if err != nil {
			return err
		}
		return t.substrate.Put(rawKey, encoded)
	}

	values, err := b.mapper.AllValuesOf(b.slots(), key)
	if err != nil {
		return err
	}
	if err := t.mapper.RemoveAllValues(t.slots(), key); err != nil {
		return err
	}
	for i, v := range values {
		if err := t.mapper.AddValue(t.slots(), key.At(i), v); err != nil {
			return err
		}
	}
	return nil
}

func parseSlotKey(raw []byte) (types.FeatureKey, error) {
	id, name, ok := bytes.Cut(raw[1:], []byte{sep})
	if !ok {
		return types.FeatureKey{}, fmt.Errorf("malformed slot key %q: %w", raw, types.ErrInvalidData)
	}
	return types.KeyOf(types.ID(id), string(name)), nil
}

func splitClassKey(key string) (name, uri string) {
	i := bytes.IndexByte([]byte(key), '@')
	if i < 0 {
		return key, ""
	}
	return key[:i], key[i+1:]
}

// slotView exposes the substrate to the mapping encodings.
type slotView struct {
	b *Backend
}

func (b *Backend) slots() slotView {
	return slotView{b: b}
}

func (s slotView) value(key []byte) (any, bool, error) {
	data, ok, err := s.b.substrate.Get(key)
	if err != nil || !ok {
		return nil, false, err
	}
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false, fmt.Errorf("decode value: %w: %v", types.ErrInvalidData, err)
	}
	if r.Kind != recordValue {
		return nil, false, fmt.Errorf("slot holds a %q record, not a value: %w", r.Kind, types.ErrInvalidData)
	}
	v, err := s.b.codec.Unmarshal(r.Value)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s slotView) Slot(key types.FeatureKey) (any, bool, error) {
	data, ok, err := s.b.substrate.Get(slotKey(key))
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := s.b.decodeSlot(data)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s slotView) SetSlot(key types.FeatureKey, value any) error {
	data, err := s.b.encodeSlot(value)
	if err != nil {
		return err
	}
	return s.b.substrate.Put(slotKey(key), data)
}

func (s slotView) DeleteSlot(key types.FeatureKey) error {
	return s.b.substrate.Delete(slotKey(key))
}

func (s slotView) Element(key types.ManyFeatureKey) (any, bool, error) {
	return s.value(elementKey(key))
}

func (s slotView) SetElement(key types.ManyFeatureKey, value any) error {
	data, err := s.b.encodeValue(value)
	if err != nil {
		return err
	}
	return s.b.substrate.Put(elementKey(key), data)
}

func (s slotView) DeleteElement(key types.ManyFeatureKey) error {
	return s.b.substrate.Delete(elementKey(key))
}
