// Package graph implements the graph backend family: one vertex per
// object, attributes as vertex properties, references as labelled edges,
// containment as an eContainer edge and types as kyanosInstanceOf edges to
// metaclass vertices. Persistent graphs live in two JSONL files.
package graph

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/featurestore/internal/mapping"
	"github.com/mesh-intelligence/featurestore/pkg/codec"
	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Backend implements types.Backend over a Graph.
type Backend struct {
	mapping.Extended

	g      *Graph
	dir    string
	codec  types.Codec
	logger *zap.Logger
	closed atomic.Bool
}

var _ types.Backend = (*Backend)(nil)

// NewTransient returns a backend over an empty in-memory graph.
func NewTransient(logger *zap.Logger) *Backend {
	return newBackend(New(), "", nil, logger)
}

// Open loads the graph stored in dir, or starts an empty one.
func Open(dir string, c types.Codec, logger *zap.Logger) (*Backend, error) {
	b := newBackend(New(), dir, c, logger)
	if err := b.load(); err != nil {
		return nil, err
	}
	return b, nil
}

func newBackend(g *Graph, dir string, c types.Codec, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Backend{
		g:      g,
		dir:    dir,
		codec:  codec.Or(c),
		logger: logger.With(zap.String("family", types.BackendGraph)),
	}
	b.Extended = mapping.Extend(b)
	return b
}

func (b *Backend) Family() string     { return types.BackendGraph }
func (b *Backend) Variant() string    { return types.MappingNative }
func (b *Backend) IsPersistent() bool { return b.dir != "" }

func (b *Backend) checkOpen() error {
	if b.closed.Load() {
		return types.ErrInvalidState
	}
	return nil
}

// owner returns the vertex of an existing object. Callers hold the lock.
func (b *Backend) owner(id types.ID) (*Vertex, error) {
	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	v, ok := b.g.vertex(id)
	if !ok {
		return nil, fmt.Errorf("object %s: %w", id, types.ErrNotFound)
	}
	return v, nil
}

func (b *Backend) Create(id types.ID) error {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()

	if err := b.checkOpen(); err != nil {
		return err
	}
	if id.IsZero() {
		return fmt.Errorf("create %q: %w", id, types.ErrInvalidID)
	}
	b.g.addVertex(id)
	return nil
}

func (b *Backend) Has(id types.ID) (bool, error) {
	b.g.mu.RLock()
	defer b.g.mu.RUnlock()

	if err := b.checkOpen(); err != nil {
		return false, err
	}
	_, ok := b.g.vertex(id)
	return ok, nil
}

func (b *Backend) ContainerOf(id types.ID) (types.ContainerDescriptor, bool, error) {
	b.g.mu.RLock()
	defer b.g.mu.RUnlock()

	if _, err := b.owner(id); err != nil {
		return types.ContainerDescriptor{}, false, err
	}
	e := b.g.outEdge(id, labelContainer, noPosition)
	if e == nil {
		return types.ContainerDescriptor{}, false, nil
	}
	return types.ContainerDescriptor{ID: types.ID(e.In), Name: e.Feature}, true, nil
}

func (b *Backend) ContainerFor(id types.ID, container types.ContainerDescriptor) error {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()

	if _, err := b.owner(id); err != nil {
		return err
	}
	if _, err := b.owner(container.ID); err != nil {
		return err
	}
	if e := b.g.outEdge(id, labelContainer, noPosition); e != nil {
		b.g.removeEdge(e)
	}
	b.g.addEdge(&Edge{
		Label:    labelContainer,
		Out:      id,
		In:       string(container.ID),
		Position: noPosition,
		Feature:  container.Name,
	})
	return nil
}

func (b *Backend) RemoveContainer(id types.ID) error {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()

	if _, err := b.owner(id); err != nil {
		return err
	}
	if e := b.g.outEdge(id, labelContainer, noPosition); e != nil {
		b.g.removeEdge(e)
	}
	return nil
}

func (b *Backend) MetaclassOf(id types.ID) (types.ClassDescriptor, bool, error) {
	b.g.mu.RLock()
	defer b.g.mu.RUnlock()

	if _, err := b.owner(id); err != nil {
		return types.ClassDescriptor{}, false, err
	}
	e := b.g.outEdge(id, labelInstanceOf, noPosition)
	if e == nil {
		return types.ClassDescriptor{}, false, nil
	}
	c, ok := b.g.metaclasses[e.In]
	if !ok {
		return types.ClassDescriptor{}, false, fmt.Errorf("metaclass vertex %s: %w", e.In, types.ErrInvalidData)
	}
	return c, true, nil
}

// MetaclassFor points id at the metaclass vertex of class, creating the
// vertex on first use.
func (b *Backend) MetaclassFor(id types.ID, class types.ClassDescriptor) error {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()

	if _, err := b.owner(id); err != nil {
		return err
	}
	if class.Abstract {
		return fmt.Errorf("metaclass %s is abstract: %w", class, types.ErrInvalidData)
	}
	if _, ok := b.g.metaclasses[class.Key()]; !ok {
		b.g.metaclasses[class.Key()] = class
	}
	if e := b.g.outEdge(id, labelInstanceOf, noPosition); e != nil {
		b.g.removeEdge(e)
	}
	b.g.addEdge(&Edge{Label: labelInstanceOf, Out: id, In: class.Key(), Position: noPosition})
	return nil
}

func (b *Backend) AllInstances(class types.ClassDescriptor, strict bool) ([]types.ID, error) {
	b.g.mu.RLock()
	defer b.g.mu.RUnlock()

	if err := b.checkOpen(); err != nil {
		return nil, err
	}
	if class.Abstract && strict {
		return nil, nil
	}

	keys := []string{class.Key()}
	if !strict {
		for key, c := range b.g.metaclasses {
			if !c.Equal(class) && !c.Abstract && c.IsSubtypeOf(class) {
				keys = append(keys, key)
			}
		}
	}

	var ids []types.ID
	for _, key := range keys {
		for _, e := range b.g.in[key] {
			if e.Label == labelInstanceOf {
				ids = append(ids, e.Out)
			}
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// single reads the single-valued slot name of v, which is either a
// property or a reference edge.
func (b *Backend) single(v *Vertex, name string) (any, bool) {
	if p, ok := v.Props[name]; ok {
		return cloneValue(p), true
	}
	if e := b.g.outEdge(v.ID, name, noPosition); e != nil {
		return types.ID(e.In), true
	}
	return nil, false
}

func (b *Backend) clearSingle(v *Vertex, name string) {
	delete(v.Props, name)
	if e := b.g.outEdge(v.ID, name, noPosition); e != nil {
		b.g.removeEdge(e)
	}
}

func (b *Backend) ValueOf(key types.FeatureKey) (any, bool, error) {
	b.g.mu.RLock()
	defer b.g.mu.RUnlock()

	v, err := b.owner(key.ID)
	if err != nil {
		return nil, false, err
	}
	value, ok := b.single(v, key.Name)
	return value, ok, nil
}

func (b *Backend) ValueFor(key types.FeatureKey, value any) (any, bool, error) {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()

	v, err := b.owner(key.ID)
	if err != nil {
		return nil, false, err
	}
	if value == nil {
		return nil, false, fmt.Errorf("set %s to nil: %w", key, types.ErrInvalidData)
	}
	prev, ok := b.single(v, key.Name)
	b.clearSingle(v, key.Name)
	if ref, isRef := value.(types.ID); isRef {
		b.g.addEdge(&Edge{Label: key.Name, Out: key.ID, In: string(ref), Position: noPosition})
	} else {
		v.Props[key.Name] = cloneValue(value)
	}
	return prev, ok, nil
}

func (b *Backend) UnsetValue(key types.FeatureKey) error {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()

	v, err := b.owner(key.ID)
	if err != nil {
		return err
	}
	b.clearSingle(v, key.Name)
	return nil
}

func (b *Backend) HasValue(key types.FeatureKey) (bool, error) {
	b.g.mu.RLock()
	defer b.g.mu.RUnlock()

	v, err := b.owner(key.ID)
	if err != nil {
		return false, err
	}
	_, ok := b.single(v, key.Name)
	return ok, nil
}

func elementProp(name string, i int) string {
	return name + ":" + strconv.Itoa(i)
}

func size(v *Vertex, name string) int {
	n, _ := v.Props[name+sizeSuffix].(int)
	return n
}

func setSize(v *Vertex, name string, n int) {
	if n == 0 {
		delete(v.Props, name+sizeSuffix)
		return
	}
	v.Props[name+sizeSuffix] = n
}

func (b *Backend) element(v *Vertex, name string, i int) any {
	if p, ok := v.Props[elementProp(name, i)]; ok {
		return cloneValue(p)
	}
	if e := b.g.outEdge(v.ID, name, i); e != nil {
		return types.ID(e.In)
	}
	return nil
}

func (b *Backend) setElement(v *Vertex, name string, i int, value any) {
	if ref, isRef := value.(types.ID); isRef {
		b.g.addEdge(&Edge{Label: name, Out: v.ID, In: string(ref), Position: i})
		return
	}
	v.Props[elementProp(name, i)] = cloneValue(value)
}

func (b *Backend) clearElement(v *Vertex, name string, i int) {
	delete(v.Props, elementProp(name, i))
	if e := b.g.outEdge(v.ID, name, i); e != nil {
		b.g.removeEdge(e)
	}
}

func (b *Backend) moveElement(v *Vertex, name string, from, to int) {
	if p, ok := v.Props[elementProp(name, from)]; ok {
		v.Props[elementProp(name, to)] = p
		delete(v.Props, elementProp(name, from))
		return
	}
	if e := b.g.outEdge(v.ID, name, from); e != nil {
		e.Position = to
	}
}

func (b *Backend) ValueAt(key types.ManyFeatureKey) (any, bool, error) {
	b.g.mu.RLock()
	defer b.g.mu.RUnlock()

	v, err := b.owner(key.ID)
	if err != nil {
		return nil, false, err
	}
	if err := key.CheckPosition(); err != nil {
		return nil, false, err
	}
	if key.Position >= size(v, key.Name) {
		return nil, false, nil
	}
	return b.element(v, key.Name, key.Position), true, nil
}

func (b *Backend) AllValuesOf(key types.FeatureKey) ([]any, error) {
	b.g.mu.RLock()
	defer b.g.mu.RUnlock()

	v, err := b.owner(key.ID)
	if err != nil {
		return nil, err
	}
	n := size(v, key.Name)
	if n == 0 {
		return nil, nil
	}
	values := make([]any, n)
	for i := range n {
		values[i] = b.element(v, key.Name, i)
	}
	return values, nil
}

func (b *Backend) SetValueAt(key types.ManyFeatureKey, value any) (any, error) {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()

	v, err := b.owner(key.ID)
	if err != nil {
		return nil, err
	}
	if err := key.CheckPosition(); err != nil {
		return nil, err
	}
	if value == nil {
		return nil, fmt.Errorf("set %s to nil: %w", key, types.ErrInvalidData)
	}
	n := size(v, key.Name)
	if n == 0 {
		return nil, fmt.Errorf("set %s: %w", key, types.ErrNotFound)
	}
	if key.Position >= n {
		return nil, fmt.Errorf("set %s in %d values: %w", key, n, types.ErrIndexOutOfRange)
	}
	prev := b.element(v, key.Name, key.Position)
	b.clearElement(v, key.Name, key.Position)
	b.setElement(v, key.Name, key.Position, value)
	return prev, nil
}

// AddValue shifts the tail up starting from the last element so no
// element is overwritten.
func (b *Backend) AddValue(key types.ManyFeatureKey, value any) error {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()

	v, err := b.owner(key.ID)
	if err != nil {
		return err
	}
	if err := key.CheckPosition(); err != nil {
		return err
	}
	if value == nil {
		return fmt.Errorf("add nil at %s: %w", key, types.ErrInvalidData)
	}
	n := size(v, key.Name)
	if key.Position > n {
		return fmt.Errorf("add %s to %d values: %w", key, n, types.ErrIndexOutOfRange)
	}
	for i := n - 1; i >= key.Position; i-- {
		b.moveElement(v, key.Name, i, i+1)
	}
	b.setElement(v, key.Name, key.Position, value)
	setSize(v, key.Name, n+1)
	return nil
}

// RemoveValue shifts the tail down starting right after the removed
// element.
func (b *Backend) RemoveValue(key types.ManyFeatureKey) (any, bool, error) {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()

	v, err := b.owner(key.ID)
	if err != nil {
		return nil, false, err
	}
	if err := key.CheckPosition(); err != nil {
		return nil, false, err
	}
	n := size(v, key.Name)
	if key.Position >= n {
		return nil, false, nil
	}
	prev := b.element(v, key.Name, key.Position)
	b.clearElement(v, key.Name, key.Position)
	for i := key.Position + 1; i < n; i++ {
		b.moveElement(v, key.Name, i, i-1)
	}
	setSize(v, key.Name, n-1)
	return prev, true, nil
}

func (b *Backend) SizeOfValue(key types.FeatureKey) (int, error) {
	b.g.mu.RLock()
	defer b.g.mu.RUnlock()

	v, err := b.owner(key.ID)
	if err != nil {
		return 0, err
	}
	return size(v, key.Name), nil
}

func (b *Backend) RemoveAllValues(key types.FeatureKey) error {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()

	v, err := b.owner(key.ID)
	if err != nil {
		return err
	}
	for i := range size(v, key.Name) {
		b.clearElement(v, key.Name, i)
	}
	setSize(v, key.Name, 0)
	return nil
}

// Save writes a persistent graph to its directory. Transient graphs and
// closed backends have nothing to save.
func (b *Backend) Save() error {
	if b.closed.Load() || b.dir == "" {
		return nil
	}
	b.g.mu.RLock()
	defer b.g.mu.RUnlock()
	return b.save()
}

// Close saves a persistent graph and releases it. The backend is closed
// even when the final save fails.
func (b *Backend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.g.mu.Lock()
	defer b.g.mu.Unlock()

	var err error
	if b.dir != "" {
		if err = b.save(); err != nil {
			b.logger.Warn("saving graph on close", zap.String("dir", b.dir), zap.Error(err))
		}
	}
	b.g.vertices, b.g.out, b.g.in = nil, nil, nil
	return err
}

func cloneValue(v any) any {
	if p, ok := v.([]byte); ok {
		return bytes.Clone(p)
	}
	return v
}
