package store

import (
	"fmt"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

type entryKind uint8

const (
	kindHas entryKind = iota
	kindContainer
	kindMetaclass
	kindValue
	kindReference
	kindValues
	kindReferences
	kindSize
	kindHasValue
	kindHasReference
)

// featureKinds are the entries a mutation of one feature invalidates.
var featureKinds = []entryKind{
	kindValue, kindReference, kindValues, kindReferences, kindSize, kindHasValue, kindHasReference,
}

type cacheKey struct {
	kind entryKind
	id   types.ID
	name string
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%d/%s#%s", k.kind, k.id, k.name)
}

type cached struct {
	value any
	ok    bool
}

// Caching memoizes reads of object state, metaclasses, containers and
// feature values in a bounded LRU cache. Concurrent misses on one entry are
// collapsed into a single read of the inner store. Failed reads are never
// cached. Mutations forward to the inner store and drop the entries they
// touch.
//
// A fill that started before a mutation finished is discarded: every
// invalidation bumps gen, and a fill only lands when gen is unchanged.
type Caching struct {
	types.Store

	cache *lru.Cache[cacheKey, cached]
	group singleflight.Group

	mu  sync.Mutex // guards gen and orders fills against invalidations
	gen uint64
}

var _ types.Store = (*Caching)(nil)

// NewCaching wraps inner with a cache of at most size entries.
func NewCaching(inner types.Store, size int) (*Caching, error) {
	if size <= 0 {
		size = types.DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, cached](size)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	return &Caching{Store: inner, cache: cache}, nil
}

// Len returns the number of cached entries.
func (c *Caching) Len() int {
	return c.cache.Len()
}

func (c *Caching) load(k cacheKey, read func() (any, bool, error)) (any, bool, error) {
	if e, ok := c.cache.Get(k); ok {
		return e.value, e.ok, nil
	}
	v, err, _ := c.group.Do(k.String(), func() (any, error) {
		c.mu.Lock()
		gen := c.gen
		c.mu.Unlock()

		value, ok, err := read()
		if err != nil {
			return nil, err
		}
		e := cached{value: value, ok: ok}

		c.mu.Lock()
		if c.gen == gen {
			c.cache.Add(k, e)
		}
		c.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, false, err
	}
	e := v.(cached)
	return e.value, e.ok, nil
}

// invalidate drops keys and discards every fill still in flight.
func (c *Caching) invalidate(keys ...cacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	for _, k := range keys {
		c.cache.Remove(k)
	}
}

func featureKeys(k types.FeatureKey) []cacheKey {
	keys := make([]cacheKey, 0, len(featureKinds))
	for _, kind := range featureKinds {
		keys = append(keys, cacheKey{kind: kind, id: k.ID, name: k.Name})
	}
	return keys
}

func containerKey(id types.ID) cacheKey {
	return cacheKey{kind: kindContainer, id: id}
}

// referenceKeys are the entries a reference write touches: the feature and,
// for containment, the referenced object's container.
func referenceKeys(k types.FeatureKey, ref types.ID, containment bool) []cacheKey {
	keys := featureKeys(k)
	if containment {
		keys = append(keys, containerKey(ref))
	}
	return keys
}

func (c *Caching) Create(id types.ID) error {
	defer c.invalidate(cacheKey{kind: kindHas, id: id})
	return c.Store.Create(id)
}

func (c *Caching) Has(id types.ID) (bool, error) {
	_, ok, err := c.load(cacheKey{kind: kindHas, id: id}, func() (any, bool, error) {
		ok, err := c.Store.Has(id)
		return nil, ok, err
	})
	return ok, err
}

func (c *Caching) ContainerOf(id types.ID) (types.ContainerDescriptor, bool, error) {
	v, ok, err := c.load(cacheKey{kind: kindContainer, id: id}, func() (any, bool, error) {
		return c.Store.ContainerOf(id)
	})
	if err != nil || !ok {
		return types.ContainerDescriptor{}, false, err
	}
	return v.(types.ContainerDescriptor), true, nil
}

func (c *Caching) ContainerFor(id types.ID, container types.ContainerDescriptor) error {
	defer c.invalidate(containerKey(id))
	return c.Store.ContainerFor(id, container)
}

func (c *Caching) RemoveContainer(id types.ID) error {
	defer c.invalidate(containerKey(id))
	return c.Store.RemoveContainer(id)
}

func (c *Caching) MetaclassOf(id types.ID) (types.ClassDescriptor, bool, error) {
	v, ok, err := c.load(cacheKey{kind: kindMetaclass, id: id}, func() (any, bool, error) {
		return c.Store.MetaclassOf(id)
	})
	if err != nil || !ok {
		return types.ClassDescriptor{}, false, err
	}
	return v.(types.ClassDescriptor), true, nil
}

func (c *Caching) MetaclassFor(id types.ID, class types.ClassDescriptor) error {
	defer c.invalidate(cacheKey{kind: kindMetaclass, id: id})
	return c.Store.MetaclassFor(id, class)
}

func (c *Caching) ValueOf(k types.FeatureKey) (any, bool, error) {
	return c.load(cacheKey{kind: kindValue, id: k.ID, name: k.Name}, func() (any, bool, error) {
		return c.Store.ValueOf(k)
	})
}

func (c *Caching) ValueFor(k types.FeatureKey, value any) (any, bool, error) {
	defer c.invalidate(featureKeys(k)...)
	return c.Store.ValueFor(k, value)
}

func (c *Caching) UnsetValue(k types.FeatureKey) error {
	defer c.invalidate(featureKeys(k)...)
	return c.Store.UnsetValue(k)
}

func (c *Caching) HasValue(k types.FeatureKey) (bool, error) {
	_, ok, err := c.load(cacheKey{kind: kindHasValue, id: k.ID, name: k.Name}, func() (any, bool, error) {
		ok, err := c.Store.HasValue(k)
		return nil, ok, err
	})
	return ok, err
}

func (c *Caching) ReferenceOf(k types.FeatureKey) (types.ID, bool, error) {
	v, ok, err := c.load(cacheKey{kind: kindReference, id: k.ID, name: k.Name}, func() (any, bool, error) {
		return c.Store.ReferenceOf(k)
	})
	if err != nil || !ok {
		return "", false, err
	}
	return v.(types.ID), true, nil
}

func (c *Caching) ReferenceFor(k types.FeatureKey, ref types.ID, containment bool) (types.ID, bool, error) {
	defer c.invalidate(referenceKeys(k, ref, containment)...)
	return c.Store.ReferenceFor(k, ref, containment)
}

func (c *Caching) UnsetReference(k types.FeatureKey) error {
	defer c.invalidate(featureKeys(k)...)
	return c.Store.UnsetReference(k)
}

func (c *Caching) HasReference(k types.FeatureKey) (bool, error) {
	_, ok, err := c.load(cacheKey{kind: kindHasReference, id: k.ID, name: k.Name}, func() (any, bool, error) {
		ok, err := c.Store.HasReference(k)
		return nil, ok, err
	})
	return ok, err
}

func (c *Caching) values(k types.FeatureKey) ([]any, error) {
	v, _, err := c.load(cacheKey{kind: kindValues, id: k.ID, name: k.Name}, func() (any, bool, error) {
		values, err := c.Store.AllValuesOf(k)
		return values, true, err
	})
	if err != nil {
		return nil, err
	}
	values, _ := v.([]any)
	return values, nil
}

// ValueAt is served from the cached element list when there is one.
func (c *Caching) ValueAt(k types.ManyFeatureKey) (any, bool, error) {
	if err := k.CheckPosition(); err != nil {
		return nil, false, err
	}
	if e, ok := c.cache.Peek(cacheKey{kind: kindValues, id: k.ID, name: k.Name}); ok {
		values, _ := e.value.([]any)
		if k.Position < len(values) {
			return values[k.Position], true, nil
		}
		return nil, false, nil
	}
	return c.Store.ValueAt(k)
}

func (c *Caching) AllValuesOf(k types.FeatureKey) ([]any, error) {
	values, err := c.values(k)
	return slices.Clone(values), err
}

func (c *Caching) SetValueAt(k types.ManyFeatureKey, value any) (any, error) {
	defer c.invalidate(featureKeys(k.FeatureKey)...)
	return c.Store.SetValueAt(k, value)
}

func (c *Caching) AddValue(k types.ManyFeatureKey, value any) error {
	defer c.invalidate(featureKeys(k.FeatureKey)...)
	return c.Store.AddValue(k, value)
}

func (c *Caching) RemoveValue(k types.ManyFeatureKey) (any, bool, error) {
	defer c.invalidate(featureKeys(k.FeatureKey)...)
	return c.Store.RemoveValue(k)
}

func (c *Caching) AppendValue(k types.FeatureKey, value any) (int, error) {
	defer c.invalidate(featureKeys(k)...)
	return c.Store.AppendValue(k, value)
}

func (c *Caching) AppendAllValues(k types.FeatureKey, values []any) (int, error) {
	defer c.invalidate(featureKeys(k)...)
	return c.Store.AppendAllValues(k, values)
}

func (c *Caching) SizeOfValue(k types.FeatureKey) (int, error) {
	v, _, err := c.load(cacheKey{kind: kindSize, id: k.ID, name: k.Name}, func() (any, bool, error) {
		size, err := c.Store.SizeOfValue(k)
		return size, true, err
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (c *Caching) MoveValue(source, target types.ManyFeatureKey) (any, bool, error) {
	defer c.invalidate(append(featureKeys(source.FeatureKey), featureKeys(target.FeatureKey)...)...)
	return c.Store.MoveValue(source, target)
}

func (c *Caching) RemoveAllValues(k types.FeatureKey) error {
	defer c.invalidate(featureKeys(k)...)
	return c.Store.RemoveAllValues(k)
}

func (c *Caching) AddReference(k types.ManyFeatureKey, ref types.ID, containment bool) error {
	defer c.invalidate(referenceKeys(k.FeatureKey, ref, containment)...)
	return c.Store.AddReference(k, ref, containment)
}

func (c *Caching) AllReferencesOf(k types.FeatureKey) ([]types.ID, error) {
	v, _, err := c.load(cacheKey{kind: kindReferences, id: k.ID, name: k.Name}, func() (any, bool, error) {
		refs, err := c.Store.AllReferencesOf(k)
		return refs, true, err
	})
	if err != nil {
		return nil, err
	}
	refs, _ := v.([]types.ID)
	return slices.Clone(refs), nil
}

// Close drops every cached entry before closing the inner store.
func (c *Caching) Close() error {
	c.mu.Lock()
	c.gen++
	c.cache.Purge()
	c.mu.Unlock()
	err := c.Store.Close()
	c.Store = NewClosed(c.Store.Backend())
	return err
}
