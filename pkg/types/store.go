package types

// FeatureStore is the per-object, per-slot contract the object-graph runtime
// calls. Backends, the stores that wrap them, and every decorator implement
// it identically.
//
// Reads of an unset slot report ok == false with a nil error. Any operation
// naming an owner ID that was never created fails with ErrNotFound. After
// Close every operation fails with ErrInvalidState; Save and Close themselves
// never fail on a closed store.
type FeatureStore interface {
	// Create registers a new object. Existence is tracked by the substrate,
	// not inferred from slot presence.
	Create(id ID) error

	// Has reports whether the object exists.
	Has(id ID) (bool, error)

	// ContainerOf returns the container edge of id, if any.
	ContainerOf(id ID) (ContainerDescriptor, bool, error)

	// ContainerFor replaces the container edge of id.
	ContainerFor(id ID, container ContainerDescriptor) error

	// RemoveContainer drops the container edge of id.
	RemoveContainer(id ID) error

	// MetaclassOf returns the type tag of id, if any.
	MetaclassOf(id ID) (ClassDescriptor, bool, error)

	// MetaclassFor sets the type tag of id and registers the type in the
	// instance index on first use.
	MetaclassFor(id ID, class ClassDescriptor) error

	// AllInstances lists objects tagged with class. When strict is false,
	// instances of every registered concrete subtype are included. A strict
	// query on an abstract type is always empty.
	AllInstances(class ClassDescriptor, strict bool) ([]ID, error)

	// ValueOf reads a single-valued slot.
	ValueOf(key FeatureKey) (any, bool, error)

	// ValueFor writes a single-valued slot and returns the previous value.
	ValueFor(key FeatureKey, value any) (any, bool, error)

	// UnsetValue clears a single-valued slot.
	UnsetValue(key FeatureKey) error

	// HasValue reports whether a single-valued slot is set.
	HasValue(key FeatureKey) (bool, error)

	// ReferenceOf reads a single-valued reference slot.
	ReferenceOf(key FeatureKey) (ID, bool, error)

	// ReferenceFor writes a single-valued reference slot and returns the
	// previous reference. When containment is true the referenced object's
	// container edge becomes (key.ID, key.Name).
	ReferenceFor(key FeatureKey, ref ID, containment bool) (ID, bool, error)

	// UnsetReference clears a single-valued reference slot.
	UnsetReference(key FeatureKey) error

	// HasReference reports whether a single-valued reference slot is set.
	HasReference(key FeatureKey) (bool, error)

	// ValueAt reads one element of a multi-valued slot. A position past the
	// end reports ok == false.
	ValueAt(key ManyFeatureKey) (any, bool, error)

	// AllValuesOf returns every element of a multi-valued slot in order.
	AllValuesOf(key FeatureKey) ([]any, error)

	// SetValueAt replaces an existing element and returns the previous one.
	// Fails with ErrNotFound on an empty slot and ErrIndexOutOfRange past the
	// end.
	SetValueAt(key ManyFeatureKey, value any) (any, error)

	// AddValue inserts value at key.Position, shifting successors up.
	// Position must be within [0, size].
	AddValue(key ManyFeatureKey, value any) error

	// RemoveValue deletes the element at key.Position, shifting successors
	// down, and returns it.
	RemoveValue(key ManyFeatureKey) (any, bool, error)

	// AppendValue adds value at the end and returns its position.
	AppendValue(key FeatureKey, value any) (int, error)

	// AppendAllValues adds values at the end and returns the position of the
	// first one.
	AppendAllValues(key FeatureKey, values []any) (int, error)

	// SizeOfValue returns the number of elements; 0 for an unset slot.
	SizeOfValue(key FeatureKey) (int, error)

	// IndexOfValue returns the first position holding value.
	IndexOfValue(key FeatureKey, value any) (int, bool, error)

	// LastIndexOfValue returns the last position holding value.
	LastIndexOfValue(key FeatureKey, value any) (int, bool, error)

	// MoveValue removes the element at source and inserts it at target.
	MoveValue(source, target ManyFeatureKey) (any, bool, error)

	// RemoveAllValues clears a multi-valued slot.
	RemoveAllValues(key FeatureKey) error

	// ReferenceAt reads one element of a multi-valued reference slot.
	ReferenceAt(key ManyFeatureKey) (ID, bool, error)

	// AddReference inserts ref at key.Position. When containment is true the
	// referenced object's container edge becomes (key.ID, key.Name).
	AddReference(key ManyFeatureKey, ref ID, containment bool) error

	// AllReferencesOf returns every element of a multi-valued reference slot.
	AllReferencesOf(key FeatureKey) ([]ID, error)

	// Save flushes pending writes to stable storage. Idempotent.
	Save() error

	// Close releases resources. Idempotent.
	Close() error
}

// Backend is the substrate-facing FeatureStore of one backend family.
type Backend interface {
	FeatureStore

	// Family returns the scheme of the backend family.
	Family() string

	// Variant returns the multi-valued encoding in use.
	Variant() string

	// IsPersistent reports whether the backend writes to stable storage.
	IsPersistent() bool

	// CopyTo transfers every object, slot, container edge and type
	// registration into target, which must belong to the same family. A
	// failure leaves target in an indeterminate state.
	CopyTo(target Backend) error
}

// Store is the (possibly decorated) FeatureStore handed to the runtime.
type Store interface {
	FeatureStore

	// Backend returns the backend at the bottom of the decorator chain.
	Backend() Backend
}

// Factory builds backends and stores for one backend family.
type Factory interface {
	// Name returns the scheme the factory serves.
	Name() string

	// CreateTransientBackend returns an in-memory backend using the
	// mapping and codec named by config. Fails with ErrUnsupported for a
	// mapping the family does not offer.
	CreateTransientBackend(config Config) (Backend, error)

	// CreatePersistentBackend opens or creates the backend stored in dir.
	// Fails with ErrConfigMismatch if dir holds another family or variant.
	CreatePersistentBackend(dir string, config Config) (Backend, error)

	// CreateStore stacks the decorator chain selected by config on backend.
	CreateStore(backend Backend, config Config) (Store, error)

	// CopyBackend copies from into to. Both must belong to this family.
	CopyBackend(from, to Backend) error
}

// Codec serializes attribute values. Stores treat values as opaque; the
// caller supplies the codec through Config.
type Codec interface {
	Marshal(value any) ([]byte, error)
	Unmarshal(data []byte) (any, error)
}
