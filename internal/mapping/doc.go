// Package mapping emulates ordered multi-valued slots on substrates that only
// offer flat key-to-value lookup, and derives the secondary FeatureStore
// operations (append, indexOf, move, reference variants) from the primitive
// ones every backend family implements.
//
// Three encodings are available, selected by name:
//
//   - maps: the slot is one sparse, integer-keyed sorted map stored under the
//     unpositioned key; size is lastKey + 1.
//   - lists: the slot is one dense slice stored under the unpositioned key.
//   - indices: every element is stored under its own positioned key and the
//     size under the unpositioned key.
//
// Every mutation re-establishes contiguity before returning, so callers never
// observe a gap in [0, size).
package mapping
