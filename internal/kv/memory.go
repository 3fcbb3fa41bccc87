package kv

import (
	"bytes"
	"slices"
	"sync"
)

// MemorySubstrate keeps the key space in a map. Values are copied on the way
// in and out so callers never share buffers with the store.
type MemorySubstrate struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemorySubstrate creates an empty in-memory substrate.
func NewMemorySubstrate() *MemorySubstrate {
	return &MemorySubstrate{data: make(map[string][]byte)}
}

func (m *MemorySubstrate) Get(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

func (m *MemorySubstrate) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[string(key)] = bytes.Clone(value)
	return nil
}

func (m *MemorySubstrate) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, string(key))
	return nil
}

func (m *MemorySubstrate) Scan(prefix []byte, fn func(key, value []byte) error) error {
	m.mu.RLock()
	var keys []string
	for k := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	entries := make([][2][]byte, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, [2][]byte{[]byte(k), bytes.Clone(m.data[k])})
	}
	m.mu.RUnlock()

	for _, e := range entries {
		if err := fn(e[0], e[1]); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored keys.
func (m *MemorySubstrate) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *MemorySubstrate) Commit() error    { return nil }
func (m *MemorySubstrate) Persistent() bool { return false }

func (m *MemorySubstrate) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string][]byte)
	return nil
}
