package kv

// Substrate is the flat ordered key-value store a Backend writes through.
// Implementations do their own locking.
type Substrate interface {
	Get(key []byte) ([]byte, bool, error)
	Put(key, value []byte) error
	Delete(key []byte) error

	// Scan calls fn for every entry whose key starts with prefix, in key
	// order. An empty prefix scans everything.
	Scan(prefix []byte, fn func(key, value []byte) error) error

	// Commit makes pending writes durable.
	Commit() error
	Close() error
	Persistent() bool
}

// prefixEnd returns the smallest key greater than every key with the given
// prefix, or nil if there is none.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
