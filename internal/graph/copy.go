package graph

import (
	"fmt"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// CopyTo copies every vertex, edge and metaclass vertex into target. An
// object present in both ends up exactly as it is here.
func (b *Backend) CopyTo(target types.Backend) error {
	t, ok := target.(*Backend)
	if !ok {
		return fmt.Errorf("copy graph backend to %s: %w", target.Family(), types.ErrFamilyMismatch)
	}
	if t == b {
		return nil
	}

	b.g.mu.RLock()
	defer b.g.mu.RUnlock()
	if err := b.checkOpen(); err != nil {
		return err
	}
	t.g.mu.Lock()
	defer t.g.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}

	for key, c := range b.g.metaclasses {
		if _, ok := t.g.metaclasses[key]; !ok {
			t.g.metaclasses[key] = c
		}
	}
	for _, id := range b.g.sortedIDs() {
		t.g.replaceVertex(b.g.vertices[id], b.g.out[id])
	}
	if t.dir != "" {
		return t.save()
	}
	return nil
}
