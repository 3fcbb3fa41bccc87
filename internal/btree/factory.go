package btree

import (
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/featurestore/internal/factory"
	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Factory builds btree backends.
type Factory struct {
	factory.Base
}

var _ types.Factory = (*Factory)(nil)

// NewFactory returns the btree factory. A nil logger discards logs.
func NewFactory(logger *zap.Logger) *Factory {
	return &Factory{Base: factory.NewBase(types.BackendBTree, []string{types.MappingNative}, logger)}
}

// CreateTransientBackend returns a backend over a private in-memory
// database.
func (f *Factory) CreateTransientBackend(config types.Config) (types.Backend, error) {
	if _, err := f.ResolveMapping(config); err != nil {
		return nil, err
	}
	b, err := OpenMemory(config.Codec, f.Logger)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (f *Factory) CreatePersistentBackend(dir string, config types.Config) (types.Backend, error) {
	if _, err := f.Prepare(dir, config); err != nil {
		return nil, err
	}
	b, err := Open(filepath.Join(dir, DBFileName), config.Codec, f.Logger)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (f *Factory) CopyBackend(from, to types.Backend) error {
	if err := f.CheckCopy(from, to); err != nil {
		return err
	}
	return from.CopyTo(to)
}
