package kv

import (
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/featurestore/internal/factory"
	"github.com/mesh-intelligence/featurestore/internal/mapping"
	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Factory builds kv backends.
type Factory struct {
	factory.Base
}

var _ types.Factory = (*Factory)(nil)

// NewFactory returns the kv factory. A nil logger discards logs.
func NewFactory(logger *zap.Logger) *Factory {
	return &Factory{Base: factory.NewBase(types.BackendKV, mapping.Variants, logger)}
}

// CreateTransientBackend returns an in-memory backend. An empty
// config.Mapping selects the maps encoding.
func (f *Factory) CreateTransientBackend(config types.Config) (types.Backend, error) {
	variant, err := f.ResolveMapping(config)
	if err != nil {
		return nil, err
	}
	mapper, err := mapping.ForVariant(variant)
	if err != nil {
		return nil, err
	}
	return NewBackend(NewMemorySubstrate(), mapper, config.Codec, f.Logger), nil
}

func (f *Factory) CreatePersistentBackend(dir string, config types.Config) (types.Backend, error) {
	variant, err := f.Prepare(dir, config)
	if err != nil {
		return nil, err
	}
	mapper, err := mapping.ForVariant(variant)
	if err != nil {
		return nil, err
	}
	sub, err := OpenSQLiteSubstrate(filepath.Join(dir, DBFileName))
	if err != nil {
		return nil, err
	}
	return NewBackend(sub, mapper, config.Codec, f.Logger), nil
}

func (f *Factory) CopyBackend(from, to types.Backend) error {
	if err := f.CheckCopy(from, to); err != nil {
		return err
	}
	return from.CopyTo(to)
}
