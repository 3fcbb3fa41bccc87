// Package factory holds what the backend family factories share: encoding
// resolution, the metadata descriptor of persistent data directories, and
// decorator stacking.
package factory

import (
	"fmt"
	"os"
	"slices"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/featurestore/internal/store"
	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Base is embedded by every family factory.
type Base struct {
	// Family is the scheme the factory serves.
	Family string

	// Mappings lists the encodings the family supports; the first is the
	// default.
	Mappings []string

	Logger *zap.Logger
}

// NewBase returns a Base for family. A nil logger discards logs.
func NewBase(family string, mappings []string, logger *zap.Logger) Base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Base{Family: family, Mappings: mappings, Logger: logger.With(zap.String("family", family))}
}

func (b Base) Name() string { return b.Family }

// ResolveMapping returns the encoding config asks for, or the family default.
// Encodings the family lacks fail with ErrUnsupported.
func (b Base) ResolveMapping(config types.Config) (string, error) {
	if config.Mapping == "" {
		return b.Mappings[0], nil
	}
	if !slices.Contains(b.Mappings, config.Mapping) {
		return "", fmt.Errorf("%s backend with %q mapping: %w", b.Family, config.Mapping, types.ErrUnsupported)
	}
	return config.Mapping, nil
}

// Prepare creates dir if needed and reconciles its descriptor with config.
// A new directory gets a descriptor for the resolved encoding. An existing
// one must name this family, and the encoding config asks for if any; an
// empty Mapping adopts the stored one. It returns the encoding to open with.
func (b Base) Prepare(dir string, config types.Config) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("%s backend: data directory must not be empty: %w", b.Family, types.ErrInvalidData)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", types.WrapIO("create data directory", err)
	}

	meta, ok, err := ReadMetadata(dir)
	if err != nil {
		return "", err
	}
	if ok {
		if meta.Backend != b.Family {
			return "", fmt.Errorf("%s holds a %s backend, not %s: %w", dir, meta.Backend, b.Family, types.ErrConfigMismatch)
		}
		if config.Mapping != "" && config.Mapping != meta.Mapping {
			return "", fmt.Errorf("%s uses the %s mapping, not %s: %w", dir, meta.Mapping, config.Mapping, types.ErrConfigMismatch)
		}
		b.Logger.Debug("reopening backend", zap.String("dir", dir), zap.String("mapping", meta.Mapping))
		return meta.Mapping, nil
	}

	variant, err := b.ResolveMapping(config)
	if err != nil {
		return "", err
	}
	meta = Metadata{Backend: b.Family, Mapping: variant, Version: MetadataVersion}
	if err := WriteMetadata(dir, meta); err != nil {
		return "", err
	}
	b.Logger.Info("created backend", zap.String("dir", dir), zap.String("mapping", variant))
	return variant, nil
}

// CreateStore stacks the decorators config selects on backend.
func (b Base) CreateStore(backend types.Backend, config types.Config) (types.Store, error) {
	if backend.Family() != b.Family {
		return nil, fmt.Errorf("%s factory given a %s backend: %w", b.Family, backend.Family(), types.ErrFamilyMismatch)
	}
	return store.Build(backend, config, b.Logger)
}

// CheckCopy verifies that both backends belong to this family.
func (b Base) CheckCopy(from, to types.Backend) error {
	for _, backend := range []types.Backend{from, to} {
		if backend.Family() != b.Family {
			return fmt.Errorf("%s factory cannot copy a %s backend: %w", b.Family, backend.Family(), types.ErrFamilyMismatch)
		}
	}
	return nil
}
