// Package featurestore is the entry point for opening feature stores.
//
// Register the built-in backend families once at process start, then open
// stores from a Config or a resource locator:
//
//	featurestore.RegisterDefaults(logger)
//	s, err := featurestore.Open(types.Config{Backend: "kv", DataDir: "model.kv"}, logger)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
package featurestore

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/featurestore/internal/btree"
	"github.com/mesh-intelligence/featurestore/internal/graph"
	"github.com/mesh-intelligence/featurestore/internal/kv"
	"github.com/mesh-intelligence/featurestore/pkg/registry"
	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// ErrLocatorInvalid is returned for resource locators that name no scheme.
var ErrLocatorInvalid = errors.New("invalid resource locator")

// RegisterDefaults registers the kv, btree and graph factories in the
// default registry.
func RegisterDefaults(logger *zap.Logger) {
	registry.Register(kv.NewFactory(logger))
	registry.Register(btree.NewFactory(logger))
	registry.Register(graph.NewFactory(logger))
}

// ParseLocator splits a resource locator such as kv:///var/lib/model into
// its scheme and data directory. A locator without a path names a
// transient backend.
func ParseLocator(locator string) (scheme, dir string, err error) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrLocatorInvalid, err)
	}
	if u.Scheme == "" {
		return "", "", fmt.Errorf("%w: %q has no scheme", ErrLocatorInvalid, locator)
	}
	path := u.Path
	if u.Host != "" {
		path = u.Host + path
	}
	if u.Opaque != "" {
		path = u.Opaque
	}
	if path != "" {
		path = filepath.FromSlash(path)
	}
	return u.Scheme, path, nil
}

// ConfigFor returns a Config for a resource locator.
func ConfigFor(locator string) (types.Config, error) {
	scheme, dir, err := ParseLocator(locator)
	if err != nil {
		return types.Config{}, err
	}
	return types.Config{Backend: scheme, DataDir: dir}, nil
}

// Open builds the store config describes: a persistent backend when DataDir
// is set, a transient one otherwise, wrapped in the configured decorators.
func Open(config types.Config, logger *zap.Logger) (types.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	f, err := registry.FactoryFor(config.Backend)
	if err != nil {
		return nil, err
	}

	var backend types.Backend
	if config.DataDir != "" {
		backend, err = f.CreatePersistentBackend(config.DataDir, config)
	} else {
		backend, err = f.CreateTransientBackend(config)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", config.Backend, err)
	}

	s, err := f.CreateStore(backend, config)
	if err != nil {
		return nil, multierr.Append(err, backend.Close())
	}
	logger.Debug("opened store",
		zap.String("backend", config.Backend),
		zap.String("mapping", backend.Variant()),
		zap.Bool("persistent", backend.IsPersistent()),
		zap.Strings("decorators", config.DecoratorChain()))
	return s, nil
}

// Copy copies every object of from into to. Both backends must belong to
// the same family. A failure leaves to in an indeterminate state.
func Copy(from, to types.Backend) error {
	f, err := registry.FactoryFor(from.Family())
	if err != nil {
		return err
	}
	return f.CopyBackend(from, to)
}
