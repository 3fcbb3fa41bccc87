package store

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Options configures the decorators built by Chain.
type Options struct {
	// CacheSize bounds the caching decorator. Zero selects
	// types.DefaultCacheSize.
	CacheSize int

	// Logger receives logging decorator records. Nil discards them.
	Logger *zap.Logger
}

// Chain wraps inner with the named decorators. The first name ends up
// closest to the backend.
func Chain(inner types.Store, names []string, opts Options) (types.Store, error) {
	s := inner
	for _, name := range names {
		switch name {
		case types.DecoratorCache:
			c, err := NewCaching(s, opts.CacheSize)
			if err != nil {
				return nil, err
			}
			s = c
		case types.DecoratorAutoCommit:
			s = NewAutoCommit(s)
		case types.DecoratorLog:
			s = NewLogging(s, opts.Logger)
		default:
			return nil, fmt.Errorf("%w: %q", types.ErrDecoratorUnknown, name)
		}
	}
	return s, nil
}

// Build adapts backend and wraps it with the decorators config selects.
func Build(backend types.Backend, config types.Config, logger *zap.Logger) (types.Store, error) {
	return Chain(NewDirect(backend, logger), config.DecoratorChain(), Options{
		CacheSize: config.EffectiveCacheSize(),
		Logger:    logger,
	})
}
