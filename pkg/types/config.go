package types

import (
	"errors"
	"fmt"
)

// Config describes which backend family to use, where it lives, and which
// store decorators wrap it. It is consumed opaquely by factories.
type Config struct {
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	// Mapping selects the multi-valued encoding. Empty means the family
	// default.
	Mapping string `json:"mapping,omitempty" yaml:"mapping,omitempty" mapstructure:"mapping"`

	Cache      bool `json:"cache,omitempty" yaml:"cache,omitempty" mapstructure:"cache"`
	CacheSize  int  `json:"cache_size,omitempty" yaml:"cache_size,omitempty" mapstructure:"cache_size"`
	AutoCommit bool `json:"autocommit,omitempty" yaml:"autocommit,omitempty" mapstructure:"autocommit"`
	Log        bool `json:"log,omitempty" yaml:"log,omitempty" mapstructure:"log"`

	// Decorators lists the decorator chain explicitly, innermost first. When
	// set it replaces the Cache, AutoCommit and Log flags.
	Decorators []string `json:"decorators,omitempty" yaml:"decorators,omitempty" mapstructure:"decorators"`

	// Codec serializes attribute values. Nil selects the default codec.
	Codec Codec `json:"-" yaml:"-" mapstructure:"-"`
}

// Supported backend families.
const (
	BackendKV    = "kv"
	BackendBTree = "btree"
	BackendGraph = "graph"
)

// Multi-valued encodings.
const (
	MappingMaps    = "maps"
	MappingLists   = "lists"
	MappingIndices = "indices"
	MappingNative  = "native"
)

// Decorator names accepted in Config.Decorators.
const (
	DecoratorCache      = "cache"
	DecoratorAutoCommit = "autocommit"
	DecoratorLog        = "log"
)

// DefaultCacheSize bounds the caching decorator when CacheSize is zero.
const DefaultCacheSize = 10_000

// Config validation errors.
var (
	ErrBackendEmpty     = errors.New("backend must not be empty")
	ErrBackendUnknown   = errors.New("unknown backend")
	ErrMappingUnknown   = errors.New("unknown mapping")
	ErrDecoratorUnknown = errors.New("unknown decorator")
	ErrCacheSizeInvalid = errors.New("cache size must not be negative")
)

var knownMappings = map[string]bool{
	"":             true,
	MappingMaps:    true,
	MappingLists:   true,
	MappingIndices: true,
	MappingNative:  true,
}

var knownDecorators = map[string]bool{
	DecoratorCache:      true,
	DecoratorAutoCommit: true,
	DecoratorLog:        true,
}

// Validate checks that the Config is well-formed. Whether Backend names a
// registered family is the registry's concern; Validate only rejects an
// empty scheme.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownMappings[c.Mapping] {
		return fmt.Errorf("%w: %q", ErrMappingUnknown, c.Mapping)
	}
	if c.CacheSize < 0 {
		return ErrCacheSizeInvalid
	}
	for _, d := range c.Decorators {
		if !knownDecorators[d] {
			return fmt.Errorf("%w: %q", ErrDecoratorUnknown, d)
		}
	}
	return nil
}

// DecoratorChain returns the decorators to stack, innermost first. An
// explicit Decorators list wins; otherwise the flags produce autocommit,
// then cache, then log.
func (c Config) DecoratorChain() []string {
	if len(c.Decorators) > 0 {
		return append([]string(nil), c.Decorators...)
	}
	var chain []string
	if c.AutoCommit {
		chain = append(chain, DecoratorAutoCommit)
	}
	if c.Cache {
		chain = append(chain, DecoratorCache)
	}
	if c.Log {
		chain = append(chain, DecoratorLog)
	}
	return chain
}

// EffectiveCacheSize returns CacheSize or DefaultCacheSize when unset.
func (c Config) EffectiveCacheSize() int {
	if c.CacheSize > 0 {
		return c.CacheSize
	}
	return DefaultCacheSize
}
