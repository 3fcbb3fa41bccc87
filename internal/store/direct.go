package store

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// Direct adapts a Backend into a Store. It forwards every call unchanged.
type Direct struct {
	types.FeatureStore

	backend types.Backend
	logger  *zap.Logger
}

var _ types.Store = (*Direct)(nil)

// NewDirect wraps backend. A nil logger discards logs.
func NewDirect(backend types.Backend, logger *zap.Logger) *Direct {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Direct{FeatureStore: backend, backend: backend, logger: logger}
}

func (d *Direct) Backend() types.Backend { return d.backend }

// Close closes the backend and turns d into a closed store. A backend that
// fails to close is still considered released.
func (d *Direct) Close() error {
	err := d.FeatureStore.Close()
	if err != nil {
		d.logger.Warn("closing backend", zap.String("family", d.backend.Family()), zap.Error(err))
	}
	d.FeatureStore = NewClosed(d.backend)
	return err
}
