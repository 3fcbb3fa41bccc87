package factory

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/featurestore/internal/jsonl"
	"github.com/mesh-intelligence/featurestore/pkg/types"
)

// MetadataFile names the descriptor written into every persistent data
// directory.
const MetadataFile = "featurestore.yaml"

// MetadataVersion is the descriptor format this build writes and reads.
const MetadataVersion = 1

// Metadata records which family and encoding own a data directory.
type Metadata struct {
	Backend string `yaml:"backend"`
	Mapping string `yaml:"mapping"`
	Version int    `yaml:"version"`
}

// ReadMetadata loads the descriptor in dir. ok is false when dir has none.
func ReadMetadata(dir string) (Metadata, bool, error) {
	var m Metadata
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if errors.Is(err, fs.ErrNotExist) {
		return m, false, nil
	}
	if err != nil {
		return m, false, types.WrapIO("read metadata", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, false, fmt.Errorf("parse %s: %w: %v", MetadataFile, types.ErrInvalidData, err)
	}
	if m.Version > MetadataVersion {
		return m, false, fmt.Errorf("%s version %d is newer than %d: %w",
			MetadataFile, m.Version, MetadataVersion, types.ErrConfigMismatch)
	}
	return m, true, nil
}

// WriteMetadata atomically replaces the descriptor in dir.
func WriteMetadata(dir string, m Metadata) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return types.WrapIO("write metadata", jsonl.WriteFile(filepath.Join(dir, MetadataFile), data))
}
