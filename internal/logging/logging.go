// Package logging builds the zap logger used by the command line tool.
package logging

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the logger flavor.
type Options struct {
	// Level is a zap level name; empty means info.
	Level string

	// Development switches to the human-readable console encoder.
	Development bool

	// Output, when set, receives log lines instead of stderr.
	Output io.Writer
}

// New builds a logger and returns the level handle so callers can raise or
// lower verbosity later.
func New(opts Options) (*zap.Logger, zap.AtomicLevel, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, level, fmt.Errorf("log level %q: %w", opts.Level, err)
		}
	}

	config := zap.NewProductionConfig()
	if opts.Development {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = level

	if opts.Output == nil {
		logger, err := config.Build()
		if err != nil {
			return nil, level, fmt.Errorf("failed to initialize logger: %w", err)
		}
		return logger, level, nil
	}

	encoder := zapcore.NewJSONEncoder(config.EncoderConfig)
	if opts.Development {
		encoder = zapcore.NewConsoleEncoder(config.EncoderConfig)
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(opts.Output), level)
	return zap.New(core), level, nil
}
