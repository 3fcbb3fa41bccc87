package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Output: &buf})
	require.NoError(t, err)

	logger.Info("opened", zap.String("backend", "kv"))
	logger.Debug("hidden")
	require.NoError(t, logger.Sync())

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "opened", line["msg"])
	assert.Equal(t, "kv", line["backend"])
}

func TestLevelCanBeRaised(t *testing.T) {
	var buf bytes.Buffer
	logger, level, err := New(Options{Level: "warn", Output: &buf})
	require.NoError(t, err)

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	level.SetLevel(zapcore.DebugLevel)
	logger.Debug("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestUnknownLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestDevelopmentConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Development: true, Output: &buf})
	require.NoError(t, err)

	logger.Info("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
