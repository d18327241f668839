package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitProductionDefaultsToInfo(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	require.NoError(t, Init("production"))
	t.Cleanup(Sync)

	assert.True(t, Logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, Logger.Core().Enabled(zapcore.DebugLevel))
}

func TestInitDevelopmentDefaultsToDebug(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	require.NoError(t, Init("development"))
	t.Cleanup(Sync)

	assert.True(t, Logger.Core().Enabled(zapcore.DebugLevel))
}

func TestInitLogLevelOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")

	require.NoError(t, Init("production"))
	t.Cleanup(Sync)

	assert.True(t, Logger.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, Logger.Core().Enabled(zapcore.InfoLevel))
}

func TestInitRejectsInvalidLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")

	err := Init("production")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}

func TestGetReturnsFallbackWhenUninitialized(t *testing.T) {
	prev := Logger
	Logger = nil
	t.Cleanup(func() { Logger = prev })

	assert.NotNil(t, Get())
}
