package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerNotNilBeforeInitialize(t *testing.T) {
	// Package init installs a no-op logger, so helpers are safe to call
	require.NotNil(t, Logger)
	assert.NotPanics(t, func() {
		Infow("safe before init", "key", "value")
		Warnw("safe before init")
		Errorw("safe before init")
		Debugw("safe before init")
	})
}

func TestInitialize(t *testing.T) {
	t.Run("console output", func(t *testing.T) {
		err := Initialize(false)
		require.NoError(t, err)
		require.NotNil(t, Logger)
		assert.False(t, JSONOutput)
	})

	t.Run("json output", func(t *testing.T) {
		err := Initialize(true)
		require.NoError(t, err)
		require.NotNil(t, Logger)
		assert.True(t, JSONOutput)
	})
}

func TestCleanup(t *testing.T) {
	require.NoError(t, Initialize(false))
	assert.NotPanics(t, Cleanup)
}
