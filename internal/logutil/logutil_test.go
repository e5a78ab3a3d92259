package logutil

import (
	"testing"

	"github.com/go-kit/log/level"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFiltersBelowConfiguredLevel(t *testing.T) {
	logger := New("warn")
	err := level.Debug(logger).Log("msg", "should be filtered")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewDefaultsToInfoOnUnknownLevel(t *testing.T) {
	logger := New("not-a-level")
	require.NoError(t, level.Info(logger).Log("msg", "hello"))
}
