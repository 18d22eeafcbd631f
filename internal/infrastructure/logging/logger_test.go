package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewFromLevelFallsBackToNop(t *testing.T) {
	logger := NewFromLevel("loud", false)
	require.NotNil(t, logger)
	logger.Info("discarded")
}

func TestToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ncube.log")

	logger, err := ToFile(path, "info")
	require.NoError(t, err)
	logger.Info("phase changed")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"phase changed"`)
}
