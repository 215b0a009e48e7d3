package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug", INFO))
	assert.Equal(t, WARN, ParseLevel(" warning ", INFO))
	assert.Equal(t, INFO, ParseLevel("nonsense", INFO))
}

func TestLogger_WritesFileAboveLevel(t *testing.T) {
	dir := t.TempDir()
	SetLogDir(dir)
	defer SetLogDir("logs")

	logger, err := NewLogger("test")
	require.NoError(t, err)
	logger.SetLevels(ERROR, INFO)

	logger.Debug("скрытое сообщение")
	logger.Info("видимое сообщение %d", 42)
	require.NoError(t, logger.Close())

	files, err := filepath.Glob(filepath.Join(dir, "test_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.Contains(content, "[INFO] [test] видимое сообщение 42"))
	assert.False(t, strings.Contains(content, "скрытое"))
}
