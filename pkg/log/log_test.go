package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldLog(t *testing.T) {
	assert.True(t, ShouldLog(ErrorLevel, InfoLevel))
	assert.True(t, ShouldLog(InfoLevel, InfoLevel))
	assert.False(t, ShouldLog(DebugLevel, InfoLevel))
	assert.True(t, ShouldLog(TraceLevel, TraceLevel))
	assert.False(t, ShouldLog(FatalLevel, DisabledLevel))
	assert.False(t, ShouldLog("bogus", InfoLevel))
}

func TestSetLevel(t *testing.T) {
	defer SetLevel(InfoLevel)

	assert.NoError(t, SetLevel(DebugLevel))
	assert.Equal(t, LogLevel(DebugLevel), GetLevel())
	assert.Error(t, SetLevel("loud"))
	assert.Equal(t, LogLevel(DebugLevel), GetLevel())
}

func TestSetupFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "grid.log")

	require.NoError(t, Setup(Config{Format: "json", Outputs: []string{path}}))
	defer Close()

	Info("new - task - id:", "t1")
	Debug("filtered at info level")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "new - task - id: t1")
	assert.NotContains(t, string(data), "filtered at info level")
}

func TestSetupRejectsUnknownFormat(t *testing.T) {
	assert.Error(t, Setup(Config{Format: "xml"}))
}
