package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		wantLevel zerolog.Level
	}{
		{"default warn level", 0, zerolog.WarnLevel},
		{"info level", 1, zerolog.InfoLevel},
		{"debug level", 2, zerolog.DebugLevel},
		{"trace level", 3, zerolog.TraceLevel},
		{"high verbosity defaults to trace", 5, zerolog.TraceLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			t.Setenv("EXTMAN_STATE_DIR", "")
			t.Setenv("XDG_STATE_HOME", tempDir)

			SetupLoggerWithOutput(tt.verbosity, &bytes.Buffer{})

			assert.Equal(t, tt.wantLevel, zerolog.GlobalLevel())

			logPath := filepath.Join(tempDir, "extman", "extman.log")
			_, err := os.Stat(logPath)
			assert.NoError(t, err, "log file should exist at %s", logPath)
		})
	}
}

func TestGetLogFilePath(t *testing.T) {
	t.Run("with XDG_STATE_HOME", func(t *testing.T) {
		t.Setenv("EXTMAN_STATE_DIR", "")
		t.Setenv("XDG_STATE_HOME", "/custom/state")
		got := filepath.ToSlash(getLogFilePath())
		assert.Equal(t, "/custom/state/extman/extman.log", got)
	})

	t.Run("without XDG_STATE_HOME", func(t *testing.T) {
		t.Setenv("EXTMAN_STATE_DIR", "")
		t.Setenv("XDG_STATE_HOME", "")
		got := getLogFilePath()
		assert.True(t, filepath.IsAbs(got) || got == "extman.log")
		assert.True(t, strings.HasSuffix(filepath.ToSlash(got), "extman.log"))
	})

	t.Run("with EXTMAN_STATE_DIR", func(t *testing.T) {
		t.Setenv("XDG_STATE_HOME", "/custom/state")
		t.Setenv("EXTMAN_STATE_DIR", "/override")
		assert.Equal(t, "/override/extman.log", filepath.ToSlash(getLogFilePath()))
	})
}

func TestGetLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = zerolog.New(&buf)

	logger := GetLogger("resolver")
	logger.Info().Str("extension", "files").Msg("resolved")

	out := buf.String()
	assert.Contains(t, out, `"component":"resolver"`)
	assert.Contains(t, out, `"extension":"files"`)
}

func TestLogOperationStart(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	logger := zerolog.New(&buf)

	done := LogOperationStart(logger, "merge")
	done()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Operation started")
	assert.Contains(t, lines[1], "duration")
}
