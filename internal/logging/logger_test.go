package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"offlinesync/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testApp = config.AppConfig{Name: "offlinesync-test", Environment: "test", Version: "1.0.0"}

func TestNewOutputs(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.LoggingConfig
		wantOK bool
	}{
		{"empty defaults to stdout", config.LoggingConfig{}, true},
		{"stderr", config.LoggingConfig{Level: "debug", Output: "stderr"}, true},
		{"console format", config.LoggingConfig{Level: "warn", Format: "console"}, true},
		{"file without path", config.LoggingConfig{Output: "file"}, false},
		{"unknown output", config.LoggingConfig{Output: "syslog"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, closer, err := New(tt.cfg, testApp)
			if !tt.wantOK {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
			assert.Nil(t, closer)
		})
	}
}

func TestNewFileOutputCreatesDirectory(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "offlinesync.log")

	logger, closer, err := New(config.LoggingConfig{Level: "info", Output: "file", FilePath: logPath}, testApp)
	require.NoError(t, err)
	require.NotNil(t, closer)

	logger.Info().Msg("queued")
	require.NoError(t, closer.Close())

	raw, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"message":"queued"`)
	assert.Contains(t, string(raw), `"app":"offlinesync-test"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("invalid"))
	assert.Equal(t, zerolog.DebugLevel, parseLevel(" DEBUG "))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel("error"))
}

func TestBuildAddsAppFields(t *testing.T) {
	var buf bytes.Buffer
	logger := build(&buf, zerolog.WarnLevel, config.AppConfig{Environment: "prod", Version: "2.1"})

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"app":"offlinesync"`)
	assert.Contains(t, out, `"env":"prod"`)
	assert.Contains(t, out, `"version":"2.1"`)
}

func TestComponent(t *testing.T) {
	t.Run("NilBase", func(t *testing.T) {
		l := Component(nil, "queue")
		require.NotNil(t, l)
		assert.NotPanics(t, func() { l.Info().Msg("dropped") })
	})

	t.Run("TagsComponent", func(t *testing.T) {
		var buf bytes.Buffer
		base := zerolog.New(&buf)
		Component(&base, "sync").Info().Msg("drain")
		assert.Contains(t, buf.String(), `"component":"sync"`)
	})
}
