// Package logging builds the process zerolog logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"offlinesync/internal/config"

	"github.com/rs/zerolog"
)

const defaultName = "offlinesync"

// New constructs the root logger. Empty settings mean JSON at info level on
// stdout. The returned closer is non-nil only for file output.
func New(cfg config.LoggingConfig, app config.AppConfig) (*zerolog.Logger, io.Closer, error) {
	w, closer, err := openOutput(cfg)
	if err != nil {
		return nil, nil, err
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	logger := build(w, parseLevel(cfg.Level), app)
	return &logger, closer, nil
}

func build(w io.Writer, level zerolog.Level, app config.AppConfig) zerolog.Logger {
	name := app.Name
	if name == "" {
		name = defaultName
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("app", name).
		Str("env", app.Environment).
		Str("version", app.Version).
		Logger()
}

// parseLevel falls back to info for empty or unknown levels.
func parseLevel(raw string) zerolog.Level {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(raw)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func openOutput(cfg config.LoggingConfig) (io.Writer, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
	case "", "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	case "file":
		if cfg.FilePath == "" {
			return nil, nil, fmt.Errorf("logging.output=file requires logging.file_path")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return f, f, nil
	default:
		return nil, nil, fmt.Errorf("unknown logging.output %q", cfg.Output)
	}
}

// Component derives a child logger tagged with the component name.
// A nil base yields a disabled logger so callers never need nil checks.
func Component(base *zerolog.Logger, name string) *zerolog.Logger {
	if base == nil {
		nop := zerolog.Nop()
		return &nop
	}
	l := base.With().Str("component", name).Logger()
	return &l
}
