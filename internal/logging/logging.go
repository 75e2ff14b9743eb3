// Package logging sets up the process-wide slog logger.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a text logger writing to w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Setup creates a logger that appends to path, or to a dated file in the
// state directory when path is empty. The caller closes the file.
func Setup(path string, level slog.Level) (*slog.Logger, *os.File, error) {
	if path == "" {
		dir, err := StateDir()
		if err != nil {
			return nil, nil, fmt.Errorf("state dir: %w", err)
		}
		path = filepath.Join(dir, fmt.Sprintf("scrobblewatch-%s.log", time.Now().Format("20060102")))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return New(f, level), f, nil
}

// StateDir returns the scrobblewatch state directory
// ($XDG_STATE_HOME/scrobblewatch).
func StateDir() (string, error) {
	if xdg.StateHome == "" {
		return "", errors.New("no state home")
	}
	return filepath.Join(xdg.StateHome, "scrobblewatch"), nil
}
