// Package logging builds the application's zerolog logger. The TUI owns
// stdout, so logs normally go to a file.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/nhle/taskboard/internal/model"
)

const permission = 0o664

// Logger bundles the logger with the file it writes to, if any.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// New builds a timestamped logger from cfg. A non-nil w takes precedence
// over cfg.File; with neither the logger discards output.
func New(cfg model.LogConfig, w io.Writer) (*Logger, error) {
	out := &Logger{}

	switch {
	case w != nil:
	case cfg.File != "":
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		out.file = f
		w = zerolog.SyncWriter(f)
	default:
		w = io.Discard
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	out.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return out, nil
}
