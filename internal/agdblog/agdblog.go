// Package agdblog provides structured logging for the CLI: a rotating
// JSON log file, one line per mutating command (write/append/promote/
// remove/import/compact/smash/reembed/destroy), and a warn-level line for every Format/Schema/
// Permission error before it's returned to the caller.
package agdblog

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
)

// Config controls where and how the CLI logs.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the log file path. Empty means DefaultLogPath().
	FilePath string
	// MaxSizeMB is the rotation threshold (default: 10).
	MaxSizeMB int
	// MaxFiles is the number of rotated files kept (default: 5).
	MaxFiles int
	// WriteToStderr also writes logs to stderr (default: false — the CLI's
	// own --json/human output owns stderr/stdout).
	WriteToStderr bool
}

// DefaultConfig returns the CLI's default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		FilePath:  DefaultLogPath(),
		MaxSizeMB: 10,
		MaxFiles:  5,
	}
}

// Setup initializes file-based logging and returns the logger plus a
// cleanup function that flushes and closes the log file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if cfg.FilePath == "" {
		cfg.FilePath = DefaultLogPath()
	}
	if err := EnsureLogDir(); err != nil {
		return nil, nil, err
	}

	writer, err := newRotatingWriter(cfg.FilePath, nonZero(cfg.MaxSizeMB, 10), nonZero(cfg.MaxFiles, 5))
	if err != nil {
		return nil, nil, err
	}

	var output io.Writer = writer
	if cfg.WriteToStderr {
		output = io.MultiWriter(writer, os.Stderr)
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: parseLevel(cfg.Level)})
	logger := slog.New(handler)

	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}
	return logger, cleanup, nil
}

func nonZero(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// MutationOp logs one structured line for a completed write/append/
// promote/remove/import/compact/smash/reembed/destroy: op name, target
// layer path, wall time taken, and the number of chunks touched.
func MutationOp(logger *slog.Logger, op, path string, started time.Time, chunks int) {
	if logger == nil {
		return
	}
	logger.Info("mutation",
		slog.String("op", op),
		slog.String("layer", path),
		slog.Int64("duration_ms", time.Since(started).Milliseconds()),
		slog.Int("chunks", chunks),
	)
}

// Error logs a warn-level line for a fatal Format/Schema/Permission/IO
// error, just before it's returned to the caller, with the op that
// raised it for correlation.
func Error(logger *slog.Logger, op string, err error) {
	if logger == nil || err == nil {
		return
	}
	attrs := agerrors.FormatForLog(err)
	args := make([]any, 0, len(attrs)*2+2)
	args = append(args, slog.String("op", op))
	for k, v := range attrs {
		args = append(args, slog.Any(k, v))
	}
	logger.Warn("operation failed", args...)
}
