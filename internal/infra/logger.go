package infra

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger creates a new slog.Logger with log rotation support.
// The dashboard draws on stdout, so records only go to the rotated file.
func NewLogger(cfg *Config) *slog.Logger {
	// Create logs directory if not exists
	logDir := cfg.Logging.Dir
	if err := os.MkdirAll(logDir, 0755); err != nil {
		// Fallback to stderr if directory creation fails
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	// Setup lumberjack logger for file rotation
	fileLogger := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, cfg.Logging.File),
		MaxSize:    10,   // Megabytes
		MaxBackups: 3,    // Number of backups
		MaxAge:     28,   // Days
		Compress:   true, // Disabled by default
	}

	return newLogger(fileLogger, cfg.Logging.Level)
}

// NewConsoleLogger logs to stdout as well as the rotated file.
// Used by processes that do not own the terminal (feed simulator).
func NewConsoleLogger(cfg *Config) *slog.Logger {
	if err := os.MkdirAll(cfg.Logging.Dir, 0755); err != nil {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	fileLogger := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Logging.Dir, cfg.Logging.File),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
	return newLogger(io.MultiWriter(os.Stdout, fileLogger), cfg.Logging.Level)
}

func newLogger(w io.Writer, levelName string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(levelName),
		// AddSource: true, // Optional: Include file line number (expensive)
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
