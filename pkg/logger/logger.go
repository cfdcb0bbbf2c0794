// Package logger configures a zerolog logger that writes to a rotated
// file and, optionally, to the console.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zerolog.Logger and owns the rotated log file.
type Logger struct {
	zerolog.Logger
	file *lumberjack.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	LogDir     string
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	Console    bool      // also write human-readable output to ConsoleOut
	ConsoleOut io.Writer // defaults to os.Stderr; stdout carries reports
}

// New creates a new logger instance
func New(cfg Config) *Logger {
	if cfg.LogDir == "" {
		cfg.LogDir = "./logs"
	}
	if cfg.Filename == "" {
		cfg.Filename = "analyzer.log"
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = 5
	}
	if cfg.ConsoleOut == nil {
		cfg.ConsoleOut = os.Stderr
	}

	level := ParseLevel(cfg.Level)

	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		// Fall back to stderr only
		return &Logger{
			Logger: zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger(),
		}
	}

	// Rotated logs are gzip-compressed; the analyzer can read them back.
	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, cfg.Filename),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     30, // days
		Compress:   true,
	}

	writers := []io.Writer{fileWriter}
	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        cfg.ConsoleOut,
			TimeFormat: "2006-01-02 15:04:05",
		})
	}

	zl := zerolog.New(io.MultiWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{Logger: zl, file: fileWriter}
}

// ParseLevel converts a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Close closes the rotated log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// WithField returns a child logger carrying key=value.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{Logger: l.Logger.With().Interface(key, value).Logger(), file: l.file}
}

// WithFields returns a child logger carrying every entry of fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.Logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{Logger: ctx.Logger(), file: l.file}
}
