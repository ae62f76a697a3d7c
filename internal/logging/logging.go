// Package logging builds the zerolog logger shared by the store, importer, report and
// CLI packages.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig is the [logging] section of the config file.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

// DefaultLogConfig logs info and above to the console only.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		FilePath:   filepath.Join(home, ".config", "trading-journal", "logs", "journal.log"),
		MaxSize:    20,
		MaxBackups: 5,
		MaxAge:     30,
	}
}

func NewLogger() zerolog.Logger {
	return NewLoggerWithConfig(DefaultLogConfig())
}

// NewLoggerWithConfig builds a logger from cfg. Console output goes to stderr so command
// output on stdout stays machine readable.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg LogConfig, console io.Writer) zerolog.Logger {
	var sinks []io.Writer
	if cfg.Console {
		sinks = append(sinks, zerolog.ConsoleWriter{
			Out:         console,
			TimeFormat:  time.RFC3339,
			FormatLevel: formatLevel,
		})
	}
	if w := rotatingFile(cfg); w != nil {
		sinks = append(sinks, w)
	}

	out := io.Discard
	if len(sinks) == 1 {
		out = sinks[0]
	} else if len(sinks) > 1 {
		out = zerolog.MultiLevelWriter(sinks...)
	}
	return zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
}

// rotatingFile returns nil when file logging is off or its directory cannot be created.
func rotatingFile(cfg LogConfig) io.Writer {
	if !cfg.File || cfg.FilePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   true,
	}
}

var consoleLevels = map[string]string{
	"debug": "\033[36mDBG\033[0m",
	"info":  "\033[32mINF\033[0m",
	"warn":  "\033[33mWRN\033[0m",
	"error": "\033[31mERR\033[0m",
}

func formatLevel(i interface{}) string {
	name, ok := i.(string)
	if !ok {
		return "???"
	}
	if label, ok := consoleLevels[name]; ok {
		return label
	}
	return name
}

var levels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

// ParseLevel maps a level name to a zerolog level. Unknown names mean info.
func ParseLevel(level string) zerolog.Level {
	if l, ok := levels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return l
	}
	return zerolog.InfoLevel
}

// ValidLevel reports whether level is a recognized level name.
func ValidLevel(level string) bool {
	_, ok := levels[strings.ToLower(strings.TrimSpace(level))]
	return ok
}

type ContextKey string

// LoggerKey is the context key under which WithLogger stores the logger.
const LoggerKey ContextKey = "logger"

func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the logger stored by WithLogger, or a no-op logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithUser adds a user ID to the logger context.
func WithUser(logger zerolog.Logger, userID string) zerolog.Logger {
	return logger.With().Str("user_id", userID).Logger()
}

func WithOperation(logger zerolog.Logger, operation string) zerolog.Logger {
	return logger.With().Str("operation", operation).Logger()
}

// LogSkippedRecord logs a record an analyzer or importer rejected.
func LogSkippedRecord(logger zerolog.Logger, component, recordID string, index int, reason string) {
	logger.Warn().
		Str("event", "record_skipped").
		Str("component", component).
		Str("record_id", recordID).
		Int("index", index).
		Str("reason", reason).
		Msg("Record skipped")
}

// LogImport logs the result of an import.
func LogImport(logger zerolog.Logger, path string, imported, failed int) {
	logger.Info().
		Str("event", "import").
		Str("path", path).
		Int("imported", imported).
		Int("failed", failed).
		Msg("Import finished")
}

// LogQuery logs a storage query.
func LogQuery(logger zerolog.Logger, operation string, rows int, duration time.Duration, err error) {
	event := logger.Debug().
		Str("event", "query").
		Str("operation", operation).
		Int("rows", rows).
		Dur("duration", duration)

	if err != nil {
		event.Err(err).Msg("Query failed")
	} else {
		event.Msg("Query completed")
	}
}
