package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger wraps zerolog.Logger with component scoping helpers.
type Logger struct {
	logger zerolog.Logger
}

// Config represents logger configuration.
type Config struct {
	Level     string `yaml:"level" mapstructure:"level"`         // debug, info, warn, error
	Format    string `yaml:"format" mapstructure:"format"`       // json, console
	Output    string `yaml:"output" mapstructure:"output"`       // stdout, stderr, file path
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"` // include timestamp
	Caller    bool   `yaml:"caller" mapstructure:"caller"`       // include caller info
	NoColor   bool   `yaml:"no_color" mapstructure:"no_color"`   // disable console colors
}

// DefaultConfig returns default logger configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:     "info",
		Format:    "console",
		Output:    "stderr",
		Timestamp: true,
	}
}

// globalLogger holds the global logger instance.
var globalLogger *Logger

// Initialize sets up the global logger with the provided configuration.
func Initialize(config *Config) error {
	if config == nil {
		config = DefaultConfig()
	}

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer
	switch strings.ToLower(config.Output) {
	case "stdout":
		output = os.Stdout
	case "stderr", "":
		output = os.Stderr
	default:
		if err := os.MkdirAll(filepath.Dir(config.Output), 0o755); err != nil {
			return err
		}
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return err
		}
		output = file
	}

	var logger zerolog.Logger
	if config.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
			NoColor:    config.NoColor,
		})
	} else {
		logger = zerolog.New(output)
	}

	if config.Timestamp {
		logger = logger.With().Timestamp().Logger()
	}
	if config.Caller {
		logger = logger.With().Caller().Logger()
	}

	globalLogger = &Logger{logger: logger}
	log.Logger = logger

	return nil
}

// Get returns the global logger instance.
func Get() *Logger {
	if globalLogger == nil {
		_ = Initialize(nil)
	}
	return globalLogger
}

// WithComponent adds a component field to the logger.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{logger: l.logger.With().Str("component", component).Logger()}
}

// WithField adds a field to the logger.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// WithError adds an error field to the logger.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{logger: l.logger.With().Err(err).Logger()}
}

// Debug logs a debug message.
func (l *Logger) Debug() *zerolog.Event {
	return l.logger.Debug()
}

// Info logs an info message.
func (l *Logger) Info() *zerolog.Event {
	return l.logger.Info()
}

// Warn logs a warning message.
func (l *Logger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

// Error logs an error message.
func (l *Logger) Error() *zerolog.Event {
	return l.logger.Error()
}

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal() *zerolog.Event {
	return l.logger.Fatal()
}

// Global logging functions for convenience.

// Debug logs a debug message using the global logger.
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info logs an info message using the global logger.
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn logs a warning message using the global logger.
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error logs an error message using the global logger.
func Error() *zerolog.Event {
	return Get().Error()
}

// WithComponent returns a logger with a component field using the global logger.
func WithComponent(component string) *Logger {
	return Get().WithComponent(component)
}

// WithError returns a logger with an error field using the global logger.
func WithError(err error) *Logger {
	return Get().WithError(err)
}
