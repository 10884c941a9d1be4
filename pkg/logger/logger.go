package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level aliases zerolog's level so callers do not import zerolog directly.
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config controls level, timestamp format and destination. A nil config
// means human-readable output on stdout at info level.
type Config struct {
	Level      Level
	TimeFormat string
	Output     io.Writer
}

func (c *Config) withDefaults() Config {
	cfg := Config{Level: InfoLevel, TimeFormat: time.RFC3339, Output: os.Stdout}
	if c == nil {
		return cfg
	}
	cfg.Level = c.Level
	if c.TimeFormat != "" {
		cfg.TimeFormat = c.TimeFormat
	}
	if c.Output != nil {
		cfg.Output = c.Output
	}
	return cfg
}

// Logger is a thin structured-logging facade over zerolog.
type Logger struct {
	zl zerolog.Logger
}

func NewLogger(cfg *Config) *Logger {
	resolved := cfg.withDefaults()
	console := zerolog.ConsoleWriter{Out: resolved.Output, TimeFormat: resolved.TimeFormat}
	zl := zerolog.New(console).Level(resolved.Level).With().Timestamp().Caller().Logger()
	return &Logger{zl: zl}
}

// WithFields returns a child logger carrying the given fields on every entry.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{zl: l.zl.With().Fields(fields).Logger()}
}

func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.zl.Debug().Fields(fields).Msg(msg)
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	l.zl.Info().Fields(fields).Msg(msg)
}

func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.zl.Warn().Fields(fields).Msg(msg)
}

func (l *Logger) Error(err error, msg string, fields ...interface{}) {
	l.zl.Error().Err(err).Fields(fields).Msg(msg)
}

func (l *Logger) Fatal(err error, msg string, fields ...interface{}) {
	l.zl.Fatal().Err(err).Fields(fields).Msg(msg)
}
