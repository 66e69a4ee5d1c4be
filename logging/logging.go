// Package logging defines the optional logger accepted by every package in
// this module and adapters for zap and charmbracelet/log.
//
// Any type with Debug, Info and Error methods taking a message and
// key-value pairs satisfies Logger:
//
//	type StdLogger struct{}
//	func (l *StdLogger) Debug(msg string, kv ...interface{}) { log.Println(msg, kv) }
//	func (l *StdLogger) Info(msg string, kv ...interface{})  { log.Println(msg, kv) }
//	func (l *StdLogger) Error(msg string, kv ...interface{}) { log.Println(msg, kv) }
package logging

import (
	"fmt"
	"io"
	"strings"

	charm "github.com/charmbracelet/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is an optional logging interface. It allows integration with any
// logging framework.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}

type nop struct{}

func (nop) Debug(string, ...interface{}) {}
func (nop) Info(string, ...interface{})  {}
func (nop) Error(string, ...interface{}) {}

// Nop discards everything.
var Nop Logger = nop{}

// OrNop returns l, or Nop when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop
	}
	return l
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// NewZap adapts a zap logger.
func NewZap(l *zap.Logger) Logger {
	return &zapLogger{s: l.Sugar()}
}

func (l *zapLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }

type charmLogger struct {
	l *charm.Logger
}

// NewCharm adapts a charmbracelet logger.
func NewCharm(l *charm.Logger) Logger {
	return &charmLogger{l: l}
}

func (l *charmLogger) Debug(msg string, kv ...interface{}) { l.l.Debug(msg, kv...) }
func (l *charmLogger) Info(msg string, kv ...interface{})  { l.l.Info(msg, kv...) }
func (l *charmLogger) Error(msg string, kv ...interface{}) { l.l.Error(msg, kv...) }

// Format selects the output encoding of New.
type Format string

const (
	// FormatText is human-readable output via charmbracelet/log
	FormatText Format = "text"

	// FormatJSON is structured output via zap
	FormatJSON Format = "json"
)

// New builds a logger writing to w at the given level ("debug", "info" or
// "error").
func New(format Format, level string, w io.Writer) (Logger, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = "info"
	}

	switch format {
	case FormatJSON:
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), lvl)
		return NewZap(zap.New(core)), nil
	case FormatText, "":
		lvl, err := charm.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		l := charm.NewWithOptions(w, charm.Options{
			ReportTimestamp: true,
			TimeFormat:      "2006-01-02 15:04:05",
			Level:           lvl,
		})
		return NewCharm(l), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
