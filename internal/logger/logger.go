// Package logger provides a thin wrapper around zap for structured logging.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap.Logger so call sites get structured logging with a
// nil-safe Sync.
type Logger struct {
	*zap.Logger
}

// NewLogger creates a production logger with ISO8601 timestamps.
func NewLogger() (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{Logger: l}, nil
}

// NewDevelopmentLogger creates a human-readable logger for local runs and tests.
func NewDevelopmentLogger() (*Logger, error) {
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}

	return &Logger{Logger: l}, nil
}

// Sync flushes any buffered log entries. Safe to call on a logger whose
// inner zap.Logger is nil.
func (l *Logger) Sync() error {
	if l.Logger == nil {
		return nil
	}

	return l.Logger.Sync()
}
