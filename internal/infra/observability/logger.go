// Package observability adapts zap, Prometheus and OpenTelemetry to the
// catalog logging, metrics and tracing hooks.
package observability

import (
	"strings"

	"go.uber.org/zap"

	"tutorcore/internal/core"
)

var _ core.Logger = (*Logger)(nil)

// Logger is a sugared zap logger satisfying core.Logger.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// NewLogger builds a production (JSON) logger for "prod"/"production" and a
// development console logger otherwise.
func NewLogger(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zl.Sugar()}, nil
}

// WrapZap adapts an existing zap logger.
func WrapZap(zl *zap.Logger) *Logger {
	return &Logger{SugaredLogger: zl.Sugar()}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
}

func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...)}
}
