package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Logger is a thin wrapper over zap's sugared logger so packages depend on a
// small interface surface instead of zap directly.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New builds a logger for the given mode ("prod"/"production" or anything
// else for development output).
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: zapLogger.Sugar()}, nil
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() { _ = l.sugar.Sync() }

func (l *Logger) Debug(msg string, keysAndValues ...any) { l.sugar.Debugw(msg, keysAndValues...) }
func (l *Logger) Info(msg string, keysAndValues ...any)  { l.sugar.Infow(msg, keysAndValues...) }
func (l *Logger) Warn(msg string, keysAndValues ...any)  { l.sugar.Warnw(msg, keysAndValues...) }
func (l *Logger) Error(msg string, keysAndValues ...any) { l.sugar.Errorw(msg, keysAndValues...) }
func (l *Logger) Fatal(msg string, keysAndValues ...any) { l.sugar.Fatalw(msg, keysAndValues...) }

// With returns a child logger with the given fields attached.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...)}
}
