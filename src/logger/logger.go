package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// -----------------------------------------------------------------------------

// Logger wraps a zap SugaredLogger behind the printf-style API the rest of
// the plant calls. Severity maps straight onto zap levels; Critical is an
// error-level record whose caller is expected to exit.
type Logger struct {
	name  string
	sugar *zap.SugaredLogger
}

// -----------------------------------------------------------------------------

// NewLogger builds a logger for the named component. LOG_MODE=production
// switches to zap's JSON production encoder; anything else gets the colored
// development console encoder.
func NewLogger(name string) *Logger {
	var zapLogger *zap.Logger

	if os.Getenv("LOG_MODE") == "production" {
		zapLogger = zap.Must(zap.NewProduction(zap.AddCallerSkip(1)))
	} else {
		config := zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapLogger = zap.Must(config.Build(zap.AddCallerSkip(1)))
	}

	return &Logger{
		name:  name,
		sugar: zapLogger.Sugar(),
	}
}

// -----------------------------------------------------------------------------

func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warning(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Critical logs at error level; callers exit themselves after cleanup.
func (l *Logger) Critical(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// -----------------------------------------------------------------------------

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
