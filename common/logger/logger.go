package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Package logger wraps zap behind package-level printf helpers so call
// sites stay terse. The level is adjustable at runtime.

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	log   = newSugared(false)
)

func newSugared(dev bool) *zap.SugaredLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg := zap.Config{
		Level:            level,
		Encoding:         "json",
		EncoderConfig:    encCfg,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if dev {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewNop()
	}
	return l.Sugar()
}

// SetLevel changes the minimum level for all subsequent log calls.
func SetLevel(l zapcore.Level) {
	level.SetLevel(l)
}

// UseDevelopment switches to a human-readable console encoder.
func UseDevelopment() {
	mu.Lock()
	defer mu.Unlock()
	log = newSugared(true)
}

func Debugf(format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Errorf(format, args...)
}

// With returns a child logger carrying structured key/value context.
func With(args ...interface{}) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return log.With(args...)
}
