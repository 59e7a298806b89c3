// Package logger holds the process-wide zap logger. Until Init or Set runs, every call is a no-op.
package logger

import (
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global atomic.Pointer[zap.Logger]

func init() {
	global.Store(zap.NewNop())
}

// New builds a logger. format is "json" or "console"; console also switches to the
// development encoder with colour levels.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("logger: unknown format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]any{"service": "lifeadmin"}

	return cfg.Build()
}

// Init builds a logger with New and installs it globally.
func Init(level, format string) error {
	l, err := New(level, format)
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

// Set installs l as the global logger; nil restores the no-op logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	global.Store(l)
}

func Logger() *zap.Logger {
	return global.Load()
}

// Sync flushes buffered entries. Errors from syncing stdout/stderr are expected on some
// platforms and ignored by callers.
func Sync() error {
	return Logger().Sync()
}

// WithModule returns the global logger tagged with module, e.g. "scheduler" or "http".
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}
