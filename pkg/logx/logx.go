// Package logx is the process-wide leveled logger backed by zap.
package logx

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int8

const (
	LevelDebug Level = Level(zapcore.DebugLevel)
	LevelInfo  Level = Level(zapcore.InfoLevel)
	LevelWarn  Level = Level(zapcore.WarnLevel)
	LevelError Level = Level(zapcore.ErrorLevel)
)

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base  = mustBuild(false)
	sugar = base.Sugar()
)

// Configure rebuilds the global logger with console or json encoding.
func Configure(json bool, debug bool) error {
	if debug {
		level.SetLevel(zapcore.DebugLevel)
	}
	l, err := build(json)
	if err != nil {
		return err
	}
	SetLogger(l)
	return nil
}

// SetLevel changes the minimum level of the global logger.
func SetLevel(l Level) {
	level.SetLevel(zapcore.Level(l))
}

// ParseLevel maps "debug", "info", "warn" and "error" to a Level.
func ParseLevel(s string) (Level, error) {
	var zl zapcore.Level
	if err := zl.UnmarshalText([]byte(s)); err != nil {
		return LevelInfo, err
	}
	return Level(zl), nil
}

// SetLogger replaces the global logger. Tests use it with an observer core.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	sugar = l.Sugar()
}

// L returns the structured logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func S() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// With returns a child logger carrying the given key/value pairs.
func With(keysAndValues ...any) *zap.SugaredLogger {
	return S().With(keysAndValues...)
}

func Sync() error { return L().Sync() }

func Debug(args ...any)                 { S().Debug(args...) }
func Debugf(format string, args ...any) { S().Debugf(format, args...) }
func Info(args ...any)                  { S().Info(args...) }
func Infof(format string, args ...any)  { S().Infof(format, args...) }
func Warn(args ...any)                  { S().Warn(args...) }
func Warnf(format string, args ...any)  { S().Warnf(format, args...) }
func Error(args ...any)                 { S().Error(args...) }
func Errorf(format string, args ...any) { S().Errorf(format, args...) }
func Fatalf(format string, args ...any) { S().Fatalf(format, args...) }

func build(json bool) (*zap.Logger, error) {
	encoding := "console"
	if json {
		encoding = "json"
	}

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            level,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "msg",

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}
	return cfg.Build(zap.AddCallerSkip(1))
}

func mustBuild(json bool) *zap.Logger {
	l, err := build(json)
	if err != nil {
		return zap.NewNop()
	}
	return l
}
