package kvbench

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	LevelVerbose = "verbose"
	LevelDebug   = "debug"
	LevelInfo    = "info"
	LevelWarn    = "warn"
	LevelError   = "error"
	LevelQuiet   = "quiet"
)

var (
	nameToLevels = map[string]zapcore.Level{
		LevelVerbose: zapcore.DebugLevel,
		LevelDebug:   zapcore.DebugLevel,
		LevelInfo:    zapcore.InfoLevel,
		LevelWarn:    zapcore.WarnLevel,
		LevelError:   zapcore.ErrorLevel,
	}
)

// NewLogger builds a console logger writing to stderr at the named level.
// The "quiet" level returns a no-op logger.
func NewLogger(level string) (*zap.Logger, error) {
	if level == LevelQuiet {
		return zap.NewNop(), nil
	}
	l, ok := nameToLevels[level]
	if !ok {
		return nil, NewConfigError("", "log-level", "unknown level %q", level)
	}
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stderr),
		zap.NewAtomicLevelAt(l),
	)
	opts := []zap.Option{}
	if level == LevelVerbose {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(core, opts...), nil
}
