package log

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type logKeyType struct{}

var logKey logKeyType

var defaultLogger *zap.Logger

func init() {
	level := zap.InfoLevel
	if l, ok := os.LookupEnv("SATCTL_LOG_LEVEL"); ok {
		if err := level.Set(l); err != nil {
			level = zap.InfoLevel
		}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := cfg.Build(zap.AddStacktrace(zapcore.FatalLevel))
	if err != nil {
		logger = zap.NewNop()
	}
	defaultLogger = logger
}

// SetDefault replaces the process-wide logger (e.g. with a development config)
func SetDefault(l *zap.Logger) {
	defaultLogger = l
}

// Logger returns the logger carried by ctx, or the default logger
func Logger(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(logKey).(*zap.Logger); ok {
		return l
	}
	return defaultLogger
}

// With returns a context carrying a logger enriched with the given key/value pairs
func With(ctx context.Context, keysAndValues ...interface{}) context.Context {
	return context.WithValue(ctx, logKey, Logger(ctx).Sugar().With(keysAndValues...).Desugar())
}

// Fatal logs the message and exits
func Fatal(msg string, fields ...zap.Field) {
	defaultLogger.Fatal(msg, fields...)
}
