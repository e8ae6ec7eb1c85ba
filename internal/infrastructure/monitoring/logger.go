// Package monitoring provides the observability implementations: the zap
// logger behind pkg/logger, Prometheus metrics, and OpenTelemetry tracing.
package monitoring

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/keyforge/keyforge/internal/config"
	"github.com/keyforge/keyforge/pkg/constants"
	"github.com/keyforge/keyforge/pkg/logger"
)

type zapLogger struct {
	l *zap.Logger
}

// NewZapLogger builds a production JSON logger at the configured level.
// Fields whose keys look secret-bearing are redacted before encoding.
func NewZapLogger(cfg *config.LogConfig) (logger.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var encoder zapcore.Encoder
	if strings.EqualFold(cfg.Format, "console") {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	return &zapLogger{zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))}, nil
}

func (l *zapLogger) Debug(ctx context.Context, msg string, fields ...logger.Fields) {
	l.l.Debug(msg, convertFields(ctx, fields...)...)
}

func (l *zapLogger) Info(ctx context.Context, msg string, fields ...logger.Fields) {
	l.l.Info(msg, convertFields(ctx, fields...)...)
}

func (l *zapLogger) Warn(ctx context.Context, msg string, fields ...logger.Fields) {
	l.l.Warn(msg, convertFields(ctx, fields...)...)
}

func (l *zapLogger) Error(ctx context.Context, msg string, err error, fields ...logger.Fields) {
	zapFields := convertFields(ctx, fields...)
	if err != nil {
		zapFields = append(zapFields, zap.Error(err))
	}
	l.l.Error(msg, zapFields...)
}

func (l *zapLogger) Fatal(ctx context.Context, msg string, err error, fields ...logger.Fields) {
	zapFields := convertFields(ctx, fields...)
	if err != nil {
		zapFields = append(zapFields, zap.Error(err))
	}
	l.l.Fatal(msg, zapFields...)
}

func (l *zapLogger) WithFields(fields logger.Fields) logger.Logger {
	return &zapLogger{l.l.With(convertFields(context.Background(), fields)...)}
}

func (l *zapLogger) WithComponent(component string) logger.Logger {
	return &zapLogger{l.l.With(zap.String("component", component))}
}

func convertFields(ctx context.Context, fields ...logger.Fields) []zap.Field {
	zapFields := make([]zap.Field, 0, 4)
	if ctx != nil {
		if requestID, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok {
			zapFields = append(zapFields, zap.String("request_id", requestID))
		}
		if traceID, ok := ctx.Value(constants.ContextKeyTraceID).(string); ok {
			zapFields = append(zapFields, zap.String("trace_id", traceID))
		}
	}
	for _, f := range fields {
		for k, v := range f {
			zapFields = append(zapFields, zap.Any(k, sanitizeValue(k, v)))
		}
	}
	return zapFields
}

var sensitiveKeys = []string{"secret", "password", "token", "signature", "authorization"}

func sanitizeValue(key string, value interface{}) interface{} {
	lower := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lower, sensitive) {
			return "***REDACTED***"
		}
	}
	return value
}
