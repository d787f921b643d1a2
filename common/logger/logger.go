package logger

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDKey is the key used to store request ID in context
const RequestIDKey = "request_id"

type ctxKey struct{}

// New builds a logger for the given environment. When extraSink is not nil
// every entry is also written to it as JSON (CloudWatch Logs in production).
func New(env string, extraSink io.Writer) (*zap.Logger, error) {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if extraSink == nil {
		log, err := config.Build()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		return log, nil
	}

	level := zap.NewAtomicLevelAt(config.Level.Level())

	consoleEncoder := zapcore.NewConsoleEncoder(config.EncoderConfig)
	if env == "production" {
		consoleEncoder = zapcore.NewJSONEncoder(config.EncoderConfig)
	}
	consoleCore := zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level)

	// The sink always gets JSON; colour codes would be noise there.
	sinkConfig := config.EncoderConfig
	sinkConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	sinkCore := zapcore.NewCore(zapcore.NewJSONEncoder(sinkConfig), zapcore.AddSync(extraSink), level)

	core := zapcore.NewTee(consoleCore, sinkCore)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// WithRequestID returns a copy of ctx carrying the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestID extracts the request ID set by the RequestID middleware, from
// either a *gin.Context or a plain context derived from the request.
func RequestID(ctx context.Context) string {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		if requestID := ginCtx.GetString(RequestIDKey); requestID != "" {
			return requestID
		}
		if ginCtx.Request == nil {
			return "unknown"
		}
		ctx = ginCtx.Request.Context()
	}
	if ctx == nil {
		return "unknown"
	}
	if requestID, ok := ctx.Value(ctxKey{}).(string); ok && requestID != "" {
		return requestID
	}
	return "unknown"
}

// For returns log annotated with the request ID found in ctx.
func For(ctx context.Context, log *zap.Logger) *zap.Logger {
	return log.With(zap.String(RequestIDKey, RequestID(ctx)))
}
