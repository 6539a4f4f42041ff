package logging

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with context support
type Logger struct {
	logger    *zap.Logger
	requestID string
}

// LogLevel defines the logging level
type LogLevel zapcore.Level

const (
	DEBUG LogLevel = LogLevel(zapcore.DebugLevel)
	INFO  LogLevel = LogLevel(zapcore.InfoLevel)
	WARN  LogLevel = LogLevel(zapcore.WarnLevel)
	ERROR LogLevel = LogLevel(zapcore.ErrorLevel)
	FATAL LogLevel = LogLevel(zapcore.FatalLevel)
)

// contextKey defines a type for context keys
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	loggerKey    contextKey = "logger"
)

// ParseLevel maps a config string ("debug", "info", ...) to a LogLevel, defaulting to INFO.
func ParseLevel(s string) LogLevel {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return INFO
	}
	return LogLevel(l)
}

// NewLogger creates a new Logger instance
func NewLogger(level LogLevel) *Logger {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.Level(level))
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := config.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger}
}

// Wrap adapts an existing zap.Logger, e.g. zaptest or zap.NewNop in tests.
func Wrap(l *zap.Logger) *Logger {
	return &Logger{logger: l}
}

// Zap exposes the underlying zap.Logger
func (l *Logger) Zap() *zap.Logger {
	return l.logger
}

// With returns a child logger carrying fields
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{logger: l.logger.With(fields...), requestID: l.requestID}
}

// WithRequestID adds request_id to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID retrieves request_id from context, generating one when absent
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey).(string); ok && reqID != "" {
		return reqID
	}
	return uuid.NewString()
}

// FromContext returns the logger stored in ctx, or base tagged with the request id.
// The returned context carries both so later calls reuse them.
func FromContext(ctx context.Context, base *Logger) (*Logger, context.Context) {
	if logger, ok := ctx.Value(loggerKey).(*Logger); ok {
		return logger, ctx
	}

	reqID := RequestID(ctx)
	logger := base.With(zap.String("request_id", reqID))
	logger.requestID = reqID
	ctx = WithRequestID(ctx, reqID)
	ctx = context.WithValue(ctx, loggerKey, logger)
	return logger, ctx
}

// logMessage logs a message with the specified level. A request id found in
// ctx is attached unless the logger already carries it.
func (l *Logger) logMessage(ctx context.Context, level LogLevel, msg string, fields ...zap.Field) {
	logger := l.logger
	if ctx != nil {
		if reqID, ok := ctx.Value(requestIDKey).(string); ok && reqID != "" && reqID != l.requestID {
			fields = append(fields, zap.String("request_id", reqID))
		}
	}
	switch level {
	case DEBUG:
		logger.Debug(msg, fields...)
	case INFO:
		logger.Info(msg, fields...)
	case WARN:
		logger.Warn(msg, fields...)
	case ERROR:
		logger.Error(msg, fields...)
	case FATAL:
		logger.Fatal(msg, fields...)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	l.logMessage(ctx, DEBUG, msg, fields...)
}

// Info logs an info message
func (l *Logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.logMessage(ctx, INFO, msg, fields...)
}

// Warn logs a warning message
func (l *Logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.logMessage(ctx, WARN, msg, fields...)
}

// Error logs an error message
func (l *Logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.logMessage(ctx, ERROR, msg, fields...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(ctx context.Context, msg string, fields ...zap.Field) {
	l.logMessage(ctx, FATAL, msg, fields...)
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.logger.Sync()
}
