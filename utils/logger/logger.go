// ABOUTME: This file provides context-aware structured logging for the service
// ABOUTME: Supports request ID propagation with JSON output format
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	OperationKey ContextKey = "operation"
)

// Logger is the process-wide fallback logger. main replaces it at startup;
// the init value keeps tests from tripping over a nil logger.
var Logger *slog.Logger

func init() {
	if Logger == nil {
		Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{}))
	}
}

type LoggerConfig struct {
	Level       string
	Format      string
	ServiceName string
}

func LoadLoggerConfigFromEnv() *LoggerConfig {
	return &LoggerConfig{
		Level:       getEnvOrDefault("LOG_LEVEL", "info"),
		Format:      getEnvOrDefault("LOG_FORMAT", "json"),
		ServiceName: getEnvOrDefault("SERVICE_NAME", "rss-digest"),
	}
}

// WithRequestID stores a request ID in ctx for log enrichment.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithOperation stores the current operation name in ctx for log enrichment.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, OperationKey, operation)
}

// ContextLogger wraps slog with request-scoped field extraction from
// context values.
type ContextLogger struct {
	logger      *slog.Logger
	serviceName string
}

func NewContextLogger(cfg *LoggerConfig) *ContextLogger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With("service", cfg.ServiceName)
	Logger = logger

	return &ContextLogger{
		logger:      logger,
		serviceName: cfg.ServiceName,
	}
}

// WithContext returns a logger enriched with request-scoped fields found in
// ctx.
func (cl *ContextLogger) WithContext(ctx context.Context) *slog.Logger {
	logger := cl.logger

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		logger = logger.With("request_id", requestID)
	}

	if operation, ok := ctx.Value(OperationKey).(string); ok && operation != "" {
		logger = logger.With("operation", operation)
	}

	return logger
}

// Base returns the underlying slog logger without context enrichment.
func (cl *ContextLogger) Base() *slog.Logger {
	return cl.logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
