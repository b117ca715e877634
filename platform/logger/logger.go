// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// MessageIDKey is the context key for the source message being reconciled
	MessageIDKey contextKey = "message_id"
	// TraceIDKey is the context key for trace ID
	TraceIDKey contextKey = "trace_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id, message_id, and trace_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("request_id", requestID)),
		}
	}

	if messageID, ok := ctx.Value(MessageIDKey).(string); ok && messageID != "" {
		newLogger = newLogger.WithMessageID(messageID)
	}

	if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("trace_id", traceID)),
		}
	}

	return newLogger
}

// WithMessageID returns a logger scoped to one source message.
func (l *Logger) WithMessageID(messageID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("message_id", messageID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// ReconcileOutcome logs the terminal state of one message reconciliation.
func (l *Logger) ReconcileOutcome(messageID, action, decision string, bookingID string, reason string) {
	attrs := []any{
		slog.String("message_id", messageID),
		slog.String("action", action),
		slog.String("decision", decision),
	}
	if bookingID != "" {
		attrs = append(attrs, slog.String("booking_id", bookingID))
	}
	if reason != "" {
		attrs = append(attrs, slog.String("reason", reason))
		l.Warn("reconcile_outcome", attrs...)
		return
	}
	l.Info("reconcile_outcome", attrs...)
}
