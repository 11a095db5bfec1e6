package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	sellerIDKey  contextKey = "seller_id"
)

// WithContext returns a new context carrying the logger
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// Ensure attaches fallback when ctx carries no logger yet
func Ensure(ctx context.Context, fallback *zap.Logger) context.Context {
	if _, ok := ctx.Value(loggerKey).(*zap.Logger); ok || fallback == nil {
		return ctx
	}
	return WithContext(ctx, fallback)
}

// WithRequestID stores the request id for correlation
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithSellerID stores the acting seller for correlation
func WithSellerID(ctx context.Context, sellerID string) context.Context {
	return context.WithValue(ctx, sellerIDKey, sellerID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// GetSellerID retrieves the seller ID from context
func GetSellerID(ctx context.Context) string {
	v, _ := ctx.Value(sellerIDKey).(string)
	return v
}

// L returns the context logger enriched with trace, request and seller fields.
// Usage: logger.L(ctx).Info("sync finished", zap.Int("added", n))
func L(ctx context.Context) *zap.Logger {
	l := FromContext(ctx)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		l = l.With(
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := GetRequestID(ctx); id != "" {
		l = l.With(zap.String("request_id", id))
	}
	if id := GetSellerID(ctx); id != "" {
		l = l.With(zap.String("seller_id", id))
	}
	return l
}
