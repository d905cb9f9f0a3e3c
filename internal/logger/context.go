package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context.
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context: trace correlation plus
// the session an execution or upload request is operating on.
type LogContext struct {
	TraceID   string // OpenTelemetry trace ID
	SpanID    string // OpenTelemetry span ID
	Operation string // execute, upload, download, reap, ...
	SessionID string
	ClientIP  string
	StartTime time.Time // For duration calculation
}

// WithContext returns a new context carrying lc.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from ctx, or nil if not present.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a LogContext for a request from the given client IP.
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of lc.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:   lc.TraceID,
		SpanID:    lc.SpanID,
		Operation: lc.Operation,
		SessionID: lc.SessionID,
		ClientIP:  lc.ClientIP,
		StartTime: lc.StartTime,
	}
}

// WithOperation returns a copy of lc with Operation set.
func (lc *LogContext) WithOperation(operation string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Operation = operation
	}
	return clone
}

// WithSession returns a copy of lc with SessionID set.
func (lc *LogContext) WithSession(sessionID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.SessionID = sessionID
	}
	return clone
}

// WithTrace returns a copy of lc with trace info set.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
