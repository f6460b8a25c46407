package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	StreamID  string    // Per-request stream identifier
	ChatID    int64     // Source chat
	MessageID int       // Source message
	DC        int       // Data center serving the stream
	ClientIP  string    // Client IP address (without port)
	StartTime time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext with the given client IP
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:   lc.TraceID,
		SpanID:    lc.SpanID,
		StreamID:  lc.StreamID,
		ChatID:    lc.ChatID,
		MessageID: lc.MessageID,
		DC:        lc.DC,
		ClientIP:  lc.ClientIP,
		StartTime: lc.StartTime,
	}
}

// WithStream returns a copy with the stream identity set
func (lc *LogContext) WithStream(streamID string, chatID int64, messageID int) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.StreamID = streamID
		clone.ChatID = chatID
		clone.MessageID = messageID
	}
	return clone
}

// WithDC returns a copy with the serving data center set
func (lc *LogContext) WithDC(dc int) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.DC = dc
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
