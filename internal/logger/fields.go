package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so streams, sessions,
// and DC activity can be correlated in log aggregation.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Stream Identity
	// ========================================================================
	KeyStreamID  = "stream_id"  // Per-request stream identifier
	KeyChatID    = "chat_id"    // Source chat (negative for channels)
	KeyMessageID = "message_id" // Source message
	KeyMediaKind = "media_kind" // document, photo, chat_photo
	KeyFileName  = "file_name"  // Declared file name
	KeyMIMEType  = "mime_type"  // Declared or inferred MIME type
	KeyFileSize  = "file_size"  // Total media size in bytes

	// ========================================================================
	// Range & Block I/O
	// ========================================================================
	KeyRangeStart = "range_start" // First requested byte (inclusive)
	KeyRangeEnd   = "range_end"   // Last requested byte (inclusive)
	KeyOffset     = "offset"      // Aligned block offset of the current fetch
	KeyPart       = "part"        // 1-based part index within the plan
	KeyParts      = "parts"       // Total parts in the plan
	KeyChunkSize  = "chunk_size"  // Block size per fetch
	KeyBytesSent  = "bytes_sent"  // Bytes written to the client so far

	// ========================================================================
	// DC & Session
	// ========================================================================
	KeyDC       = "dc"       // Data center ID
	KeyHomeDC   = "home_dc"  // Home data center ID
	KeyAttempt  = "attempt"  // Retry attempt number
	KeyWait     = "wait"     // Server-mandated wait duration
	KeyDeadline = "deadline" // Back-off deadline

	// ========================================================================
	// HTTP
	// ========================================================================
	KeyClientIP = "client_ip" // Client IP address
	KeyStatus   = "status"    // HTTP status code
	KeyPath     = "path"      // Request path
	KeyPort     = "port"      // Listener port

	// ========================================================================
	// Cache
	// ========================================================================
	KeyCacheHit = "cache_hit" // Handle cache hit indicator
	KeyEntries  = "entries"   // Entry count (cache sweeps, stats)

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyTransport  = "transport"   // Backend transport name
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// StreamID returns a slog.Attr for the per-request stream identifier
func StreamID(id string) slog.Attr {
	return slog.String(KeyStreamID, id)
}

// ChatID returns a slog.Attr for the source chat
func ChatID(id int64) slog.Attr {
	return slog.Int64(KeyChatID, id)
}

// MessageID returns a slog.Attr for the source message
func MessageID(id int) slog.Attr {
	return slog.Int(KeyMessageID, id)
}

// MediaKind returns a slog.Attr for the media variant
func MediaKind(kind string) slog.Attr {
	return slog.String(KeyMediaKind, kind)
}

// FileName returns a slog.Attr for the declared file name
func FileName(name string) slog.Attr {
	return slog.String(KeyFileName, name)
}

// MIMEType returns a slog.Attr for the MIME type
func MIMEType(mime string) slog.Attr {
	return slog.String(KeyMIMEType, mime)
}

// FileSize returns a slog.Attr for the total media size
func FileSize(n int64) slog.Attr {
	return slog.Int64(KeyFileSize, n)
}

// RangeStart returns a slog.Attr for the first requested byte
func RangeStart(n int64) slog.Attr {
	return slog.Int64(KeyRangeStart, n)
}

// RangeEnd returns a slog.Attr for the last requested byte
func RangeEnd(n int64) slog.Attr {
	return slog.Int64(KeyRangeEnd, n)
}

// Offset returns a slog.Attr for the aligned block offset
func Offset(n int64) slog.Attr {
	return slog.Int64(KeyOffset, n)
}

// Part returns a slog.Attr for the 1-based part index
func Part(i int) slog.Attr {
	return slog.Int(KeyPart, i)
}

// Parts returns a slog.Attr for the total part count
func Parts(n int) slog.Attr {
	return slog.Int(KeyParts, n)
}

// ChunkSize returns a slog.Attr for the block size
func ChunkSize(n int64) slog.Attr {
	return slog.Int64(KeyChunkSize, n)
}

// BytesSent returns a slog.Attr for bytes written to the client
func BytesSent(n int64) slog.Attr {
	return slog.Int64(KeyBytesSent, n)
}

// DC returns a slog.Attr for a data center ID
func DC(id int) slog.Attr {
	return slog.Int(KeyDC, id)
}

// HomeDC returns a slog.Attr for the home data center ID
func HomeDC(id int) slog.Attr {
	return slog.Int(KeyHomeDC, id)
}

// Attempt returns a slog.Attr for a retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// Wait returns a slog.Attr for a server-mandated wait
func Wait(d time.Duration) slog.Attr {
	return slog.Duration(KeyWait, d)
}

// Deadline returns a slog.Attr for a back-off deadline
func Deadline(t time.Time) slog.Attr {
	return slog.Time(KeyDeadline, t)
}

// ClientIP returns a slog.Attr for the client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// Status returns a slog.Attr for an HTTP status code
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

// Path returns a slog.Attr for the request path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Port returns a slog.Attr for a listener port
func Port(n int) slog.Attr {
	return slog.Int(KeyPort, n)
}

// CacheHit returns a slog.Attr for a handle cache hit indicator
func CacheHit(hit bool) slog.Attr {
	return slog.Bool(KeyCacheHit, hit)
}

// Entries returns a slog.Attr for an entry count
func Entries(n int) slog.Attr {
	return slog.Int(KeyEntries, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Transport returns a slog.Attr for the backend transport name
func Transport(name string) slog.Attr {
	return slog.String(KeyTransport, name)
}
