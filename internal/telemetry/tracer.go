package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for streaming operations.
// These follow OpenTelemetry semantic conventions where applicable.
// HTTP-facing keys use "client."/"http." prefixes, domain-specific keys
// use "media.", "stream." and "tg." prefixes.
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"

	// ========================================================================
	// HTTP attributes
	// ========================================================================
	AttrHTTPStatus = "http.status_code"
	AttrHTTPRange  = "http.range"

	// ========================================================================
	// Media attributes
	// ========================================================================
	AttrMediaChatID    = "media.chat_id"
	AttrMediaMessageID = "media.message_id"
	AttrMediaKind      = "media.kind"
	AttrMediaFileName  = "media.file_name"
	AttrMediaMimeType  = "media.mime_type"
	AttrMediaFileSize  = "media.file_size"
	AttrMediaUniqueID  = "media.unique_id"

	// ========================================================================
	// Stream attributes
	// ========================================================================
	AttrStreamID      = "stream.id"
	AttrStreamStart   = "stream.range_start"
	AttrStreamEnd     = "stream.range_end"
	AttrStreamLength  = "stream.length"
	AttrStreamOffset  = "stream.aligned_offset"
	AttrStreamParts   = "stream.parts"
	AttrStreamPart    = "stream.part"
	AttrStreamChunk   = "stream.chunk_size"
	AttrStreamSent    = "stream.bytes_sent"
	AttrStreamAttempt = "stream.attempt"

	// ========================================================================
	// Telegram attributes
	// ========================================================================
	AttrTGDC         = "tg.dc"
	AttrTGHomeDC     = "tg.home_dc"
	AttrTGErrorType  = "tg.error_type"
	AttrTGFloodWait  = "tg.flood_wait_seconds"
	AttrTGMigrations = "tg.migrations"
	AttrTGRefreshes  = "tg.reference_refreshes"

	// ========================================================================
	// Cache attributes
	// ========================================================================
	AttrCacheHit     = "cache.hit"
	AttrCacheEntries = "cache.entries"
)

// Span names for operations.
// Format: <component>.<operation>
const (
	// HTTP surface
	SpanHTTPStream = "http.stream"
	SpanHTTPStats  = "http.stats"

	// Streaming pipeline
	SpanStreamPlan  = "stream.plan"
	SpanStreamServe = "stream.serve"
	SpanStreamPart  = "stream.part"

	// Media resolution
	SpanMediaResolve = "media.resolve"

	// Telegram transport
	SpanTGGetFile    = "tg.get_file"
	SpanTGExportAuth = "tg.export_auth"
	SpanTGImportAuth = "tg.import_auth"
	SpanTGDial       = "tg.dial"

	// Session registry
	SpanSessionAcquire = "session.acquire"

	// Handle cache
	SpanHandlesSweep = "handles.sweep"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for full client address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// HTTPStatus returns an attribute for the HTTP response status code
func HTTPStatus(code int) attribute.KeyValue {
	return attribute.Int(AttrHTTPStatus, code)
}

// HTTPRange returns an attribute for the raw Range header value
func HTTPRange(header string) attribute.KeyValue {
	return attribute.String(AttrHTTPRange, header)
}

// ChatID returns an attribute for the originating chat
func ChatID(id int64) attribute.KeyValue {
	return attribute.Int64(AttrMediaChatID, id)
}

// MessageID returns an attribute for the message carrying the media
func MessageID(id int) attribute.KeyValue {
	return attribute.Int(AttrMediaMessageID, id)
}

// MediaKind returns an attribute for the media variant (document, photo, ...)
func MediaKind(kind string) attribute.KeyValue {
	return attribute.String(AttrMediaKind, kind)
}

// FileName returns an attribute for the media file name
func FileName(name string) attribute.KeyValue {
	return attribute.String(AttrMediaFileName, name)
}

// MimeType returns an attribute for the media MIME type
func MimeType(mime string) attribute.KeyValue {
	return attribute.String(AttrMediaMimeType, mime)
}

// FileSize returns an attribute for the total media size in bytes
func FileSize(size int64) attribute.KeyValue {
	return attribute.Int64(AttrMediaFileSize, size)
}

// UniqueID returns an attribute for the media unique identifier
func UniqueID(id string) attribute.KeyValue {
	return attribute.String(AttrMediaUniqueID, id)
}

// StreamID returns an attribute for the per-request stream identifier
func StreamID(id string) attribute.KeyValue {
	return attribute.String(AttrStreamID, id)
}

// RangeStart returns an attribute for the first requested byte
func RangeStart(start int64) attribute.KeyValue {
	return attribute.Int64(AttrStreamStart, start)
}

// RangeEnd returns an attribute for the last requested byte (inclusive)
func RangeEnd(end int64) attribute.KeyValue {
	return attribute.Int64(AttrStreamEnd, end)
}

// StreamLength returns an attribute for the response body length
func StreamLength(n int64) attribute.KeyValue {
	return attribute.Int64(AttrStreamLength, n)
}

// AlignedOffset returns an attribute for the chunk-aligned fetch offset
func AlignedOffset(offset int64) attribute.KeyValue {
	return attribute.Int64(AttrStreamOffset, offset)
}

// Parts returns an attribute for the number of chunks in the plan
func Parts(n int) attribute.KeyValue {
	return attribute.Int(AttrStreamParts, n)
}

// Part returns an attribute for the current chunk index
func Part(i int) attribute.KeyValue {
	return attribute.Int(AttrStreamPart, i)
}

// ChunkSize returns an attribute for the fetch chunk size
func ChunkSize(size int64) attribute.KeyValue {
	return attribute.Int64(AttrStreamChunk, size)
}

// BytesSent returns an attribute for bytes written to the client
func BytesSent(n int64) attribute.KeyValue {
	return attribute.Int64(AttrStreamSent, n)
}

// Attempt returns an attribute for the retry attempt number
func Attempt(n int) attribute.KeyValue {
	return attribute.Int(AttrStreamAttempt, n)
}

// DC returns an attribute for the datacenter serving the request
func DC(dc int) attribute.KeyValue {
	return attribute.Int(AttrTGDC, dc)
}

// HomeDC returns an attribute for the session's home datacenter
func HomeDC(dc int) attribute.KeyValue {
	return attribute.Int(AttrTGHomeDC, dc)
}

// TGErrorType returns an attribute for the Telegram error class
func TGErrorType(t string) attribute.KeyValue {
	return attribute.String(AttrTGErrorType, t)
}

// FloodWait returns an attribute for a server-imposed wait in seconds
func FloodWait(seconds int) attribute.KeyValue {
	return attribute.Int(AttrTGFloodWait, seconds)
}

// Migrations returns an attribute for the number of DC migrations followed
func Migrations(n int) attribute.KeyValue {
	return attribute.Int(AttrTGMigrations, n)
}

// Refreshes returns an attribute for file reference refresh count
func Refreshes(n int) attribute.KeyValue {
	return attribute.Int(AttrTGRefreshes, n)
}

// CacheHit returns an attribute for cache hit indicator
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// CacheEntries returns an attribute for cache entry count
func CacheEntries(n int) attribute.KeyValue {
	return attribute.Int(AttrCacheEntries, n)
}

// StartStreamSpan starts the span covering one HTTP stream request, from
// media resolution through the last body byte.
func StartStreamSpan(ctx context.Context, chatID int64, messageID int, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		ChatID(chatID),
		MessageID(messageID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanHTTPStream, trace.WithAttributes(allAttrs...))
}

// StartTGSpan starts a span for a Telegram API call against a datacenter.
func StartTGSpan(ctx context.Context, name string, dc int, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		DC(dc),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}

// StartResolveSpan starts a span for resolving a message into media properties.
func StartResolveSpan(ctx context.Context, chatID int64, messageID int, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		ChatID(chatID),
		MessageID(messageID),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanMediaResolve, trace.WithAttributes(allAttrs...))
}
