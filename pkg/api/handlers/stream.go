package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/streamgate/streamgate/internal/logger"
	"github.com/streamgate/streamgate/internal/telemetry"
	"github.com/streamgate/streamgate/pkg/stream"
	"github.com/streamgate/streamgate/pkg/telegram"
	"github.com/streamgate/streamgate/pkg/telegram/session"
)

// StreamHandler serves media bytes over HTTP with Range support.
type StreamHandler struct {
	streamer *stream.Streamer
}

// NewStreamHandler creates a handler for GET /stream/{chat_id}/{message_id}.
func NewStreamHandler(streamer *stream.Streamer) *StreamHandler {
	return &StreamHandler{streamer: streamer}
}

// Stream handles GET /stream/{chat_id}/{message_id}.
//
// The media size and MIME type come from the message; the body is produced
// by the byte streamer. Only the first range of a multi-range header is
// honoured. Responses:
//   - 200 full content when no Range header is present
//   - 206 partial content for a valid range
//   - 404 when the message has no streamable media
//   - 416 with Content-Range: bytes */SIZE and an empty body for a
//     malformed or unsatisfiable range
//   - 503 when the backend session is unavailable or backing off
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(chi.URLParam(r, "chat_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "invalid chat id")
		return
	}
	messageID, err := strconv.Atoi(chi.URLParam(r, "message_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "invalid message id")
		return
	}

	ctx, span := telemetry.StartStreamSpan(r.Context(), chatID, messageID,
		telemetry.ClientIP(clientIP(r)))
	defer span.End()

	lc := logger.NewLogContext(clientIP(r))
	lc.ChatID = chatID
	lc.MessageID = messageID
	lc.TraceID = telemetry.TraceID(ctx)
	lc.SpanID = telemetry.SpanID(ctx)
	ctx = logger.WithContext(ctx, lc)

	media, err := h.streamer.Resolve(ctx, chatID, messageID)
	if err != nil {
		writeStreamError(ctx, w, err)
		return
	}
	span.SetAttributes(
		telemetry.MediaKind(string(media.Kind)),
		telemetry.FileSize(media.Size))

	status := http.StatusOK
	start, end := int64(0), media.Size-1
	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		span.SetAttributes(telemetry.HTTPRange(rangeHeader))
		var ok bool
		start, end, ok = parseRange(rangeHeader, media.Size)
		if !ok {
			span.SetAttributes(telemetry.HTTPStatus(http.StatusRequestedRangeNotSatisfiable))
			writeUnsatisfiable(w, media.Size)
			return
		}
		status = http.StatusPartialContent
	}

	st, err := h.streamer.Stream(ctx, stream.StreamRequest{
		ChatID:    chatID,
		MessageID: messageID,
		Start:     start,
		End:       end,
	})
	if err != nil {
		if errors.Is(err, stream.ErrRangeUnsatisfiable) {
			writeUnsatisfiable(w, media.Size)
			return
		}
		writeStreamError(ctx, w, err)
		return
	}
	defer st.Close()

	logger.DebugCtx(ctx, "stream opened",
		"stream_id", st.ID(),
		"status", status,
		"start", start,
		"end", end,
		"size", media.Size,
	)

	w.Header().Set("Content-Type", contentType(media))
	w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
	w.Header().Set("Accept-Ranges", "bytes")
	if media.FileName != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", media.FileName))
	}
	if status == http.StatusPartialContent {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, media.Size))
	}
	span.SetAttributes(
		telemetry.HTTPStatus(status),
		telemetry.RangeStart(start),
		telemetry.RangeEnd(end),
		telemetry.StreamLength(end-start+1))
	w.WriteHeader(status)

	// Flush after every block so playback starts immediately. io.Copy picks
	// the stream's WriteTo, which writes one block at a time.
	dst := io.Writer(w)
	if f, ok := w.(http.Flusher); ok {
		dst = flushWriter{w: w, f: f}
	}
	if _, err := io.Copy(dst, st); err != nil && !errors.Is(err, context.Canceled) {
		// Headers are gone; the client sees a truncated body.
		logger.WarnCtx(ctx, "stream aborted mid-body", "stream_id", st.ID(), "error", err)
	}
}

// writeStreamError maps resolver and streamer failures onto HTTP statuses.
func writeStreamError(ctx context.Context, w http.ResponseWriter, err error) {
	telemetry.RecordError(ctx, err)

	var backoff *session.BackoffError
	switch {
	case errors.Is(err, stream.ErrNoMedia):
		writeError(w, http.StatusNotFound, "no streamable media")
	case errors.As(err, &backoff):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, session.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "backend not connected")
	default:
		logger.ErrorCtx(ctx, "stream request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process file")
	}
}

// writeUnsatisfiable answers 416 with the total size and no body.
func writeUnsatisfiable(w http.ResponseWriter, size int64) {
	w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
	w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
}

// parseRange interprets a Range header against a file of size bytes.
//
// Only the first range of a multi-range header is used. Suffix ranges
// (bytes=-N) are rejected. ok is false for anything malformed or lying
// outside the file; the caller answers those with 416.
func parseRange(header string, size int64) (start, end int64, ok bool) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return 0, 0, false
	}
	spec := strings.TrimPrefix(header, prefix)
	if i := strings.IndexByte(spec, ','); i >= 0 {
		spec = spec[:i]
	}
	spec = strings.TrimSpace(spec)

	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return 0, 0, false
	}

	start, err := strconv.ParseInt(spec[:dash], 10, 64)
	if err != nil {
		return 0, 0, false
	}

	end = size - 1
	if rest := spec[dash+1:]; rest != "" {
		end, err = strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return 0, 0, false
		}
	}

	if start < 0 || start >= size || end >= size || end < start {
		return 0, 0, false
	}
	return start, end, true
}

// contentType picks the response MIME type. The declared type wins unless
// it is missing or the generic octet-stream, in which case the filename
// extension decides.
func contentType(media *telegram.Media) string {
	if media.MIMEType != "" && media.MIMEType != "application/octet-stream" {
		return media.MIMEType
	}
	if media.FileName != "" {
		if t := mime.TypeByExtension(filepath.Ext(media.FileName)); t != "" {
			return t
		}
	}
	return "application/octet-stream"
}

// clientIP strips the port from the remote address. The RealIP middleware
// may already have replaced it with a bare header value.
func clientIP(r *http.Request) string {
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

// flushWriter pushes each written block to the client immediately instead
// of letting it sit in the response buffer.
type flushWriter struct {
	w io.Writer
	f http.Flusher
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if n > 0 {
		fw.f.Flush()
	}
	return n, err
}
