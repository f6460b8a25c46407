// Package stream implements the byte-serving core of the gateway: the
// block-aligned range plan, the decoded-handle cache, and the streamer that
// walks a plan against per-DC media sessions, absorbing migrations, flood
// waits, expired file references and transient transport faults on the way.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/streamgate/streamgate/internal/logger"
	"github.com/streamgate/streamgate/internal/telemetry"
	"github.com/streamgate/streamgate/pkg/bufpool"
	"github.com/streamgate/streamgate/pkg/telegram"
	"github.com/streamgate/streamgate/pkg/telegram/dcmap"
	"github.com/streamgate/streamgate/pkg/telegram/fileid"
	"github.com/streamgate/streamgate/pkg/telegram/session"
	"github.com/streamgate/streamgate/pkg/telegram/tgerr"
)

// Retry budgets and pacing defaults. The caps apply per part, not per
// stream; zero Config fields select these.
const (
	DefaultBlockTimeout          = 30 * time.Second
	DefaultFloodWaitCap          = 30 * time.Second
	DefaultMaxMigrations         = 3
	DefaultMaxTransientRetries   = 5
	DefaultMaxReferenceRefreshes = 2

	transientRetryDelay = time.Second
)

// Outcome classifies how a stream ended.
type Outcome string

const (
	// OutcomeDone means every requested byte was served.
	OutcomeDone Outcome = "done"

	// OutcomeAbortedClient means the client went away mid-stream.
	OutcomeAbortedClient Outcome = "aborted_client"

	// OutcomeAbortedUpstream means the backend failed past every retry
	// budget and the response body was truncated.
	OutcomeAbortedUpstream Outcome = "aborted_upstream"
)

// SessionProvider yields per-DC media sessions. Implemented by
// session.Registry.
type SessionProvider interface {
	Session(ctx context.Context, dc int) (*session.MediaSession, error)
	HomeDC() int
	Park(dc int, wait time.Duration) time.Time
}

// Metrics observes streamer activity. A nil Metrics disables collection.
type Metrics interface {
	StreamStarted()
	StreamFinished(outcome Outcome, bytes int64, seconds float64)
	BlockFetched(dc int, bytes int)
	RecordMigration(dc int)
	RecordFloodWait(dc int, wait time.Duration)
	RecordReferenceRefresh()
	RecordTransientRetry(dc int)
}

// Config tunes the streamer. Zero values select the package defaults.
type Config struct {
	ChunkSize             int64
	BlockTimeout          time.Duration
	FloodWaitCap          time.Duration
	MaxMigrations         int
	MaxTransientRetries   int
	MaxReferenceRefreshes int

	// GetFileRate paces block fetches across all streams, in calls per
	// second. Zero disables pacing.
	GetFileRate float64
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.BlockTimeout <= 0 {
		c.BlockTimeout = DefaultBlockTimeout
	}
	if c.FloodWaitCap <= 0 {
		c.FloodWaitCap = DefaultFloodWaitCap
	}
	if c.MaxMigrations <= 0 {
		c.MaxMigrations = DefaultMaxMigrations
	}
	if c.MaxTransientRetries <= 0 {
		c.MaxTransientRetries = DefaultMaxTransientRetries
	}
	if c.MaxReferenceRefreshes <= 0 {
		c.MaxReferenceRefreshes = DefaultMaxReferenceRefreshes
	}
	return c
}

// StreamRequest names one inclusive byte range of one message's media.
type StreamRequest struct {
	ChatID    int64
	MessageID int
	Start     int64
	End       int64
}

// Streamer turns stream requests into byte streams. It owns no sessions and
// no handles itself; those live in the session registry and the handle
// cache, shared across every stream.
type Streamer struct {
	sessions SessionProvider
	handles  *HandleCache
	dcs      *dcmap.Map
	metrics  Metrics
	cfg      Config
	limiter  *rate.Limiter

	// sleep is swapped out by tests to observe pauses without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewStreamer creates a streamer. metrics may be nil.
func NewStreamer(sessions SessionProvider, handles *HandleCache, dcs *dcmap.Map, cfg Config, metrics Metrics) *Streamer {
	s := &Streamer{
		sessions: sessions,
		handles:  handles,
		dcs:      dcs,
		metrics:  metrics,
		cfg:      cfg.withDefaults(),
		sleep:    sleepCtx,
	}
	if s.cfg.GetFileRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(s.cfg.GetFileRate), max(int(s.cfg.GetFileRate), 1))
	}
	return s
}

// Resolve returns the media description for a message, served from the
// handle cache. The HTTP layer needs it to answer range and header
// questions before opening a stream.
func (s *Streamer) Resolve(ctx context.Context, chatID int64, messageID int) (*telegram.Media, error) {
	_, media, err := s.handles.Get(ctx, chatID, messageID)
	return media, err
}

// Stream opens the byte stream for one request. The first block is fetched
// eagerly, so everything that can fail a request outright, including a bad
// range, a parked DC and an exhausted retry budget on part one, surfaces
// here before the HTTP layer has committed a status line.
func (s *Streamer) Stream(ctx context.Context, req StreamRequest) (*Stream, error) {
	id, media, err := s.handles.Get(ctx, req.ChatID, req.MessageID)
	if err != nil {
		return nil, err
	}

	plan, err := ComputePlanWithChunk(media.Size, req.Start, req.End, s.cfg.ChunkSize)
	if err != nil {
		return nil, err
	}

	loc, err := locationFromHandle(id)
	if err != nil {
		return nil, err
	}

	sess, err := s.initialSession(ctx, req, id)
	if err != nil {
		return nil, err
	}

	st := &Stream{
		id:      uuid.NewString(),
		s:       s,
		ctx:     ctx,
		req:     req,
		plan:    plan,
		fid:     id,
		loc:     loc,
		sess:    sess,
		started: time.Now(),
	}

	first, err := st.fetchPart(0)
	if err != nil {
		return nil, err
	}
	st.buf = plan.Trim(0, first)
	st.chunk = first
	st.part = 1

	if s.metrics != nil {
		s.metrics.StreamStarted()
	}
	logger.DebugCtx(ctx, "stream opened",
		logger.StreamID(st.id),
		logger.ChatID(req.ChatID),
		logger.MessageID(req.MessageID),
		logger.RangeStart(req.Start),
		logger.RangeEnd(req.End),
		logger.Parts(int(plan.PartCount)),
		logger.DC(st.sess.DC))
	return st, nil
}

// initialSession picks the starting DC: the memoised file DC, then the
// handle's DC, then home. A preferred DC parked in flood wait falls back to
// the home session once; home can still answer with a migration.
func (s *Streamer) initialSession(ctx context.Context, req StreamRequest, id *fileid.FileID) (*session.MediaSession, error) {
	home := s.sessions.HomeDC()
	dc, ok := s.dcs.Get(req.ChatID, req.MessageID)
	if !ok {
		dc = id.DC
		if dc == 0 {
			dc = home
		}
	}

	sess, err := s.sessions.Session(ctx, dc)
	var parked *session.BackoffError
	if err != nil && errors.As(err, &parked) && dc != home {
		logger.WarnCtx(ctx, "preferred dc parked, falling back to home",
			logger.DC(dc), logger.HomeDC(home), logger.Deadline(parked.Until))
		sess, err = s.sessions.Session(ctx, home)
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stream is one in-flight byte stream. A stream belongs to exactly one
// request and is not safe for concurrent use; drive it through either Read
// or WriteTo, not both.
type Stream struct {
	id   string
	s    *Streamer
	ctx  context.Context
	req  StreamRequest
	plan Plan
	fid  *fileid.FileID
	loc  telegram.FileLocation
	sess *session.MediaSession

	part     int
	buf      []byte
	chunk    []byte // pooled buffer backing buf, recycled once drained
	sent     int64
	recorded bool
	eof      bool
	err      error
	finished bool
	started  time.Time
}

// ID returns the stream's correlation id used in logs and traces.
func (st *Stream) ID() string { return st.id }

// Length returns the total number of bytes the stream serves.
func (st *Stream) Length() int64 { return st.plan.Length }

// Err returns the terminal error. Nil while streaming and after a clean end.
func (st *Stream) Err() error { return st.err }

// Read implements io.Reader over the remaining stream bytes.
func (st *Stream) Read(p []byte) (int, error) {
	for len(st.buf) == 0 {
		if st.err != nil {
			return 0, st.err
		}
		if st.eof {
			return 0, io.EOF
		}
		st.advance()
	}

	n := copy(p, st.buf)
	st.buf = st.buf[n:]
	st.sent += int64(n)
	return n, nil
}

// WriteTo drains the stream into w. io.Copy prefers this over Read, which
// spares the intermediate buffer; per-chunk flushing is the writer's job.
func (st *Stream) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for {
		for len(st.buf) == 0 {
			if st.err != nil {
				return written, st.err
			}
			if st.eof {
				return written, nil
			}
			st.advance()
		}

		n, err := w.Write(st.buf)
		st.buf = st.buf[n:]
		st.sent += int64(n)
		written += int64(n)
		if err != nil {
			st.err = fmt.Errorf("writing to client: %w", err)
			st.finish(OutcomeAbortedClient, st.err)
			return written, st.err
		}
	}
}

// Close finalises stream accounting. Streams abandoned before the end count
// as client aborts. Always returns nil.
func (st *Stream) Close() error {
	if !st.finished {
		outcome := OutcomeDone
		if st.sent < st.plan.Length {
			outcome = OutcomeAbortedClient
		}
		st.finish(outcome, nil)
	}
	return nil
}

// advance fetches and trims the next part into the read buffer, or records
// the terminal state. Callers only reach here with the buffer drained, so
// the previous part's chunk goes back to the pool first.
func (st *Stream) advance() {
	st.release()

	if int64(st.part) >= st.plan.PartCount {
		st.eof = true
		st.finish(OutcomeDone, nil)
		return
	}

	chunk, err := st.fetchPart(st.part)
	if err != nil {
		st.err = err
		outcome := OutcomeAbortedUpstream
		if errors.Is(err, context.Canceled) {
			outcome = OutcomeAbortedClient
		}
		st.finish(outcome, err)
		return
	}

	st.buf = st.plan.Trim(st.part, chunk)
	st.chunk = chunk
	st.part++
}

// release recycles the current chunk buffer. Undelivered bytes, if any, are
// gone after this; only terminal paths and drained buffers call it.
func (st *Stream) release() {
	if st.chunk != nil {
		bufpool.Put(st.chunk)
		st.chunk = nil
	}
	st.buf = nil
}

// fetchPart fetches one block, absorbing the recoverable fault classes
// within their per-part budgets: FILE_MIGRATE re-acquires a session on the
// named DC, FLOOD_WAIT sleeps up to the cap and past it parks the DC and
// aborts, FILE_REFERENCE_EXPIRED re-resolves the handle, and transient
// transport faults retry with linear pauses.
func (st *Stream) fetchPart(part int) ([]byte, error) {
	offset := st.plan.Offset(part)
	var migrations, refreshes, transients int

	for {
		if err := st.ctx.Err(); err != nil {
			return nil, err
		}

		res := st.fetchBlock(offset)
		switch {
		case res.fatal != nil:
			if err := st.ctx.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("fetching block at offset %d on dc %d: %w", offset, st.sess.DC, res.fatal)

		case res.migrate != 0:
			migrations++
			if migrations > st.s.cfg.MaxMigrations {
				return nil, fmt.Errorf("file still migrating after %d redirects at offset %d", st.s.cfg.MaxMigrations, offset)
			}
			if err := st.migrate(res.migrate); err != nil {
				return nil, err
			}

		case res.floodWait > 0:
			if st.s.metrics != nil {
				st.s.metrics.RecordFloodWait(st.sess.DC, res.floodWait)
			}
			if res.floodWait > st.s.cfg.FloodWaitCap {
				until := st.s.sessions.Park(st.sess.DC, res.floodWait)
				return nil, &session.BackoffError{DC: st.sess.DC, Until: until}
			}
			logger.WarnCtx(st.ctx, "flood wait during block fetch",
				logger.StreamID(st.id), logger.DC(st.sess.DC), logger.Wait(res.floodWait))
			if err := st.s.sleep(st.ctx, res.floodWait); err != nil {
				return nil, err
			}

		case res.refExpired:
			refreshes++
			if refreshes > st.s.cfg.MaxReferenceRefreshes {
				return nil, fmt.Errorf("file reference still expired after %d refreshes at offset %d", st.s.cfg.MaxReferenceRefreshes, offset)
			}
			if err := st.refreshHandle(); err != nil {
				return nil, err
			}

		case res.transient != nil:
			transients++
			if transients > st.s.cfg.MaxTransientRetries {
				return nil, fmt.Errorf("giving up after %d transient faults at offset %d: %w", st.s.cfg.MaxTransientRetries, offset, res.transient)
			}
			if st.s.metrics != nil {
				st.s.metrics.RecordTransientRetry(st.sess.DC)
			}
			logger.WarnCtx(st.ctx, "transient fault during block fetch",
				logger.StreamID(st.id), logger.DC(st.sess.DC), logger.Offset(offset),
				logger.Attempt(transients), logger.Err(res.transient))
			if err := st.s.sleep(st.ctx, transientRetryDelay); err != nil {
				return nil, err
			}

		default:
			if len(res.chunk) == 0 {
				return nil, fmt.Errorf("backend returned no data at offset %d: %w", offset, io.ErrUnexpectedEOF)
			}
			if !st.recorded {
				st.s.dcs.Set(st.req.ChatID, st.req.MessageID, st.sess.DC)
				st.recorded = true
			}
			if st.s.metrics != nil {
				st.s.metrics.BlockFetched(st.sess.DC, len(res.chunk))
			}
			return res.chunk, nil
		}
	}
}

// fetchBlock performs one GetFile under the block deadline and classifies
// the outcome.
func (st *Stream) fetchBlock(offset int64) fetchResult {
	if st.s.limiter != nil {
		if err := st.s.limiter.Wait(st.ctx); err != nil {
			return fetchResult{fatal: err}
		}
	}

	ctx, cancel := context.WithTimeout(st.ctx, st.s.cfg.BlockTimeout)
	defer cancel()

	ctx, span := telemetry.StartTGSpan(ctx, telemetry.SpanTGGetFile, st.sess.DC,
		telemetry.StreamID(st.id),
		telemetry.AlignedOffset(offset),
		telemetry.ChunkSize(st.plan.ChunkSize))
	defer span.End()

	chunk, err := st.sess.GetFile(ctx, st.loc, offset, int(st.plan.ChunkSize))
	if err != nil {
		telemetry.RecordError(ctx, err)
	}
	return classify(chunk, err)
}

// migrate follows FILE_MIGRATE to a new DC and memoises the move.
func (st *Stream) migrate(dc int) error {
	if st.s.metrics != nil {
		st.s.metrics.RecordMigration(dc)
	}
	logger.InfoCtx(st.ctx, "following file migration",
		logger.StreamID(st.id), logger.DC(dc),
		logger.ChatID(st.req.ChatID), logger.MessageID(st.req.MessageID))

	sess, err := st.s.sessions.Session(st.ctx, dc)
	if err != nil {
		return fmt.Errorf("following migration to dc %d: %w", dc, err)
	}
	st.sess = sess
	st.s.dcs.Set(st.req.ChatID, st.req.MessageID, dc)
	st.recorded = true
	return nil
}

// refreshHandle re-resolves the message after a reference expiry and
// rebuilds the fetch location from the fresh handle.
func (st *Stream) refreshHandle() error {
	if st.s.metrics != nil {
		st.s.metrics.RecordReferenceRefresh()
	}
	logger.InfoCtx(st.ctx, "refreshing expired file reference",
		logger.StreamID(st.id),
		logger.ChatID(st.req.ChatID), logger.MessageID(st.req.MessageID))

	st.s.handles.Invalidate(st.req.ChatID, st.req.MessageID)
	id, _, err := st.s.handles.Get(st.ctx, st.req.ChatID, st.req.MessageID)
	if err != nil {
		return fmt.Errorf("refreshing file reference: %w", err)
	}
	loc, err := locationFromHandle(id)
	if err != nil {
		return err
	}
	st.fid = id
	st.loc = loc
	return nil
}

// finish records the terminal state exactly once.
func (st *Stream) finish(outcome Outcome, cause error) {
	if st.finished {
		return
	}
	st.finished = true
	st.release()

	elapsed := time.Since(st.started)
	if st.s.metrics != nil {
		st.s.metrics.StreamFinished(outcome, st.sent, elapsed.Seconds())
	}

	switch outcome {
	case OutcomeDone:
		logger.Debug("stream finished",
			logger.StreamID(st.id), logger.BytesSent(st.sent), logger.DurationMs(logger.Duration(st.started)))
	case OutcomeAbortedClient:
		logger.Debug("stream aborted by client",
			logger.StreamID(st.id), logger.BytesSent(st.sent))
	default:
		logger.Warn("stream aborted",
			logger.StreamID(st.id), logger.BytesSent(st.sent), logger.Err(cause))
	}
}

// fetchResult is the classified outcome of one block fetch. Exactly one
// field is set.
type fetchResult struct {
	chunk      []byte
	migrate    int
	floodWait  time.Duration
	refExpired bool
	transient  error
	fatal      error
}

func classify(chunk []byte, err error) fetchResult {
	if err == nil {
		return fetchResult{chunk: chunk}
	}
	if dc, ok := tgerr.AsFileMigrate(err); ok {
		return fetchResult{migrate: dc}
	}
	if wait, ok := tgerr.AsFloodWait(err); ok {
		if wait <= 0 {
			// FLOOD_WAIT with no argument still needs a pause
			wait = time.Second
		}
		return fetchResult{floodWait: wait}
	}
	if tgerr.IsFileReferenceExpired(err) {
		return fetchResult{refExpired: true}
	}
	if tgerr.IsTransient(err) {
		return fetchResult{transient: err}
	}
	return fetchResult{fatal: err}
}

// locationFromHandle builds the GetFile location for a decoded handle.
// Documents and photos address media directly; chat photos go through the
// owning peer.
func locationFromHandle(f *fileid.FileID) (telegram.FileLocation, error) {
	switch f.Kind {
	case telegram.KindDocument:
		return telegram.DocumentLocation{
			ID:            f.MediaID,
			AccessHash:    f.AccessHash,
			FileReference: f.FileReference,
			ThumbSize:     f.ThumbSize,
		}, nil
	case telegram.KindPhoto:
		return telegram.PhotoLocation{
			ID:            f.MediaID,
			AccessHash:    f.AccessHash,
			FileReference: f.FileReference,
			ThumbSize:     f.ThumbSize,
		}, nil
	case telegram.KindChatPhoto:
		peer, err := peerFromHandle(f)
		if err != nil {
			return nil, err
		}
		return telegram.PeerPhotoLocation{
			Peer:     peer,
			VolumeID: f.VolumeID,
			LocalID:  f.LocalID,
			Big:      f.BigPhoto,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported media kind %q", f.Kind)
	}
}

// channelMarker is the offset bot-API chat ids add to channel ids.
const channelMarker = -1_000_000_000_000

// peerFromHandle recovers the owning peer of a chat photo from the handle's
// chat id: positive ids are users, negatives without an access hash basic
// groups, the rest channels.
func peerFromHandle(f *fileid.FileID) (telegram.InputPeer, error) {
	switch {
	case f.ChatID > 0:
		return telegram.UserPeer{UserID: f.ChatID, AccessHash: f.ChatAccessHash}, nil
	case f.ChatID == 0:
		return nil, errors.New("chat photo handle carries no chat id")
	case f.ChatAccessHash == 0:
		return telegram.ChatPeer{ChatID: -f.ChatID}, nil
	default:
		return telegram.ChannelPeer{ChannelID: channelMarker - f.ChatID, AccessHash: f.ChatAccessHash}, nil
	}
}
