package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/streamgate/streamgate/internal/logger"
	"github.com/streamgate/streamgate/internal/telemetry"
	"github.com/streamgate/streamgate/pkg/telegram"
	"github.com/streamgate/streamgate/pkg/telegram/tgerr"
)

// maxAuthImportAttempts bounds export+import cycles when the foreign DC
// rejects the authorization bytes.
const maxAuthImportAttempts = 5

// ErrNotStarted means Session was called before Start succeeded.
var ErrNotStarted = errors.New("session registry not started")

// BackoffError reports that a DC is inside its flood-wait window. Callers
// must not retry the DC before Until; the streamer falls back to the home
// session instead.
type BackoffError struct {
	DC    int
	Until time.Time
}

func (e *BackoffError) Error() string {
	return fmt.Sprintf("dc %d in flood wait; try again in %s", e.DC, time.Until(e.Until).Round(time.Second))
}

// MediaSession is one live media connection bound to a DC. Lifecycle is
// owned by the registry: sessions are created by Session, shared by every
// stream, and closed only through Invalidate or StopAll.
type MediaSession struct {
	DC   int
	Home bool
	conn telegram.FileConn
}

// GetFile fetches one block through the session's connection.
func (s *MediaSession) GetFile(ctx context.Context, loc telegram.FileLocation, offset int64, limit int) ([]byte, error) {
	return s.conn.GetFile(ctx, loc, offset, limit)
}

// Metrics observes registry activity. A nil Metrics disables collection.
type Metrics interface {
	SessionCreated(dc int, home bool)
	SessionClosed(dc int)
	SetActiveSessions(n int)
	RecordBackoff(dc int, wait time.Duration)
	RecordAuthRetry(dc int)
}

// Stats is a point-in-time snapshot for the stats endpoint and CLI.
type Stats struct {
	HomeDC   int
	Active   []int
	Backoffs map[int]time.Time
}

// Registry creates and caches at most one MediaSession per DC. Creation runs
// under single-flight so concurrent streams for the same DC share one key
// exchange and one authorization import. A FLOOD_WAIT during creation parks
// the DC behind a deadline; until it passes every acquisition fails fast
// with BackoffError.
type Registry struct {
	client  telegram.Client
	dialer  telegram.Dialer
	store   *Store
	metrics Metrics

	mu       sync.RWMutex
	sessions map[int]*MediaSession
	backoff  map[int]time.Time
	homeDC   int
	testMode bool
	userID   int64
	started  bool

	group singleflight.Group
	now   func() time.Time
}

// NewRegistry creates a registry. metrics may be nil.
func NewRegistry(client telegram.Client, dialer telegram.Dialer, store *Store, metrics Metrics) *Registry {
	return &Registry{
		client:   client,
		dialer:   dialer,
		store:    store,
		metrics:  metrics,
		sessions: make(map[int]*MediaSession),
		backoff:  make(map[int]time.Time),
		now:      time.Now,
	}
}

// Start reads the home identity from the connected client, persists it, and
// opens the home media session. The home DC is whatever the session reports;
// it is never taken from configuration once a session exists.
func (r *Registry) Start(ctx context.Context) error {
	info, err := r.client.SessionInfo()
	if err != nil {
		return fmt.Errorf("reading home session info: %w", err)
	}
	if info.DCID == 0 {
		return errors.New("home session reports no dc")
	}

	if err := r.store.Save(info); err != nil {
		return fmt.Errorf("persisting home session: %w", err)
	}

	r.mu.Lock()
	r.homeDC = info.DCID
	r.testMode = info.TestMode
	r.userID = info.UserID
	r.mu.Unlock()

	conn, err := r.dialer.Dial(ctx, info.DCID, info.AuthKey, info.TestMode)
	if err != nil {
		return r.faulted(info.DCID, fmt.Errorf("dialing home dc %d: %w", info.DCID, err))
	}

	sess := &MediaSession{DC: info.DCID, Home: true, conn: conn}

	r.mu.Lock()
	r.sessions[info.DCID] = sess
	r.started = true
	active := len(r.sessions)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.SessionCreated(info.DCID, true)
		r.metrics.SetActiveSessions(active)
	}
	logger.Info("home media session ready", logger.DC(info.DCID))
	return nil
}

// Session returns the media session for a DC, creating it on first use.
// Fails fast with BackoffError while the DC's flood-wait deadline is live.
func (r *Registry) Session(ctx context.Context, dc int) (*MediaSession, error) {
	r.mu.RLock()
	started := r.started
	sess, ok := r.sessions[dc]
	r.mu.RUnlock()

	if !started {
		return nil, ErrNotStarted
	}
	if ok {
		return sess, nil
	}

	if until, limited := r.backoffUntil(dc); limited {
		return nil, &BackoffError{DC: dc, Until: until}
	}

	v, err, _ := r.group.Do(strconv.Itoa(dc), func() (any, error) {
		return r.create(ctx, dc)
	})
	if err != nil {
		return nil, err
	}
	return v.(*MediaSession), nil
}

// Invalidate closes and drops a session so the next acquisition re-creates
// it. No-op when the DC has no session.
func (r *Registry) Invalidate(dc int) {
	r.mu.Lock()
	sess, ok := r.sessions[dc]
	delete(r.sessions, dc)
	active := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return
	}
	if err := sess.conn.Close(); err != nil {
		logger.Warn("closing media session", logger.DC(dc), logger.Err(err))
	}
	if r.metrics != nil {
		r.metrics.SessionClosed(dc)
		r.metrics.SetActiveSessions(active)
	}
	logger.Info("media session invalidated", logger.DC(dc))
}

// StopAll closes every session. The registry refuses new acquisitions until
// Start runs again.
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for dc, sess := range r.sessions {
		if err := sess.conn.Close(); err != nil {
			logger.Warn("closing media session", logger.DC(dc), logger.Err(err))
		}
		if r.metrics != nil {
			r.metrics.SessionClosed(dc)
		}
		delete(r.sessions, dc)
	}
	r.started = false
	if r.metrics != nil {
		r.metrics.SetActiveSessions(0)
	}
}

// HomeDC returns the home data center reported by the client's session.
// Zero until Start succeeds.
func (r *Registry) HomeDC() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.homeDC
}

// Started reports whether the home session is up.
func (r *Registry) Started() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.started
}

// Stats snapshots the registry for the stats endpoint.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]int, 0, len(r.sessions))
	for dc := range r.sessions {
		active = append(active, dc)
	}
	sort.Ints(active)

	backoffs := make(map[int]time.Time, len(r.backoff))
	now := r.now()
	for dc, until := range r.backoff {
		if now.Before(until) {
			backoffs[dc] = until
		}
	}

	return Stats{HomeDC: r.homeDC, Active: active, Backoffs: backoffs}
}

// backoffUntil reports the live flood-wait deadline for a DC, dropping it
// once expired.
func (r *Registry) backoffUntil(dc int) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	until, ok := r.backoff[dc]
	if !ok {
		return time.Time{}, false
	}
	if !r.now().Before(until) {
		delete(r.backoff, dc)
		return time.Time{}, false
	}
	return until, true
}

// create builds the session for one DC: persisted key or fresh exchange,
// then an authorization import when the DC is foreign. Runs inside the
// single-flight group.
func (r *Registry) create(ctx context.Context, dc int) (*MediaSession, error) {
	// A concurrent flight may have finished between the cache check and Do.
	r.mu.RLock()
	sess, ok := r.sessions[dc]
	home := dc == r.homeDC
	testMode := r.testMode
	userID := r.userID
	r.mu.RUnlock()
	if ok {
		return sess, nil
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanSessionAcquire,
		trace.WithAttributes(telemetry.DC(dc), telemetry.HomeDC(r.HomeDC())))
	defer span.End()

	var key []byte
	switch info, err := r.store.Load(dc); {
	case err == nil:
		key = info.AuthKey
	case errors.Is(err, ErrNoSession):
		// fresh key exchange
	default:
		return nil, err
	}
	fresh := key == nil

	start := time.Now()
	conn, err := r.dialer.Dial(ctx, dc, key, testMode)
	if err != nil {
		err = r.faulted(dc, fmt.Errorf("dialing dc %d: %w", dc, err))
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	if fresh {
		info := &Info{DCID: dc, AuthKey: conn.AuthKey(), TestMode: testMode, UserID: userID, IsBot: true}
		if err := r.store.Save(info); err != nil {
			logger.Warn("failed to persist session", logger.DC(dc), logger.Err(err))
		}
	}

	if !home {
		if err := r.importAuth(ctx, conn, dc); err != nil {
			_ = conn.Close()
			telemetry.RecordError(ctx, err)
			return nil, err
		}
	}

	sess = &MediaSession{DC: dc, Home: home, conn: conn}

	r.mu.Lock()
	r.sessions[dc] = sess
	active := len(r.sessions)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.SessionCreated(dc, home)
		r.metrics.SetActiveSessions(active)
	}
	logger.Info("media session created",
		logger.DC(dc),
		logger.CacheHit(!fresh),
		logger.DurationMs(logger.Duration(start)))
	return sess, nil
}

// importAuth bridges the home authorization onto a foreign DC. The whole
// export+import pair retries on AUTH_BYTES_INVALID; anything else fails
// immediately, with FLOOD_WAIT parking the DC.
func (r *Registry) importAuth(ctx context.Context, conn telegram.FileConn, dc int) error {
	ctx, span := telemetry.StartTGSpan(ctx, telemetry.SpanTGImportAuth, dc)
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= maxAuthImportAttempts; attempt++ {
		exported, err := r.client.ExportAuthorization(ctx, dc)
		if err != nil {
			return r.faulted(dc, fmt.Errorf("exporting authorization for dc %d: %w", dc, err))
		}

		err = conn.ImportAuthorization(ctx, exported.ID, exported.Bytes)
		if err == nil {
			return nil
		}
		if tgerr.IsAuthBytesInvalid(err) {
			lastErr = err
			logger.Warn("authorization import rejected", logger.DC(dc), logger.Attempt(attempt))
			if r.metrics != nil {
				r.metrics.RecordAuthRetry(dc)
			}
			continue
		}
		return r.faulted(dc, fmt.Errorf("importing authorization on dc %d: %w", dc, err))
	}

	return fmt.Errorf("importing authorization on dc %d after %d attempts: %w", dc, maxAuthImportAttempts, lastErr)
}

// Park records a flood-wait deadline for a DC observed outside session
// creation, such as a GetFile over the streamer's sleep cap. Acquisitions
// fail fast with BackoffError until the deadline passes.
func (r *Registry) Park(dc int, wait time.Duration) time.Time {
	until := r.now().Add(wait)
	r.mu.Lock()
	r.backoff[dc] = until
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RecordBackoff(dc, wait)
	}
	logger.Warn("dc parked in flood wait", logger.DC(dc), logger.Wait(wait), logger.Deadline(until))
	return until
}

// faulted converts a FLOOD_WAIT into a parked DC and a BackoffError; every
// other error passes through.
func (r *Registry) faulted(dc int, err error) error {
	wait, ok := tgerr.AsFloodWait(err)
	if !ok {
		return err
	}
	until := r.Park(dc, wait)
	return &BackoffError{DC: dc, Until: until}
}
