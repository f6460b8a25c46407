package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/streamgate/streamgate/internal/logger"
	"github.com/streamgate/streamgate/internal/telemetry"
	"github.com/streamgate/streamgate/pkg/telegram"
	"github.com/streamgate/streamgate/pkg/telegram/fileid"
)

// DefaultSweepInterval is how often the handle cache is cleared wholesale
// when configuration leaves the interval zero.
const DefaultSweepInterval = 30 * time.Minute

// ErrNoMedia reports that a message does not exist or carries nothing
// streamable. Both collapse to the same HTTP 404.
var ErrNoMedia = errors.New("no streamable media")

// CacheMetrics observes handle cache activity. A nil CacheMetrics disables
// collection.
type CacheMetrics interface {
	HandleHit()
	HandleMiss()
	HandleSweep(evicted int)
	SetHandleEntries(n int)
}

type handleKey struct {
	chat int64
	msg  int
}

type handleEntry struct {
	id    *fileid.FileID
	media *telegram.Media
}

// HandleCache memoises decoded file handles and media descriptions per
// (chat, message). File references inside handles go stale server-side, so
// a background sweeper clears the whole map every interval rather than
// aging entries individually; the next request re-resolves. A single entry
// is dropped early only when the backend reports its reference expired.
type HandleCache struct {
	client   telegram.Client
	metrics  CacheMetrics
	interval time.Duration

	mu      sync.RWMutex
	entries map[handleKey]handleEntry
	started bool

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewHandleCache creates a cache resolving misses through client. A zero
// interval selects DefaultSweepInterval; metrics may be nil.
func NewHandleCache(client telegram.Client, interval time.Duration, metrics CacheMetrics) *HandleCache {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &HandleCache{
		client:    client,
		metrics:   metrics,
		interval:  interval,
		entries:   make(map[handleKey]handleEntry),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Get returns the decoded handle and media description for a message,
// resolving and caching it on first use. Callers must treat both results as
// read-only. A missing message or one without media fails with ErrNoMedia.
func (c *HandleCache) Get(ctx context.Context, chatID int64, messageID int) (*fileid.FileID, *telegram.Media, error) {
	key := handleKey{chatID, messageID}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		if c.metrics != nil {
			c.metrics.HandleHit()
		}
		return entry.id, entry.media, nil
	}
	if c.metrics != nil {
		c.metrics.HandleMiss()
	}

	ctx, span := telemetry.StartResolveSpan(ctx, chatID, messageID)
	defer span.End()

	media, err := c.client.Media(ctx, chatID, messageID)
	if err != nil {
		if errors.Is(err, telegram.ErrNotFound) || errors.Is(err, telegram.ErrNoMedia) {
			return nil, nil, fmt.Errorf("chat %d message %d: %w", chatID, messageID, ErrNoMedia)
		}
		telemetry.RecordError(ctx, err)
		return nil, nil, fmt.Errorf("resolving media for chat %d message %d: %w", chatID, messageID, err)
	}

	id, err := fileid.Decode(media.FileID)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, nil, fmt.Errorf("decoding file id for chat %d message %d: %w", chatID, messageID, err)
	}

	c.mu.Lock()
	c.entries[key] = handleEntry{id: id, media: media}
	n := len(c.entries)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SetHandleEntries(n)
	}
	logger.DebugCtx(ctx, "file handle cached",
		logger.ChatID(chatID),
		logger.MessageID(messageID),
		logger.MediaKind(string(media.Kind)),
		logger.FileSize(media.Size),
		logger.DC(id.DC))
	return id, media, nil
}

// Invalidate drops one entry so the next Get re-resolves the message. Used
// when the backend reports the entry's file reference expired.
func (c *HandleCache) Invalidate(chatID int64, messageID int) {
	c.mu.Lock()
	delete(c.entries, handleKey{chatID, messageID})
	n := len(c.entries)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SetHandleEntries(n)
	}
}

// Entries returns the number of cached handles.
func (c *HandleCache) Entries() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Start launches the background sweeper. Calling Start twice is a no-op.
func (c *HandleCache) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	logger.Info("starting handle cache sweeper", logger.Wait(c.interval))
	go c.sweep(ctx)
}

// Stop terminates the sweeper and waits for it to exit. The cache itself
// stays usable; entries are simply no longer swept. Safe to call more than
// once, but the sweeper cannot be restarted.
func (c *HandleCache) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	c.mu.Unlock()

	close(c.stopCh)
	<-c.stoppedCh
}

func (c *HandleCache) sweep(ctx context.Context) {
	defer close(c.stoppedCh)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, span := telemetry.StartSpan(ctx, telemetry.SpanHandlesSweep)

			c.mu.Lock()
			evicted := len(c.entries)
			c.entries = make(map[handleKey]handleEntry)
			c.mu.Unlock()

			if c.metrics != nil {
				c.metrics.HandleSweep(evicted)
				c.metrics.SetHandleEntries(0)
			}
			logger.Debug("handle cache swept", logger.Entries(evicted))

			span.SetAttributes(telemetry.CacheEntries(evicted))
			span.End()
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}
