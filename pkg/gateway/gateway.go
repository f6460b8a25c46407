// Package gateway assembles and runs the streamgate process: the backend
// transport, the per-DC session registry, the handle cache, the DC map, the
// byte streamer, the bot responder and the two HTTP listeners.
//
// The boot order is deliberate: the public listener comes up first so health
// checks answer immediately, while the backend handshake, which can
// flood-wait for minutes, runs in the background. Media routes stay gated
// behind the readiness flag until the home session is live.
package gateway

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/streamgate/streamgate/internal/logger"
	"github.com/streamgate/streamgate/pkg/api"
	"github.com/streamgate/streamgate/pkg/bot"
	"github.com/streamgate/streamgate/pkg/config"
	"github.com/streamgate/streamgate/pkg/metrics"
	"github.com/streamgate/streamgate/pkg/stream"
	"github.com/streamgate/streamgate/pkg/telegram"
	"github.com/streamgate/streamgate/pkg/telegram/dcmap"
	"github.com/streamgate/streamgate/pkg/telegram/session"
	"github.com/streamgate/streamgate/pkg/telegram/tgerr"
	"github.com/streamgate/streamgate/pkg/version"
)

const (
	// connectAttempts is how often the home handshake is tried before the
	// gateway gives up and keeps serving 503s.
	connectAttempts = 3

	// connectRetryDelay is the pause between attempts that failed for a
	// reason other than FLOOD_WAIT.
	connectRetryDelay = 5 * time.Second
)

// Boot phases surfaced through Status and the 503 admission bodies.
const (
	statusConnecting = "connecting to backend"
	statusSessions   = "starting media sessions"
	statusReady      = "ready"
	statusStopping   = "shutting down"
)

// Gateway owns every long-lived component of the process and implements
// api.ReadyChecker for the admission middleware.
type Gateway struct {
	cfg *config.Config

	client    telegram.Client
	registry  *session.Registry
	handles   *stream.HandleCache
	dcs       *dcmap.Map
	streamer  *stream.Streamer
	responder *bot.Responder

	apiServer     *api.Server
	metricsServer *metrics.Server

	ready  atomic.Bool
	status atomic.Value // string, one of the boot phases or a failure text

	serveOnce sync.Once

	// sleep is replaceable in tests so retry pauses don't run on the clock.
	sleep func(ctx context.Context, d time.Duration) error
}

// New wires a gateway from configuration. Collectors come from
// config.InitializeMetrics so collection is live before the first request;
// a zero MetricsResult disables them all.
func New(cfg *config.Config, mr config.MetricsResult) (*Gateway, error) {
	client, dialer, err := telegram.NewTransport(cfg.Telegram.Transport, cfg.Telegram.TransportConfig())
	if err != nil {
		return nil, err
	}

	store := session.NewStore(cfg.Telegram.SessionDir)
	registry := session.NewRegistry(client, dialer, store, mr.Session)
	handles := stream.NewHandleCache(client, cfg.Stream.HandleSweepInterval, mr.HandleCache)
	dcs := dcmap.New(mr.DCMap)
	streamer := stream.NewStreamer(registry, handles, dcs, cfg.Stream.StreamerConfig(), mr.Stream)

	g := &Gateway{
		cfg:           cfg,
		client:        client,
		registry:      registry,
		handles:       handles,
		dcs:           dcs,
		streamer:      streamer,
		metricsServer: mr.Server,
		sleep:         sleepCtx,
	}
	g.status.Store(statusConnecting)

	if cfg.Bot.IsRepliesEnabled() {
		g.responder = bot.NewResponder(client, cfg.Server.BaseURL())
	}

	g.apiServer = api.NewServer(cfg.Server, api.Deps{
		Streamer: streamer,
		Handles:  handles,
		Sessions: registry,
		DCs:      dcs,
		Ready:    g,
		Metrics:  mr.HTTP,
		Version:  version.Version,
	})

	return g, nil
}

// Ready implements api.ReadyChecker.
func (g *Gateway) Ready() bool {
	return g.ready.Load()
}

// Status implements api.ReadyChecker: a short boot phase for 503 bodies.
func (g *Gateway) Status() string {
	s, _ := g.status.Load().(string)
	return s
}

// Serve runs the gateway until the context is cancelled or a listener
// fails, then shuts everything down in dependency order. A second call is a
// no-op.
//
// Cancellation is the normal way to stop, so Serve returns nil for it.
func (g *Gateway) Serve(ctx context.Context) error {
	var err error
	g.serveOnce.Do(func() {
		err = g.serve(ctx)
	})
	return err
}

func (g *Gateway) serve(ctx context.Context) error {
	logger.Info("starting streamgate",
		logger.Transport(g.cfg.Telegram.Transport),
		logger.Port(g.cfg.Server.Port))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErr := make(chan error, 2)

	go func() {
		if err := g.apiServer.Start(ctx); err != nil {
			serverErr <- err
		}
	}()

	if g.metricsServer != nil {
		go func() {
			if err := g.metricsServer.Start(ctx); err != nil {
				serverErr <- err
			}
		}()
	}

	go g.boot(ctx)

	var cause error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("listener failed, shutting down", logger.Err(err))
		cause = err
		cancel()
	}

	g.shutdown()

	logger.Info("streamgate stopped")
	return cause
}

// boot connects the home client and brings the media pipeline up.
//
// Failures do not kill the process: the listener keeps answering, health
// reports unhealthy, and the admission middleware explains why. That matches
// how operators probe a gateway stuck behind a backend outage.
func (g *Gateway) boot(ctx context.Context) {
	if err := g.connect(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		g.status.Store(fmt.Sprintf("backend connect failed: %v", err))
		logger.Error("backend connect failed; media routes stay unavailable", logger.Err(err))
		return
	}

	g.status.Store(statusSessions)

	if err := g.registry.Start(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		g.status.Store(fmt.Sprintf("media session start failed: %v", err))
		logger.Error("media session start failed; media routes stay unavailable", logger.Err(err))
		return
	}

	g.handles.Start(ctx)
	if g.responder != nil {
		g.responder.Start(ctx)
	}

	g.ready.Store(true)
	g.status.Store(statusReady)

	if self, err := g.client.Self(); err == nil {
		logger.Info("gateway ready",
			logger.HomeDC(g.registry.HomeDC()),
			"username", self.Username,
			"base_url", g.cfg.Server.BaseURL())
	} else {
		logger.Info("gateway ready", logger.HomeDC(g.registry.HomeDC()))
	}
}

// connect runs the home handshake with the startup retry loop: three
// attempts, honoring FLOOD_WAIT pauses between them and a fixed delay after
// other failures.
func (g *Gateway) connect(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		logger.Info("connecting to backend",
			logger.Transport(g.cfg.Telegram.Transport),
			logger.Attempt(attempt))

		err := g.client.Connect(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err

		delay := connectRetryDelay
		if wait, ok := tgerr.AsFloodWait(err); ok {
			logger.Warn("backend requires a wait before connecting",
				logger.Wait(wait), logger.Attempt(attempt))
			delay = wait
		} else {
			logger.Warn("backend connect attempt failed",
				logger.Attempt(attempt), logger.Err(err))
		}

		if attempt < connectAttempts {
			if err := g.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("connecting after %d attempts: %w", connectAttempts, lastErr)
}

// shutdown stops the components in dependency order: admission first so new
// media requests bounce, then the listener so in-flight streams drain, then
// the layers the streams were consuming.
func (g *Gateway) shutdown() {
	g.ready.Store(false)
	g.status.Store(statusStopping)

	if g.responder != nil {
		g.responder.Stop()
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), g.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := g.apiServer.Stop(stopCtx); err != nil {
		logger.Error("http server shutdown error", logger.Err(err))
	}

	g.handles.Stop()
	g.registry.StopAll()

	if err := g.client.Close(); err != nil {
		logger.Warn("closing home client", logger.Err(err))
	}

	if g.metricsServer != nil {
		if err := g.metricsServer.Stop(stopCtx); err != nil {
			logger.Error("metrics server shutdown error", logger.Err(err))
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
