package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/streamgate/streamgate/internal/logger"
	"github.com/streamgate/streamgate/pkg/api/handlers"
	"github.com/streamgate/streamgate/pkg/stream"
	"github.com/streamgate/streamgate/pkg/telegram/dcmap"
	"github.com/streamgate/streamgate/pkg/telegram/session"
)

// ReadyChecker reports whether the gateway is ready to serve media.
//
// The HTTP listener comes up before the bot has finished connecting, so
// media routes consult this before touching the backend. Status returns a
// short human-readable boot phase used in 503 bodies.
type ReadyChecker interface {
	Ready() bool
	Status() string
}

// Metrics receives HTTP request telemetry. Implementations must be safe
// for concurrent use. A nil Metrics disables instrumentation.
type Metrics interface {
	RequestStarted(method, route string)
	RequestFinished(method, route string, status int, bytes int64, seconds float64)
}

// Deps carries everything the HTTP routes need.
//
// Ready and Metrics may be nil: a nil Ready keeps media routes returning 503
// and a nil Metrics disables instrumentation. The remaining fields must be
// set for the routes that use them.
type Deps struct {
	Streamer *stream.Streamer
	Handles  *stream.HandleCache
	Sessions *session.Registry
	DCs      *dcmap.Map
	Ready    ReadyChecker
	Metrics  Metrics
	Version  string
}

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//
// There is deliberately no timeout middleware: a stream response can stay
// open for as long as the client keeps playing.
//
// Routes:
//   - GET / - Liveness and usage hint
//   - GET /health - Bot connectivity probe
//   - GET /stats - DC mapping, session and cache counters (requires ready)
//   - GET /stream/{chat_id}/{message_id} - Media streaming (requires ready)
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	ready := deps.Ready
	if ready == nil {
		ready = neverReady{}
	}

	statusHandler := handlers.NewStatusHandler(deps.Version, ready.Ready)
	streamHandler := handlers.NewStreamHandler(deps.Streamer)
	statsHandler := handlers.NewStatsHandler(deps.Handles, deps.Sessions, deps.DCs)

	// Metrics run on a route group: chi resolves the route pattern before
	// group middleware executes, so the pattern label is populated here but
	// would be empty in top-level middleware.
	r.Group(func(r chi.Router) {
		r.Use(metricsMiddleware(deps.Metrics))

		// Status routes - always available
		r.Get("/", statusHandler.Root)
		r.Get("/health", statusHandler.Health)

		// Media routes - gated until the bot is connected
		r.Group(func(r chi.Router) {
			r.Use(admission(ready))

			r.Get("/stream/{chat_id}/{message_id}", streamHandler.Stream)
			r.Get("/stats", statsHandler.Stats)
		})
	})

	return r
}

// admission rejects media requests until the gateway reports ready.
func admission(ready ReadyChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ready.Ready() {
				Error(w, http.StatusServiceUnavailable, "bot unavailable: "+ready.Status())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// metricsMiddleware records request starts, completions and response sizes.
func metricsMiddleware(m Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := chi.RouteContext(r.Context()).RoutePattern()
			m.RequestStarted(r.Method, route)

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			m.RequestFinished(r.Method, route, ww.Status(), int64(ww.BytesWritten()), time.Since(start).Seconds())
		})
	}
}

// requestLogger is a custom middleware that logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("HTTP request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logger.Info("HTTP request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		)
	})
}

// neverReady is the fallback when no ReadyChecker is supplied.
type neverReady struct{}

func (neverReady) Ready() bool    { return false }
func (neverReady) Status() string { return "starting" }
