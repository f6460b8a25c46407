package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamgate/streamgate/pkg/stream"
	"github.com/streamgate/streamgate/pkg/telegram/dcmap"
	"github.com/streamgate/streamgate/pkg/telegram/memory"
	"github.com/streamgate/streamgate/pkg/telegram/session"
)

type testReady struct{ connected atomic.Bool }

func (r *testReady) Ready() bool { return r.connected.Load() }

func (r *testReady) Status() string {
	if r.connected.Load() {
		return "connected"
	}
	return "starting"
}

type routerEnv struct {
	backend *memory.Backend
	ready   *testReady
	router  http.Handler
}

// newRouterEnv wires the full route stack to a live memory backend with the
// home DC on 2. The gateway starts out ready.
func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()
	ctx := context.Background()

	backend := memory.NewBackend(2)
	client := backend.Client()
	require.NoError(t, client.Connect(ctx))

	sessions := session.NewRegistry(client, backend, session.NewStore(t.TempDir()), nil)
	require.NoError(t, sessions.Start(ctx))
	t.Cleanup(sessions.StopAll)

	handles := stream.NewHandleCache(client, 0, nil)
	dcs := dcmap.New(nil)
	streamer := stream.NewStreamer(sessions, handles, dcs, stream.Config{}, nil)

	ready := &testReady{}
	ready.connected.Store(true)

	router := NewRouter(Deps{
		Streamer: streamer,
		Handles:  handles,
		Sessions: sessions,
		DCs:      dcs,
		Ready:    ready,
		Version:  "test",
	})

	return &routerEnv{backend: backend, ready: ready, router: router}
}

func (e *routerEnv) get(t *testing.T, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func patternBytes(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*31 + i>>8)
	}
	return data
}

func TestStreamFullFile(t *testing.T) {
	env := newRouterEnv(t)
	data := patternBytes(3_000_000)
	env.backend.AddFile(&memory.File{ChatID: -100123, MessageID: 7, Data: data, FileName: "movie.mkv", MIMEType: "video/x-matroska"})

	rec := env.get(t, "/stream/-100123/7", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3000000", rec.Header().Get("Content-Length"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Equal(t, "video/x-matroska", rec.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="movie.mkv"`, rec.Header().Get("Content-Disposition"))
	assert.Empty(t, rec.Header().Get("Content-Range"))
	assert.Equal(t, data, rec.Body.Bytes())
}

func TestStreamPartialRange(t *testing.T) {
	env := newRouterEnv(t)
	data := patternBytes(3_000_000)
	env.backend.AddFile(&memory.File{ChatID: 1, MessageID: 1, Data: data})

	rec := env.get(t, "/stream/1/1", map[string]string{"Range": "bytes=1500000-2500000"})

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 1500000-2500000/3000000", rec.Header().Get("Content-Range"))
	assert.Equal(t, "1000001", rec.Header().Get("Content-Length"))
	assert.Equal(t, data[1_500_000:2_500_001], rec.Body.Bytes())
}

func TestStreamOpenEndedRange(t *testing.T) {
	env := newRouterEnv(t)
	data := patternBytes(10_000)
	env.backend.AddFile(&memory.File{ChatID: 1, MessageID: 1, Data: data})

	rec := env.get(t, "/stream/1/1", map[string]string{"Range": "bytes=9000-"})

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 9000-9999/10000", rec.Header().Get("Content-Range"))
	assert.Equal(t, "1000", rec.Header().Get("Content-Length"))
	assert.Equal(t, data[9000:], rec.Body.Bytes())
}

func TestStreamMultiRangeUsesFirst(t *testing.T) {
	env := newRouterEnv(t)
	data := patternBytes(10_000)
	env.backend.AddFile(&memory.File{ChatID: 1, MessageID: 1, Data: data})

	rec := env.get(t, "/stream/1/1", map[string]string{"Range": "bytes=0-99,200-299"})

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 0-99/10000", rec.Header().Get("Content-Range"))
	assert.Equal(t, data[:100], rec.Body.Bytes())
}

func TestStreamRejectedRanges(t *testing.T) {
	tests := []struct {
		name  string
		rng   string
	}{
		{"start beyond size", "bytes=2000-3000"},
		{"end beyond size", "bytes=0-2000"},
		{"inverted", "bytes=500-100"},
		{"suffix form", "bytes=-500"},
		{"garbage", "bytes=abc"},
		{"wrong unit", "items=0-100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newRouterEnv(t)
			env.backend.AddFile(&memory.File{ChatID: 1, MessageID: 1, Data: patternBytes(1000)})

			rec := env.get(t, "/stream/1/1", map[string]string{"Range": tt.rng})

			assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
			assert.Equal(t, "bytes */1000", rec.Header().Get("Content-Range"))
			assert.Zero(t, rec.Body.Len())
		})
	}
}

func TestStreamMissingMedia(t *testing.T) {
	env := newRouterEnv(t)

	rec := env.get(t, "/stream/1/99", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no streamable media", decodeBody(t, rec)["error"])
}

func TestStreamBadPathParams(t *testing.T) {
	env := newRouterEnv(t)

	for _, path := range []string{"/stream/abc/1", "/stream/1/xyz"} {
		rec := env.get(t, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestAdmissionGate(t *testing.T) {
	env := newRouterEnv(t)
	env.backend.AddFile(&memory.File{ChatID: 1, MessageID: 1, Data: patternBytes(1000)})
	env.ready.connected.Store(false)

	rec := env.get(t, "/stream/1/1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "bot unavailable: starting", decodeBody(t, rec)["error"])

	rec = env.get(t, "/stats", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// Status routes stay reachable while the bot connects.
	assert.Equal(t, http.StatusOK, env.get(t, "/", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, env.get(t, "/health", nil).Code)

	env.ready.connected.Store(true)

	rec = env.get(t, "/stream/1/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRootEndpoint(t *testing.T) {
	env := newRouterEnv(t)

	rec := env.get(t, "/", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, "streamgate", body["service"])
	assert.Equal(t, "test", body["version"])
	assert.NotEmpty(t, body["message"])
}

func TestHealthEndpoint(t *testing.T) {
	env := newRouterEnv(t)

	rec := env.get(t, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["bot_connected"])

	env.ready.connected.Store(false)

	rec = env.get(t, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "unhealthy", body["status"])
	assert.Equal(t, false, body["bot_connected"])
}

func TestStatsEndpoint(t *testing.T) {
	env := newRouterEnv(t)
	env.backend.AddFile(&memory.File{ChatID: 42, MessageID: 3, Data: patternBytes(1000)})

	rec := env.get(t, "/stream/42/3", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.get(t, "/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["total_files"])
	assert.Equal(t, map[string]any{"2": float64(1)}, body["dc_distribution"])
	assert.Equal(t, []any{float64(2)}, body["active_sessions"])
	assert.Equal(t, float64(1), body["handle_cache_entries"])
}

func TestMetricsMiddlewareLabels(t *testing.T) {
	var started, finished []string
	sink := &recordingMetrics{
		onStart:  func(method, route string) { started = append(started, method+" "+route) },
		onFinish: func(method, route string, status int, bytes int64, _ float64) { finished = append(finished, fmt.Sprintf("%s %s %d %d", method, route, status, bytes)) },
	}

	router := NewRouter(Deps{Metrics: sink, Ready: &testReady{}, Version: "test"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	// The route pattern, not the raw path, must reach the metrics sink.
	require.Len(t, started, 1)
	assert.Equal(t, "GET /health", started[0])
	require.Len(t, finished, 1)
	assert.Contains(t, finished[0], "GET /health 503")
}

type recordingMetrics struct {
	onStart  func(method, route string)
	onFinish func(method, route string, status int, bytes int64, seconds float64)
}

func (m *recordingMetrics) RequestStarted(method, route string) { m.onStart(method, route) }

func (m *recordingMetrics) RequestFinished(method, route string, status int, bytes int64, seconds float64) {
	m.onFinish(method, route, status, bytes, seconds)
}
