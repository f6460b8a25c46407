package handlers

import "net/http"

// StatusHandler serves the liveness and health endpoints.
//
// These routes stay available while the bot is still connecting so load
// balancers and orchestrators can distinguish "process up" from "backend
// ready".
type StatusHandler struct {
	version      string
	botConnected func() bool
}

// NewStatusHandler creates a handler for the status endpoints.
//
// botConnected reports whether the home session is connected. It may be
// nil, in which case health always reports unhealthy.
func NewStatusHandler(version string, botConnected func() bool) *StatusHandler {
	return &StatusHandler{version: version, botConnected: botConnected}
}

// Root handles GET / - liveness and usage hint.
//
// Always returns 200 OK as long as the HTTP server is responsive.
func (h *StatusHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "running",
		"service": "streamgate",
		"version": h.version,
		"message": "Send a file to the bot to get a stream link.",
	})
}

// Health handles GET /health - bot connectivity probe.
//
// Returns 200 OK when the home session is connected and 503 Service
// Unavailable otherwise.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	connected := h.botConnected != nil && h.botConnected()

	status := "healthy"
	code := http.StatusOK
	if !connected {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":        status,
		"bot_connected": connected,
	})
}
