package handlers

import (
	"net/http"

	"github.com/streamgate/streamgate/pkg/stream"
	"github.com/streamgate/streamgate/pkg/telegram/dcmap"
	"github.com/streamgate/streamgate/pkg/telegram/session"
)

// StatsHandler reports gateway counters useful when debugging DC routing.
type StatsHandler struct {
	handles  *stream.HandleCache
	sessions *session.Registry
	dcs      *dcmap.Map
}

// NewStatsHandler creates a handler for GET /stats.
//
// Any collaborator may be nil; its counters then read as zero.
func NewStatsHandler(handles *stream.HandleCache, sessions *session.Registry, dcs *dcmap.Map) *StatsHandler {
	return &StatsHandler{handles: handles, sessions: sessions, dcs: dcs}
}

// statsResponse is the GET /stats body.
type statsResponse struct {
	TotalFiles         int         `json:"total_files"`
	DCDistribution     map[int]int `json:"dc_distribution"`
	ActiveSessions     []int       `json:"active_sessions"`
	HandleCacheEntries int         `json:"handle_cache_entries"`
}

// Stats handles GET /stats.
//
// Reports how many files have been routed to each DC, which DC sessions are
// currently live and how many decoded file handles are cached.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{
		DCDistribution: map[int]int{},
		ActiveSessions: []int{},
	}

	if h.dcs != nil {
		ms := h.dcs.Stats()
		resp.TotalFiles = ms.TotalFiles
		resp.DCDistribution = ms.PerDC
	}
	if h.sessions != nil {
		resp.ActiveSessions = h.sessions.Stats().Active
	}
	if h.handles != nil {
		resp.HandleCacheEntries = h.handles.Entries()
	}

	writeJSON(w, http.StatusOK, resp)
}
