// Package dcmap memoises which data center serves each file. The streamer
// records the DC after the first successful fetch and on every migration, so
// repeat requests for the same file skip straight to the owning DC.
package dcmap

import "sync"

type key struct {
	chat int64
	msg  int
}

// Metrics observes map contents. A nil Metrics disables collection.
type Metrics interface {
	SetTrackedFiles(total int)
	SetDCFiles(dc, n int)
}

// Stats is a point-in-time snapshot for the stats endpoint.
type Stats struct {
	TotalFiles int         `json:"total_files"`
	PerDC      map[int]int `json:"dc_distribution"`
}

// Map is a concurrency-safe (chat, message) to DC mapping.
type Map struct {
	mu      sync.RWMutex
	files   map[key]int
	perDC   map[int]int
	metrics Metrics
}

// New creates an empty map. metrics may be nil.
func New(metrics Metrics) *Map {
	return &Map{
		files:   make(map[key]int),
		perDC:   make(map[int]int),
		metrics: metrics,
	}
}

// Set records the DC serving a file, replacing any previous mapping.
func (m *Map) Set(chatID int64, messageID, dc int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{chatID, messageID}
	if old, ok := m.files[k]; ok {
		if old == dc {
			return
		}
		m.decrementLocked(old)
	}
	m.files[k] = dc
	m.perDC[dc]++

	if m.metrics != nil {
		m.metrics.SetTrackedFiles(len(m.files))
		m.metrics.SetDCFiles(dc, m.perDC[dc])
	}
}

// Get returns the remembered DC for a file, if any.
func (m *Map) Get(chatID int64, messageID int) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dc, ok := m.files[key{chatID, messageID}]
	return dc, ok
}

// Clear forgets one file's mapping.
func (m *Map) Clear(chatID int64, messageID int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{chatID, messageID}
	dc, ok := m.files[k]
	if !ok {
		return
	}
	delete(m.files, k)
	m.decrementLocked(dc)

	if m.metrics != nil {
		m.metrics.SetTrackedFiles(len(m.files))
	}
}

// Stats snapshots the mapping.
func (m *Map) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	perDC := make(map[int]int, len(m.perDC))
	for dc, n := range m.perDC {
		perDC[dc] = n
	}
	return Stats{TotalFiles: len(m.files), PerDC: perDC}
}

func (m *Map) decrementLocked(dc int) {
	if m.perDC[dc] <= 1 {
		delete(m.perDC, dc)
	} else {
		m.perDC[dc]--
	}
	if m.metrics != nil {
		m.metrics.SetDCFiles(dc, m.perDC[dc])
	}
}
