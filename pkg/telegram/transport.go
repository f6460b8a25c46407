package telegram

import (
	"fmt"
	"sort"
	"sync"
)

// TransportConfig is everything a transport factory may need to build the
// home client and dialer. Options carries transport-specific settings as a
// raw map; factories decode it themselves (mapstructure).
type TransportConfig struct {
	APIID      int
	APIHash    string
	BotToken   string
	SessionDir string
	HomeDC     int
	TestMode   bool
	Options    map[string]any
}

// Factory builds the home client and the per-DC dialer for one transport.
// Construction must not perform network I/O; that belongs in Connect/Dial.
type Factory func(cfg TransportConfig) (Client, Dialer, error)

var (
	transportsMu sync.RWMutex
	transports   = make(map[string]Factory)
)

// RegisterTransport makes a transport available under the given name.
// It panics if name is already registered or factory is nil; registration
// happens from package init functions where a duplicate is a programming
// error.
func RegisterTransport(name string, factory Factory) {
	transportsMu.Lock()
	defer transportsMu.Unlock()

	if factory == nil {
		panic("telegram: RegisterTransport with nil factory")
	}
	if _, dup := transports[name]; dup {
		panic(fmt.Sprintf("telegram: transport %q already registered", name))
	}
	transports[name] = factory
}

// NewTransport builds the client and dialer for the named transport.
func NewTransport(name string, cfg TransportConfig) (Client, Dialer, error) {
	transportsMu.RLock()
	factory, ok := transports[name]
	transportsMu.RUnlock()

	if !ok {
		return nil, nil, fmt.Errorf("unknown telegram transport %q (registered: %v)", name, Transports())
	}

	client, dialer, err := factory(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("building telegram transport %q: %w", name, err)
	}
	return client, dialer, nil
}

// Transports returns the registered transport names, sorted.
func Transports() []string {
	transportsMu.RLock()
	defer transportsMu.RUnlock()

	names := make([]string, 0, len(transports))
	for name := range transports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
