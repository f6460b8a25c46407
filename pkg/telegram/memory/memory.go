// Package memory implements an in-memory telegram transport for development
// and tests. It serves virtual files seeded from configuration or directly
// from test code, enforces the backend's block alignment rules on GetFile,
// and simulates the failure modes the streaming engine must survive:
// migrations (a file served by a DC other than the handle's), flood waits,
// file-reference expiry, rejected authorization imports, and transport
// faults, all injectable through hooks.
//
// The transport registers itself under the name "memory"; selecting
// `telegram.transport: memory` in configuration activates it.
package memory

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"

	"github.com/streamgate/streamgate/pkg/telegram"
)

// TransportName is the registry key for this transport.
const TransportName = "memory"

// defaultHomeDC is the simulated network's main DC when configuration does
// not say otherwise.
const defaultHomeDC = 2

func init() {
	telegram.RegisterTransport(TransportName, factory)
}

// SeedFile describes one virtual file in configuration. Exactly one of Path
// and Size supplies the content: Path reads a local file, Size generates
// deterministic bytes.
type SeedFile struct {
	ChatID    int64  `mapstructure:"chat_id"`
	MessageID int    `mapstructure:"message_id"`
	Path      string `mapstructure:"path"`
	Size      int64  `mapstructure:"size"`
	Kind      string `mapstructure:"kind"`
	MIME      string `mapstructure:"mime"`
	FileName  string `mapstructure:"file_name"`
	DC        int    `mapstructure:"dc"`
}

// Options is the memory-specific configuration block.
type Options struct {
	Seed []SeedFile `mapstructure:"seed"`
}

func factory(cfg telegram.TransportConfig) (telegram.Client, telegram.Dialer, error) {
	var opts Options
	if cfg.Options != nil {
		if err := mapstructure.Decode(cfg.Options, &opts); err != nil {
			return nil, nil, fmt.Errorf("decoding memory transport options: %w", err)
		}
	}

	homeDC := cfg.HomeDC
	if homeDC == 0 {
		homeDC = defaultHomeDC
	}

	backend := NewBackend(homeDC)
	backend.testMode = cfg.TestMode

	for i, seed := range opts.Seed {
		file, err := seedToFile(seed)
		if err != nil {
			return nil, nil, fmt.Errorf("memory seed %d: %w", i, err)
		}
		backend.AddFile(file)
	}

	return backend.Client(), backend, nil
}

func seedToFile(seed SeedFile) (*File, error) {
	if seed.ChatID == 0 || seed.MessageID == 0 {
		return nil, fmt.Errorf("chat_id and message_id are required")
	}
	if seed.Path != "" && seed.Size != 0 {
		return nil, fmt.Errorf("path and size are mutually exclusive")
	}

	var data []byte
	switch {
	case seed.Path != "":
		var err error
		data, err = os.ReadFile(seed.Path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", seed.Path, err)
		}
	case seed.Size > 0:
		data = patternData(seed.Size, seed.ChatID^int64(seed.MessageID))
	default:
		return nil, fmt.Errorf("either path or a positive size is required")
	}

	kind := telegram.MediaKind(seed.Kind)
	switch kind {
	case "":
		kind = telegram.KindDocument
	case telegram.KindDocument, telegram.KindPhoto, telegram.KindChatPhoto:
	default:
		return nil, fmt.Errorf("unknown media kind %q", seed.Kind)
	}

	return &File{
		ChatID:    seed.ChatID,
		MessageID: seed.MessageID,
		Kind:      kind,
		FileName:  seed.FileName,
		MIMEType:  seed.MIME,
		Data:      data,
		DC:        seed.DC,
	}, nil
}

// patternData generates deterministic pseudo-random content so seeded files
// stream identical bytes across restarts.
func patternData(n, seed int64) []byte {
	data := make([]byte, n)
	x := uint64(seed)*2654435761 + 1
	for i := range data {
		x = x*6364136223846793005 + 1442695040888963407
		data[i] = byte(x >> 56)
	}
	return data
}
