// Package session owns DC session state: a JSON file store persisting one
// identity per data center, and the registry that creates, caches and tears
// down media sessions with per-DC flood-wait back-off and cross-DC
// authorization import.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/streamgate/streamgate/pkg/telegram"
)

// Info is the persisted identity of one DC session.
type Info = telegram.SessionInfo

// ErrNoSession means no session file exists for the requested DC.
var ErrNoSession = errors.New("no persisted session")

// Store persists session identities under a directory, one file per DC
// (session_dc{N}.json, mode 0600). Writes go through a temp file and rename
// so a crash never leaves a half-written session behind.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created on the
// first Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory session files live in.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the session file path for a DC.
func (s *Store) Path(dc int) string {
	return filepath.Join(s.dir, fmt.Sprintf("session_dc%d.json", dc))
}

// Save writes the identity for info.DCID, replacing any previous file.
func (s *Store) Save(info *Info) error {
	if info == nil || info.DCID == 0 {
		return errors.New("session info has no dc")
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating session directory %q: %w", s.dir, err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session for dc %d: %w", info.DCID, err)
	}

	tmp, err := os.CreateTemp(s.dir, fmt.Sprintf(".session_dc%d-*.tmp", info.DCID))
	if err != nil {
		return fmt.Errorf("creating temp session file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing session for dc %d: %w", info.DCID, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("setting session file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp session file: %w", err)
	}

	if err := os.Rename(tmpName, s.Path(info.DCID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing session for dc %d: %w", info.DCID, err)
	}
	return nil
}

// Load reads the persisted identity for a DC. Returns ErrNoSession when the
// file does not exist.
func (s *Store) Load(dc int) (*Info, error) {
	data, err := os.ReadFile(s.Path(dc))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("reading session for dc %d: %w", dc, err)
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decoding session file %q: %w", s.Path(dc), err)
	}
	if info.DCID != dc {
		return nil, fmt.Errorf("session file %q is for dc %d, not dc %d", s.Path(dc), info.DCID, dc)
	}
	return &info, nil
}

// Delete removes the persisted identity for a DC. Deleting a session that
// never existed is not an error; the next connect re-authorizes either way.
func (s *Store) Delete(dc int) error {
	if err := os.Remove(s.Path(dc)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting session for dc %d: %w", dc, err)
	}
	return nil
}

// List returns every persisted identity, ordered by DC. Unparseable files
// are an error; the caller should know its state directory is damaged.
func (s *Store) List() ([]*Info, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "session_dc*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing session files: %w", err)
	}

	infos := make([]*Info, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading session file %q: %w", path, err)
		}
		var info Info
		if err := json.Unmarshal(data, &info); err != nil {
			return nil, fmt.Errorf("decoding session file %q: %w", path, err)
		}
		infos = append(infos, &info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].DCID < infos[j].DCID })
	return infos, nil
}
