package memory

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"github.com/streamgate/streamgate/pkg/bufpool"
	"github.com/streamgate/streamgate/pkg/telegram"
	"github.com/streamgate/streamgate/pkg/telegram/tgerr"
)

const (
	blockAlign = 4096
	maxLimit   = 1 << 20
)

// Dial implements telegram.Dialer. A nil key mints a fresh one; connections
// to foreign DCs start unauthorized and must import before GetFile works.
func (b *Backend) Dial(ctx context.Context, dc int, key []byte, testMode bool) (telegram.FileConn, error) {
	b.mu.Lock()
	b.dialCalls = append(b.dialCalls, dc)
	hook := b.dialHook
	homeDC := b.homeDC
	homeKey := b.homeKey
	b.mu.Unlock()

	if hook != nil {
		if err := hook(dc); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dc < 1 || dc > 5 {
		return nil, fmt.Errorf("unknown dc %d", dc)
	}

	if key == nil {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}

	// Only the persisted home key carries an authorization by itself;
	// everything else has to import one.
	authorized := dc == homeDC && bytes.Equal(key, homeKey)

	return &fileConn{backend: b, dc: dc, key: key, authorized: authorized}, nil
}

// fileConn is one media connection to a simulated DC.
type fileConn struct {
	backend *Backend
	dc      int
	key     []byte

	mu         sync.Mutex
	authorized bool
	closed     bool
}

func (c *fileConn) AuthKey() []byte {
	key := make([]byte, len(c.key))
	copy(key, c.key)
	return key
}

func (c *fileConn) ImportAuthorization(ctx context.Context, id int64, authBytes []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b := c.backend
	b.mu.RLock()
	hook := b.importHook
	userID := b.user.ID
	b.mu.RUnlock()

	if hook != nil {
		if err := hook(c.dc); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.New("connection closed")
	}
	if id != userID || !bytes.Equal(authBytes, b.authToken(c.dc)) {
		return tgerr.AuthBytesInvalid()
	}
	c.authorized = true
	return nil
}

func (c *fileConn) GetFile(ctx context.Context, loc telegram.FileLocation, offset int64, limit int) ([]byte, error) {
	b := c.backend

	call := GetFileCall{DC: c.dc, Offset: offset, Limit: limit}
	b.mu.Lock()
	b.getFileCalls = append(b.getFileCalls, call)
	hook := b.getFileHook
	b.mu.Unlock()

	if hook != nil {
		if err := hook(call); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	closed, authorized := c.closed, c.authorized
	c.mu.Unlock()

	if closed {
		return nil, errors.New("connection closed")
	}
	if !authorized {
		return nil, tgerr.New(401, "AUTH_KEY_UNREGISTERED")
	}

	if offset < 0 || offset%blockAlign != 0 {
		return nil, tgerr.New(400, "OFFSET_INVALID")
	}
	if limit <= 0 || limit%blockAlign != 0 || limit > maxLimit {
		return nil, tgerr.New(400, "LIMIT_INVALID")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var f *File
	switch loc := loc.(type) {
	case telegram.DocumentLocation:
		f = b.byMedia[loc.ID]
		if f == nil || f.accessHash != loc.AccessHash {
			return nil, tgerr.New(400, "LOCATION_INVALID")
		}
		if !bytes.Equal(loc.FileReference, currentReference(f)) {
			return nil, tgerr.FileReferenceExpired()
		}
	case telegram.PhotoLocation:
		f = b.byMedia[loc.ID]
		if f == nil || f.accessHash != loc.AccessHash {
			return nil, tgerr.New(400, "LOCATION_INVALID")
		}
		if !bytes.Equal(loc.FileReference, currentReference(f)) {
			return nil, tgerr.FileReferenceExpired()
		}
	case telegram.PeerPhotoLocation:
		f = b.byVolume[loc.VolumeID]
		if f == nil || f.MessageID != loc.LocalID {
			return nil, tgerr.New(400, "LOCATION_INVALID")
		}
	default:
		return nil, tgerr.New(400, "LOCATION_INVALID")
	}

	if f.DC != c.dc {
		return nil, tgerr.FileMigrate(f.DC)
	}

	if offset >= int64(len(f.Data)) {
		return nil, nil
	}
	end := offset + int64(limit)
	if end > int64(len(f.Data)) {
		end = int64(len(f.Data))
	}

	chunk := bufpool.Get(int(end - offset))
	copy(chunk, f.Data[offset:end])
	return chunk, nil
}

func (c *fileConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
