package memory

import (
	"context"

	"github.com/streamgate/streamgate/pkg/telegram"
	"github.com/streamgate/streamgate/pkg/telegram/fileid"
)

// client is the home-DC view of the backend.
type client struct {
	backend *Backend
}

func (c *client) Connect(ctx context.Context) error {
	b := c.backend

	b.mu.Lock()
	b.connectCount++
	attempt := b.connectCount
	hook := b.connectHook
	b.mu.Unlock()

	if hook != nil {
		if err := hook(attempt); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	b.connected = true
	b.mu.Unlock()
	return nil
}

func (c *client) Close() error {
	b := c.backend
	b.mu.Lock()
	b.connected = false
	b.mu.Unlock()
	return nil
}

func (c *client) Self() (*telegram.User, error) {
	b := c.backend
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.connected {
		return nil, telegram.ErrNotConnected
	}
	user := b.user
	return &user, nil
}

func (c *client) Media(ctx context.Context, chatID int64, messageID int) (*telegram.Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := c.backend
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.connected {
		return nil, telegram.ErrNotConnected
	}

	f, ok := b.files[fileKey{chatID, messageID}]
	if !ok {
		return nil, telegram.ErrNotFound
	}

	return &telegram.Media{
		Kind:     f.Kind,
		FileID:   encodeHandle(f),
		Size:     int64(len(f.Data)),
		MIMEType: f.MIMEType,
		FileName: f.FileName,
	}, nil
}

func (c *client) ExportAuthorization(ctx context.Context, dc int) (*telegram.ExportedAuth, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := c.backend
	b.mu.Lock()
	b.exportCalls = append(b.exportCalls, dc)
	hook := b.exportHook
	connected := b.connected
	b.mu.Unlock()

	if !connected {
		return nil, telegram.ErrNotConnected
	}
	if hook != nil {
		if err := hook(dc); err != nil {
			return nil, err
		}
	}

	return &telegram.ExportedAuth{ID: b.user.ID, Bytes: b.authToken(dc)}, nil
}

func (c *client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b := c.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return telegram.ErrNotConnected
	}
	b.sent = append(b.sent, SentMessage{ChatID: chatID, Text: text})
	return nil
}

func (c *client) Updates() <-chan telegram.Update {
	b := c.backend
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.updatesOff {
		return nil
	}
	return b.updates
}

func (c *client) SessionInfo() (*telegram.SessionInfo, error) {
	b := c.backend
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.connected {
		return nil, telegram.ErrNotConnected
	}

	key := make([]byte, len(b.homeKey))
	copy(key, b.homeKey)

	return &telegram.SessionInfo{
		DCID:     b.homeDC,
		AuthKey:  key,
		TestMode: b.testMode,
		UserID:   b.user.ID,
		IsBot:    true,
	}, nil
}

// encodeHandle mints the opaque file id for a file's current reference.
// Callers hold at least a read lock on the backend.
func encodeHandle(f *File) string {
	id := fileid.FileID{
		Version:  fileid.Version,
		Kind:     f.Kind,
		DC:       f.HandleDC,
		UniqueID: f.uniqueID(),
	}

	if f.Kind == telegram.KindChatPhoto {
		id.VolumeID = f.mediaID
		id.LocalID = f.MessageID
		id.ChatID = f.ChatID
		id.ChatAccessHash = f.accessHash
		id.BigPhoto = f.BigPhoto
	} else {
		id.MediaID = f.mediaID
		id.AccessHash = f.accessHash
		id.FileReference = currentReference(f)
		if f.Kind == telegram.KindPhoto {
			id.ThumbSize = "y"
		}
	}

	return id.Encode()
}
