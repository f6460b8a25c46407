package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamgate/streamgate/pkg/telegram"
	"github.com/streamgate/streamgate/pkg/telegram/fileid"
	"github.com/streamgate/streamgate/pkg/telegram/tgerr"
)

func connectedBackend(t *testing.T) (*Backend, telegram.Client) {
	t.Helper()
	b := NewBackend(2)
	client := b.Client()
	require.NoError(t, client.Connect(context.Background()))
	return b, client
}

// dialAuthorized opens a GetFile-ready connection to a DC, importing an
// authorization when the DC is foreign.
func dialAuthorized(t *testing.T, b *Backend, client telegram.Client, dc int) telegram.FileConn {
	t.Helper()
	ctx := context.Background()

	var key []byte
	if dc == b.HomeDC() {
		info, err := client.SessionInfo()
		require.NoError(t, err)
		key = info.AuthKey
	}

	conn, err := b.Dial(ctx, dc, key, false)
	require.NoError(t, err)

	if dc != b.HomeDC() {
		exported, err := client.ExportAuthorization(ctx, dc)
		require.NoError(t, err)
		require.NoError(t, conn.ImportAuthorization(ctx, exported.ID, exported.Bytes))
	}
	return conn
}

func documentLocation(t *testing.T, media *telegram.Media) telegram.DocumentLocation {
	t.Helper()
	handle, err := fileid.Decode(media.FileID)
	require.NoError(t, err)
	return telegram.DocumentLocation{
		ID:            handle.MediaID,
		AccessHash:    handle.AccessHash,
		FileReference: handle.FileReference,
	}
}

func TestMediaResolution(t *testing.T) {
	b, client := connectedBackend(t)
	b.AddFile(&File{
		ChatID:    123,
		MessageID: 7,
		FileName:  "movie.mp4",
		MIMEType:  "video/mp4",
		Data:      make([]byte, 5000),
	})

	media, err := client.Media(context.Background(), 123, 7)
	require.NoError(t, err)
	assert.Equal(t, telegram.KindDocument, media.Kind)
	assert.Equal(t, int64(5000), media.Size)
	assert.Equal(t, "movie.mp4", media.FileName)
	assert.Equal(t, "video/mp4", media.MIMEType)

	handle, err := fileid.Decode(media.FileID)
	require.NoError(t, err)
	assert.Equal(t, 2, handle.DC)
	assert.NotEmpty(t, handle.FileReference)
	assert.NotEmpty(t, handle.UniqueID)

	_, err = client.Media(context.Background(), 123, 99)
	assert.ErrorIs(t, err, telegram.ErrNotFound)
}

func TestGetFileServesBytes(t *testing.T) {
	b, client := connectedBackend(t)
	data := patternData(10000, 1)
	b.AddFile(&File{ChatID: 1, MessageID: 1, Data: data})

	media, err := client.Media(context.Background(), 1, 1)
	require.NoError(t, err)
	loc := documentLocation(t, media)

	conn := dialAuthorized(t, b, client, 2)

	chunk, err := conn.GetFile(context.Background(), loc, 0, 4096)
	require.NoError(t, err)
	assert.Equal(t, data[:4096], chunk)

	// Short read at EOF
	chunk, err = conn.GetFile(context.Background(), loc, 8192, 4096)
	require.NoError(t, err)
	assert.Equal(t, data[8192:], chunk)

	// Past EOF
	chunk, err = conn.GetFile(context.Background(), loc, 12288, 4096)
	require.NoError(t, err)
	assert.Empty(t, chunk)
}

func TestGetFileEnforcesAlignment(t *testing.T) {
	b, client := connectedBackend(t)
	b.AddFile(&File{ChatID: 1, MessageID: 1, Data: make([]byte, 10000)})

	media, err := client.Media(context.Background(), 1, 1)
	require.NoError(t, err)
	loc := documentLocation(t, media)
	conn := dialAuthorized(t, b, client, 2)

	tests := []struct {
		name     string
		offset   int64
		limit    int
		wantType string
	}{
		{"unaligned offset", 100, 4096, "OFFSET_INVALID"},
		{"negative offset", -4096, 4096, "OFFSET_INVALID"},
		{"unaligned limit", 0, 5000, "LIMIT_INVALID"},
		{"zero limit", 0, 0, "LIMIT_INVALID"},
		{"oversized limit", 0, 2 << 20, "LIMIT_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := conn.GetFile(context.Background(), loc, tt.offset, tt.limit)
			var rpcErr *tgerr.Error
			require.ErrorAs(t, err, &rpcErr)
			assert.Equal(t, tt.wantType, rpcErr.Type)
		})
	}
}

func TestGetFileRequiresAuthorization(t *testing.T) {
	b, client := connectedBackend(t)
	b.AddFile(&File{ChatID: 1, MessageID: 1, Data: make([]byte, 4096), DC: 4, HandleDC: 4})

	media, err := client.Media(context.Background(), 1, 1)
	require.NoError(t, err)
	loc := documentLocation(t, media)

	conn, err := b.Dial(context.Background(), 4, nil, false)
	require.NoError(t, err)

	_, err = conn.GetFile(context.Background(), loc, 0, 4096)
	var rpcErr *tgerr.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "AUTH_KEY_UNREGISTERED", rpcErr.Type)

	// Wrong bytes are rejected
	err = conn.ImportAuthorization(context.Background(), 42, []byte("bogus"))
	assert.True(t, tgerr.IsAuthBytesInvalid(err))

	// The real voucher authorizes the connection
	exported, err := client.ExportAuthorization(context.Background(), 4)
	require.NoError(t, err)
	require.NoError(t, conn.ImportAuthorization(context.Background(), exported.ID, exported.Bytes))

	_, err = conn.GetFile(context.Background(), loc, 0, 4096)
	assert.NoError(t, err)
}

func TestGetFileMigration(t *testing.T) {
	b, client := connectedBackend(t)
	// Handle points home but DC 4 owns the bytes.
	b.AddFile(&File{ChatID: 1, MessageID: 1, Data: make([]byte, 4096), DC: 4, HandleDC: 2})

	media, err := client.Media(context.Background(), 1, 1)
	require.NoError(t, err)
	loc := documentLocation(t, media)

	home := dialAuthorized(t, b, client, 2)
	_, err = home.GetFile(context.Background(), loc, 0, 4096)
	dc, ok := tgerr.AsFileMigrate(err)
	require.True(t, ok, "expected FILE_MIGRATE, got %v", err)
	assert.Equal(t, 4, dc)

	foreign := dialAuthorized(t, b, client, 4)
	_, err = foreign.GetFile(context.Background(), loc, 0, 4096)
	assert.NoError(t, err)
}

func TestReferenceExpiry(t *testing.T) {
	b, client := connectedBackend(t)
	b.AddFile(&File{ChatID: 1, MessageID: 1, Data: make([]byte, 4096)})

	media, err := client.Media(context.Background(), 1, 1)
	require.NoError(t, err)
	staleLoc := documentLocation(t, media)
	conn := dialAuthorized(t, b, client, 2)

	b.ExpireReference(1, 1)

	_, err = conn.GetFile(context.Background(), staleLoc, 0, 4096)
	assert.True(t, tgerr.IsFileReferenceExpired(err), "expected FILE_REFERENCE_EXPIRED, got %v", err)

	// Re-resolving the message hands out a fresh reference
	media, err = client.Media(context.Background(), 1, 1)
	require.NoError(t, err)
	freshLoc := documentLocation(t, media)

	_, err = conn.GetFile(context.Background(), freshLoc, 0, 4096)
	assert.NoError(t, err)
}

func TestChatPhotoLocation(t *testing.T) {
	b, client := connectedBackend(t)
	b.AddFile(&File{
		ChatID:    -1001234567890,
		MessageID: 3,
		Kind:      telegram.KindChatPhoto,
		Data:      make([]byte, 4096),
		BigPhoto:  true,
	})

	media, err := client.Media(context.Background(), -1001234567890, 3)
	require.NoError(t, err)
	assert.Equal(t, telegram.KindChatPhoto, media.Kind)

	handle, err := fileid.Decode(media.FileID)
	require.NoError(t, err)
	assert.True(t, handle.BigPhoto)
	assert.Equal(t, int64(-1001234567890), handle.ChatID)

	conn := dialAuthorized(t, b, client, 2)
	loc := telegram.PeerPhotoLocation{
		Peer:     telegram.ChannelPeer{ChannelID: 1234567890, AccessHash: handle.ChatAccessHash},
		VolumeID: handle.VolumeID,
		LocalID:  handle.LocalID,
		Big:      handle.BigPhoto,
	}

	_, err = conn.GetFile(context.Background(), loc, 0, 4096)
	assert.NoError(t, err)
}

func TestHooksAndCallRecording(t *testing.T) {
	b, client := connectedBackend(t)
	b.AddFile(&File{ChatID: 1, MessageID: 1, Data: make([]byte, 8192)})

	media, err := client.Media(context.Background(), 1, 1)
	require.NoError(t, err)
	loc := documentLocation(t, media)
	conn := dialAuthorized(t, b, client, 2)

	var failed bool
	b.SetGetFileHook(func(call GetFileCall) error {
		if !failed {
			failed = true
			return tgerr.FloodWait(3)
		}
		return nil
	})

	_, err = conn.GetFile(context.Background(), loc, 0, 4096)
	wait, ok := tgerr.AsFloodWait(err)
	require.True(t, ok)
	assert.Equal(t, 3, int(wait.Seconds()))

	_, err = conn.GetFile(context.Background(), loc, 4096, 4096)
	require.NoError(t, err)

	calls := b.GetFileCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, GetFileCall{DC: 2, Offset: 0, Limit: 4096}, calls[0])
	assert.Equal(t, GetFileCall{DC: 2, Offset: 4096, Limit: 4096}, calls[1])
}

func TestExportHook(t *testing.T) {
	b, client := connectedBackend(t)

	b.SetExportHook(func(dc int) error {
		return tgerr.FloodWait(15)
	})

	_, err := client.ExportAuthorization(context.Background(), 4)
	wait, ok := tgerr.AsFloodWait(err)
	require.True(t, ok)
	assert.Equal(t, 15, int(wait.Seconds()))
	assert.Equal(t, []int{4}, b.ExportCalls())
}

func TestConnectHook(t *testing.T) {
	b := NewBackend(2)
	client := b.Client()

	b.SetConnectHook(func(attempt int) error {
		if attempt < 3 {
			return tgerr.FloodWait(1)
		}
		return nil
	})

	assert.Error(t, client.Connect(context.Background()))
	assert.Error(t, client.Connect(context.Background()))
	assert.NoError(t, client.Connect(context.Background()))
}

func TestFactorySeeding(t *testing.T) {
	client, dialer, err := telegram.NewTransport(TransportName, telegram.TransportConfig{
		Options: map[string]any{
			"seed": []map[string]any{
				{
					"chat_id":    int64(42),
					"message_id": 7,
					"size":       int64(9000),
					"kind":       "document",
					"mime":       "video/mp4",
					"file_name":  "seeded.mp4",
				},
			},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, dialer)

	require.NoError(t, client.Connect(context.Background()))
	media, err := client.Media(context.Background(), 42, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), media.Size)
	assert.Equal(t, "seeded.mp4", media.FileName)

	info, err := client.SessionInfo()
	require.NoError(t, err)
	assert.Equal(t, defaultHomeDC, info.DCID)
	assert.True(t, info.IsBot)
}

func TestFactoryRejectsBadSeed(t *testing.T) {
	_, _, err := telegram.NewTransport(TransportName, telegram.TransportConfig{
		Options: map[string]any{
			"seed": []map[string]any{
				{"chat_id": int64(1), "message_id": 1},
			},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path or a positive size")
}

func TestNotConnectedErrors(t *testing.T) {
	b := NewBackend(2)
	client := b.Client()

	_, err := client.Self()
	assert.ErrorIs(t, err, telegram.ErrNotConnected)
	_, err = client.Media(context.Background(), 1, 1)
	assert.ErrorIs(t, err, telegram.ErrNotConnected)
	_, err = client.SessionInfo()
	assert.ErrorIs(t, err, telegram.ErrNotConnected)
	err = client.SendMessage(context.Background(), 1, "hi")
	assert.ErrorIs(t, err, telegram.ErrNotConnected)
}

func TestSendMessageAndUpdates(t *testing.T) {
	b, client := connectedBackend(t)

	require.NoError(t, client.SendMessage(context.Background(), 55, "link here"))
	sent := b.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, SentMessage{ChatID: 55, Text: "link here"}, sent[0])

	b.PushUpdate(telegram.Update{ChatID: 55, MessageID: 9, Text: "/start"})
	select {
	case u := <-client.Updates():
		assert.Equal(t, "/start", u.Text)
	default:
		t.Fatal("update not delivered")
	}
}

func TestDialUnknownDC(t *testing.T) {
	b := NewBackend(2)
	_, err := b.Dial(context.Background(), 9, nil, false)
	require.Error(t, err)
	var rpcErr *tgerr.Error
	assert.False(t, errors.As(err, &rpcErr), "dialing an unknown dc is a plain error, not an RPC one")
}
