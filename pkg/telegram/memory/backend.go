package memory

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/streamgate/streamgate/pkg/telegram"
)

// File is one virtual media file. ChatID, MessageID and Data are required;
// everything else has a usable default. DC is the data center that actually
// serves the bytes, HandleDC the one recorded in the encoded handle; when
// they differ the first fetch sees FILE_MIGRATE, which is how tests exercise
// migration.
type File struct {
	ChatID    int64
	MessageID int
	Kind      telegram.MediaKind
	FileName  string
	MIMEType  string
	Data      []byte
	DC        int
	HandleDC  int
	BigPhoto  bool

	mediaID    int64
	accessHash int64
	refGen     uint32
}

// GetFileCall records one GetFile invocation for test assertions.
type GetFileCall struct {
	DC     int
	Offset int64
	Limit  int
}

type fileKey struct {
	chat int64
	msg  int
}

// Backend is the shared state behind the memory transport: the virtual
// files, the simulated DC topology, call recording and fault hooks. It
// implements telegram.Dialer; Client() returns the home client view.
type Backend struct {
	mu        sync.RWMutex
	homeDC    int
	testMode  bool
	user      telegram.User
	homeKey   []byte
	connected bool

	files    map[fileKey]*File
	byMedia  map[int64]*File
	byVolume map[int64]*File
	nextID   int64

	updates    chan telegram.Update
	updatesOff bool
	sent       []SentMessage

	getFileCalls []GetFileCall
	exportCalls  []int
	dialCalls    []int
	connectCount int

	getFileHook func(call GetFileCall) error
	exportHook  func(dc int) error
	importHook  func(dc int) error
	dialHook    func(dc int) error
	connectHook func(attempt int) error
}

// SentMessage is one SendMessage recorded for test assertions.
type SentMessage struct {
	ChatID int64
	Text   string
}

// NewBackend creates an empty backend whose home DC is homeDC.
func NewBackend(homeDC int) *Backend {
	key := make([]byte, 32)
	_, _ = rand.Read(key)

	return &Backend{
		homeDC:   homeDC,
		homeKey:  key,
		user:     telegram.User{ID: 7000001, Username: "streamgate_bot", FirstName: "streamgate", IsBot: true},
		files:    make(map[fileKey]*File),
		byMedia:  make(map[int64]*File),
		byVolume: make(map[int64]*File),
		nextID:   1000,
		updates:  make(chan telegram.Update, 16),
	}
}

// Client returns the home-DC client view of the backend.
func (b *Backend) Client() telegram.Client {
	return &client{backend: b}
}

// HomeDC returns the simulated network's main DC.
func (b *Backend) HomeDC() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.homeDC
}

// AddFile registers a virtual file, assigning its backend identity. Kind
// defaults to document, DC to the home DC, HandleDC to DC.
func (b *Backend) AddFile(f *File) *File {
	b.mu.Lock()
	defer b.mu.Unlock()

	if f.Kind == "" {
		f.Kind = telegram.KindDocument
	}
	if f.DC == 0 {
		f.DC = b.homeDC
	}
	if f.HandleDC == 0 {
		f.HandleDC = f.DC
	}

	b.nextID++
	f.mediaID = b.nextID
	f.accessHash = f.mediaID*7919 + 17

	b.files[fileKey{f.ChatID, f.MessageID}] = f
	if f.Kind == telegram.KindChatPhoto {
		b.byVolume[f.mediaID] = f
	} else {
		b.byMedia[f.mediaID] = f
	}
	return f
}

// ExpireReference invalidates the current file reference of one file. The
// next GetFile against an old handle fails with FILE_REFERENCE_EXPIRED until
// the caller re-resolves the message.
func (b *Backend) ExpireReference(chatID int64, messageID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if f, ok := b.files[fileKey{chatID, messageID}]; ok {
		f.refGen++
	}
}

// PushUpdate delivers an update to the client's update channel.
func (b *Backend) PushUpdate(u telegram.Update) {
	b.updates <- u
}

// DisableUpdates makes the client report no update support: Updates returns
// nil, the way a transport without an update loop would.
func (b *Backend) DisableUpdates() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updatesOff = true
}

// Sent returns a copy of every message sent through the client.
func (b *Backend) Sent() []SentMessage {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]SentMessage, len(b.sent))
	copy(out, b.sent)
	return out
}

// GetFileCalls returns a copy of every recorded GetFile invocation.
func (b *Backend) GetFileCalls() []GetFileCall {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]GetFileCall, len(b.getFileCalls))
	copy(out, b.getFileCalls)
	return out
}

// ResetGetFileCalls clears the recorded GetFile invocations.
func (b *Backend) ResetGetFileCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.getFileCalls = nil
}

// ExportCalls returns the DCs passed to ExportAuthorization, in order.
func (b *Backend) ExportCalls() []int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]int, len(b.exportCalls))
	copy(out, b.exportCalls)
	return out
}

// DialCalls returns the DCs dialed, in order.
func (b *Backend) DialCalls() []int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]int, len(b.dialCalls))
	copy(out, b.dialCalls)
	return out
}

// SetGetFileHook installs a hook consulted before every GetFile; a non-nil
// return fails the call with that error.
func (b *Backend) SetGetFileHook(fn func(call GetFileCall) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.getFileHook = fn
}

// SetExportHook installs a hook consulted before every ExportAuthorization.
func (b *Backend) SetExportHook(fn func(dc int) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exportHook = fn
}

// SetImportHook installs a hook consulted before every ImportAuthorization.
func (b *Backend) SetImportHook(fn func(dc int) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.importHook = fn
}

// SetDialHook installs a hook consulted before every Dial.
func (b *Backend) SetDialHook(fn func(dc int) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dialHook = fn
}

// SetConnectHook installs a hook consulted on every Connect attempt,
// starting at 1.
func (b *Backend) SetConnectHook(fn func(attempt int) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connectHook = fn
}

// currentReference derives the live file reference for a file. References
// embed the generation counter so ExpireReference makes old handles stale.
func currentReference(f *File) []byte {
	ref := make([]byte, 12)
	binary.LittleEndian.PutUint64(ref, uint64(f.mediaID))
	binary.LittleEndian.PutUint32(ref[8:], f.refGen)
	return ref
}

// authToken derives the authorization bytes exported for one DC.
func (b *Backend) authToken(dc int) []byte {
	return fmt.Appendf(nil, "auth:%d:%d", b.user.ID, dc)
}

func (f *File) uniqueID() string {
	return fmt.Sprintf("mem-%d", f.mediaID)
}

func (b *Backend) lookup(chatID int64, messageID int) (*File, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	f, ok := b.files[fileKey{chatID, messageID}]
	return f, ok
}
