// Package telegram defines the backend seam of the gateway: the home-DC
// client, per-DC media connections, typed file locations, and the transport
// registry through which concrete MTProto implementations plug in.
//
// The package itself carries no wire protocol. The gateway core talks to the
// interfaces below; an implementation (the in-repo memory transport, or an
// external MTProto module) registers a Factory under a name and is selected
// via the telegram.transport configuration key.
package telegram

// MediaKind distinguishes the media variants the gateway can stream.
type MediaKind string

const (
	// KindDocument is generic file media: videos, audio, arbitrary documents.
	KindDocument MediaKind = "document"

	// KindPhoto is a compressed photo with a server-chosen thumbnail ladder.
	KindPhoto MediaKind = "photo"

	// KindChatPhoto is a chat or channel avatar, addressed through its peer.
	KindChatPhoto MediaKind = "chat_photo"
)

// Media describes one streamable attachment resolved from a message.
// FileID is the opaque encoded handle (see pkg/telegram/fileid); Size is the
// exact byte length the backend will serve for it.
type Media struct {
	Kind     MediaKind
	FileID   string
	Size     int64
	MIMEType string
	FileName string
}

// User identifies the account a client is logged in as.
type User struct {
	ID        int64
	Username  string
	FirstName string
	IsBot     bool
}

// Update is one incoming message event from the home client.
// Media is nil when the message carries no streamable attachment.
type Update struct {
	ChatID    int64
	MessageID int
	Text      string
	Media     *Media
}

// ExportedAuth is an authorization voucher minted on the home DC for
// redemption on a foreign DC (auth.exportAuthorization semantics).
type ExportedAuth struct {
	ID    int64
	Bytes []byte
}

// SessionInfo is the persisted identity of one DC session. The home client
// reports its own identity through Client.SessionInfo after connecting; the
// session registry persists one of these per data center so restarts can skip
// auth-key creation.
type SessionInfo struct {
	DCID     int    `json:"dc_id"`
	AuthKey  []byte `json:"auth_key"`
	TestMode bool   `json:"test_mode"`
	UserID   int64  `json:"user_id"`
	IsBot    bool   `json:"is_bot"`
}
