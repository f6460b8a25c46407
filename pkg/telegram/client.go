package telegram

import (
	"context"
)

// ============================================================================
// Backend Seam Interfaces
// ============================================================================

// Client is the home-DC bot client. One instance lives for the process
// lifetime; Connect must succeed before any other method is called.
//
// Implementations must be safe for concurrent use.
type Client interface {
	// Connect logs the client in on its home DC, creating or reusing the
	// persisted session. Blocks until the connection is usable or ctx ends.
	Connect(ctx context.Context) error

	// Close tears down the connection. Safe to call more than once.
	Close() error

	// Self returns the logged-in account. Only valid after Connect.
	Self() (*User, error)

	// Media resolves a message into its streamable attachment.
	// Returns ErrNotFound when the message does not exist and ErrNoMedia
	// when it exists but carries nothing streamable.
	Media(ctx context.Context, chatID int64, messageID int) (*Media, error)

	// ExportAuthorization mints an authorization voucher for the given
	// foreign DC. RPC failures are returned as *tgerr.Error.
	ExportAuthorization(ctx context.Context, dc int) (*ExportedAuth, error)

	// SendMessage posts a plain-text reply into a chat. Used by the bot
	// responder; transports without messaging may return ErrUnsupported.
	SendMessage(ctx context.Context, chatID int64, text string) error

	// Updates exposes incoming message events. May return nil when the
	// transport has no update support; callers must tolerate that.
	Updates() <-chan Update

	// SessionInfo reports the persisted identity of the home session,
	// including the authoritative home DC. Only valid after Connect.
	SessionInfo() (*SessionInfo, error)
}

// Dialer opens media connections to individual data centers. A nil key asks
// the transport to perform fresh auth-key creation for that DC; a non-nil key
// resumes the persisted session.
type Dialer interface {
	Dial(ctx context.Context, dc int, key []byte, testMode bool) (FileConn, error)
}

// FileConn is one media connection bound to a single DC. Connections are
// owned by the session registry; nothing else closes them.
type FileConn interface {
	// AuthKey returns the connection's auth key for persistence.
	AuthKey() []byte

	// ImportAuthorization redeems a voucher exported on the home DC.
	// Required exactly once per fresh connection to a foreign DC.
	ImportAuthorization(ctx context.Context, id int64, authBytes []byte) error

	// GetFile fetches one block of file bytes. offset must be a multiple of
	// 4096 and limit a multiple of 4096 no larger than 1 MiB; the backend
	// rejects anything else. RPC failures are returned as *tgerr.Error.
	//
	// Ownership of the returned slice passes to the caller, which may hand
	// it to bufpool.Put once drained; implementations must not retain it.
	GetFile(ctx context.Context, loc FileLocation, offset int64, limit int) ([]byte, error)

	// Close tears down the connection. Safe to call more than once.
	Close() error
}
