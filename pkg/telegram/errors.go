package telegram

import "errors"

// Sentinel errors shared by every transport. RPC-level failures with a code
// and type string are *tgerr.Error instead; these cover the seam itself.
var (
	// ErrNotFound means the requested message does not exist.
	ErrNotFound = errors.New("message not found")

	// ErrNoMedia means the message exists but carries nothing streamable.
	ErrNoMedia = errors.New("message has no media")

	// ErrUnsupported means the transport does not implement an optional
	// capability (messaging, updates).
	ErrUnsupported = errors.New("not supported by transport")

	// ErrNotConnected means a method was called before Connect succeeded.
	ErrNotConnected = errors.New("client not connected")
)
