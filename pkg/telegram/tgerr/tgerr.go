// Package tgerr models the backend's RPC error strings as typed values so
// the streaming engine can branch on them without string matching at the
// call sites. An RPC failure is an *Error carrying the numeric code, the
// bare type, and the numeric argument some types embed in their tail
// (FLOOD_WAIT_15, FILE_MIGRATE_4).
package tgerr

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Error types the gateway reacts to. Anything else is treated as fatal for
// the operation that produced it.
const (
	TypeFloodWait            = "FLOOD_WAIT"
	TypeFileMigrate          = "FILE_MIGRATE"
	TypeFileReferenceExpired = "FILE_REFERENCE_EXPIRED"
	TypeAuthBytesInvalid     = "AUTH_BYTES_INVALID"
)

// Error is one RPC failure from the backend.
type Error struct {
	Code     int    // numeric RPC code (303, 400, 420, ...)
	Type     string // bare type with any numeric tail stripped
	Argument int    // the stripped tail, 0 when the type has none
}

// New builds an Error from a code and the raw type string, splitting a
// trailing _N into Type and Argument ("FLOOD_WAIT_15" becomes
// Type "FLOOD_WAIT", Argument 15).
func New(code int, rawType string) *Error {
	e := &Error{Code: code, Type: rawType}
	if i := strings.LastIndexByte(rawType, '_'); i >= 0 {
		if n, err := strconv.Atoi(rawType[i+1:]); err == nil {
			e.Type = rawType[:i]
			e.Argument = n
		}
	}
	return e
}

// FloodWait builds the FLOOD_WAIT error for the given mandated wait.
func FloodWait(seconds int) *Error {
	return &Error{Code: 420, Type: TypeFloodWait, Argument: seconds}
}

// FileMigrate builds the FILE_MIGRATE error pointing at the DC that owns
// the requested file.
func FileMigrate(dc int) *Error {
	return &Error{Code: 303, Type: TypeFileMigrate, Argument: dc}
}

// FileReferenceExpired builds the stale-file-reference error.
func FileReferenceExpired() *Error {
	return &Error{Code: 400, Type: TypeFileReferenceExpired}
}

// AuthBytesInvalid builds the failed-authorization-import error.
func AuthBytesInvalid() *Error {
	return &Error{Code: 400, Type: TypeAuthBytesInvalid}
}

func (e *Error) Error() string {
	if e.Argument != 0 {
		return fmt.Sprintf("rpc error code %d: %s (%d)", e.Code, e.Type, e.Argument)
	}
	return fmt.Sprintf("rpc error code %d: %s", e.Code, e.Type)
}

// IsType reports whether the error has the given bare type.
func (e *Error) IsType(t string) bool {
	return e != nil && e.Type == t
}

// AsFloodWait extracts the mandated wait from a FLOOD_WAIT error.
func AsFloodWait(err error) (time.Duration, bool) {
	var e *Error
	if errors.As(err, &e) && e.IsType(TypeFloodWait) {
		return time.Duration(e.Argument) * time.Second, true
	}
	return 0, false
}

// AsFileMigrate extracts the target DC from a FILE_MIGRATE error.
func AsFileMigrate(err error) (int, bool) {
	var e *Error
	if errors.As(err, &e) && e.IsType(TypeFileMigrate) {
		return e.Argument, true
	}
	return 0, false
}

// IsFileReferenceExpired reports whether err is FILE_REFERENCE_EXPIRED.
func IsFileReferenceExpired(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.IsType(TypeFileReferenceExpired)
}

// IsAuthBytesInvalid reports whether err is AUTH_BYTES_INVALID.
func IsAuthBytesInvalid(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.IsType(TypeAuthBytesInvalid)
}

// IsTransient reports whether err is a transport-level fault worth retrying
// on the same connection: timeouts, resets, refused or aborted connections,
// and short reads.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	switch {
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ETIMEDOUT):
		return true
	}

	return false
}
