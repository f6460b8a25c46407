// Package fileid implements the opaque file-id codec. An encoded file id is
// the little-endian packed handle, run-length compressed (zero bytes only),
// then base64 raw-URL encoded. Decoded handles are immutable for the
// lifetime of their FileReference; when the backend reports the reference
// expired the handle must be re-fetched from the message, not patched.
//
// Packed layout (before RLE):
//
//	version(1) kind(1) flags(1) dc(1)
//	media_id(8) access_hash(8) volume_id(8) local_id(4)
//	chat_id(8) chat_access_hash(8)
//	file_reference(len16 + bytes) thumb_size(len8 + bytes) unique_id(len8 + bytes)
package fileid

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/streamgate/streamgate/pkg/telegram"
)

// Version is the current packed-layout version. Decode rejects anything else.
const Version = 1

const flagBigPhoto = 1 << 0

// ErrInvalid reports a file id that cannot be decoded: wrong base64, bad RLE,
// truncated fields, unknown version or kind, or trailing garbage.
var ErrInvalid = errors.New("invalid file id")

// FileID is the decoded form of one opaque file id.
type FileID struct {
	Version        int
	Kind           telegram.MediaKind
	DC             int
	MediaID        int64
	AccessHash     int64
	FileReference  []byte
	VolumeID       int64
	LocalID        int
	ThumbSize      string
	ChatID         int64
	ChatAccessHash int64
	BigPhoto       bool
	UniqueID       string
}

// Decode parses an encoded file id string.
func Decode(s string) (*FileID, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalid)
	}

	compressed, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	data, err := rleDecode(compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	r := reader{buf: data}

	version := r.byte()
	kindByte := r.byte()
	flags := r.byte()
	dc := r.byte()
	mediaID := r.int64()
	accessHash := r.int64()
	volumeID := r.int64()
	localID := r.int32()
	chatID := r.int64()
	chatAccessHash := r.int64()
	fileRef := r.bytes16()
	thumbSize := r.str8()
	uniqueID := r.str8()

	if r.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, r.err)
	}
	if len(r.buf) != r.off {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalid, len(r.buf)-r.off)
	}
	if version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalid, version)
	}

	kind, err := kindFromByte(kindByte)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	return &FileID{
		Version:        int(version),
		Kind:           kind,
		DC:             int(dc),
		MediaID:        mediaID,
		AccessHash:     accessHash,
		FileReference:  fileRef,
		VolumeID:       volumeID,
		LocalID:        int(localID),
		ThumbSize:      thumbSize,
		ChatID:         chatID,
		ChatAccessHash: chatAccessHash,
		BigPhoto:       flags&flagBigPhoto != 0,
		UniqueID:       uniqueID,
	}, nil
}

// Encode packs the handle back into its opaque string form.
// Encode(Decode(s)) == s for every valid s.
func (f *FileID) Encode() string {
	var flags byte
	if f.BigPhoto {
		flags |= flagBigPhoto
	}

	w := writer{}
	w.byte(byte(f.Version))
	w.byte(kindToByte(f.Kind))
	w.byte(flags)
	w.byte(byte(f.DC))
	w.int64(f.MediaID)
	w.int64(f.AccessHash)
	w.int64(f.VolumeID)
	w.int32(int32(f.LocalID))
	w.int64(f.ChatID)
	w.int64(f.ChatAccessHash)
	w.bytes16(f.FileReference)
	w.str8(f.ThumbSize)
	w.str8(f.UniqueID)

	return base64.RawURLEncoding.EncodeToString(rleEncode(w.buf))
}

func kindFromByte(b byte) (telegram.MediaKind, error) {
	switch b {
	case 0:
		return telegram.KindDocument, nil
	case 1:
		return telegram.KindPhoto, nil
	case 2:
		return telegram.KindChatPhoto, nil
	default:
		return "", fmt.Errorf("unknown media kind %d", b)
	}
}

func kindToByte(k telegram.MediaKind) byte {
	switch k {
	case telegram.KindPhoto:
		return 1
	case telegram.KindChatPhoto:
		return 2
	default:
		return 0
	}
}

// ============================================================================
// RLE (zero bytes only)
// ============================================================================

// rleEncode collapses runs of zero bytes into a 0x00 marker plus a count
// byte. Non-zero bytes pass through. Runs longer than 255 split.
func rleEncode(data []byte) []byte {
	out := make([]byte, 0, len(data))
	run := 0

	flush := func() {
		for run > 0 {
			n := run
			if n > math.MaxUint8 {
				n = math.MaxUint8
			}
			out = append(out, 0, byte(n))
			run -= n
		}
	}

	for _, b := range data {
		if b == 0 {
			run++
			continue
		}
		flush()
		out = append(out, b)
	}
	flush()
	return out
}

// rleDecode expands 0x00+count pairs back into zero runs.
func rleDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b != 0 {
			out = append(out, b)
			continue
		}
		i++
		if i == len(data) {
			return nil, errors.New("truncated zero run")
		}
		for n := int(data[i]); n > 0; n-- {
			out = append(out, 0)
		}
	}
	return out, nil
}

// ============================================================================
// Packed little-endian field access
// ============================================================================

type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = fmt.Errorf("truncated at offset %d", r.off)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) byte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) int32() int32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

func (r *reader) int64() int64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

func (r *reader) bytes16() []byte {
	b := r.take(2)
	if b == nil {
		return nil
	}
	n := int(binary.LittleEndian.Uint16(b))
	if n == 0 {
		return nil
	}
	raw := r.take(n)
	if raw == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, raw)
	return out
}

func (r *reader) str8() string {
	b := r.take(1)
	if b == nil {
		return ""
	}
	return string(r.take(int(b[0])))
}

type writer struct {
	buf []byte
}

func (w *writer) byte(b byte) {
	w.buf = append(w.buf, b)
}

func (w *writer) int32(v int32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
}

func (w *writer) int64(v int64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(v))
}

func (w *writer) bytes16(b []byte) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *writer) str8(s string) {
	w.buf = append(w.buf, byte(len(s)))
	w.buf = append(w.buf, s...)
}
