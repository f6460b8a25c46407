package fileid

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/streamgate/streamgate/pkg/telegram"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		id   FileID
	}{
		{
			"document",
			FileID{
				Version:       Version,
				Kind:          telegram.KindDocument,
				DC:            4,
				MediaID:       5213601110200797278,
				AccessHash:    -6156026326061987652,
				FileReference: []byte{0x01, 0x00, 0x42, 0xfe},
				UniqueID:      "AgADHgQAAnlGeFE",
			},
		},
		{
			"photo with thumb",
			FileID{
				Version:       Version,
				Kind:          telegram.KindPhoto,
				DC:            2,
				MediaID:       100200300,
				AccessHash:    400500600,
				FileReference: []byte{0xde, 0xad, 0xbe, 0xef},
				ThumbSize:     "x",
				UniqueID:      "photo-1",
			},
		},
		{
			"chat photo big",
			FileID{
				Version:  Version,
				Kind:     telegram.KindChatPhoto,
				DC:       1,
				VolumeID: 200079916198,
				LocalID:  411605,
				ChatID:   -1001234567890,
				BigPhoto: true,
				UniqueID: "avatar",
			},
		},
		{
			"user photo with access hash",
			FileID{
				Version:        Version,
				Kind:           telegram.KindChatPhoto,
				DC:             5,
				VolumeID:       1,
				LocalID:        2,
				ChatID:         777000,
				ChatAccessHash: 987654321,
				UniqueID:       "u",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := tt.id.Encode()
			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode(%q) error: %v", encoded, err)
			}

			if decoded.Kind != tt.id.Kind {
				t.Errorf("Kind = %q, want %q", decoded.Kind, tt.id.Kind)
			}
			if decoded.DC != tt.id.DC {
				t.Errorf("DC = %d, want %d", decoded.DC, tt.id.DC)
			}
			if decoded.MediaID != tt.id.MediaID {
				t.Errorf("MediaID = %d, want %d", decoded.MediaID, tt.id.MediaID)
			}
			if decoded.AccessHash != tt.id.AccessHash {
				t.Errorf("AccessHash = %d, want %d", decoded.AccessHash, tt.id.AccessHash)
			}
			if !bytes.Equal(decoded.FileReference, tt.id.FileReference) {
				t.Errorf("FileReference = %x, want %x", decoded.FileReference, tt.id.FileReference)
			}
			if decoded.VolumeID != tt.id.VolumeID {
				t.Errorf("VolumeID = %d, want %d", decoded.VolumeID, tt.id.VolumeID)
			}
			if decoded.LocalID != tt.id.LocalID {
				t.Errorf("LocalID = %d, want %d", decoded.LocalID, tt.id.LocalID)
			}
			if decoded.ThumbSize != tt.id.ThumbSize {
				t.Errorf("ThumbSize = %q, want %q", decoded.ThumbSize, tt.id.ThumbSize)
			}
			if decoded.ChatID != tt.id.ChatID {
				t.Errorf("ChatID = %d, want %d", decoded.ChatID, tt.id.ChatID)
			}
			if decoded.ChatAccessHash != tt.id.ChatAccessHash {
				t.Errorf("ChatAccessHash = %d, want %d", decoded.ChatAccessHash, tt.id.ChatAccessHash)
			}
			if decoded.BigPhoto != tt.id.BigPhoto {
				t.Errorf("BigPhoto = %v, want %v", decoded.BigPhoto, tt.id.BigPhoto)
			}
			if decoded.UniqueID != tt.id.UniqueID {
				t.Errorf("UniqueID = %q, want %q", decoded.UniqueID, tt.id.UniqueID)
			}

			// Re-encoding the decoded handle must reproduce the string
			if again := decoded.Encode(); again != encoded {
				t.Errorf("Encode() after Decode = %q, want %q", again, encoded)
			}
		})
	}
}

func TestDecodeRejectsCorruptInput(t *testing.T) {
	valid := (&FileID{
		Version:       Version,
		Kind:          telegram.KindDocument,
		DC:            2,
		MediaID:       42,
		AccessHash:    43,
		FileReference: []byte{1, 2, 3},
		UniqueID:      "ok",
	}).Encode()

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not base64", "!!!not-base64!!!"},
		{"truncated", valid[:len(valid)/2]},
		{"trailing garbage", valid + "AAAA"},
		{"plain text", base64.RawURLEncoding.EncodeToString([]byte("hello"))},
		{"dangling zero marker", base64.RawURLEncoding.EncodeToString([]byte{1, 2, 0})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input)
			if err == nil {
				t.Fatalf("Decode(%q) succeeded, want error", tt.input)
			}
			if !strings.Contains(err.Error(), "invalid file id") {
				t.Errorf("error = %v, want invalid file id", err)
			}
		})
	}
}

func TestDecodeRejectsWrongVersion(t *testing.T) {
	id := FileID{Version: 99, Kind: telegram.KindDocument, DC: 1, UniqueID: "v"}
	if _, err := Decode(id.Encode()); err == nil {
		t.Fatal("Decode of version 99 succeeded, want error")
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	// Build a packed buffer by hand with a bogus kind byte.
	w := writer{}
	w.byte(Version)
	w.byte(9) // no such kind
	w.byte(0)
	w.byte(1)
	w.int64(0)
	w.int64(0)
	w.int64(0)
	w.int32(0)
	w.int64(0)
	w.int64(0)
	w.bytes16(nil)
	w.str8("")
	w.str8("")

	s := base64.RawURLEncoding.EncodeToString(rleEncode(w.buf))
	if _, err := Decode(s); err == nil {
		t.Fatal("Decode with unknown kind succeeded, want error")
	}
}

func TestRLE(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"no zeros", []byte{1, 2, 3}},
		{"single zero", []byte{0}},
		{"zero run", []byte{1, 0, 0, 0, 2}},
		{"trailing zeros", []byte{5, 0, 0}},
		{"leading zeros", []byte{0, 0, 7}},
		{"long run", append(make([]byte, 300), 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := rleEncode(tt.in)
			dec, err := rleDecode(enc)
			if err != nil {
				t.Fatalf("rleDecode error: %v", err)
			}
			if !bytes.Equal(dec, tt.in) {
				t.Errorf("round trip = %v, want %v", dec, tt.in)
			}
		})
	}
}

func TestRLECompresses(t *testing.T) {
	// Handles are mostly high zero bytes; the encoded form must be smaller.
	id := FileID{Version: Version, Kind: telegram.KindDocument, DC: 2, MediaID: 42, UniqueID: "x"}
	packed := 4 + 8*5 + 4 + 2 + 1 + 1 + len(id.UniqueID)
	encoded := id.Encode()
	if base64.RawURLEncoding.DecodedLen(len(encoded)) >= packed {
		t.Errorf("encoded %d bytes, packed %d; RLE should shrink zero-heavy handles", base64.RawURLEncoding.DecodedLen(len(encoded)), packed)
	}
}
