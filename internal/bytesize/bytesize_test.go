package bytesize

import (
	"testing"
)

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ByteSize
		wantErr bool
	}{
		{"plain zero", "0", 0, false},
		{"plain bytes", "8192", 8192, false},
		{"byte suffix", "4096B", 4096, false},

		{"default chunk size", "1MiB", MiB, false},
		{"half chunk", "512KiB", 512 * KiB, false},
		{"short binary suffix", "512Ki", 512 * KiB, false},
		{"gibibytes", "2GiB", 2 * GiB, false},
		{"tebibytes", "1TiB", TiB, false},

		{"decimal kilobytes", "500KB", 500 * KB, false},
		{"decimal megabytes", "100MB", 100 * MB, false},
		{"decimal short", "1G", GB, false},
		{"decimal terabytes", "2TB", 2 * TB, false},

		{"lowercase", "1mib", MiB, false},
		{"uppercase", "1MIB", MiB, false},
		{"surrounding spaces", "  1MiB  ", MiB, false},
		{"space before unit", "1 MiB", MiB, false},

		{"fractional mebibytes", "1.5MiB", ByteSize(1.5 * float64(MiB)), false},
		{"fractional gibibytes", "0.5GiB", 512 * MiB, false},

		{"empty", "", 0, true},
		{"only spaces", "   ", 0, true},
		{"unknown unit", "1XiB", 0, true},
		{"negative", "-1MiB", 0, true},
		{"unit without number", "MiB", 0, true},
		{"garbage", "lots", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseByteSize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseByteSize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseByteSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestByteSizeUnmarshalText(t *testing.T) {
	var b ByteSize
	if err := b.UnmarshalText([]byte("512KiB")); err != nil {
		t.Fatalf("UnmarshalText(512KiB) error = %v", err)
	}
	if b != 512*KiB {
		t.Errorf("UnmarshalText(512KiB) = %d, want %d", b, 512*KiB)
	}

	if err := b.UnmarshalText([]byte("not-a-size")); err == nil {
		t.Error("UnmarshalText(not-a-size) expected error")
	}
}

func TestByteSizeMarshalText(t *testing.T) {
	tests := []struct {
		name  string
		input ByteSize
		want  string
	}{
		{"exact mebibyte", MiB, "1MiB"},
		{"exact kibibytes", 512 * KiB, "512KiB"},
		{"exact gibibytes", 4 * GiB, "4GiB"},
		{"no clean unit", 5000, "5000"},
		{"zero", 0, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.input.MarshalText()
			if err != nil {
				t.Fatalf("MarshalText() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("MarshalText() = %q, want %q", got, tt.want)
			}

			// What we write out must read back to the same value.
			back, err := ParseByteSize(string(got))
			if err != nil {
				t.Fatalf("ParseByteSize(%q) error = %v", got, err)
			}
			if back != tt.input {
				t.Errorf("round trip of %d came back as %d", tt.input, back)
			}
		})
	}
}

func TestByteSizeString(t *testing.T) {
	tests := []struct {
		name  string
		input ByteSize
		want  string
	}{
		{"small file", 512, "512B"},
		{"photo", 80 * KiB, "80.00KiB"},
		{"video", 3 * MiB, "3.00MiB"},
		{"movie", ByteSize(1.5 * float64(GiB)), "1.50GiB"},
		{"archive", 2 * TiB, "2.00TiB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.input.String(); got != tt.want {
				t.Errorf("ByteSize(%d).String() = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestByteSizeConversions(t *testing.T) {
	size := 2 * GiB

	if got := size.Uint64(); got != uint64(2*GiB) {
		t.Errorf("Uint64() = %d, want %d", got, uint64(2*GiB))
	}
	if got := size.Int64(); got != int64(2*GiB) {
		t.Errorf("Int64() = %d, want %d", got, int64(2*GiB))
	}
}
