// Package bytesize provides a byte count that converts to and from
// human-readable strings. Config fields such as the stream chunk size accept
// "512KiB" or a bare byte count, and media sizes in bot replies render the
// same way.
package bytesize

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ByteSize is a byte count. It unmarshals from strings like "1MiB", "500KB"
// or plain numbers, and marshals back to the largest binary unit that divides
// it evenly, so a config written out parses back to the same value.
type ByteSize uint64

const (
	B ByteSize = 1

	// Decimal units, x1000.
	KB ByteSize = 1000 * B
	MB ByteSize = 1000 * KB
	GB ByteSize = 1000 * MB
	TB ByteSize = 1000 * GB

	// Binary units, x1024.
	KiB ByteSize = 1024 * B
	MiB ByteSize = 1024 * KiB
	GiB ByteSize = 1024 * MiB
	TiB ByteSize = 1024 * GiB
)

// units maps lowercase suffixes to multipliers. Binary units accept both the
// short ("mi") and full ("mib") spellings.
var units = map[string]ByteSize{
	"":    B,
	"b":   B,
	"k":   KB,
	"kb":  KB,
	"m":   MB,
	"mb":  MB,
	"g":   GB,
	"gb":  GB,
	"t":   TB,
	"tb":  TB,
	"ki":  KiB,
	"kib": KiB,
	"mi":  MiB,
	"mib": MiB,
	"gi":  GiB,
	"gib": GiB,
	"ti":  TiB,
	"tib": TiB,
}

// binaryUnits is ordered largest first for formatting.
var binaryUnits = []struct {
	mult   ByteSize
	suffix string
}{
	{TiB, "TiB"},
	{GiB, "GiB"},
	{MiB, "MiB"},
	{KiB, "KiB"},
}

// ParseByteSize parses a human-readable size like "1MiB", "500KB", "1.5Gi"
// or "8192" into a byte count.
func ParseByteSize(s string) (ByteSize, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	// Split the numeric prefix from the unit suffix.
	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
		i++
	}
	num := s[:i]
	unit := strings.ToLower(strings.TrimSpace(s[i:]))

	mult, ok := units[unit]
	if !ok {
		return 0, fmt.Errorf("unknown size unit %q in %q", s[i:], s)
	}

	// Fractional sizes like "1.5GiB" go through the float path; whole
	// numbers stay in uint64 to keep full precision.
	if strings.Contains(num, ".") {
		f, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size %q", s)
		}
		return ByteSize(f * float64(mult)), nil
	}

	n, err := strconv.ParseUint(num, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return ByteSize(n) * mult, nil
}

// UnmarshalText lets ByteSize fields decode from config strings.
func (b *ByteSize) UnmarshalText(text []byte) error {
	size, err := ParseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = size
	return nil
}

// MarshalText renders the size as its largest exact binary unit ("1MiB"),
// falling back to a plain byte count when no unit divides it.
func (b ByteSize) MarshalText() ([]byte, error) {
	for _, u := range binaryUnits {
		if b >= u.mult && b%u.mult == 0 {
			return []byte(strconv.FormatUint(uint64(b/u.mult), 10) + u.suffix), nil
		}
	}
	return []byte(strconv.FormatUint(uint64(b), 10)), nil
}

// UnmarshalYAML decodes YAML scalars ("1MiB", 8192) directly. yaml.v3 honors
// TextMarshaler when encoding but not TextUnmarshaler when decoding, so the
// round trip needs this explicitly.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	return b.UnmarshalText([]byte(value.Value))
}

// String formats the size with two decimals of the largest binary unit that
// fits, e.g. "3.00MiB" for a three-megabyte video.
func (b ByteSize) String() string {
	for _, u := range binaryUnits {
		if b >= u.mult {
			return fmt.Sprintf("%.2f%s", float64(b)/float64(u.mult), u.suffix)
		}
	}
	return strconv.FormatUint(uint64(b), 10) + "B"
}

// Uint64 returns the size as a uint64.
func (b ByteSize) Uint64() uint64 {
	return uint64(b)
}

// Int64 returns the size as an int64. Sizes above math.MaxInt64 wrap.
func (b ByteSize) Int64() int64 {
	return int64(b)
}
