// Package version provides the ordered server version token that selects a
// packet layout.
//
// A Version packs major, minor and patch numbers into a single uint32 so that
// versions compare with the ordinary integer operators:
//
//	v := version.MustParse("1.8.8")
//	v.IsNewerThan(version.V1_7_10) // true
//	v.IsOlderThan(version.V1_9)    // true
//
// The version of a running server never changes, so a Source is expected to
// return the same value for the whole process lifetime.
package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/chunkfield/errs"
)

// Version is an ordered server version token.
//
// Layout: bits 16-31 major, bits 8-15 minor, bits 0-7 patch.
type Version uint32

// Known server versions.
const (
	Unknown Version = 0

	V1_7_10 Version = 1<<16 | 7<<8 | 10
	V1_8    Version = 1<<16 | 8<<8
	V1_8_3  Version = 1<<16 | 8<<8 | 3
	V1_8_8  Version = 1<<16 | 8<<8 | 8
	V1_9    Version = 1<<16 | 9<<8
	V1_9_4  Version = 1<<16 | 9<<8 | 4
	V1_12_2 Version = 1<<16 | 12<<8 | 2
	V1_13_2 Version = 1<<16 | 13<<8 | 2
	V1_16_5 Version = 1<<16 | 16<<8 | 5
	V1_17   Version = 1<<16 | 17<<8
	V1_17_1 Version = 1<<16 | 17<<8 | 1
	V1_18   Version = 1<<16 | 18<<8
)

// New builds a Version from its components.
func New(major, minor, patch uint8) Version {
	return Version(uint32(major)<<16 | uint32(minor)<<8 | uint32(patch))
}

// Major returns the major component.
func (v Version) Major() uint8 {
	return uint8(v >> 16)
}

// Minor returns the minor component.
func (v Version) Minor() uint8 {
	return uint8(v >> 8)
}

// Patch returns the patch component.
func (v Version) Patch() uint8 {
	return uint8(v)
}

// IsNewerThan reports whether v is strictly newer than o.
func (v Version) IsNewerThan(o Version) bool {
	return v > o
}

// IsNewerThanOrEquals reports whether v is newer than or equal to o.
func (v Version) IsNewerThanOrEquals(o Version) bool {
	return v >= o
}

// IsOlderThan reports whether v is strictly older than o.
func (v Version) IsOlderThan(o Version) bool {
	return v < o
}

// IsOlderThanOrEquals reports whether v is older than or equal to o.
func (v Version) IsOlderThanOrEquals(o Version) bool {
	return v <= o
}

// Compare returns -1, 0 or +1 depending on whether v is older than, equal to
// or newer than o.
func (v Version) Compare(o Version) int {
	switch {
	case v < o:
		return -1
	case v > o:
		return 1
	default:
		return 0
	}
}

// String formats v as "major.minor" or "major.minor.patch".
func (v Version) String() string {
	if v == Unknown {
		return "unknown"
	}
	if v.Patch() == 0 {
		return fmt.Sprintf("%d.%d", v.Major(), v.Minor())
	}

	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed

	return nil
}

// Parse parses "major.minor" or "major.minor.patch". A leading "v" and a
// "v1_8_8" style underscore form are accepted as well.
//
// Returns:
//   - Version: Parsed version
//   - error: ErrInvalidVersion if the text is malformed or a component exceeds 255
func Parse(s string) (Version, error) {
	text := strings.TrimPrefix(strings.TrimSpace(s), "v")
	text = strings.ReplaceAll(text, "_", ".")

	parts := strings.Split(text, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return Unknown, fmt.Errorf("%w: %q", errs.ErrInvalidVersion, s)
	}

	var comps [3]uint8
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return Unknown, fmt.Errorf("%w: %q", errs.ErrInvalidVersion, s)
		}
		comps[i] = uint8(n)
	}

	v := New(comps[0], comps[1], comps[2])
	if v == Unknown {
		return Unknown, fmt.Errorf("%w: %q", errs.ErrInvalidVersion, s)
	}

	return v, nil
}

// MustParse is like Parse but panics on error. It is intended for constants
// and tests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}

	return v
}

// Source supplies the running server's version.
type Source interface {
	ServerVersion() Version
}

// Fixed is a Source that always returns the same version.
type Fixed Version

var _ Source = Fixed(0)

// ServerVersion implements Source.
func (f Fixed) ServerVersion() Version {
	return Version(f)
}
