// Package bitmask converts between the two physical representations of a
// chunk section mask.
//
// Layouts before 1.17 store the mask as a 32-bit integer where bit i set
// means section i is present. Newer layouts store an arbitrary-length
// bit-set, since a column may hold up to 127 sections.
//
// Widening an integer mask to a bit-set is exact. Narrowing is exact only
// when no section at or above LegacyMaxSections is present:
//
//	bits := bitmask.Widen(0xFFFF)          // sections 0-15
//	mask, err := bitmask.NarrowExact(bits) // 0xFFFF, nil
//
// Narrow truncates instead of failing and is deprecated for that reason.
// Overflow reports how many sections a truncation would drop.
package bitmask

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/arloliu/chunkfield/errs"
)

const (
	// LegacyMaxSections is the number of sections a 32-bit mask describes.
	LegacyMaxSections = 32
	// MaxSections is the number of sections a bit-set mask may describe.
	MaxSections = 127
)

// Widen converts a 32-bit mask to a bit-set. It is lossless.
func Widen(mask uint32) *bitset.BitSet {
	return bitset.From([]uint64{uint64(mask)})
}

// Narrow converts a bit-set to a 32-bit mask, keeping sections 0-31 and
// discarding every section at or above LegacyMaxSections. A nil or empty set
// yields 0.
//
// Deprecated: Narrow is lossy for sets describing more than 32 sections.
// Use NarrowExact, or keep the bit-set representation.
func Narrow(bits *bitset.BitSet) uint32 {
	var mask uint32
	if bits == nil {
		return mask
	}

	for i, ok := bits.NextSet(0); ok && i < LegacyMaxSections; i, ok = bits.NextSet(i + 1) {
		mask |= 1 << i
	}

	return mask
}

// NarrowExact converts a bit-set to a 32-bit mask.
//
// Returns:
//   - uint32: Mask holding sections 0-31
//   - error: ErrSectionOverflow if any section at or above LegacyMaxSections is set
func NarrowExact(bits *bitset.BitSet) (uint32, error) {
	if n := Overflow(bits); n > 0 {
		return 0, fmt.Errorf("%w: %d section(s) at or above %d", errs.ErrSectionOverflow, n, LegacyMaxSections)
	}

	return Narrow(bits), nil
}

// Overflow returns the number of set sections a 32-bit mask cannot hold.
func Overflow(bits *bitset.BitSet) uint {
	if bits == nil {
		return 0
	}

	var n uint
	for i, ok := bits.NextSet(LegacyMaxSections); ok; i, ok = bits.NextSet(i + 1) {
		n++
	}

	return n
}

// FromSections builds a bit-set with the given sections present.
//
// Returns:
//   - *bitset.BitSet: Set with every listed section present
//   - error: ErrSectionOutOfRange if a section is not below MaxSections
func FromSections(sections ...uint) (*bitset.BitSet, error) {
	bits := bitset.New(0)
	for _, s := range sections {
		if s >= MaxSections {
			return nil, fmt.Errorf("%w: %d", errs.ErrSectionOutOfRange, s)
		}
		bits.Set(s)
	}

	return bits, nil
}

// Sections lists the present sections in ascending order.
func Sections(bits *bitset.BitSet) []uint {
	if bits == nil {
		return nil
	}

	out := make([]uint, 0, bits.Count())
	for i, ok := bits.NextSet(0); ok; i, ok = bits.NextSet(i + 1) {
		out = append(out, i)
	}

	return out
}

// Equal reports whether a and b describe the same sections. Unlike
// (*bitset.BitSet).Equal it ignores differences in backing length, and a nil
// set equals an empty one.
func Equal(a, b *bitset.BitSet) bool {
	if a == nil {
		a = bitset.New(0)
	}
	if b == nil {
		b = bitset.New(0)
	}
	if a.Count() != b.Count() {
		return false
	}

	for i, ok := a.NextSet(0); ok; i, ok = a.NextSet(i + 1) {
		if !b.Test(i) {
			return false
		}
	}

	return true
}

// Clone returns an independent copy of bits. A nil set clones to an empty one.
func Clone(bits *bitset.BitSet) *bitset.BitSet {
	if bits == nil {
		return bitset.New(0)
	}

	return bits.Clone()
}
