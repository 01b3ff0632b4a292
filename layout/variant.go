// Package layout classifies a server version into one of the physical
// layouts of the map-chunk packet.
//
// Three layouts exist:
//
//   - Legacy: every field is inline; the section mask is the third int field.
//   - IntermediateWrapped: the 1.8.x line, where the section mask and the
//     payload live in a nested sub-structure held by the packet.
//   - Current: 1.17 and newer; the section mask is a bit-set able to describe
//     up to 127 sections and the full-replace flag no longer exists.
//
// Resolution is a pure function of the version and the Policy boundaries.
package layout

// Variant identifies a physical packet layout.
type Variant uint8

const (
	Legacy              Variant = 0x1 // Legacy represents the inline pre-1.17 layout.
	IntermediateWrapped Variant = 0x2 // IntermediateWrapped represents the nested-delegate layout.
	Current             Variant = 0x3 // Current represents the bit-set layout.
)

func (v Variant) String() string {
	switch v {
	case Legacy:
		return "Legacy"
	case IntermediateWrapped:
		return "IntermediateWrapped"
	case Current:
		return "Current"
	default:
		return "Unknown"
	}
}

// IsWrapped reports whether the layout keeps fields in a nested delegate.
func (v Variant) IsWrapped() bool {
	return v == IntermediateWrapped
}

// HasBitSet reports whether the section mask is stored as a bit-set.
func (v Variant) HasBitSet() bool {
	return v == Current
}

// HasFullReplaceFlag reports whether the layout carries the full-replace flag.
func (v Variant) HasFullReplaceFlag() bool {
	return v != Current
}

// MaxSections returns the number of sections the layout's mask can describe.
func (v Variant) MaxSections() int {
	if v == Current {
		return 127
	}

	return 32
}
