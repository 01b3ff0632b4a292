package mapchunk

import (
	"github.com/bits-and-blooms/bitset"
	"go.uber.org/zap"

	"github.com/arloliu/chunkfield/bitmask"
	"github.com/arloliu/chunkfield/internal/hash"
	"github.com/arloliu/chunkfield/layout"
	"github.com/arloliu/chunkfield/nested"
	"github.com/arloliu/chunkfield/structure"
)

// Field positions per layout, counted among fields of the same type.
const (
	inlineChunkXIndex  = 0 // Legacy and IntermediateWrapped
	inlineChunkZIndex  = 1
	inlineMaskIndex    = 2 // Legacy only
	currentChunkXIndex = 1
	currentChunkZIndex = 2
	currentBitSetIndex = 0

	fullChunkIndex = 0 // absent on Current
	dataIndex      = 0 // packet or delegate

	delegateSlotIndex = 0 // delegate slot within the packet
	delegateMaskIndex = 0 // mask within the delegate
)

// Packet accesses the logical fields of one borrowed packet.
type Packet struct {
	binding  *Binding
	handle   *structure.Handle
	delegate *nested.Delegate // IntermediateWrapped only, loaded on first use
}

// Binding returns the binding the packet was wrapped with.
func (p *Packet) Binding() *Binding {
	return p.binding
}

// Raw returns the wrapped packet pointer.
func (p *Packet) Raw() any {
	return p.handle.Pointer()
}

// ChunkX returns the chunk column's X coordinate.
func (p *Packet) ChunkX() (int32, error) {
	if p.binding.variant == layout.Current {
		return structure.Read[int32](p.handle, currentChunkXIndex)
	}

	return structure.Read[int32](p.handle, inlineChunkXIndex)
}

// SetChunkX sets the chunk column's X coordinate.
func (p *Packet) SetChunkX(x int32) error {
	if p.binding.variant == layout.Current {
		return structure.Write(p.handle, currentChunkXIndex, x)
	}

	return structure.Write(p.handle, inlineChunkXIndex, x)
}

// ChunkZ returns the chunk column's Z coordinate.
func (p *Packet) ChunkZ() (int32, error) {
	if p.binding.variant == layout.Current {
		return structure.Read[int32](p.handle, currentChunkZIndex)
	}

	return structure.Read[int32](p.handle, inlineChunkZIndex)
}

// SetChunkZ sets the chunk column's Z coordinate.
func (p *Packet) SetChunkZ(z int32) error {
	if p.binding.variant == layout.Current {
		return structure.Write(p.handle, currentChunkZIndex, z)
	}

	return structure.Write(p.handle, inlineChunkZIndex, z)
}

// Sections returns the sections present in the packet. The result is a copy;
// modifying it does not change the packet. It is never nil.
func (p *Packet) Sections() (*bitset.BitSet, error) {
	switch p.binding.variant {
	case layout.Current:
		bits, err := structure.Read[*bitset.BitSet](p.handle, currentBitSetIndex)
		if err != nil {
			return nil, err
		}

		return bitmask.Clone(bits), nil
	case layout.IntermediateWrapped:
		mask, err := p.delegateMask()
		if err != nil {
			return nil, err
		}

		return bitmask.Widen(mask), nil
	default:
		mask, err := structure.Read[int32](p.handle, inlineMaskIndex)
		if err != nil {
			return nil, err
		}

		return bitmask.Widen(uint32(mask)), nil
	}
}

// SetSections sets the sections present in the packet. A nil set means no
// sections.
//
// On layouts storing a 32-bit mask it fails with errs.ErrSectionOverflow,
// leaving the packet unchanged, when bits holds a section at or above 32.
func (p *Packet) SetSections(bits *bitset.BitSet) error {
	if p.binding.variant == layout.Current {
		return structure.Write(p.handle, currentBitSetIndex, bitmask.Clone(bits))
	}

	mask, err := bitmask.NarrowExact(bits)
	if err != nil {
		return err
	}

	return p.writeMask(mask)
}

// PrimaryBitMask returns the section mask as a 32-bit integer.
//
// Deprecated: on Current layouts sections 32 and above are dropped. Use
// Sections.
func (p *Packet) PrimaryBitMask() (uint32, error) {
	switch p.binding.variant {
	case layout.Current:
		bits, err := structure.Read[*bitset.BitSet](p.handle, currentBitSetIndex)
		if err != nil {
			return 0, err
		}
		if dropped := bitmask.Overflow(bits); dropped > 0 {
			p.binding.logger.Warn("section mask truncated to 32 sections",
				zap.Uint("dropped_sections", dropped),
				zap.Uints("sections", bitmask.Sections(bits)),
			)
		}

		return bitmask.Narrow(bits), nil //nolint:staticcheck // loss logged above
	case layout.IntermediateWrapped:
		return p.delegateMask()
	default:
		mask, err := structure.Read[int32](p.handle, inlineMaskIndex)
		if err != nil {
			return 0, err
		}

		return uint32(mask), nil
	}
}

// SetPrimaryBitMask sets the section mask from a 32-bit integer.
//
// Deprecated: on Current layouts the whole bit-set is replaced, clearing
// sections 32 and above. Use SetSections.
func (p *Packet) SetPrimaryBitMask(mask uint32) error {
	if p.binding.variant != layout.Current {
		return p.writeMask(mask)
	}

	old, err := structure.Read[*bitset.BitSet](p.handle, currentBitSetIndex)
	if err != nil {
		return err
	}
	if cleared := bitmask.Overflow(old); cleared > 0 {
		p.binding.logger.Warn("32-bit section mask write cleared upper sections",
			zap.Uint("cleared_sections", cleared),
			zap.Uint32("mask", mask),
		)
	}

	return structure.Write(p.handle, currentBitSetIndex, bitmask.Widen(mask))
}

// SetPrimaryBitMap is an alias of SetPrimaryBitMask.
//
// Deprecated: use SetSections.
func (p *Packet) SetPrimaryBitMap(mask uint32) error {
	return p.SetPrimaryBitMask(mask)
}

// GroundUpContinuous reports whether the packet replaces the whole chunk
// column rather than only the sections it carries. The flag is absent on
// Current layouts.
func (p *Packet) GroundUpContinuous() (Optional[bool], error) {
	if !p.binding.variant.HasFullReplaceFlag() {
		return None[bool](), nil
	}

	full, err := structure.Read[bool](p.handle, fullChunkIndex)
	if err != nil {
		return None[bool](), err
	}

	return Some(full), nil
}

// SetGroundUpContinuous sets the full-replace flag. It does nothing on
// Current layouts.
func (p *Packet) SetGroundUpContinuous(full bool) error {
	if !p.binding.variant.HasFullReplaceFlag() {
		return nil
	}

	return structure.Write(p.handle, fullChunkIndex, full)
}

// Data returns the chunk payload. The slice is shared with the packet.
func (p *Packet) Data() ([]byte, error) {
	if p.binding.variant.IsWrapped() {
		d, err := p.loadDelegate()
		if err != nil {
			return nil, err
		}

		return structure.Read[[]byte](d.Accessor(), dataIndex)
	}

	return structure.Read[[]byte](p.handle, dataIndex)
}

// SetData sets the chunk payload. The slice is stored, not copied.
func (p *Packet) SetData(data []byte) error {
	if ce := p.binding.logger.Check(zap.DebugLevel, "chunk payload set"); ce != nil {
		ce.Write(zap.Int("bytes", len(data)), zap.Uint64("xxh64", hash.Payload(data)))
	}

	if !p.binding.variant.IsWrapped() {
		return structure.Write(p.handle, dataIndex, data)
	}

	d, err := p.loadDelegate()
	if err != nil {
		return err
	}
	if err := structure.Write(d.Accessor(), dataIndex, data); err != nil {
		return err
	}

	return p.writeBack()
}

// writeMask stores a 32-bit mask on a non-Current layout.
func (p *Packet) writeMask(mask uint32) error {
	if !p.binding.variant.IsWrapped() {
		return structure.Write(p.handle, inlineMaskIndex, int32(mask))
	}

	d, err := p.loadDelegate()
	if err != nil {
		return err
	}
	if err := structure.Write(d.Accessor(), delegateMaskIndex, int32(mask)); err != nil {
		return err
	}

	return p.writeBack()
}

func (p *Packet) delegateMask() (uint32, error) {
	d, err := p.loadDelegate()
	if err != nil {
		return 0, err
	}

	mask, err := structure.Read[int32](d.Accessor(), delegateMaskIndex)
	if err != nil {
		return 0, err
	}

	return uint32(mask), nil
}

// loadDelegate returns the cached delegate. On first use it copies the
// packet's nested structure, or constructs a new one when the slot is empty.
func (p *Packet) loadDelegate() (*nested.Delegate, error) {
	if p.delegate != nil {
		return p.delegate, nil
	}

	b := p.binding
	slot, err := p.handle.ReadField(delegateSlotIndex, b.delegateType)
	if err != nil {
		return nil, err
	}

	d, err := b.resolver.Adopt(b.delegateType, slot)
	if err != nil {
		return nil, err
	}
	if d == nil {
		if d, err = b.resolver.Instantiate(b.delegateType); err != nil {
			return nil, err
		}
	}
	p.delegate = d

	return d, nil
}

// writeBack stores the delegate into the packet's slot.
func (p *Packet) writeBack() error {
	return p.handle.WriteField(delegateSlotIndex, p.binding.delegateType, p.delegate.Value())
}
