package mapchunk

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/arloliu/chunkfield/bitmask"
	"github.com/arloliu/chunkfield/internal/hash"
)

// Snapshot is a layout-independent copy of every logical field.
type Snapshot struct {
	ChunkX int32 `yaml:"chunk_x" cbor:"chunk_x"`
	ChunkZ int32 `yaml:"chunk_z" cbor:"chunk_z"`
	// Sections lists the present sections in ascending order.
	Sections []uint `yaml:"sections" cbor:"sections"`
	// FullChunk is nil when the layout has no full-replace flag.
	FullChunk *bool  `yaml:"full_chunk,omitempty" cbor:"full_chunk,omitempty"`
	Data      []byte `yaml:"data" cbor:"data"`
}

// Bits returns the sections as a bit-set.
func (s Snapshot) Bits() (*bitset.BitSet, error) {
	return bitmask.FromSections(s.Sections...)
}

// Fingerprint returns the xxHash64 of the payload.
func (s Snapshot) Fingerprint() uint64 {
	return hash.Payload(s.Data)
}

// Snapshot reads every logical field. The payload slice is copied.
func (p *Packet) Snapshot() (Snapshot, error) {
	var s Snapshot
	var err error

	if s.ChunkX, err = p.ChunkX(); err != nil {
		return Snapshot{}, fmt.Errorf("chunk x: %w", err)
	}
	if s.ChunkZ, err = p.ChunkZ(); err != nil {
		return Snapshot{}, fmt.Errorf("chunk z: %w", err)
	}

	bits, err := p.Sections()
	if err != nil {
		return Snapshot{}, fmt.Errorf("sections: %w", err)
	}
	s.Sections = bitmask.Sections(bits)

	full, err := p.GroundUpContinuous()
	if err != nil {
		return Snapshot{}, fmt.Errorf("full chunk: %w", err)
	}
	s.FullChunk = full.Ptr()

	data, err := p.Data()
	if err != nil {
		return Snapshot{}, fmt.Errorf("data: %w", err)
	}
	if data != nil {
		s.Data = append([]byte(nil), data...)
	}

	return s, nil
}

// Apply writes every field of s. A nil FullChunk leaves the flag untouched.
// Fields are written in declaration order and the first error stops the
// application, so a failed Apply may leave earlier fields written.
func (p *Packet) Apply(s Snapshot) error {
	bits, err := s.Bits()
	if err != nil {
		return fmt.Errorf("sections: %w", err)
	}

	if err := p.SetChunkX(s.ChunkX); err != nil {
		return fmt.Errorf("chunk x: %w", err)
	}
	if err := p.SetChunkZ(s.ChunkZ); err != nil {
		return fmt.Errorf("chunk z: %w", err)
	}
	if err := p.SetSections(bits); err != nil {
		return fmt.Errorf("sections: %w", err)
	}
	if s.FullChunk != nil {
		if err := p.SetGroundUpContinuous(*s.FullChunk); err != nil {
			return fmt.Errorf("full chunk: %w", err)
		}
	}
	if err := p.SetData(s.Data); err != nil {
		return fmt.Errorf("data: %w", err)
	}

	return nil
}
