// Package nms holds reference shapes of the server's map-chunk packet for
// each layout. They stand in for the server classes in tests, the demo and
// the probe command; field names and order match the server, and fields are
// unexported because the server's are private.
package nms

import (
	"fmt"
	"reflect"

	"github.com/bits-and-blooms/bitset"

	"github.com/arloliu/chunkfield/layout"
)

// LegacyPacket is the inline layout used up to 1.7.10 and from 1.9 to 1.16.
type LegacyPacket struct {
	chunkX        int32
	chunkZ        int32
	sectionMask   int32
	data          []byte
	fullChunk     bool
	blockEntities []BlockEntity
}

// ChunkMap is the 1.8 nested structure holding the payload and section mask.
type ChunkMap struct {
	data        []byte
	sectionMask int32
}

// WrappedPacket is the 1.8.x layout.
type WrappedPacket struct {
	chunkX    int32
	chunkZ    int32
	chunkMap  ChunkMap
	fullChunk bool
}

// CurrentPacket is the 1.17+ layout.
type CurrentPacket struct {
	biomeCount    int32
	chunkX        int32
	chunkZ        int32
	sections      *bitset.BitSet
	heightmaps    map[string][]int64
	biomes        []int32
	data          []byte
	blockEntities []BlockEntity
}

// BlockEntity is an opaque block entity entry.
type BlockEntity struct {
	X, Y, Z int32
	ID      string
}

// New returns a zero packet of the layout's shape.
func New(v layout.Variant) (any, error) {
	switch v {
	case layout.Legacy:
		return &LegacyPacket{}, nil
	case layout.IntermediateWrapped:
		return &WrappedPacket{}, nil
	case layout.Current:
		return &CurrentPacket{}, nil
	default:
		return nil, fmt.Errorf("no packet shape for layout %s", v)
	}
}

// TypeFor returns the struct type of the layout's packet.
func TypeFor(v layout.Variant) (reflect.Type, error) {
	p, err := New(v)
	if err != nil {
		return nil, err
	}

	return reflect.TypeOf(p).Elem(), nil
}

// ChunkX returns the raw chunk X coordinate.
func (p *LegacyPacket) ChunkX() int32 { return p.chunkX }

// ChunkZ returns the raw chunk Z coordinate.
func (p *LegacyPacket) ChunkZ() int32 { return p.chunkZ }

// SectionMask returns the raw section mask field.
func (p *LegacyPacket) SectionMask() int32 { return p.sectionMask }

// Data returns the raw payload field.
func (p *LegacyPacket) Data() []byte { return p.data }

// FullChunk returns the raw full-replace flag.
func (p *LegacyPacket) FullChunk() bool { return p.fullChunk }

// ChunkX returns the raw chunk X coordinate.
func (p *WrappedPacket) ChunkX() int32 { return p.chunkX }

// ChunkZ returns the raw chunk Z coordinate.
func (p *WrappedPacket) ChunkZ() int32 { return p.chunkZ }

// ChunkMap returns a copy of the nested chunk map.
func (p *WrappedPacket) ChunkMap() ChunkMap { return p.chunkMap }

// FullChunk returns the raw full-replace flag.
func (p *WrappedPacket) FullChunk() bool { return p.fullChunk }

// SectionMask returns the nested section mask.
func (m ChunkMap) SectionMask() int32 { return m.sectionMask }

// Data returns the nested payload.
func (m ChunkMap) Data() []byte { return m.data }

// ChunkX returns the raw chunk X coordinate.
func (p *CurrentPacket) ChunkX() int32 { return p.chunkX }

// ChunkZ returns the raw chunk Z coordinate.
func (p *CurrentPacket) ChunkZ() int32 { return p.chunkZ }

// BiomeCount returns the raw leading int field.
func (p *CurrentPacket) BiomeCount() int32 { return p.biomeCount }

// Sections returns the raw section bit-set.
func (p *CurrentPacket) Sections() *bitset.BitSet { return p.sections }

// Data returns the raw payload field.
func (p *CurrentPacket) Data() []byte { return p.data }
