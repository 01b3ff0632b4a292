package mapchunk

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/arloliu/chunkfield/bitmask"
	"github.com/arloliu/chunkfield/errs"
	"github.com/arloliu/chunkfield/internal/nms"
	"github.com/arloliu/chunkfield/layout"
	"github.com/arloliu/chunkfield/nested"
	"github.com/arloliu/chunkfield/version"
)

func bindAndWrap(t *testing.T, raw any, v version.Version, opts ...Option) *Packet {
	t.Helper()

	b, err := Bind(reflect.TypeOf(raw), v, opts...)
	require.NoError(t, err)

	p, err := b.Wrap(raw)
	require.NoError(t, err)

	return p
}

func allSections() *bitset.BitSet {
	bits := bitset.New(bitmask.MaxSections)
	for i := uint(0); i < bitmask.MaxSections; i++ {
		bits.Set(i)
	}

	return bits
}

func TestBind(t *testing.T) {
	tests := []struct {
		name     string
		packet   any
		v        version.Version
		variant  layout.Variant
		delegate reflect.Type
	}{
		{"legacy 1.7.10", &nms.LegacyPacket{}, version.V1_7_10, layout.Legacy, nil},
		{"legacy 1.16.5", &nms.LegacyPacket{}, version.V1_16_5, layout.Legacy, nil},
		{"wrapped 1.8.8", &nms.WrappedPacket{}, version.V1_8_8, layout.IntermediateWrapped, reflect.TypeFor[nms.ChunkMap]()},
		{"current 1.17", &nms.CurrentPacket{}, version.V1_17, layout.Current, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Bind(reflect.TypeOf(tt.packet), tt.v)
			require.NoError(t, err)

			require.Equal(t, tt.variant, b.Variant())
			require.Equal(t, tt.v, b.Version())
			require.Equal(t, reflect.TypeOf(tt.packet).Elem(), b.PacketType())
			require.Equal(t, tt.delegate, b.DelegateType())
		})
	}
}

func TestBind_Errors(t *testing.T) {
	t.Run("not a struct", func(t *testing.T) {
		_, err := Bind(reflect.TypeFor[int](), version.V1_8_8)
		require.ErrorIs(t, err, errs.ErrNotStruct)

		_, err = Bind(nil, version.V1_8_8)
		require.ErrorIs(t, err, errs.ErrNotStruct)
	})

	t.Run("wrapped layout without nested type", func(t *testing.T) {
		_, err := Bind(reflect.TypeFor[nms.LegacyPacket](), version.V1_8_8)
		require.ErrorIs(t, err, errs.ErrNoNestedType)
	})

	t.Run("invalid policy", func(t *testing.T) {
		bad := layout.Policy{WrappedAfter: version.V1_7_10, WrappedBefore: version.V1_18, CurrentFrom: version.V1_17}
		_, err := Bind(reflect.TypeFor[nms.LegacyPacket](), version.V1_8_8, WithPolicy(bad))
		require.ErrorIs(t, err, errs.ErrInvalidPolicy)
	})
}

func TestBind_Options(t *testing.T) {
	t.Run("two-way policy keeps 1.8 inline", func(t *testing.T) {
		b, err := Bind(reflect.TypeFor[nms.LegacyPacket](), version.V1_8_8, WithPolicy(layout.TwoWayPolicy(version.V1_17)))
		require.NoError(t, err)
		require.Equal(t, layout.Legacy, b.Variant())
		require.Nil(t, b.DelegateType())
	})

	t.Run("static registry", func(t *testing.T) {
		reg := nested.NewStaticRegistry()
		reg.Register(reflect.TypeFor[nms.WrappedPacket](), 0, reflect.TypeFor[nms.ChunkMap]())

		b, err := Bind(reflect.TypeFor[nms.WrappedPacket](), version.V1_8, WithRegistry(reg), WithLogger(nil))
		require.NoError(t, err)
		require.Equal(t, reflect.TypeFor[nms.ChunkMap](), b.DelegateType())
	})

	t.Run("shared resolver", func(t *testing.T) {
		r := nested.NewResolver(nil)
		b, err := Bind(reflect.TypeFor[nms.WrappedPacket](), version.V1_8, WithResolver(r))
		require.NoError(t, err)

		again, err := r.DelegateType(reflect.TypeFor[nms.WrappedPacket](), 0)
		require.NoError(t, err)
		require.Equal(t, b.DelegateType(), again)
	})

	t.Run("pointer type accepted", func(t *testing.T) {
		b, err := Bind(reflect.TypeFor[*nms.CurrentPacket](), version.V1_18)
		require.NoError(t, err)
		require.Equal(t, reflect.TypeFor[nms.CurrentPacket](), b.PacketType())
	})
}

func TestBind_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	variants := make([]layout.Variant, 32)
	for i := range variants {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := Bind(reflect.TypeFor[nms.WrappedPacket](), version.V1_8_8)
			if err == nil {
				variants[i] = b.Variant()
			}
		}(i)
	}
	wg.Wait()

	for _, v := range variants {
		require.Equal(t, layout.IntermediateWrapped, v)
	}
}

func TestWrap_Errors(t *testing.T) {
	b, err := Bind(reflect.TypeFor[nms.LegacyPacket](), version.V1_12_2)
	require.NoError(t, err)

	_, err = b.Wrap(&nms.CurrentPacket{})
	require.ErrorIs(t, err, errs.ErrPacketTypeMismatch)

	_, err = b.Wrap(nil)
	require.ErrorIs(t, err, errs.ErrNilStructure)

	_, err = b.Wrap(nms.LegacyPacket{})
	require.ErrorIs(t, err, errs.ErrNotStruct)
}

//nolint:staticcheck // exercises the deprecated narrow accessors
func TestPacket_LegacyEndToEnd(t *testing.T) {
	raw := &nms.LegacyPacket{}
	p := bindAndWrap(t, raw, version.V1_12_2)

	require.NoError(t, p.SetChunkX(5))
	require.NoError(t, p.SetChunkZ(-3))
	require.NoError(t, p.SetPrimaryBitMask(0xFFFF))
	require.NoError(t, p.SetGroundUpContinuous(true))
	require.NoError(t, p.SetData([]byte{0x01, 0x02}))

	x, err := p.ChunkX()
	require.NoError(t, err)
	require.Equal(t, int32(5), x)

	z, err := p.ChunkZ()
	require.NoError(t, err)
	require.Equal(t, int32(-3), z)

	mask, err := p.PrimaryBitMask()
	require.NoError(t, err)
	require.Equal(t, uint32(0xFFFF), mask)

	bits, err := p.Sections()
	require.NoError(t, err)
	require.True(t, bitmask.Equal(bitmask.Widen(0xFFFF), bits))

	full, err := p.GroundUpContinuous()
	require.NoError(t, err)
	require.True(t, full.IsPresent())
	require.True(t, full.OrElse(false))

	data, err := p.Data()
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, data)

	// physical placement
	require.Equal(t, int32(5), raw.ChunkX())
	require.Equal(t, int32(-3), raw.ChunkZ())
	require.Equal(t, int32(0xFFFF), raw.SectionMask())
	require.True(t, raw.FullChunk())
	require.Equal(t, []byte{0x01, 0x02}, raw.Data())
}

//nolint:staticcheck // exercises the deprecated narrow accessors
func TestPacket_WrappedEndToEnd(t *testing.T) {
	raw := &nms.WrappedPacket{}
	p := bindAndWrap(t, raw, version.V1_8_8)

	require.NoError(t, p.SetChunkX(5))
	require.NoError(t, p.SetChunkZ(-3))
	require.NoError(t, p.SetPrimaryBitMask(0xFFFF))
	require.NoError(t, p.SetGroundUpContinuous(false))
	require.NoError(t, p.SetData([]byte{0x01, 0x02}))

	x, err := p.ChunkX()
	require.NoError(t, err)
	require.Equal(t, int32(5), x)

	z, err := p.ChunkZ()
	require.NoError(t, err)
	require.Equal(t, int32(-3), z)

	mask, err := p.PrimaryBitMask()
	require.NoError(t, err)
	require.Equal(t, uint32(0xFFFF), mask)

	data, err := p.Data()
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, data)

	full, err := p.GroundUpContinuous()
	require.NoError(t, err)
	got, ok := full.Get()
	require.True(t, ok)
	require.False(t, got)

	// both delegate fields were written back into the packet's slot
	require.Equal(t, int32(0xFFFF), raw.ChunkMap().SectionMask())
	require.Equal(t, []byte{0x01, 0x02}, raw.ChunkMap().Data())
	require.Equal(t, int32(5), raw.ChunkX())
}

func TestPacket_WrappedWriteBack(t *testing.T) {
	raw := &nms.WrappedPacket{}
	b, err := Bind(reflect.TypeFor[nms.WrappedPacket](), version.V1_8_8)
	require.NoError(t, err)

	writer, err := b.Wrap(raw)
	require.NoError(t, err)
	require.NoError(t, writer.SetSections(bitmask.Widen(0b1011)))
	require.NoError(t, writer.SetData([]byte{0xCA, 0xFE}))

	// a fresh wrapper has no cached delegate and must read the packet's slot
	reader, err := b.Wrap(raw)
	require.NoError(t, err)

	data, err := reader.Data()
	require.NoError(t, err)
	require.Equal(t, []byte{0xCA, 0xFE}, data)

	bits, err := reader.Sections()
	require.NoError(t, err)
	require.Equal(t, []uint{0, 1, 3}, bitmask.Sections(bits))

	// a delegate loaded from an existing slot keeps its other fields
	require.NoError(t, reader.SetData([]byte{0x01}))
	require.Equal(t, int32(0b1011), raw.ChunkMap().SectionMask())
	require.Equal(t, []byte{0x01}, raw.ChunkMap().Data())
}

type pointerMap struct {
	data []byte
	mask int32
}

type pointerWrappedPacket struct {
	x    int32
	z    int32
	m    *pointerMap
	full bool
}

func TestPacket_WrappedPointerSlot(t *testing.T) {
	orig := &pointerMap{data: []byte{7}, mask: 1}
	raw := &pointerWrappedPacket{m: orig}
	p := bindAndWrap(t, raw, version.V1_8_3)
	require.Equal(t, reflect.TypeFor[*pointerMap](), p.Binding().DelegateType())

	require.NoError(t, p.SetData([]byte{8, 9}))

	// the owned delegate replaced the original object in the slot
	require.NotSame(t, orig, raw.m)
	require.Equal(t, []byte{7}, orig.data)
	require.Equal(t, []byte{8, 9}, raw.m.data)
	require.Equal(t, int32(1), raw.m.mask)

	t.Run("empty slot is constructed", func(t *testing.T) {
		raw := &pointerWrappedPacket{}
		p := bindAndWrap(t, raw, version.V1_8_3)

		data, err := p.Data()
		require.NoError(t, err)
		require.Nil(t, data)
		require.Nil(t, raw.m, "getters never attach a delegate")

		require.NoError(t, p.SetPrimaryBitMap(0x3)) //nolint:staticcheck // alias coverage
		require.NotNil(t, raw.m)
		require.Equal(t, int32(0x3), raw.m.mask)
	})
}

//nolint:staticcheck // exercises the deprecated narrow accessors
func TestPacket_CurrentEndToEnd(t *testing.T) {
	raw := &nms.CurrentPacket{}
	p := bindAndWrap(t, raw, version.V1_17_1)

	want := allSections()
	require.NoError(t, p.SetChunkX(5))
	require.NoError(t, p.SetChunkZ(-3))
	require.NoError(t, p.SetSections(want))
	require.NoError(t, p.SetData([]byte{0x01, 0x02}))

	x, err := p.ChunkX()
	require.NoError(t, err)
	require.Equal(t, int32(5), x)

	z, err := p.ChunkZ()
	require.NoError(t, err)
	require.Equal(t, int32(-3), z)

	bits, err := p.Sections()
	require.NoError(t, err)
	require.True(t, bitmask.Equal(want, bits))
	for i := uint(0); i < bitmask.MaxSections; i++ {
		require.True(t, bits.Test(i), "section %d", i)
	}
	require.Equal(t, uint(bitmask.MaxSections), bits.Count())

	data, err := p.Data()
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, data)

	// physical placement: the leading int is untouched
	require.Equal(t, int32(0), raw.BiomeCount())
	require.Equal(t, int32(5), raw.ChunkX())
	require.Equal(t, int32(-3), raw.ChunkZ())
	require.Equal(t, uint(bitmask.MaxSections), raw.Sections().Count())
}

func TestPacket_CurrentSectionsIsolated(t *testing.T) {
	raw := &nms.CurrentPacket{}
	p := bindAndWrap(t, raw, version.V1_17)

	in := bitmask.Widen(0b11)
	require.NoError(t, p.SetSections(in))
	in.Set(100)

	out, err := p.Sections()
	require.NoError(t, err)
	out.Set(101)

	require.Equal(t, []uint{0, 1}, bitmask.Sections(raw.Sections()))

	// nil clears
	require.NoError(t, p.SetSections(nil))
	out, err = p.Sections()
	require.NoError(t, err)
	require.Equal(t, uint(0), out.Count())
}

//nolint:staticcheck // exercises the deprecated narrow accessors
func TestPacket_CurrentLossyNarrowing(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	raw := &nms.CurrentPacket{}
	p := bindAndWrap(t, raw, version.V1_17, WithLogger(zap.New(core)))

	bits, err := bitmask.FromSections(0, 2, 40)
	require.NoError(t, err)
	require.NoError(t, p.SetSections(bits))

	narrow, err := p.PrimaryBitMask()
	require.NoError(t, err)
	require.Equal(t, uint32(0b101), narrow)

	wide, err := p.Sections()
	require.NoError(t, err)
	require.True(t, wide.Test(40))
	require.False(t, bitmask.Equal(wide, bitmask.Widen(narrow)))

	truncated := logs.FilterMessage("section mask truncated to 32 sections").All()
	require.Len(t, truncated, 1)
	require.Equal(t, uint64(1), truncated[0].ContextMap()["dropped_sections"])

	// the narrow setter replaces the set and reports the cleared sections
	require.NoError(t, p.SetPrimaryBitMask(0xF0))
	wide, err = p.Sections()
	require.NoError(t, err)
	require.Equal(t, []uint{4, 5, 6, 7}, bitmask.Sections(wide))
	require.Equal(t, 1, logs.FilterMessage("32-bit section mask write cleared upper sections").Len())

	// no warning when nothing is lost
	_, err = p.PrimaryBitMask()
	require.NoError(t, err)
	require.Len(t, logs.FilterMessage("section mask truncated to 32 sections").All(), 1)
}

func TestPacket_CurrentAbsentFullChunk(t *testing.T) {
	raw := &nms.CurrentPacket{}
	p := bindAndWrap(t, raw, version.V1_18)

	require.NoError(t, p.SetChunkX(12))
	require.NoError(t, p.SetSections(bitmask.Widen(0x7)))
	require.NoError(t, p.SetData([]byte{3}))

	full, err := p.GroundUpContinuous()
	require.NoError(t, err)
	require.False(t, full.IsPresent())
	_, ok := full.Get()
	require.False(t, ok)

	before, err := p.Snapshot()
	require.NoError(t, err)
	rawBefore := *raw

	require.NoError(t, p.SetGroundUpContinuous(true))

	after, err := p.Snapshot()
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.Equal(t, rawBefore, *raw)

	full, err = p.GroundUpContinuous()
	require.NoError(t, err)
	require.False(t, full.IsPresent())
}

func TestPacket_SetSectionsOverflow(t *testing.T) {
	wide, err := bitmask.FromSections(1, 33)
	require.NoError(t, err)

	t.Run("legacy", func(t *testing.T) {
		raw := &nms.LegacyPacket{}
		p := bindAndWrap(t, raw, version.V1_9)
		require.NoError(t, p.SetSections(bitmask.Widen(0x1)))

		err := p.SetSections(wide)
		require.ErrorIs(t, err, errs.ErrSectionOverflow)
		require.Equal(t, int32(0x1), raw.SectionMask())
	})

	t.Run("wrapped", func(t *testing.T) {
		raw := &nms.WrappedPacket{}
		p := bindAndWrap(t, raw, version.V1_8)

		err := p.SetSections(wide)
		require.ErrorIs(t, err, errs.ErrSectionOverflow)
		require.Equal(t, nms.ChunkMap{}, raw.ChunkMap())
	})
}

func TestPacket_HighBitMask(t *testing.T) {
	raw := &nms.LegacyPacket{}
	p := bindAndWrap(t, raw, version.V1_16_5)

	require.NoError(t, p.SetSections(bitmask.Widen(0x8000_0001)))
	require.Equal(t, int32(-0x7FFF_FFFF), raw.SectionMask())

	bits, err := p.Sections()
	require.NoError(t, err)
	require.Equal(t, []uint{0, 31}, bitmask.Sections(bits))
}

type brokenMap struct {
	data []byte
	mask int32
}

func (b *brokenMap) Init() error { return errors.New("no chunk section storage") }

type brokenPacket struct {
	x    int32
	z    int32
	m    *brokenMap
	full bool
}

func TestPacket_ConstructionError(t *testing.T) {
	raw := &brokenPacket{}
	p := bindAndWrap(t, raw, version.V1_8_8)

	_, err := p.Data()
	require.ErrorIs(t, err, errs.ErrConstruction)

	err = p.SetData([]byte{1})
	require.ErrorIs(t, err, errs.ErrConstruction)

	var ce *errs.ConstructionError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, reflect.TypeFor[*brokenMap](), ce.Type)
	require.Nil(t, raw.m)

	// inline fields are unaffected
	require.NoError(t, p.SetChunkX(1))
	require.Equal(t, int32(1), raw.x)
}

type shortPacket struct {
	x int32
}

func TestPacket_TypeMismatch(t *testing.T) {
	raw := &shortPacket{}
	p := bindAndWrap(t, raw, version.V1_12_2)

	_, err := p.ChunkX()
	require.NoError(t, err)

	_, err = p.ChunkZ()
	require.ErrorIs(t, err, errs.ErrTypeMismatch)

	_, err = p.GroundUpContinuous()
	require.ErrorIs(t, err, errs.ErrTypeMismatch)

	require.ErrorIs(t, p.SetData([]byte{1}), errs.ErrTypeMismatch)
}

func TestPacket_Raw(t *testing.T) {
	raw := &nms.LegacyPacket{}
	p := bindAndWrap(t, raw, version.V1_12_2)

	require.Same(t, raw, p.Raw())
}
