// Package chunkfield reads and writes the logical fields of the server's
// map-chunk packet without knowing which server version defined its layout.
//
// The packet changed shape three times: up to 1.7.10 and again from 1.9 every
// field is inline, the 1.8.x line moved the payload and section mask into a
// nested structure, and 1.17 replaced the 32-bit section mask with a bit-set
// and dropped the full-replace flag. This package hides those differences
// behind one set of accessors.
//
// # Basic Usage
//
//	pkt, err := chunkfield.Wrap(&raw, version.Fixed(version.V1_8_8))
//	if err != nil {
//	    return err
//	}
//
//	_ = pkt.SetChunkX(5)
//	_ = pkt.SetData(payload)
//
//	full, _ := pkt.GroundUpContinuous()
//	if v, ok := full.Get(); ok {
//	    fmt.Println("full chunk:", v)
//	}
//
// # Package Structure
//
// This package provides top-level wrappers around the mapchunk package with a
// process-wide binding cache and default settings. Use mapchunk.Bind directly
// to configure a logger, a layout policy or a nested type registry.
package chunkfield

import (
	"reflect"
	"sync"

	"github.com/arloliu/chunkfield/errs"
	"github.com/arloliu/chunkfield/mapchunk"
	"github.com/arloliu/chunkfield/version"
)

type bindingKey struct {
	packetType reflect.Type
	version    version.Version
}

// bindings caches default-option bindings per (packet type, version).
var bindings sync.Map // bindingKey -> *mapchunk.Binding

// Bind returns the default-option binding of packetType for version v.
// Bindings are created once per (type, version) and shared; concurrent
// first calls may both resolve, and the first stored binding wins.
func Bind(packetType reflect.Type, v version.Version) (*mapchunk.Binding, error) {
	if packetType != nil && packetType.Kind() == reflect.Pointer {
		packetType = packetType.Elem()
	}

	key := bindingKey{packetType: packetType, version: v}
	if b, ok := bindings.Load(key); ok {
		return b.(*mapchunk.Binding), nil
	}

	b, err := mapchunk.Bind(packetType, v)
	if err != nil {
		return nil, err
	}

	actual, _ := bindings.LoadOrStore(key, b)

	return actual.(*mapchunk.Binding), nil
}

// MustBind is like Bind but panics on error. It is intended for package-level
// initialization with packet types known to match their version.
func MustBind(packetType reflect.Type, v version.Version) *mapchunk.Binding {
	b, err := Bind(packetType, v)
	if err != nil {
		panic(err)
	}

	return b
}

// Wrap returns a Packet over packet, a pointer to a packet struct, using the
// version reported by src.
//
// Parameters:
//   - packet: Pointer to the packet struct; borrowed, not copied
//   - src: Source of the running server's version
//
// Returns:
//   - *mapchunk.Packet: Accessor confined to the caller's goroutine
//   - error: ErrNilStructure, ErrNotStruct or a binding error
func Wrap(packet any, src version.Source) (*mapchunk.Packet, error) {
	if src == nil {
		return nil, errs.ErrInvalidVersion
	}

	return WrapVersion(packet, src.ServerVersion())
}

// WrapVersion is like Wrap with an explicit version.
func WrapVersion(packet any, v version.Version) (*mapchunk.Packet, error) {
	if packet == nil {
		return nil, errs.ErrNilStructure
	}

	b, err := Bind(reflect.TypeOf(packet), v)
	if err != nil {
		return nil, err
	}

	return b.Wrap(packet)
}
