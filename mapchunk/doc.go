// Package mapchunk exposes the logical fields of the map-chunk packet
// independently of the server version that defined its physical layout.
//
// # Overview
//
// A Binding ties a packet struct type to a server version. The layout is
// resolved once, when the binding is created, and every accessor dispatches
// on that pre-resolved layout:
//
//	| Logical field      | Legacy        | IntermediateWrapped     | Current            |
//	|--------------------|---------------|-------------------------|--------------------|
//	| chunk X (int32)    | int32 #0      | int32 #0                | int32 #1           |
//	| chunk Z (int32)    | int32 #1      | int32 #1                | int32 #2           |
//	| section mask       | int32 #2      | delegate int32 #0       | *bitset.BitSet #0  |
//	| full-replace flag  | bool #0       | bool #0                 | absent             |
//	| payload            | []byte #0     | delegate []byte #0      | []byte #0          |
//
// "#n" is the position among the packet's fields of that type, see package
// structure. The IntermediateWrapped layout keeps the section mask and the
// payload in a nested structure (the delegate) held by the packet.
//
// # Basic Usage
//
//	binding, err := mapchunk.Bind(reflect.TypeOf(serverPacket{}), version.V1_8_8)
//	if err != nil {
//	    return err
//	}
//
//	pkt, err := binding.Wrap(&raw)
//	if err != nil {
//	    return err
//	}
//
//	_ = pkt.SetChunkX(5)
//	_ = pkt.SetChunkZ(-3)
//	sections, _ := pkt.Sections()
//
// # Absent Fields
//
// The full-replace flag does not exist on Current layouts. Its getter then
// returns an empty Optional and its setter does nothing. No error is
// returned: callers probing fields across versions are expected to check
// the Optional.
//
// # Section Masks
//
// Sections and SetSections are the primary accessors and use the bit-set
// representation everywhere. On layouts storing a 32-bit mask SetSections
// fails with errs.ErrSectionOverflow instead of truncating.
//
// PrimaryBitMask and SetPrimaryBitMask are deprecated narrow accessors. On
// Current layouts they cannot represent sections 32 and above:
// PrimaryBitMask drops them and SetPrimaryBitMask clears them. Both log a
// warning when that happens.
//
// # Delegates and Write-Back
//
// On IntermediateWrapped layouts the first access to a delegate-backed field
// copies the packet's nested structure into a delegate owned by the Packet,
// or constructs a new one when the packet holds none. Setters mutate the
// delegate and then store the whole delegate back into the packet's slot.
// Changes made to the nested structure behind the Packet's back after the
// delegate was loaded are not observed.
//
// # Thread Safety
//
// A Binding is immutable and safe for concurrent use. A Packet is not: it
// must be confined to one goroutine, like the packet it wraps.
package mapchunk
