package version

import "sort"

// protocolEntry maps a protocol number to the first server version of the
// release line speaking it.
type protocolEntry struct {
	protocol int
	version  Version
}

// protocols is sorted by protocol number.
var protocols = []protocolEntry{
	{5, New(1, 7, 6)},
	{47, V1_8},
	{107, V1_9},
	{110, New(1, 9, 3)},
	{340, V1_12_2},
	{404, V1_13_2},
	{754, New(1, 16, 4)},
	{755, V1_17},
	{756, V1_17_1},
	{757, V1_18},
}

// FromProtocol maps a client protocol number to a server version.
//
// The result is the first version of the matching release line. Protocol
// numbers between two known entries map to the older entry, and numbers newer
// than the table map to its newest entry. Numbers below the oldest entry
// return Unknown with ok set to false.
func FromProtocol(protocol int) (Version, bool) {
	i := sort.Search(len(protocols), func(i int) bool {
		return protocols[i].protocol > protocol
	})
	if i == 0 {
		return Unknown, false
	}

	return protocols[i-1].version, true
}

// Protocol returns the protocol number of the release line containing v.
// It returns false when v is older than every entry.
func (v Version) Protocol() (int, bool) {
	best, found := 0, false
	for _, e := range protocols {
		if e.version > v {
			break
		}
		best, found = e.protocol, true
	}

	return best, found
}
