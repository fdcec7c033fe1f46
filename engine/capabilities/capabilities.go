// Package capabilities converts a device's metric-availability bitset
// into the MetricCapabilities map exchanged during device registration.
package capabilities

import "github.com/bits-and-blooms/bitset"

// MetricCapabilities maps metric-id to its array dimension for a
// device. An id absent from the map means "unavailable" — zero entries
// are suppressed rather than stored, per §6.5.
type MetricCapabilities map[uint32]int

// FromBitset builds a MetricCapabilities map from a bitset of
// "available" flags and a parallel array-count lookup, indexed by
// metric id. available.Test(id) gates inclusion; arrayCounts supplies
// the dimension. Ids with a zero array count are suppressed even if
// their bit is set.
func FromBitset(available *bitset.BitSet, arrayCounts map[uint32]int) MetricCapabilities {
	caps := make(MetricCapabilities)
	for id, count := range arrayCounts {
		if count <= 0 {
			continue
		}
		if !available.Test(uint(id)) {
			continue
		}
		caps[id] = count
	}
	return caps
}

// ToBitset is the inverse of FromBitset: it produces the availability
// bitset and array-count map a registration payload would carry.
func ToBitset(caps MetricCapabilities) (*bitset.BitSet, map[uint32]int) {
	var maxID uint32
	for id := range caps {
		if id > maxID {
			maxID = id
		}
	}
	available := bitset.New(uint(maxID) + 1)
	arrayCounts := make(map[uint32]int, len(caps))
	for id, count := range caps {
		if count <= 0 {
			continue
		}
		available.Set(uint(id))
		arrayCounts[id] = count
	}
	return available, arrayCounts
}
