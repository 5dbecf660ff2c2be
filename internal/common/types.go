package common

import "encoding/binary"

// Value is either a live byte string or a tombstone recording a delete.
// The zero Value is an empty live value.
type Value struct {
	data      []byte
	tombstone bool
}

// Tombstone marks a deleted key.
var Tombstone = Value{tombstone: true}

// Live wraps data as a live value. The slice is not copied.
func Live(data []byte) Value {
	return Value{data: data}
}

func (v Value) IsTombstone() bool { return v.tombstone }

// Bytes returns the live payload, or nil for a tombstone.
func (v Value) Bytes() []byte { return v.data }

// Len returns the on-disk length of the value. Tombstones have length 0.
func (v Value) Len() int {
	if v.tombstone {
		return 0
	}
	return len(v.data)
}

// Pair is a key with its live value, as returned by range scans.
type Pair struct {
	Key   uint64
	Value []byte
}

// KeyBytes returns the little-endian encoding of key, the form hashed by
// bloom filters and checksummed by the value log.
func KeyBytes(key uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	return buf[:]
}
