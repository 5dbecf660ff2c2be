package sstable

import (
	"errors"

	"lsmkv/internal/block"
	"lsmkv/internal/filter"
)

// Table File Layout (all integers little-endian):
//
//                 ┌────────────────┐
//                 │     Header     │  timestamp u64 | count u64 | minKey u64 | maxKey u64
//             32 -├────────────────┤
//                 │  Bloom Filter  │  filter.NumSlots x u32
//           8224 -├────────────────┤
//                 │     Cell 0     │  key u64 | offset u64 | vlen u32
//                 ├────────────────┤
//                 │       ...      │  count cells, sorted by key (no duplicates)
//                 ├────────────────┤
//                 │  Cell count-1  │
//                 └────────────────┘
//
// A cell with vlen 0 is a tombstone. Values live in the value log at the
// cell's offset.

const (
	// HeaderSize is the size of the fixed table header.
	HeaderSize = 32

	// FixedSize is the size of a table with no cells.
	FixedSize = HeaderSize + filter.EncodedSize

	// MaxTableBytes caps the size of a table file.
	MaxTableBytes = 16 * 1024

	// MaxCells is the number of cells that fit in a MaxTableBytes file.
	MaxCells = (MaxTableBytes - FixedSize) / block.CellSize
)

// ErrCorruptTable is returned when a table file cannot be decoded.
var ErrCorruptTable = errors.New("sstable: corrupt table")

// Cell locates one key's value in the value log.
type Cell = block.Cell

// EncodedSize returns the file size of a table holding count cells.
func EncodedSize(count int) int {
	return FixedSize + count*block.CellSize
}
