package block

// CellSize is the encoded size of one cell: key(8) + offset(8) + vlen(4).
const CellSize = 20

// Cell locates the value of one key in the value log. A zero Vlen marks a
// tombstone.
type Cell struct {
	Key    uint64
	Offset uint64
	Vlen   uint32
}

// IsTombstone reports whether the cell records a delete.
func (c Cell) IsTombstone() bool { return c.Vlen == 0 }

// Block provides fast key lookups over a table's sorted cells.
type Block interface {
	// Get returns the cell for the given key. Returns (cell, true) if found, (Cell{}, false) if not.
	Get(key uint64) (Cell, bool)

	// Range returns the cells with keys in [low, high], ascending.
	Range(low, high uint64) []Cell

	// Cells returns every cell in key order.
	Cells() []Cell

	// Len returns the number of cells in this block.
	Len() int
}
