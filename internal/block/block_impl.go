package block

import (
	"fmt"
	"sort"

	"lsmkv/internal/common"
)

// blockImpl stores a table's cells sorted by key.
type blockImpl struct {
	cells []Cell
}

var _ Block = (*blockImpl)(nil)

// NewBlock wraps cells, which must be sorted by strictly increasing key.
func NewBlock(cells []Cell) Block {
	for i := 1; i < len(cells); i++ {
		if cells[i].Key <= cells[i-1].Key {
			panic(fmt.Sprintf("block: cell %d key %d out of order after %d", i, cells[i].Key, cells[i-1].Key))
		}
	}
	return &blockImpl{cells: cells}
}

// ReadBlock decodes count cells.
func ReadBlock(r *common.Reader, count int) (Block, error) {
	cells := make([]Cell, count)
	for i := range cells {
		key, err := r.Uint64()
		if err != nil {
			return nil, err
		}
		offset, err := r.Uint64()
		if err != nil {
			return nil, err
		}
		vlen, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		if i > 0 && key <= cells[i-1].Key {
			return nil, fmt.Errorf("cell %d key %d out of order after %d", i, key, cells[i-1].Key)
		}
		cells[i] = Cell{Key: key, Offset: offset, Vlen: vlen}
	}
	return &blockImpl{cells: cells}, nil
}

// WriteBlock encodes every cell of b.
func WriteBlock(w *common.Writer, b Block) error {
	for _, c := range b.Cells() {
		if err := w.PutUint64(c.Key); err != nil {
			return err
		}
		if err := w.PutUint64(c.Offset); err != nil {
			return err
		}
		if err := w.PutUint32(c.Vlen); err != nil {
			return err
		}
	}
	return nil
}

// Get performs binary search to find the cell for the given key.
func (b *blockImpl) Get(key uint64) (Cell, bool) {
	left, right := 0, len(b.cells)
	for left < right {
		mid := (left + right) / 2
		k := b.cells[mid].Key
		if k == key {
			return b.cells[mid], true
		} else if key < k {
			right = mid
		} else {
			left = mid + 1
		}
	}
	return Cell{}, false
}

func (b *blockImpl) Range(low, high uint64) []Cell {
	if low > high {
		return nil
	}
	start := sort.Search(len(b.cells), func(i int) bool { return b.cells[i].Key >= low })
	end := sort.Search(len(b.cells), func(i int) bool { return b.cells[i].Key > high })
	return b.cells[start:end]
}

func (b *blockImpl) Cells() []Cell { return b.cells }

// Len returns the number of cells in this block.
func (b *blockImpl) Len() int {
	return len(b.cells)
}
