package sstable

import (
	"path/filepath"
	"strings"

	"lsmkv/internal/block"
	"lsmkv/internal/common"
	"lsmkv/internal/filter"
)

// Table is the in-memory image of one table file: its header, bloom filter
// and every cell. It is immutable once built.
type Table struct {
	Timestamp uint64
	MinKey    uint64
	MaxKey    uint64

	filter filter.Filter
	block  block.Block
	path   string
}

// Build creates a table stamped with ts over cells, which must be sorted by
// strictly increasing key and non-empty.
func Build(ts uint64, cells []Cell) *Table {
	if len(cells) == 0 {
		panic("sstable: cannot build a table with no cells")
	}
	f := filter.NewBloomFilter()
	for _, c := range cells {
		f.Insert(c.Key)
	}
	return &Table{
		Timestamp: ts,
		MinKey:    cells[0].Key,
		MaxKey:    cells[len(cells)-1].Key,
		filter:    f,
		block:     block.NewBlock(cells),
	}
}

// Count returns the number of cells, tombstones included.
func (t *Table) Count() int { return t.block.Len() }

// Cells returns every cell in key order. The slice must not be modified.
func (t *Table) Cells() []Cell { return t.block.Cells() }

// Path returns the file backing the table, or "" if it was never written.
func (t *Table) Path() string { return t.path }

// ID returns the file identifier, the base name without extension.
func (t *Table) ID() string {
	return strings.TrimSuffix(filepath.Base(t.path), common.TableExt)
}

// Overlaps reports whether [MinKey, MaxKey] intersects [low, high].
func (t *Table) Overlaps(low, high uint64) bool {
	return t.MinKey <= high && low <= t.MaxKey
}

// Lookup returns the cell for key. It rejects by key range first, then by
// bloom filter, before searching the cells.
func (t *Table) Lookup(key uint64) (Cell, bool) {
	if key < t.MinKey || key > t.MaxKey {
		return Cell{}, false
	}
	if !t.filter.MayContain(key) {
		return Cell{}, false
	}
	return t.block.Get(key)
}

// Range returns the cells with keys in [low, high], ascending.
func (t *Table) Range(low, high uint64) []Cell {
	if !t.Overlaps(low, high) {
		return nil
	}
	return t.block.Range(low, high)
}
