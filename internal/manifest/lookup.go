package manifest

import (
	"fmt"

	"lsmkv/internal/common"
	"lsmkv/internal/sstable"

	"github.com/google/btree"
)

// Lookup returns the newest cell for key across all tables, which may be
// a tombstone. The table with the highest timestamp wins; on equal
// timestamps the shallower level wins.
func (m *Manifest) Lookup(key uint64) (sstable.Cell, bool) {
	var best sstable.Cell
	var bestTs uint64
	found := false

	v := m.Current()
	for _, tables := range v.Levels {
		for _, t := range tables {
			if found && t.Timestamp <= bestTs {
				continue
			}
			c, ok := t.Lookup(key)
			if !ok {
				continue
			}
			best, bestTs, found = c, t.Timestamp, true
		}
	}
	return best, found
}

// Get returns the newest live value for key and its value-log offset.
// A tombstone or a miss reports found=false.
func (m *Manifest) Get(key uint64) (value []byte, offset uint64, found bool, err error) {
	c, ok := m.Lookup(key)
	if !ok || c.IsTombstone() {
		common.Debug().Uint64("key", key).Bool("tombstone", ok).Msg("table lookup miss")
		return nil, 0, false, nil
	}
	value, err = m.values.Read(c.Offset, c.Vlen)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to read value of key %d: %w", key, err)
	}
	return value, c.Offset, true, nil
}

// scanItem is the newest cell seen so far for one key during a scan.
type scanItem struct {
	cell sstable.Cell
	ts   uint64
}

func scanItemLess(a, b scanItem) bool { return a.cell.Key < b.cell.Key }

// Scan returns the newest cell of every key in [low, high] that is live,
// ascending by key. Tombstones take part in conflict resolution and are
// then dropped.
func (m *Manifest) Scan(low, high uint64) []sstable.Cell {
	acc := btree.NewG[scanItem](32, scanItemLess)

	v := m.Current()
	for _, tables := range v.Levels {
		for _, t := range tables {
			for _, c := range t.Range(low, high) {
				probe := scanItem{cell: sstable.Cell{Key: c.Key}}
				if prev, ok := acc.Get(probe); ok && prev.ts >= t.Timestamp {
					continue
				}
				acc.ReplaceOrInsert(scanItem{cell: c, ts: t.Timestamp})
			}
		}
	}

	cells := make([]sstable.Cell, 0, acc.Len())
	acc.Ascend(func(item scanItem) bool {
		if !item.cell.IsTombstone() {
			cells = append(cells, item.cell)
		}
		return true
	})
	return cells
}

// ReadValue fetches the value addressed by c.
func (m *Manifest) ReadValue(c sstable.Cell) ([]byte, error) {
	return m.values.Read(c.Offset, c.Vlen)
}
