package memtable

import (
	"fmt"
	"time"

	"lsmkv/internal/block"
	"lsmkv/internal/common"
	"lsmkv/internal/sstable"
	"lsmkv/internal/vlog"
)

// DefaultMaxBytes matches the size of one table file.
const DefaultMaxBytes = sstable.MaxTableBytes

// Memtable buffers recent writes in key order. Its size is the serialized
// size of the table it would flush to plus the bytes of its live values.
type Memtable struct {
	list     *skiplist
	size     int
	maxBytes int
}

// New returns an empty memtable that fills up at maxBytes.
func New(maxBytes int) *Memtable {
	return &Memtable{
		list:     newSkiplist(time.Now().UnixNano()),
		size:     sstable.FixedSize,
		maxBytes: maxBytes,
	}
}

func entrySize(v common.Value) int {
	return block.CellSize + v.Len()
}

// Put inserts or overwrites key. It returns false without inserting when
// the write would push the memtable past its limit; the caller must flush
// and retry on a fresh memtable. An empty memtable accepts any write.
func (m *Memtable) Put(key uint64, value common.Value) bool {
	newSize := m.size + entrySize(value)
	if old, ok := m.list.get(key); ok {
		newSize -= entrySize(old)
	}
	if newSize > m.maxBytes && m.list.len() > 0 {
		return false
	}
	m.list.set(key, value)
	m.size = newSize
	return true
}

// Get returns the value stored for key. A deleted key is found with a
// tombstone value, which callers must not confuse with absence.
func (m *Memtable) Get(key uint64) (common.Value, bool) {
	return m.list.get(key)
}

// Delete tombstones key if it holds a live value here. It returns false,
// changing nothing, when the key is absent or already deleted; older
// layers may still need a tombstone, which the caller writes with Put.
func (m *Memtable) Delete(key uint64) bool {
	old, ok := m.list.get(key)
	if !ok || old.IsTombstone() {
		return false
	}
	m.list.set(key, common.Tombstone)
	m.size -= old.Len()
	return true
}

// Scan returns the live entries with keys in [low, high], ascending.
func (m *Memtable) Scan(low, high uint64) []common.Pair {
	var pairs []common.Pair
	m.list.ascend(low, high, func(key uint64, v common.Value) bool {
		if !v.IsTombstone() {
			pairs = append(pairs, common.Pair{Key: key, Value: v.Bytes()})
		}
		return true
	})
	return pairs
}

// Ascend calls fn for every entry with key in [low, high], tombstones
// included, stopping early if fn returns false.
func (m *Memtable) Ascend(low, high uint64, fn func(key uint64, v common.Value) bool) {
	m.list.ascend(low, high, fn)
}

// Len returns the number of keys, tombstones included.
func (m *Memtable) Len() int { return m.list.len() }

// Size returns the current accounted size in bytes.
func (m *Memtable) Size() int { return m.size }

// Flush writes every entry to the value log and a new level-0 table, then
// registers the table with cat. An empty memtable flushes to nothing.
func (m *Memtable) Flush(vl ValueLog, cat Catalog) (*sstable.Table, error) {
	if m.list.len() == 0 {
		return nil, nil
	}
	start := time.Now()

	entries := make([]vlog.Entry, 0, m.list.len())
	m.list.ascend(0, ^uint64(0), func(key uint64, v common.Value) bool {
		entries = append(entries, vlog.Entry{Key: key, Value: v.Bytes()})
		return true
	})

	offsets, err := vl.AppendBatch(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to append %d values: %w", len(entries), err)
	}
	if len(offsets) != len(entries) {
		panic(fmt.Sprintf("memtable: %d offsets for %d entries", len(offsets), len(entries)))
	}

	cells := make([]sstable.Cell, len(entries))
	for i, e := range entries {
		cells[i] = sstable.Cell{Key: e.Key, Offset: offsets[i], Vlen: uint32(len(e.Value))}
	}

	ts := cat.NextTimestamp()
	table := sstable.Build(ts, cells)
	path, err := cat.NewTablePath(0, ts)
	if err != nil {
		return nil, err
	}
	if err := table.WriteFile(path); err != nil {
		return nil, err
	}
	cat.Register(0, table)

	common.LogDuration(start, "flushed %d entries to %s", len(cells), path)
	return table, nil
}
