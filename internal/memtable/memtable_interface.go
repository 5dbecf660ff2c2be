package memtable

import (
	"lsmkv/internal/sstable"
	"lsmkv/internal/vlog"
)

// ValueLog receives a flushed memtable's values.
type ValueLog interface {
	// AppendBatch writes entries in order and returns one offset per
	// entry, 0 for tombstones.
	AppendBatch(entries []vlog.Entry) ([]uint64, error)
}

// Catalog receives a flushed memtable's table.
type Catalog interface {
	// NextTimestamp allocates the timestamp of a new table.
	NextTimestamp() uint64

	// NewTablePath reserves a file path for a table at level stamped ts.
	NewTablePath(level int, ts uint64) (string, error)

	// Register adds a written table to level.
	Register(level int, t *sstable.Table)
}
