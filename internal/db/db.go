package db

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"lsmkv/internal/common"
	"lsmkv/internal/manifest"
	"lsmkv/internal/memtable"
	"lsmkv/internal/vlog"
)

var (
	// ErrEmptyValue is returned by Put. A zero-length value is how a
	// delete is recorded on disk.
	ErrEmptyValue = errors.New("db: value must be non-empty")

	ErrClosed = errors.New("db: closed")
)

// DB routes operations across one memtable, the value log and the table
// catalog. It assumes a single writer; the lock only keeps readers off
// state being swapped by a flush.
type DB struct {
	mu       sync.RWMutex
	memtable *memtable.Memtable
	vlog     *vlog.ValueLog
	manifest *manifest.Manifest
	Opts     Options
	closed   bool
}

func Open(optFns ...Option) (*DB, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", opts.Dir, err)
	}

	vlogPath := opts.ValueLogPath
	if vlogPath == "" {
		vlogPath = filepath.Join(opts.Dir, "vlog")
	}
	vl, err := vlog.Open(vlogPath)
	if err != nil {
		return nil, err
	}

	m, err := manifest.Open(opts.Dir, vl, manifest.Options{
		Level0Capacity: opts.Level0Capacity,
		MaxTableKeys:   opts.MaxTableKeys,
	})
	if err != nil {
		vl.Close()
		return nil, fmt.Errorf("failed to load tables: %w", err)
	}

	common.Info().
		Str("dir", opts.Dir).
		Uint64("head", vl.Head()).
		Uint64("tail", vl.Tail()).
		Int("tables", m.Current().NumTables()).
		Msg("store opened")

	return &DB{
		memtable: memtable.New(opts.MemtableMaxBytes),
		vlog:     vl,
		manifest: m,
		Opts:     opts,
	}, nil
}

// Put stores value under key.
func (d *DB) Put(key uint64, value []byte) error {
	if len(value) == 0 {
		return ErrEmptyValue
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return d.put(key, common.Live(bytes.Clone(value)))
}

// put writes to the memtable, flushing first if it is full.
// Must be called with d.mu held.
func (d *DB) put(key uint64, v common.Value) error {
	if d.memtable.Put(key, v) {
		return nil
	}
	if err := d.flushMemtable(); err != nil {
		return err
	}
	if !d.memtable.Put(key, v) {
		panic(fmt.Sprintf("db: empty memtable rejected key %d", key))
	}
	return nil
}

// Get returns the newest value of key. A deleted or never written key
// reports found=false.
func (d *DB) Get(key uint64) ([]byte, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, false, ErrClosed
	}

	if v, ok := d.memtable.Get(key); ok {
		if v.IsTombstone() {
			common.Debug().Uint64("key", key).Msg("tombstone in memtable")
			return nil, false, nil
		}
		return bytes.Clone(v.Bytes()), true, nil
	}

	value, _, found, err := d.manifest.Get(key)
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// Delete removes key and reports whether it held a live value.
func (d *DB) Delete(key uint64) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false, ErrClosed
	}

	if d.memtable.Delete(key) {
		return true, nil
	}
	if _, ok := d.memtable.Get(key); ok {
		// Already a tombstone.
		return false, nil
	}

	c, ok := d.manifest.Lookup(key)
	if !ok || c.IsTombstone() {
		return false, nil
	}
	if err := d.put(key, common.Tombstone); err != nil {
		return false, err
	}
	return true, nil
}

// Scan returns the live pairs with keys in [low, high], ascending.
func (d *DB) Scan(low, high uint64) ([]common.Pair, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrClosed
	}
	if low > high {
		return nil, nil
	}

	type memEntry struct {
		key   uint64
		value common.Value
	}
	var mem []memEntry
	d.memtable.Ascend(low, high, func(key uint64, v common.Value) bool {
		mem = append(mem, memEntry{key, v})
		return true
	})
	cells := d.manifest.Scan(low, high)

	pairs := make([]common.Pair, 0, len(mem)+len(cells))
	i, j := 0, 0
	for i < len(mem) || j < len(cells) {
		if j == len(cells) || (i < len(mem) && mem[i].key <= cells[j].Key) {
			if j < len(cells) && mem[i].key == cells[j].Key {
				j++
			}
			if !mem[i].value.IsTombstone() {
				pairs = append(pairs, common.Pair{Key: mem[i].key, Value: bytes.Clone(mem[i].value.Bytes())})
			}
			i++
			continue
		}

		value, err := d.manifest.ReadValue(cells[j])
		if err != nil {
			return nil, fmt.Errorf("failed to read value of key %d: %w", cells[j].Key, err)
		}
		pairs = append(pairs, common.Pair{Key: cells[j].Key, Value: value})
		j++
	}
	return pairs, nil
}

// Flush writes the memtable to a level-0 table and compacts.
func (d *DB) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return d.flushMemtable()
}

// flushMemtable writes the memtable out, swaps in an empty one and runs
// compaction. Must be called with d.mu held.
func (d *DB) flushMemtable() error {
	if _, err := d.memtable.Flush(d.vlog, d.manifest); err != nil {
		return fmt.Errorf("failed to flush memtable: %w", err)
	}
	d.memtable = memtable.New(d.Opts.MemtableMaxBytes)
	return d.manifest.Compact()
}

// Reset drops every key and deletes all table files and the value log.
func (d *DB) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	if err := d.manifest.Reset(); err != nil {
		return err
	}
	if err := d.vlog.Reset(); err != nil {
		return err
	}
	d.memtable = memtable.New(d.Opts.MemtableMaxBytes)
	common.Info().Str("dir", d.Opts.Dir).Msg("store reset")
	return nil
}

// GC reclaims at least chunk bytes from the tail of the value log,
// rewriting still-live values through the memtable. A zero chunk uses
// Opts.GCChunkSize.
func (d *DB) GC(chunk uint64) (vlog.GCStats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return vlog.GCStats{}, ErrClosed
	}
	if chunk == 0 {
		chunk = d.Opts.GCChunkSize
	}
	return d.vlog.GC(chunk, gcAdapter{d})
}

// gcAdapter resolves value-log records against the store. Its methods run
// with d.mu held by GC.
type gcAdapter struct {
	d *DB
}

func (g gcAdapter) IsLatest(key, offset uint64) (bool, error) {
	if _, ok := g.d.memtable.Get(key); ok {
		// The memtable holds a newer value or tombstone.
		return false, nil
	}
	c, ok := g.d.manifest.Lookup(key)
	return ok && !c.IsTombstone() && c.Offset == offset, nil
}

func (g gcAdapter) Rehome(key uint64, value []byte) error {
	return g.d.put(key, common.Live(value))
}

func (g gcAdapter) Commit() error {
	return g.d.flushMemtable()
}

func (d *DB) Memtable() *memtable.Memtable {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.memtable
}

func (d *DB) Manifest() *manifest.Manifest {
	return d.manifest
}

func (d *DB) ValueLog() *vlog.ValueLog {
	return d.vlog
}

// Close flushes the memtable, compacts and releases the value log.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	flushErr := d.flushMemtable()
	if err := d.vlog.Close(); err != nil {
		return err
	}
	return flushErr
}
