package sstable

import (
	"fmt"
	"os"
	"path/filepath"

	"lsmkv/internal/block"
	"lsmkv/internal/common"
	"lsmkv/internal/filter"

	"github.com/google/uuid"
)

// Encode serializes the table into exactly EncodedSize(t.Count()) bytes.
func (t *Table) Encode() ([]byte, error) {
	w := common.NewWriter(EncodedSize(t.Count()))
	for _, v := range []uint64{t.Timestamp, uint64(t.Count()), t.MinKey, t.MaxKey} {
		if err := w.PutUint64(v); err != nil {
			return nil, err
		}
	}
	if err := filter.WriteBloomFilter(w, t.filter); err != nil {
		return nil, err
	}
	if err := block.WriteBlock(w, t.block); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Decode parses a table from its file bytes.
func Decode(data []byte) (*Table, error) {
	r := common.NewReader(data)
	var hdr [4]uint64
	for i := range hdr {
		v, err := r.Uint64()
		if err != nil {
			return nil, fmt.Errorf("%w: header: %v", ErrCorruptTable, err)
		}
		hdr[i] = v
	}
	ts, count, minKey, maxKey := hdr[0], hdr[1], hdr[2], hdr[3]

	if uint64(r.Remaining()) != uint64(filter.EncodedSize)+count*block.CellSize {
		return nil, fmt.Errorf("%w: %d bytes for %d cells", ErrCorruptTable, len(data), count)
	}

	f, err := filter.ReadBloomFilter(r)
	if err != nil {
		return nil, fmt.Errorf("%w: filter: %v", ErrCorruptTable, err)
	}
	b, err := block.ReadBlock(r, int(count))
	if err != nil {
		return nil, fmt.Errorf("%w: cells: %v", ErrCorruptTable, err)
	}
	if count > 0 {
		cells := b.Cells()
		if cells[0].Key != minKey || cells[count-1].Key != maxKey {
			return nil, fmt.Errorf("%w: key range [%d, %d] does not match cells", ErrCorruptTable, minKey, maxKey)
		}
	}

	return &Table{
		Timestamp: ts,
		MinKey:    minKey,
		MaxKey:    maxKey,
		filter:    f,
		block:     b,
	}, nil
}

// WriteFile writes the table to path. The bytes go to a temporary file in
// the same directory that is synced and then renamed over path, so path
// never holds a partial table.
func (t *Table) WriteFile(path string) error {
	data, err := t.Encode()
	if err != nil {
		return err
	}

	tmpPath := filepath.Join(filepath.Dir(path), uuid.NewString()+common.TempExt)
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmpPath, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename %s: %w", tmpPath, err)
	}
	t.path = path
	return nil
}

// Open reads and decodes the table file at path.
func Open(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	t, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	t.path = path
	return t, nil
}
