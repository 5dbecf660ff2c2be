package sstable

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"lsmkv/internal/common"

	"github.com/stretchr/testify/require"
)

func makeCells(keys ...uint64) []Cell {
	cells := make([]Cell, len(keys))
	for i, k := range keys {
		cells[i] = Cell{Key: k, Offset: k * 100, Vlen: uint32(k%7 + 1)}
	}
	return cells
}

func TestLayoutConstants(t *testing.T) {
	require.Equal(t, 8224, FixedSize)
	require.Equal(t, 408, MaxCells)
	require.LessOrEqual(t, EncodedSize(MaxCells), MaxTableBytes)
	require.Greater(t, EncodedSize(MaxCells+1), MaxTableBytes)
}

func TestBuildAndLookup(t *testing.T) {
	cells := makeCells(5, 10, 15, 20)
	cells[2].Vlen = 0 // tombstone for 15
	table := Build(7, cells)

	require.Equal(t, uint64(7), table.Timestamp)
	require.Equal(t, uint64(5), table.MinKey)
	require.Equal(t, uint64(20), table.MaxKey)
	require.Equal(t, 4, table.Count())

	for _, c := range cells {
		found, ok := table.Lookup(c.Key)
		require.True(t, ok, "key %d", c.Key)
		require.Equal(t, c, found)
	}

	found, ok := table.Lookup(15)
	require.True(t, ok)
	require.True(t, found.IsTombstone())

	for _, miss := range []uint64{0, 4, 11, 21, 1 << 50} {
		_, ok := table.Lookup(miss)
		require.False(t, ok, "key %d", miss)
	}
}

func TestBuildPanics(t *testing.T) {
	require.Panics(t, func() { Build(1, nil) })
	require.Panics(t, func() { Build(1, makeCells(3, 2)) })
}

func TestOverlapsAndRange(t *testing.T) {
	table := Build(1, makeCells(10, 20, 30, 40))

	tests := []struct {
		low, high uint64
		overlaps  bool
		keys      []uint64
	}{
		{0, 9, false, nil},
		{0, 10, true, []uint64{10}},
		{15, 35, true, []uint64{20, 30}},
		{40, 100, true, []uint64{40}},
		{41, 100, false, nil},
		{0, 1000, true, []uint64{10, 20, 30, 40}},
	}

	for _, tt := range tests {
		require.Equal(t, tt.overlaps, table.Overlaps(tt.low, tt.high), "[%d, %d]", tt.low, tt.high)
		var keys []uint64
		for _, c := range table.Range(tt.low, tt.high) {
			keys = append(keys, c.Key)
		}
		require.Equal(t, tt.keys, keys, "[%d, %d]", tt.low, tt.high)
	}
}

func TestEncodeLayout(t *testing.T) {
	table := Build(99, makeCells(3, 8))
	data, err := table.Encode()
	require.NoError(t, err)
	require.Len(t, data, EncodedSize(2))

	require.Equal(t, uint64(99), binary.LittleEndian.Uint64(data[0:8]))
	require.Equal(t, uint64(2), binary.LittleEndian.Uint64(data[8:16]))
	require.Equal(t, uint64(3), binary.LittleEndian.Uint64(data[16:24]))
	require.Equal(t, uint64(8), binary.LittleEndian.Uint64(data[24:32]))

	cell := data[FixedSize+20 : FixedSize+40]
	require.Equal(t, uint64(8), binary.LittleEndian.Uint64(cell[0:8]))
	require.Equal(t, uint64(800), binary.LittleEndian.Uint64(cell[8:16]))
	require.Equal(t, uint32(2), binary.LittleEndian.Uint32(cell[16:20]))
}

func TestDecodeRejectsCorruption(t *testing.T) {
	table := Build(1, makeCells(1, 2, 3))
	data, err := table.Encode()
	require.NoError(t, err)

	t.Run("Truncated", func(t *testing.T) {
		_, err := Decode(data[:len(data)-1])
		require.ErrorIs(t, err, ErrCorruptTable)
	})

	t.Run("ShortHeader", func(t *testing.T) {
		_, err := Decode(data[:10])
		require.ErrorIs(t, err, ErrCorruptTable)
	})

	t.Run("WrongMaxKey", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		binary.LittleEndian.PutUint64(bad[24:32], 77)
		_, err := Decode(bad)
		require.ErrorIs(t, err, ErrCorruptTable)
	})
}

func TestWriteFileAndOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, common.TableFileName(12, 0))

	cells := make([]Cell, MaxCells)
	for i := range cells {
		cells[i] = Cell{Key: uint64(i) * 3, Offset: uint64(i) * 64, Vlen: 64}
	}
	original := Build(12, cells)
	require.NoError(t, original.WriteFile(path))
	require.Equal(t, path, original.Path())
	require.Equal(t, "12-0", original.ID())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(EncodedSize(MaxCells)), info.Size())

	// No temporary files are left behind.
	tmps, err := common.ListFiles(dir, common.TempExt)
	require.NoError(t, err)
	require.Empty(t, tmps)

	restored, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, original.Timestamp, restored.Timestamp)
	require.Equal(t, original.MinKey, restored.MinKey)
	require.Equal(t, original.MaxKey, restored.MaxKey)
	require.Equal(t, original.Cells(), restored.Cells())
	require.Equal(t, path, restored.Path())

	for _, c := range cells {
		found, ok := restored.Lookup(c.Key)
		require.True(t, ok, "key %d", c.Key)
		require.Equal(t, c, found)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.sst"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
