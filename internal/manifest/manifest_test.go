package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"lsmkv/internal/common"
	"lsmkv/internal/sstable"

	"github.com/stretchr/testify/require"
)

// offsetReader returns the offset, formatted, as the value.
type offsetReader struct{}

func (offsetReader) Read(offset uint64, vlen uint32) ([]byte, error) {
	return []byte(fmt.Sprint(offset)), nil
}

func openTestManifest(t *testing.T, opts Options) *Manifest {
	t.Helper()
	m, err := Open(t.TempDir(), offsetReader{}, opts)
	require.NoError(t, err)
	return m
}

// addTable writes a level table holding keys with the given offsets. An
// offset of 0 writes a tombstone.
func addTable(t *testing.T, m *Manifest, level int, ts uint64, kv map[uint64]uint64) *sstable.Table {
	t.Helper()
	keys := make([]uint64, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	cells := make([]sstable.Cell, len(keys))
	for i, k := range keys {
		cells[i] = sstable.Cell{Key: k, Offset: kv[k]}
		if kv[k] != 0 {
			cells[i].Vlen = 1
		}
	}
	table := sstable.Build(ts, cells)
	path, err := m.NewTablePath(level, ts)
	require.NoError(t, err)
	require.NoError(t, table.WriteFile(path))
	m.Register(level, table)
	return table
}

func TestOpenEmptyRoot(t *testing.T) {
	m := openTestManifest(t, DefaultOptions)
	require.Equal(t, uint64(1), m.Clock().Peek())
	require.Equal(t, 0, m.Current().NumTables())

	_, ok := m.Lookup(1)
	require.False(t, ok)
}

func TestOpenRejectsBadOptions(t *testing.T) {
	_, err := Open(t.TempDir(), offsetReader{}, Options{})
	require.Error(t, err)
}

func TestCapacityDoublesPerLevel(t *testing.T) {
	m := openTestManifest(t, Options{Level0Capacity: 3, MaxTableKeys: 10})
	require.Equal(t, 3, m.Capacity(0))
	require.Equal(t, 6, m.Capacity(1))
	require.Equal(t, 12, m.Capacity(2))
}

func TestNewTablePathIsUnique(t *testing.T) {
	m := openTestManifest(t, DefaultOptions)
	a, err := m.NewTablePath(0, 5)
	require.NoError(t, err)
	b, err := m.NewTablePath(0, 5)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.Equal(t, common.LevelDir(m.Root(), 0), filepath.Dir(a))
	require.True(t, common.DirExists(filepath.Dir(a)))
}

func TestLookupNewestTimestampWins(t *testing.T) {
	m := openTestManifest(t, DefaultOptions)
	addTable(t, m, 0, 1, map[uint64]uint64{1: 100, 2: 200, 3: 300})
	addTable(t, m, 0, 2, map[uint64]uint64{2: 201})
	addTable(t, m, 0, 3, map[uint64]uint64{3: 0}) // delete 3

	c, ok := m.Lookup(1)
	require.True(t, ok)
	require.Equal(t, uint64(100), c.Offset)

	c, ok = m.Lookup(2)
	require.True(t, ok)
	require.Equal(t, uint64(201), c.Offset)

	c, ok = m.Lookup(3)
	require.True(t, ok)
	require.True(t, c.IsTombstone())

	value, offset, found, err := m.Get(2)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(201), offset)
	require.Equal(t, []byte("201"), value)

	_, _, found, err = m.Get(3)
	require.NoError(t, err)
	require.False(t, found, "tombstone hides older value")

	_, _, found, err = m.Get(4)
	require.NoError(t, err)
	require.False(t, found)
}

func TestLookupEqualTimestampPrefersShallowerLevel(t *testing.T) {
	m := openTestManifest(t, DefaultOptions)
	addTable(t, m, 2, 7, map[uint64]uint64{5: 500})
	addTable(t, m, 1, 7, map[uint64]uint64{5: 501})

	c, ok := m.Lookup(5)
	require.True(t, ok)
	require.Equal(t, uint64(501), c.Offset)
}

func TestScanResolvesByTimestamp(t *testing.T) {
	m := openTestManifest(t, DefaultOptions)
	addTable(t, m, 0, 1, map[uint64]uint64{1: 10, 2: 20, 3: 30, 4: 40})
	addTable(t, m, 0, 2, map[uint64]uint64{2: 0, 3: 31})
	addTable(t, m, 1, 0, map[uint64]uint64{2: 19, 5: 50}) // older than both

	cells := m.Scan(0, 10)
	var got [][2]uint64
	for _, c := range cells {
		got = append(got, [2]uint64{c.Key, c.Offset})
	}
	require.Equal(t, [][2]uint64{{1, 10}, {3, 31}, {4, 40}, {5, 50}}, got)

	cells = m.Scan(3, 4)
	require.Len(t, cells, 2)
	require.Empty(t, m.Scan(6, 100))
}

func TestMergeCells(t *testing.T) {
	sources := []mergeSource{
		{cells: []sstable.Cell{{Key: 1, Offset: 1, Vlen: 1}, {Key: 3, Offset: 3, Vlen: 1}}, ts: 1, level: 0},
		{cells: []sstable.Cell{{Key: 1, Offset: 11, Vlen: 1}, {Key: 2, Offset: 0, Vlen: 0}}, ts: 2, level: 0},
		{cells: []sstable.Cell{{Key: 2, Offset: 22, Vlen: 1}, {Key: 4, Offset: 44, Vlen: 1}}, ts: 1, level: 1},
		{cells: []sstable.Cell{{Key: 4, Offset: 45, Vlen: 1}}, ts: 1, level: 2},
		{cells: nil, ts: 9, level: 0},
	}

	t.Run("KeepTombstones", func(t *testing.T) {
		merged := mergeCells(sources, false)
		require.Equal(t, []sstable.Cell{
			{Key: 1, Offset: 11, Vlen: 1},
			{Key: 2, Offset: 0, Vlen: 0},
			{Key: 3, Offset: 3, Vlen: 1},
			{Key: 4, Offset: 44, Vlen: 1},
		}, merged)
	})

	t.Run("DropTombstones", func(t *testing.T) {
		merged := mergeCells(sources, true)
		require.Equal(t, []sstable.Cell{
			{Key: 1, Offset: 11, Vlen: 1},
			{Key: 3, Offset: 3, Vlen: 1},
			{Key: 4, Offset: 44, Vlen: 1},
		}, merged)
	})
}

func requireDisjoint(t *testing.T, tables []*sstable.Table) {
	t.Helper()
	for i := range tables {
		for j := i + 1; j < len(tables); j++ {
			require.False(t, tables[i].Overlaps(tables[j].MinKey, tables[j].MaxKey),
				"tables %s and %s overlap", tables[i].ID(), tables[j].ID())
		}
	}
}

func TestCompactLevel0(t *testing.T) {
	m := openTestManifest(t, Options{Level0Capacity: 2, MaxTableKeys: 3})

	var inputs []*sstable.Table
	for round := uint64(1); round <= 3; round++ {
		kv := map[uint64]uint64{}
		for k := uint64(1); k <= 5; k++ {
			kv[k] = round*100 + k
		}
		inputs = append(inputs, addTable(t, m, 0, m.NextTimestamp(), kv))
	}
	// Level 1 already holds an older table overlapping the range.
	inputs = append(inputs, addTable(t, m, 1, 0, map[uint64]uint64{4: 4, 9: 9}))
	require.NoError(t, m.Compact())

	v := m.Current()
	require.Empty(t, v.Levels[0])
	require.Len(t, v.Levels[1], 2, "6 keys at 3 per table")
	requireDisjoint(t, v.Levels[1])

	for _, out := range v.Levels[1] {
		for _, in := range inputs {
			require.Greater(t, out.Timestamp, in.Timestamp)
		}
	}

	for k := uint64(1); k <= 5; k++ {
		c, ok := m.Lookup(k)
		require.True(t, ok)
		require.Equal(t, 300+k, c.Offset, "key %d comes from the newest table", k)
	}
	c, ok := m.Lookup(9)
	require.True(t, ok)
	require.Equal(t, uint64(9), c.Offset)

	for _, in := range inputs {
		_, err := os.Stat(in.Path())
		require.ErrorIs(t, err, os.ErrNotExist, "input %s should be removed", in.Path())
	}
}

func TestCompactCascadesAndDropsTombstonesAtBottom(t *testing.T) {
	m := openTestManifest(t, Options{Level0Capacity: 1, MaxTableKeys: 2})

	addTable(t, m, 0, m.NextTimestamp(), map[uint64]uint64{1: 11, 2: 12, 3: 13, 4: 14, 5: 15, 6: 16})
	addTable(t, m, 0, m.NextTimestamp(), map[uint64]uint64{1: 0, 2: 22, 3: 23, 4: 24, 5: 25, 6: 26, 7: 27})
	require.NoError(t, m.Compact())

	v := m.Current()
	require.Empty(t, v.Levels[0])
	require.Len(t, v.Levels[1], m.Capacity(1))
	require.Len(t, v.Levels[2], 1)
	requireDisjoint(t, v.Levels[1])

	// Key 1 was deleted and the tombstone reached the bottom level.
	_, ok := m.Lookup(1)
	require.False(t, ok)

	for k := uint64(2); k <= 7; k++ {
		c, ok := m.Lookup(k)
		require.True(t, ok, "key %d", k)
		require.Equal(t, 20+k, c.Offset)
	}

	// Reloading from disk restores the same catalog and a later clock.
	reopened, err := Open(m.Root(), offsetReader{}, m.opts)
	require.NoError(t, err)
	rv := reopened.Current()
	require.Len(t, rv.Levels, 3)
	for level := range v.Levels {
		require.Len(t, rv.Levels[level], len(v.Levels[level]))
		for i := range v.Levels[level] {
			require.Equal(t, v.Levels[level][i].Cells(), rv.Levels[level][i].Cells())
			require.Equal(t, v.Levels[level][i].Timestamp, rv.Levels[level][i].Timestamp)
			require.Less(t, rv.Levels[level][i].Timestamp, reopened.Clock().Peek())
		}
	}
	require.Equal(t, m.Clock().Peek(), reopened.Clock().Peek())

	p, err := reopened.NewTablePath(1, 1)
	require.NoError(t, err)
	_, err = os.Stat(p)
	require.ErrorIs(t, err, os.ErrNotExist, "new paths never collide with loaded tables")
}

func TestOpenRemovesPartialTables(t *testing.T) {
	m := openTestManifest(t, DefaultOptions)
	addTable(t, m, 0, m.NextTimestamp(), map[uint64]uint64{1: 1})

	tmp := filepath.Join(common.LevelDir(m.Root(), 0), "partial"+common.TempExt)
	require.NoError(t, os.WriteFile(tmp, []byte("junk"), 0o644))

	reopened, err := Open(m.Root(), offsetReader{}, DefaultOptions)
	require.NoError(t, err)
	require.Equal(t, 1, reopened.Current().NumTables())
	_, err = os.Stat(tmp)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenFailsOnCorruptTable(t *testing.T) {
	m := openTestManifest(t, DefaultOptions)
	table := addTable(t, m, 0, m.NextTimestamp(), map[uint64]uint64{1: 1})
	require.NoError(t, os.WriteFile(table.Path(), []byte("short"), 0o644))

	_, err := Open(m.Root(), offsetReader{}, DefaultOptions)
	require.ErrorIs(t, err, sstable.ErrCorruptTable)
}

func TestReset(t *testing.T) {
	m := openTestManifest(t, DefaultOptions)
	addTable(t, m, 0, m.NextTimestamp(), map[uint64]uint64{1: 1})
	addTable(t, m, 1, m.NextTimestamp(), map[uint64]uint64{2: 2})
	before := m.Clock().Peek()

	require.NoError(t, m.Reset())
	require.Equal(t, 0, m.Current().NumTables())
	require.False(t, common.DirExists(common.LevelDir(m.Root(), 0)))
	require.False(t, common.DirExists(common.LevelDir(m.Root(), 1)))
	require.Equal(t, before, m.Clock().Peek())

	_, ok := m.Lookup(1)
	require.False(t, ok)
}

func TestClock(t *testing.T) {
	c := NewClock(10)
	require.Equal(t, uint64(10), c.Peek())
	require.Equal(t, uint64(10), c.Next())
	require.Equal(t, uint64(11), c.Next())
	require.Equal(t, uint64(12), c.Peek())
}
