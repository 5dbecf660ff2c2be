package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableFileNameRoundTrip(t *testing.T) {
	name := TableFileName(42, 7)
	require.Equal(t, "42-7.sst", name)

	ts, seq, err := ParseTableFileName(name)
	require.NoError(t, err)
	require.Equal(t, uint64(42), ts)
	require.Equal(t, uint64(7), seq)
}

func TestParseTableFileNameErrors(t *testing.T) {
	for _, name := range []string{"42-7.tmp", "42.sst", "x-1.sst", "1-y.sst"} {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseTableFileName(name)
			require.Error(t, err)
		})
	}
}

func TestListFilesAndDirExists(t *testing.T) {
	root := t.TempDir()
	dir := LevelDir(root, 0)
	require.False(t, DirExists(dir))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.True(t, DirExists(dir))

	for _, name := range []string{"2-1.sst", "1-0.sst", "junk.tmp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	names, err := ListFiles(dir, TableExt)
	require.NoError(t, err)
	require.Equal(t, []string{"1-0.sst", "2-1.sst"}, names)
}

func TestValueTombstone(t *testing.T) {
	v := Live([]byte("abc"))
	require.False(t, v.IsTombstone())
	require.Equal(t, 3, v.Len())

	require.True(t, Tombstone.IsTombstone())
	require.Equal(t, 0, Tombstone.Len())
	require.Nil(t, Tombstone.Bytes())
}
