package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	levelDirPrefix = "level-"
	TableExt       = ".sst"
	TempExt        = ".tmp"
)

// LevelDir returns the directory holding tables of the given level.
func LevelDir(root string, level int) string {
	return filepath.Join(root, fmt.Sprintf("%s%d", levelDirPrefix, level))
}

// TableFileName returns the file name for a table written at timestamp ts.
// seq disambiguates tables produced by the same compaction round.
func TableFileName(ts, seq uint64) string {
	return fmt.Sprintf("%d-%d%s", ts, seq, TableExt)
}

// ParseTableFileName is the inverse of TableFileName.
func ParseTableFileName(name string) (ts, seq uint64, err error) {
	base, ok := strings.CutSuffix(name, TableExt)
	if !ok {
		return 0, 0, fmt.Errorf("not a table file: %s", name)
	}
	tsStr, seqStr, ok := strings.Cut(base, "-")
	if !ok {
		return 0, 0, fmt.Errorf("malformed table file name: %s", name)
	}
	if ts, err = strconv.ParseUint(tsStr, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("malformed table timestamp in %s: %w", name, err)
	}
	if seq, err = strconv.ParseUint(seqStr, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("malformed table sequence in %s: %w", name, err)
	}
	return ts, seq, nil
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ListFiles returns the names of regular files in dir with the given
// extension, sorted by name.
func ListFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && filepath.Ext(e.Name()) == ext {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
