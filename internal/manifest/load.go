package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"lsmkv/internal/common"
	"lsmkv/internal/sstable"

	"golang.org/x/sync/errgroup"
)

// Open rebuilds the catalog from the level directories under root. Levels
// are walked in increasing order until a level directory is missing. The
// clock restarts one past the largest timestamp found.
func Open(root string, values ValueReader, opts Options) (*Manifest, error) {
	start := time.Now()
	if opts.Level0Capacity <= 0 || opts.MaxTableKeys <= 0 {
		return nil, fmt.Errorf("invalid catalog options %+v", opts)
	}

	m := &Manifest{
		current: &Version{Levels: make([][]*sstable.Table, 1)},
		root:    root,
		opts:    opts,
		values:  values,
	}

	var levels [][]*sstable.Table
	var maxTs, maxSeq uint64
	for level := 0; ; level++ {
		dir := common.LevelDir(root, level)
		if !common.DirExists(dir) {
			break
		}
		tables, err := loadLevel(dir)
		if err != nil {
			return nil, err
		}
		for _, t := range tables {
			maxTs = max(maxTs, t.Timestamp)
			if _, seq, err := common.ParseTableFileName(filepath.Base(t.Path())); err == nil {
				maxSeq = max(maxSeq, seq)
			}
		}
		sortTables(tables)
		levels = append(levels, tables)
	}
	if len(levels) > 0 {
		m.current = &Version{Levels: levels}
	}
	m.clock = NewClock(maxTs + 1)
	m.nextSeq = maxSeq + 1

	common.LogDuration(start, "loaded %d tables in %d levels from %s, next timestamp %d",
		m.current.NumTables(), len(m.current.Levels), root, m.clock.Peek())
	return m, nil
}

// loadLevel decodes every table in dir in parallel. Leftover temporary
// files from interrupted writes are removed.
func loadLevel(dir string) ([]*sstable.Table, error) {
	tmps, err := common.ListFiles(dir, common.TempExt)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	for _, name := range tmps {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("failed to remove %s: %w", path, err)
		}
		common.Warn().Str("path", path).Msg("removed partial table")
	}

	names, err := common.ListFiles(dir, common.TableExt)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	tables := make([]*sstable.Table, len(names))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := sstable.Open(filepath.Join(dir, name))
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}
