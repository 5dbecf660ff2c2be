package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"lsmkv/internal/common"
	"lsmkv/internal/sstable"
)

// Options configures the shape of the level hierarchy.
type Options struct {
	// Level0Capacity is the number of level-0 tables that triggers
	// compaction. Level n holds Level0Capacity << n tables.
	Level0Capacity int

	// MaxTableKeys bounds the cells in each table produced by compaction.
	MaxTableKeys int
}

var DefaultOptions = Options{
	Level0Capacity: 2,
	MaxTableKeys:   sstable.MaxCells,
}

// ValueReader fetches values addressed by table cells.
type ValueReader interface {
	Read(offset uint64, vlen uint32) ([]byte, error)
}

// Version is an immutable snapshot of the tables at every level. Tables
// within a level are ordered by (Timestamp, MinKey).
type Version struct {
	Levels [][]*sstable.Table
}

// NumTables returns the total number of tables across levels.
func (v *Version) NumTables() int {
	n := 0
	for _, tables := range v.Levels {
		n += len(tables)
	}
	return n
}

// Manifest is the catalog of tables across levels. Readers take a Version
// snapshot; flush and compaction publish new versions through Apply.
type Manifest struct {
	mu      sync.RWMutex
	current *Version

	root   string
	opts   Options
	values ValueReader
	clock  *Clock

	// nextSeq disambiguates file names of tables sharing a timestamp.
	nextSeq uint64
}

// Current returns a snapshot of the current version for reading.
func (m *Manifest) Current() *Version {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Root returns the directory holding the level directories.
func (m *Manifest) Root() string { return m.root }

// Capacity returns the number of tables level may hold before it is
// compacted into the next level.
func (m *Manifest) Capacity(level int) int {
	return m.opts.Level0Capacity << level
}

// NextTimestamp allocates a timestamp from the store clock.
func (m *Manifest) NextTimestamp() uint64 {
	return m.clock.Next()
}

// Clock returns the store clock.
func (m *Manifest) Clock() *Clock { return m.clock }

// NewTablePath reserves a unique path for a table at level stamped ts,
// creating the level directory if needed.
func (m *Manifest) NewTablePath(level int, ts uint64) (string, error) {
	dir := common.LevelDir(m.root, level)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	m.mu.Lock()
	seq := m.nextSeq
	m.nextSeq++
	m.mu.Unlock()
	return filepath.Join(dir, common.TableFileName(ts, seq)), nil
}

// Register adds a written table to level.
func (m *Manifest) Register(level int, t *sstable.Table) {
	m.Apply(&Edit{Add: map[int][]*sstable.Table{level: {t}}})
}

// Edit describes an atomic change to the catalog.
type Edit struct {
	Add    map[int][]*sstable.Table
	Delete map[int][]*sstable.Table
}

// Apply atomically applies an edit, creating a new version.
func (m *Manifest) Apply(edit *Edit) {
	m.mu.Lock()
	defer m.mu.Unlock()

	newVersion := m.deepCopy(m.current)
	for level := range edit.Add {
		for len(newVersion.Levels) <= level {
			newVersion.Levels = append(newVersion.Levels, nil)
		}
	}

	for level, dropped := range edit.Delete {
		if len(dropped) == 0 {
			continue
		}
		deleteSet := make(map[*sstable.Table]struct{}, len(dropped))
		for _, t := range dropped {
			deleteSet[t] = struct{}{}
		}
		filtered := make([]*sstable.Table, 0, len(newVersion.Levels[level]))
		for _, t := range newVersion.Levels[level] {
			if _, deleted := deleteSet[t]; !deleted {
				filtered = append(filtered, t)
			}
		}
		newVersion.Levels[level] = filtered
	}

	for level, added := range edit.Add {
		newVersion.Levels[level] = append(newVersion.Levels[level], added...)
		sortTables(newVersion.Levels[level])
	}

	m.current = newVersion
}

func (m *Manifest) deepCopy(v *Version) *Version {
	newVersion := &Version{
		Levels: make([][]*sstable.Table, len(v.Levels)),
	}
	for i := range v.Levels {
		newVersion.Levels[i] = make([]*sstable.Table, len(v.Levels[i]))
		copy(newVersion.Levels[i], v.Levels[i])
	}
	return newVersion
}

// sortTables orders tables by (Timestamp, MinKey), oldest first.
func sortTables(tables []*sstable.Table) {
	sort.Slice(tables, func(i, j int) bool {
		if tables[i].Timestamp != tables[j].Timestamp {
			return tables[i].Timestamp < tables[j].Timestamp
		}
		return tables[i].MinKey < tables[j].MinKey
	})
}

// Reset removes every table file and level directory and empties the
// catalog. The clock keeps counting.
func (m *Manifest) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for level := 0; ; level++ {
		dir := common.LevelDir(m.root, level)
		if !common.DirExists(dir) {
			if level >= len(m.current.Levels) {
				break
			}
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
	}
	m.current = &Version{Levels: make([][]*sstable.Table, 1)}
	common.Info().Str("root", m.root).Msg("catalog reset")
	return nil
}
