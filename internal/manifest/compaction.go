package manifest

import (
	"container/heap"
	"fmt"
	"os"
	"time"

	"lsmkv/internal/common"
	"lsmkv/internal/sstable"
)

// Compact runs compaction rounds until no level holds more tables than
// its capacity. Level 0 is drained completely; deeper levels move their
// oldest overflow down one level.
func (m *Manifest) Compact() error {
	for level := 0; level < len(m.Current().Levels); level++ {
		if len(m.Current().Levels[level]) <= m.Capacity(level) {
			continue
		}
		if err := m.compactLevel(level); err != nil {
			return fmt.Errorf("failed to compact level %d: %w", level, err)
		}
	}
	return nil
}

// compactLevel merges the overflow of level with the overlapping tables
// of level+1 and writes the result to level+1.
func (m *Manifest) compactLevel(level int) error {
	start := time.Now()
	v := m.Current()

	tables := append([]*sstable.Table(nil), v.Levels[level]...)
	sortTables(tables)
	selected := tables
	if level > 0 {
		selected = tables[:len(tables)-m.Capacity(level)]
	}
	if len(selected) == 0 {
		panic(fmt.Sprintf("manifest: empty compaction selection at level %d", level))
	}

	low, high, maxTs := selected[0].MinKey, selected[0].MaxKey, selected[0].Timestamp
	for _, t := range selected[1:] {
		low, high, maxTs = min(low, t.MinKey), max(high, t.MaxKey), max(maxTs, t.Timestamp)
	}

	var overlapping []*sstable.Table
	if level+1 < len(v.Levels) {
		for _, t := range v.Levels[level+1] {
			if t.Overlaps(low, high) {
				overlapping = append(overlapping, t)
				maxTs = max(maxTs, t.Timestamp)
			}
		}
	}

	// Level 0 is drained completely, so nothing newer than its tables can
	// remain above the output and a fresh timestamp is safe. Deeper rounds
	// keep the round's maximum so shallower tables still outrank them.
	ts := maxTs
	if level == 0 {
		ts = m.clock.Next()
	}

	sources := make([]mergeSource, 0, len(selected)+len(overlapping))
	for _, t := range selected {
		sources = append(sources, mergeSource{cells: t.Cells(), ts: t.Timestamp, level: level})
	}
	for _, t := range overlapping {
		sources = append(sources, mergeSource{cells: t.Cells(), ts: t.Timestamp, level: level + 1})
	}
	merged := mergeCells(sources, m.isBottom(v, level+1))

	var outputs []*sstable.Table
	for len(merged) > 0 {
		n := min(len(merged), m.opts.MaxTableKeys)
		t := sstable.Build(ts, merged[:n])
		merged = merged[n:]

		path, err := m.NewTablePath(level+1, ts)
		if err != nil {
			return err
		}
		if err := t.WriteFile(path); err != nil {
			return err
		}
		outputs = append(outputs, t)
	}

	m.Apply(&Edit{
		Add: map[int][]*sstable.Table{level + 1: outputs},
		Delete: map[int][]*sstable.Table{
			level:     selected,
			level + 1: overlapping,
		},
	})

	for _, t := range append(selected, overlapping...) {
		if err := os.Remove(t.Path()); err != nil {
			return fmt.Errorf("failed to remove %s: %w", t.Path(), err)
		}
	}

	common.LogDuration(start, "compacted L%d (%d tables) + L%d (%d tables) into %d tables at ts %d",
		level, len(selected), level+1, len(overlapping), len(outputs), ts)
	return nil
}

// isBottom reports whether no level below target holds tables.
func (m *Manifest) isBottom(v *Version, target int) bool {
	for level := target + 1; level < len(v.Levels); level++ {
		if len(v.Levels[level]) > 0 {
			return false
		}
	}
	return true
}

// mergeSource is one input table of a merge.
type mergeSource struct {
	cells []sstable.Cell
	ts    uint64
	level int
}

// mergeCursor is the position of one source in the merge heap.
type mergeCursor struct {
	src *mergeSource
	pos int
}

func (c *mergeCursor) cell() sstable.Cell { return c.src.cells[c.pos] }

// mergeHeap orders cursors by key, then newest timestamp, then shallowest
// level, so the first cursor popped for a key holds its winning cell.
type mergeHeap []*mergeCursor

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if ka, kb := a.cell().Key, b.cell().Key; ka != kb {
		return ka < kb
	}
	if a.src.ts != b.src.ts {
		return a.src.ts > b.src.ts
	}
	return a.src.level < b.src.level
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) { *h = append(*h, x.(*mergeCursor)) }

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// mergeCells merges sorted sources into one sorted stream holding the
// winning cell of every key. Tombstones are kept unless dropTombstones
// is set.
func mergeCells(sources []mergeSource, dropTombstones bool) []sstable.Cell {
	h := make(mergeHeap, 0, len(sources))
	total := 0
	for i := range sources {
		total += len(sources[i].cells)
		if len(sources[i].cells) > 0 {
			h = append(h, &mergeCursor{src: &sources[i]})
		}
	}
	heap.Init(&h)

	out := make([]sstable.Cell, 0, total)
	var lastKey uint64
	emitted := false
	for h.Len() > 0 {
		cur := h[0]
		c := cur.cell()

		if !emitted || c.Key != lastKey {
			lastKey, emitted = c.Key, true
			if !(dropTombstones && c.IsTombstone()) {
				out = append(out, c)
			}
		}

		cur.pos++
		if cur.pos < len(cur.src.cells) {
			heap.Fix(&h, 0)
		} else {
			heap.Pop(&h)
		}
	}
	return out
}
