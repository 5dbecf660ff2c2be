package vlog

import (
	"errors"
	"fmt"
	"time"

	"lsmkv/internal/common"
)

// Rehomer decides which scanned records are still live and moves them out
// of the range being reclaimed.
type Rehomer interface {
	// IsLatest reports whether the record for key at offset holds the
	// key's newest live value.
	IsLatest(key, offset uint64) (bool, error)

	// Rehome writes value as key's current value somewhere other than the
	// reclaimed range.
	Rehome(key uint64, value []byte) error

	// Commit makes every rehomed value durable. It runs before the
	// reclaimed range is deallocated.
	Commit() error
}

// GCStats summarizes one garbage collection pass.
type GCStats struct {
	Records   int
	Rehomed   int
	Reclaimed uint64
	Tail      uint64
}

// GC reclaims at least chunkSize bytes from the tail, or everything up to
// the head observed at the start if the log is shorter. Records appended
// while GC runs, including rehomed values, are not scanned.
func (l *ValueLog) GC(chunkSize uint64, r Rehomer) (GCStats, error) {
	start := time.Now()

	l.mu.Lock()
	if l.file == nil {
		l.mu.Unlock()
		return GCStats{}, errors.New("vlog: log is closed")
	}
	tail, limit := l.tail, l.head
	l.mu.Unlock()

	stats := GCStats{Tail: tail}
	pos := tail
	for pos < limit && pos-tail < chunkSize {
		e, size, err := l.readRecordAt(pos, limit)
		if errors.Is(err, ErrCorruptRecord) {
			next, ok := l.findRecord(pos+1, limit)
			if !ok {
				pos = limit
				break
			}
			pos = next
			continue
		}
		if err != nil {
			return stats, err
		}

		stats.Records++
		latest, err := r.IsLatest(e.Key, pos)
		if err != nil {
			return stats, err
		}
		if latest {
			if err := r.Rehome(e.Key, e.Value); err != nil {
				return stats, err
			}
			stats.Rehomed++
		}
		pos += size
	}

	if pos == tail {
		return stats, nil
	}
	if err := r.Commit(); err != nil {
		return stats, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := punchHole(l.file, int64(tail), int64(pos-tail)); err != nil {
		return stats, fmt.Errorf("failed to deallocate [%d, %d) of %s: %w", tail, pos, l.path, err)
	}
	l.tail = pos
	stats.Reclaimed = pos - tail
	stats.Tail = pos

	common.LogDuration(start, "gc reclaimed %d bytes (%d records, %d rehomed), tail %d -> %d",
		stats.Reclaimed, stats.Records, stats.Rehomed, tail, pos)
	return stats, nil
}
