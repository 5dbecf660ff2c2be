package vlog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"lsmkv/internal/common"
)

// ValueLog is an append-only file of records addressed by byte offset.
// Records are appended at head; GC reclaims them from tail.
type ValueLog struct {
	mu   sync.Mutex
	file *os.File
	path string
	head uint64
	tail uint64
}

// Open opens (or creates) the log at path and recovers head and tail.
func Open(path string) (*ValueLog, error) {
	start := time.Now()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	l := &ValueLog{file: f, path: path}
	if err := l.recover(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to recover %s: %w", path, err)
	}
	common.Info().Uint64("head", l.head).Uint64("tail", l.tail).
		Str("elapsed", time.Since(start).String()).Msgf("opened value log %s", path)
	return l, nil
}

// recover sets head to the file size and tail to the first valid record
// after any punched hole.
func (l *ValueLog) recover() error {
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	l.head = uint64(info.Size())
	if l.head == 0 {
		l.tail = 0
		return nil
	}

	start, err := seekData(l.file, 0)
	if errors.Is(err, errNoData) {
		l.tail = l.head
		return nil
	}
	if err != nil {
		return err
	}

	if pos, ok := l.findRecord(uint64(start), l.head); ok {
		l.tail = pos
	} else {
		l.tail = l.head
	}
	return nil
}

const scanChunk = 64 * 1024

// findRecord returns the offset of the first position in [from, limit)
// holding a magic byte followed by a record whose checksum validates.
// Magic bytes inside stale or partial records are skipped.
func (l *ValueLog) findRecord(from, limit uint64) (uint64, bool) {
	buf := make([]byte, scanChunk)
	for base := from; base < limit; {
		n := min(uint64(len(buf)), limit-base)
		chunk := buf[:n]
		if _, err := l.file.ReadAt(chunk, int64(base)); err != nil && !errors.Is(err, io.EOF) {
			return 0, false
		}
		for i := 0; i < len(chunk); {
			j := bytes.IndexByte(chunk[i:], Magic)
			if j < 0 {
				break
			}
			pos := base + uint64(i+j)
			if _, _, err := l.readRecordAt(pos, limit); err == nil {
				return pos, true
			}
			i += j + 1
		}
		base += n
	}
	return 0, false
}

// readRecordAt decodes and validates the record at pos, which must end at
// or before limit. It returns the entry and the record's encoded size.
func (l *ValueLog) readRecordAt(pos, limit uint64) (Entry, uint64, error) {
	if pos+HeaderSize > limit {
		return Entry{}, 0, ErrCorruptRecord
	}
	r := io.NewSectionReader(l.file, int64(pos), int64(limit-pos))
	h, err := decodeHeader(r)
	if errors.Is(err, ErrCorruptRecord) {
		return Entry{}, 0, err
	}
	if err != nil {
		return Entry{}, 0, fmt.Errorf("failed to read record header at %d: %w", pos, err)
	}
	size := HeaderSize + uint64(h.vlen)
	if h.vlen == 0 || pos+size > limit {
		return Entry{}, 0, ErrCorruptRecord
	}
	value, err := common.ReadBytes(r, uint64(h.vlen))
	if err != nil {
		return Entry{}, 0, fmt.Errorf("failed to read record value at %d: %w", pos, err)
	}
	if Checksum(h.key, value) != h.checksum {
		return Entry{}, 0, ErrCorruptRecord
	}
	return Entry{Key: h.key, Value: value}, size, nil
}

// AppendBatch writes entries at head in order and returns one offset per
// entry. Tombstones are not written and get offset 0.
func (l *ValueLog) AppendBatch(entries []Entry) ([]uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil, errors.New("vlog: log is closed")
	}

	total := 0
	for _, e := range entries {
		total += e.EncodedSize()
	}

	offsets := make([]uint64, len(entries))
	if total == 0 {
		return offsets, nil
	}

	w := common.NewWriter(total)
	for i, e := range entries {
		if e.IsTombstone() {
			continue
		}
		offsets[i] = l.head + uint64(w.Len())
		if err := e.encode(w); err != nil {
			return nil, err
		}
	}

	if _, err := l.file.WriteAt(w.Bytes(), int64(l.head)); err != nil {
		return nil, fmt.Errorf("failed to append to %s: %w", l.path, err)
	}
	if err := l.file.Sync(); err != nil {
		return nil, err
	}
	l.head += uint64(total)
	return offsets, nil
}

// Read returns the vlen value bytes of the record at offset. The checksum
// is not verified; offsets come from tables written after the record.
func (l *ValueLog) Read(offset uint64, vlen uint32) ([]byte, error) {
	value := make([]byte, vlen)
	if _, err := l.file.ReadAt(value, int64(offset+HeaderSize)); err != nil {
		return nil, fmt.Errorf("failed to read %d bytes at %d from %s: %w", vlen, offset, l.path, err)
	}
	return value, nil
}

// Walk calls fn with the offset of every valid record between tail and
// head, in log order, skipping bytes that do not form a record. It stops
// early when fn returns false.
func (l *ValueLog) Walk(fn func(offset uint64, e Entry) bool) error {
	l.mu.Lock()
	if l.file == nil {
		l.mu.Unlock()
		return errors.New("vlog: log is closed")
	}
	pos, limit := l.tail, l.head
	l.mu.Unlock()

	for pos < limit {
		e, size, err := l.readRecordAt(pos, limit)
		if errors.Is(err, ErrCorruptRecord) {
			next, ok := l.findRecord(pos+1, limit)
			if !ok {
				return nil
			}
			pos = next
			continue
		}
		if err != nil {
			return err
		}
		if !fn(pos, e) {
			return nil
		}
		pos += size
	}
	return nil
}

// Head returns the offset one past the last record.
func (l *ValueLog) Head() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.head
}

// Tail returns the offset of the oldest record not yet reclaimed.
func (l *ValueLog) Tail() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tail
}

// Path returns the log's file path.
func (l *ValueLog) Path() string { return l.path }

// Reset discards every record, leaving an empty log file at the same path.
func (l *ValueLog) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", l.path, err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", l.path, err)
	}
	l.file = f
	l.head, l.tail = 0, 0
	return nil
}

// Close releases the underlying file handle.
func (l *ValueLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
