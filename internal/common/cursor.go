package common

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrShortBuffer is returned when a fixed-size buffer cannot hold a write,
// or holds fewer bytes than a read asks for.
var ErrShortBuffer = errors.New("common: short buffer")

// Writer encodes little-endian fixed-width values into a buffer of fixed
// capacity. A write that would overflow the buffer fails and leaves the
// position unchanged.
type Writer struct {
	buf []byte
	pos int
}

// NewWriter returns a Writer over a zeroed buffer of exactly size bytes.
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, size)}
}

func (w *Writer) reserve(n int) ([]byte, error) {
	if n > len(w.buf)-w.pos {
		return nil, fmt.Errorf("%w: need %d bytes at %d, capacity %d", ErrShortBuffer, n, w.pos, len(w.buf))
	}
	b := w.buf[w.pos : w.pos+n]
	w.pos += n
	return b, nil
}

func (w *Writer) PutUint8(v uint8) error {
	b, err := w.reserve(1)
	if err != nil {
		return err
	}
	b[0] = v
	return nil
}

func (w *Writer) PutUint16(v uint16) error {
	b, err := w.reserve(2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, v)
	return nil
}

func (w *Writer) PutUint32(v uint32) error {
	b, err := w.reserve(4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, v)
	return nil
}

func (w *Writer) PutUint64(v uint64) error {
	b, err := w.reserve(8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, v)
	return nil
}

func (w *Writer) PutBytes(data []byte) error {
	b, err := w.reserve(len(data))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.pos }

// Remaining returns the unused capacity.
func (w *Writer) Remaining() int { return len(w.buf) - w.pos }

// Bytes returns the written prefix of the buffer.
func (w *Writer) Bytes() []byte { return w.buf[:w.pos] }

// Reader decodes little-endian fixed-width values from a byte slice.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

func (r *Reader) take(n int) ([]byte, error) {
	if n > len(r.buf)-r.pos {
		return nil, fmt.Errorf("%w: need %d bytes at %d, have %d", ErrShortBuffer, n, r.pos, len(r.buf)-r.pos)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) Uint8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) Uint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) Uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) Uint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Bytes returns the next n bytes without copying.
func (r *Reader) Bytes(n int) ([]byte, error) {
	return r.take(n)
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }
