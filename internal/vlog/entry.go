package vlog

import (
	"errors"
	"io"

	"lsmkv/internal/common"

	"github.com/sigurn/crc16"
)

// Record Layout (all integers little-endian):
//
//	┌───────┬──────────┬─────────┬──────────┬──────────────┐
//	│ magic │ checksum │   key   │   vlen   │    value     │
//	│  u8   │   u16    │   u64   │   u32    │  vlen bytes  │
//	└───────┴──────────┴─────────┴──────────┴──────────────┘
//
// The checksum is CRC-16/CCITT-FALSE over key ‖ vlen ‖ value.

const (
	// Magic marks the first byte of every record.
	Magic = 0xFF

	// HeaderSize is the number of bytes preceding a record's value.
	HeaderSize = 1 + 2 + 8 + 4
)

// ErrCorruptRecord is returned for bytes that do not form a valid record.
var ErrCorruptRecord = errors.New("vlog: corrupt record")

var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// Entry is one key/value pair destined for the log. An entry with an empty
// Value is a tombstone and is not written.
type Entry struct {
	Key   uint64
	Value []byte
}

func (e Entry) IsTombstone() bool { return len(e.Value) == 0 }

// EncodedSize returns the number of log bytes the entry occupies.
func (e Entry) EncodedSize() int {
	if e.IsTombstone() {
		return 0
	}
	return HeaderSize + len(e.Value)
}

// Checksum computes the record checksum of key and value.
func Checksum(key uint64, value []byte) uint16 {
	h := crc16.New(crcTable)
	common.WriteUint64(h, key)
	common.WriteUint32(h, uint32(len(value)))
	common.WriteBytes(h, value)
	return h.Sum16()
}

func (e Entry) encode(w *common.Writer) error {
	if err := w.PutUint8(Magic); err != nil {
		return err
	}
	if err := w.PutUint16(Checksum(e.Key, e.Value)); err != nil {
		return err
	}
	if err := w.PutUint64(e.Key); err != nil {
		return err
	}
	if err := w.PutUint32(uint32(len(e.Value))); err != nil {
		return err
	}
	return w.PutBytes(e.Value)
}

// header is the decoded fixed part of a record.
type header struct {
	checksum uint16
	key      uint64
	vlen     uint32
}

// decodeHeader reads the fixed part of a record from r.
func decodeHeader(r io.Reader) (header, error) {
	magic, err := common.ReadUint8(r)
	if err != nil {
		return header{}, err
	}
	if magic != Magic {
		return header{}, ErrCorruptRecord
	}
	var h header
	if h.checksum, err = common.ReadUint16(r); err != nil {
		return header{}, err
	}
	if h.key, err = common.ReadUint64(r); err != nil {
		return header{}, err
	}
	if h.vlen, err = common.ReadUint32(r); err != nil {
		return header{}, err
	}
	return h, nil
}
