package filter

import (
	"lsmkv/internal/bitmap"
	"lsmkv/internal/common"

	"github.com/spaolacci/murmur3"
)

const (
	// NumSlots is the fixed number of bits in every table's filter.
	NumSlots = 2048
	// NumHashes is the number of bit positions set per key.
	NumHashes = 4
	// EncodedSize is the on-disk length of a serialized filter.
	EncodedSize = NumSlots * 4

	hashSeed = 1
)

// bloomFilter is a fixed-geometry bloom filter over 64-bit keys. Writers
// and readers share the geometry, so the serialized form carries no
// parameters.
type bloomFilter struct {
	bitmap bitmap.Bitmap
}

var _ Filter = (*bloomFilter)(nil)

// NewBloomFilter creates an empty filter.
func NewBloomFilter() Filter {
	return &bloomFilter{bitmap: bitmap.NewBitmap(NumSlots)}
}

// positions derives the NumHashes bit positions of key from the two
// 64-bit words of its 128-bit murmur3 hash, taking the low and high half
// of each word.
func positions(key uint64) [NumHashes]uint64 {
	h1, h2 := murmur3.Sum128WithSeed(common.KeyBytes(key), hashSeed)
	return [NumHashes]uint64{
		uint64(uint32(h1)) % NumSlots,
		(h1 >> 32) % NumSlots,
		uint64(uint32(h2)) % NumSlots,
		(h2 >> 32) % NumSlots,
	}
}

func (bf *bloomFilter) Insert(key uint64) {
	for _, pos := range positions(key) {
		bf.bitmap.Add(pos)
	}
}

func (bf *bloomFilter) MayContain(key uint64) bool {
	for _, pos := range positions(key) {
		if !bf.bitmap.Contains(pos) {
			return false
		}
	}
	return true
}

// WriteBloomFilter serializes f as EncodedSize bytes.
func WriteBloomFilter(w *common.Writer, f Filter) error {
	return bitmap.WriteBitmap(w, f.(*bloomFilter).bitmap)
}

// ReadBloomFilter deserializes a filter written by WriteBloomFilter.
func ReadBloomFilter(r *common.Reader) (Filter, error) {
	b, err := bitmap.ReadBitmap(r, NumSlots)
	if err != nil {
		return nil, err
	}
	return &bloomFilter{bitmap: b}, nil
}
