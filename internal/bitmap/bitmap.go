package bitmap

import (
	"fmt"

	"lsmkv/internal/common"

	"github.com/bits-and-blooms/bitset"
)

// Bitmap is a fixed-size set of bit positions.
type Bitmap interface {
	// Add sets the bit at position i to 1 (adds i to the set).
	Add(i uint64)

	// Remove sets the bit at position i to 0 (removes i from the set).
	Remove(i uint64)

	// Contains returns true if bit at position i is set (i is in the set).
	Contains(i uint64) bool

	// Len returns the number of addressable bits.
	Len() uint64

	// Count returns the number of set bits.
	Count() uint64
}

// bitmapImpl is a Bitmap backed by a bitset.BitSet.
type bitmapImpl struct {
	bits    *bitset.BitSet
	numBits uint64
}

var _ Bitmap = (*bitmapImpl)(nil)

// NewBitmap creates a new bitmap with the specified number of bits.
// All bits are initialized to 0.
func NewBitmap(numBits uint64) Bitmap {
	return &bitmapImpl{
		bits:    bitset.New(uint(numBits)),
		numBits: numBits,
	}
}

func (b *bitmapImpl) check(i uint64) {
	if i >= b.numBits {
		panic(fmt.Sprintf("bitmap: index %d out of range [0, %d)", i, b.numBits))
	}
}

func (b *bitmapImpl) Add(i uint64) {
	b.check(i)
	b.bits.Set(uint(i))
}

func (b *bitmapImpl) Remove(i uint64) {
	b.check(i)
	b.bits.Clear(uint(i))
}

func (b *bitmapImpl) Contains(i uint64) bool {
	b.check(i)
	return b.bits.Test(uint(i))
}

func (b *bitmapImpl) Len() uint64 { return b.numBits }

func (b *bitmapImpl) Count() uint64 { return uint64(b.bits.Count()) }

// EncodedSize returns the number of bytes WriteBitmap produces for numBits.
func EncodedSize(numBits uint64) int {
	return int(numBits) * 4
}

// WriteBitmap serializes a bitmap as one little-endian uint32 word per
// slot, each 0 or 1.
func WriteBitmap(w *common.Writer, b Bitmap) error {
	for i := uint64(0); i < b.Len(); i++ {
		var word uint32
		if b.Contains(i) {
			word = 1
		}
		if err := w.PutUint32(word); err != nil {
			return err
		}
	}
	return nil
}

// ReadBitmap deserializes numBits slots written by WriteBitmap. Any
// non-zero word counts as a set bit.
func ReadBitmap(r *common.Reader, numBits uint64) (Bitmap, error) {
	b := NewBitmap(numBits)
	for i := uint64(0); i < numBits; i++ {
		word, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		if word != 0 {
			b.Add(i)
		}
	}
	return b, nil
}
