package filter

import (
	"math/rand"
	"testing"

	"lsmkv/internal/common"

	"github.com/stretchr/testify/require"
)

func TestBloomFilterNoFalseNegatives(t *testing.T) {
	bf := NewBloomFilter()

	keys := make([]uint64, 408)
	for i := range keys {
		keys[i] = uint64(i) * 7919
		bf.Insert(keys[i])
	}

	for i, key := range keys {
		require.True(t, bf.MayContain(key), "key %d should be found", i)
	}
}

func TestBloomFilterFalsePositiveRate(t *testing.T) {
	bf := NewBloomFilter()
	rng := rand.New(rand.NewSource(1))

	// A few hundred keys per table is the expected load.
	inserted := make(map[uint64]struct{}, 200)
	for len(inserted) < 200 {
		key := rng.Uint64()
		inserted[key] = struct{}{}
		bf.Insert(key)
	}

	testCount := 20000
	falsePositives := 0
	for i := 0; i < testCount; i++ {
		key := rng.Uint64()
		if _, ok := inserted[key]; ok {
			continue
		}
		if bf.MayContain(key) {
			falsePositives++
		}
	}

	observedFP := float64(falsePositives) / float64(testCount)
	require.Less(t, observedFP, 0.05, "false positive rate %.4f", observedFP)
	t.Logf("False positive rate: %.4f with 200 keys", observedFP)
}

func TestBloomFilterEmpty(t *testing.T) {
	bf := NewBloomFilter()
	for key := uint64(0); key < 100; key++ {
		require.False(t, bf.MayContain(key))
	}
}

func TestBloomFilterPositions(t *testing.T) {
	// Positions are deterministic and always inside the array.
	for _, key := range []uint64{0, 1, 42, 1 << 63, ^uint64(0)} {
		a := positions(key)
		b := positions(key)
		require.Equal(t, a, b)
		for _, p := range a {
			require.Less(t, p, uint64(NumSlots))
		}
	}
}

func TestBloomFilterWriteAndRead(t *testing.T) {
	original := NewBloomFilter()
	keys := []uint64{3, 17, 1 << 40, 99999}
	for _, key := range keys {
		original.Insert(key)
	}

	w := common.NewWriter(EncodedSize)
	require.NoError(t, WriteBloomFilter(w, original))
	require.Equal(t, EncodedSize, w.Len())

	restored, err := ReadBloomFilter(common.NewReader(w.Bytes()))
	require.NoError(t, err)

	for _, key := range keys {
		require.True(t, restored.MayContain(key), "key %d should be found in restored filter", key)
	}

	// Both filters answer every probe identically.
	for key := uint64(0); key < 5000; key++ {
		require.Equal(t, original.MayContain(key), restored.MayContain(key), "key %d", key)
	}
}

func TestReadBloomFilterTruncated(t *testing.T) {
	_, err := ReadBloomFilter(common.NewReader(make([]byte, EncodedSize-4)))
	require.ErrorIs(t, err, common.ErrShortBuffer)
}
