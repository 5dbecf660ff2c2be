package filter

// Filter provides fast negative lookups for keys in a sorted table.
// A bloom filter can definitively say a key is NOT present, but can only
// say a key MIGHT be present (false positives possible, false negatives not).
type Filter interface {
	// Insert adds key to the set.
	Insert(key uint64)

	// MayContain returns true if the key might be in the table.
	// Returns false if the key is definitely NOT in the table.
	MayContain(key uint64) bool
}
