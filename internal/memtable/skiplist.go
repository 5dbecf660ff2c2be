package memtable

import (
	"math/rand"

	"lsmkv/internal/common"
)

const (
	maxHeight = 16
	// pBranch is the probability of a node reaching the next level, as
	// 1 in pBranch.
	pBranch = 4
	// nilNode terminates a level. Index 0 is the head sentinel, which no
	// node links to.
	nilNode = 0
)

// node lives in the skiplist arena and links to its successors by index.
type node struct {
	key   uint64
	value common.Value
	next  []int32
}

// skiplist is an ordered map from key to value whose nodes are stored in
// one slice and addressed by index.
type skiplist struct {
	nodes  []node
	height int
	rng    *rand.Rand
}

func newSkiplist(seed int64) *skiplist {
	return &skiplist{
		nodes:  []node{{next: make([]int32, maxHeight)}},
		height: 1,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

func (s *skiplist) randomHeight() int {
	h := 1
	for h < maxHeight && s.rng.Intn(pBranch) == 0 {
		h++
	}
	return h
}

// findGreaterOrEqual returns the first node with key >= key. If prev is
// non-nil it is filled with the rightmost node before that point on every
// level.
func (s *skiplist) findGreaterOrEqual(key uint64, prev *[maxHeight]int32) int32 {
	x := int32(0)
	for level := s.height - 1; level >= 0; level-- {
		for {
			next := s.nodes[x].next[level]
			if next == nilNode || s.nodes[next].key >= key {
				break
			}
			x = next
		}
		if prev != nil {
			prev[level] = x
		}
	}
	return s.nodes[x].next[0]
}

// get returns the value stored for key.
func (s *skiplist) get(key uint64) (common.Value, bool) {
	n := s.findGreaterOrEqual(key, nil)
	if n != nilNode && s.nodes[n].key == key {
		return s.nodes[n].value, true
	}
	return common.Value{}, false
}

// set inserts key or overwrites its value in place. It returns the
// previous value and whether one existed.
func (s *skiplist) set(key uint64, value common.Value) (common.Value, bool) {
	var prev [maxHeight]int32
	n := s.findGreaterOrEqual(key, &prev)
	if n != nilNode && s.nodes[n].key == key {
		old := s.nodes[n].value
		s.nodes[n].value = value
		return old, true
	}

	h := s.randomHeight()
	if h > s.height {
		for level := s.height; level < h; level++ {
			prev[level] = 0
		}
		s.height = h
	}

	idx := int32(len(s.nodes))
	nd := node{key: key, value: value, next: make([]int32, h)}
	for level := 0; level < h; level++ {
		nd.next[level] = s.nodes[prev[level]].next[level]
	}
	s.nodes = append(s.nodes, nd)
	for level := 0; level < h; level++ {
		s.nodes[prev[level]].next[level] = idx
	}
	return common.Value{}, false
}

// ascend calls fn for every node with key in [low, high] in key order,
// stopping early if fn returns false.
func (s *skiplist) ascend(low, high uint64, fn func(key uint64, value common.Value) bool) {
	if low > high {
		return
	}
	for n := s.findGreaterOrEqual(low, nil); n != nilNode; n = s.nodes[n].next[0] {
		nd := &s.nodes[n]
		if nd.key > high {
			return
		}
		if !fn(nd.key, nd.value) {
			return
		}
	}
}

// len returns the number of keys.
func (s *skiplist) len() int {
	return len(s.nodes) - 1
}
