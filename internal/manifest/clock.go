package manifest

import "sync/atomic"

// Clock hands out strictly increasing table timestamps.
type Clock struct {
	next atomic.Uint64
}

// NewClock returns a clock whose first timestamp is start.
func NewClock(start uint64) *Clock {
	c := &Clock{}
	c.next.Store(start)
	return c
}

// Next returns a timestamp greater than every one returned before.
func (c *Clock) Next() uint64 {
	return c.next.Add(1) - 1
}

// Peek returns the timestamp the next call to Next will return.
func (c *Clock) Peek() uint64 {
	return c.next.Load()
}
