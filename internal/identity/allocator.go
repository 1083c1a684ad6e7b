package identity

import "sync/atomic"

// Allocator hands out strictly increasing surrogate keys.
type Allocator struct {
	last atomic.Uint64
}

// NewAllocator starts after seed: the first key returned is seed+1.
func NewAllocator(seed uint64) *Allocator {
	a := &Allocator{}
	a.last.Store(seed)
	return a
}

// Next returns a key greater than every key returned before.
func (a *Allocator) Next() uint64 {
	return a.last.Add(1)
}

// Last returns the most recently allocated key (or the seed).
func (a *Allocator) Last() uint64 {
	return a.last.Load()
}

// Observe raises the floor so later keys stay above v.
func (a *Allocator) Observe(v uint64) {
	for {
		cur := a.last.Load()
		if v <= cur || a.last.CompareAndSwap(cur, v) {
			return
		}
	}
}
