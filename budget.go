package stackgc

import (
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Budget caps the bytes reserved by a group of arenas. Parallel workers
// each own an independent arena (records never cross arenas), so the
// budget is the one piece of shared state and is safe for concurrent
// use.
//
// Reservations never block: an arena that cannot reserve either salvages
// space by compaction or fails the allocation, synchronously.
type Budget struct {
	sem      *semaphore.Weighted
	limit    int64
	reserved atomic.Int64
}

// NewBudget creates a budget of limit bytes. A nil *Budget is valid
// everywhere and means unlimited.
func NewBudget(limit int64) *Budget {
	if limit <= 0 {
		return nil
	}
	return &Budget{
		sem:   semaphore.NewWeighted(limit),
		limit: limit,
	}
}

// Reserve takes n bytes from the budget, reporting whether they were
// available. n <= 0 is a no-op.
func (b *Budget) Reserve(n int64) bool {
	if b == nil || n <= 0 {
		return true
	}
	if !b.sem.TryAcquire(n) {
		return false
	}
	b.reserved.Add(n)
	return true
}

// Release returns n bytes to the budget.
func (b *Budget) Release(n int64) {
	if b == nil || n <= 0 {
		return
	}
	b.sem.Release(n)
	b.reserved.Add(-n)
}

// Reserved returns the bytes currently held.
func (b *Budget) Reserved() int64 {
	if b == nil {
		return 0
	}
	return b.reserved.Load()
}

// Limit returns the budget size in bytes, or 0 for unlimited.
func (b *Budget) Limit() int64 {
	if b == nil {
		return 0
	}
	return b.limit
}
