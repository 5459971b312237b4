// Package limiter provides the counting limiter shared by every unit of work
// in a filesort run. It wraps a weighted semaphore and records how many units
// are active at once so callers can verify the bound was honored.
package limiter

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultCapacity is the default number of concurrently active units.
const DefaultCapacity = 64

// Limiter bounds the number of concurrently active units of work.
// It is safe for concurrent use.
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int

	active atomic.Int64
	peak   atomic.Int64
}

// New creates a limiter with the given capacity.
// A capacity below 1 uses DefaultCapacity.
func New(capacity int) *Limiter {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Acquire blocks until a slot is available or ctx is done.
// Every successful Acquire must be paired with exactly one Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	n := l.active.Add(1)
	for {
		p := l.peak.Load()
		if n <= p || l.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return nil
}

// Release returns a slot to the pool.
func (l *Limiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// Capacity returns the maximum number of concurrently active units.
func (l *Limiter) Capacity() int {
	return l.capacity
}

// Active returns the number of units currently holding a slot.
func (l *Limiter) Active() int64 {
	return l.active.Load()
}

// Peak returns the highest number of units that held a slot at once.
func (l *Limiter) Peak() int64 {
	return l.peak.Load()
}
