// File: pool/freepool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded free-pool of reusable entities. Idle entities sit on a LIFO stack so
// the most recently returned (cache-warm) entity is handed out first; borrow and
// return move ownership in and out without the pool keeping live references.

package pool

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-nio/api"
)

// Config bounds a FreePool.
type Config struct {
	// Capacity is the maximum number of idle entities retained.
	Capacity uint32
	// MaxLive caps entities borrowed and not yet returned. 0 means unlimited.
	MaxLive int
}

// Stats is a point-in-time view of pool activity.
type Stats struct {
	Free      int
	Live      int
	Capacity  int
	Allocated uint64
	Reused    uint64
	Destroyed uint64
}

// FreePool recycles entities of type T up to a fixed idle capacity.
type FreePool[T any] struct {
	mu      sync.Mutex
	free    []T
	cap     int
	maxLive int
	live    int
	closed  bool

	newFn     func() (T, error)
	resetFn   func(T)
	destroyFn func(T)

	allocated atomic.Uint64
	reused    atomic.Uint64
	destroyed atomic.Uint64
}

// New creates a pool. newFn allocates on a miss; resetFn runs on every borrow;
// destroyFn runs on entities the pool declines to keep. resetFn and destroyFn may be nil.
func New[T any](cfg Config, newFn func() (T, error), resetFn func(T), destroyFn func(T)) *FreePool[T] {
	if newFn == nil {
		panic("pool: nil constructor")
	}
	return &FreePool[T]{
		free:      make([]T, 0, cfg.Capacity),
		cap:       int(cfg.Capacity),
		maxLive:   cfg.MaxLive,
		newFn:     newFn,
		resetFn:   resetFn,
		destroyFn: destroyFn,
	}
}

// Borrow pops an idle entity or allocates a fresh one, then resets it.
func (p *FreePool[T]) Borrow() (T, error) {
	var zero T

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return zero, api.ErrPoolClosed
	}
	if p.maxLive > 0 && p.live >= p.maxLive {
		p.mu.Unlock()
		return zero, api.ErrResourceExhausted
	}

	var obj T
	if n := len(p.free); n > 0 {
		obj = p.free[n-1]
		p.free[n-1] = zero
		p.free = p.free[:n-1]
		p.reused.Add(1)
	} else {
		var err error
		obj, err = p.newFn()
		if err != nil {
			p.mu.Unlock()
			return zero, err
		}
		p.allocated.Add(1)
	}
	p.live++
	p.mu.Unlock()

	if p.resetFn != nil {
		p.resetFn(obj)
	}
	return obj, nil
}

// Return hands an entity back. It is kept while the idle stack has room and
// destroyed otherwise, or when the pool has been destroyed.
func (p *FreePool[T]) Return(obj T) {
	p.mu.Lock()
	if p.live > 0 {
		p.live--
	}
	if !p.closed && len(p.free) < p.cap {
		p.free = append(p.free, obj)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.destroy(obj)
}

// Destroy releases every idle entity. Borrow fails afterwards; entities
// returned afterwards are destroyed immediately.
func (p *FreePool[T]) Destroy() {
	p.mu.Lock()
	idle := p.free
	p.free = nil
	p.closed = true
	p.mu.Unlock()

	for _, obj := range idle {
		p.destroy(obj)
	}
}

func (p *FreePool[T]) destroy(obj T) {
	p.destroyed.Add(1)
	if p.destroyFn != nil {
		p.destroyFn(obj)
	}
}

// Free returns the number of idle entities.
func (p *FreePool[T]) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Cap returns the idle capacity.
func (p *FreePool[T]) Cap() int { return p.cap }

// Live returns the number of borrowed entities not yet returned.
func (p *FreePool[T]) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// Closed reports whether Destroy has been called.
func (p *FreePool[T]) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Stats snapshots the counters.
func (p *FreePool[T]) Stats() Stats {
	p.mu.Lock()
	free, live := len(p.free), p.live
	p.mu.Unlock()
	return Stats{
		Free:      free,
		Live:      live,
		Capacity:  p.cap,
		Allocated: p.allocated.Load(),
		Reused:    p.reused.Load(),
		Destroyed: p.destroyed.Load(),
	}
}

var _ api.FreePool[*struct{}] = (*FreePool[*struct{}])(nil)
