// Package pool holds working sets of partially built teams and matches.
//
// Members are addressed by stable handles. Scan order is insertion order, so
// first-fit placement is deterministic for a given history. Membership
// changes are serialized by one mutex; lookups by handle go through a
// concurrent arena and never block on a scan in progress.
package pool

import (
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

// Handle identifies a pool member for as long as it stays in the pool.
type Handle uint64

// Pool is a concurrency-safe, insertion-ordered set of values.
type Pool[T any] struct {
	mu    sync.Mutex
	order []Handle
	arena *xsync.Map[Handle, T]
	next  atomic.Uint64
}

// New returns an empty pool.
func New[T any]() *Pool[T] {
	return &Pool[T]{
		arena: xsync.NewMap[Handle, T](),
	}
}

// Insert adds v and returns its handle.
func (p *Pool[T]) Insert(v T) Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.insertLocked(v)
}

func (p *Pool[T]) insertLocked(v T) Handle {
	h := Handle(p.next.Add(1))
	p.arena.Store(h, v)
	p.order = append(p.order, h)
	return h
}

// FindOrCreate returns the first member accepted by match, scanning in
// insertion order. When none matches, create is called and its result is
// inserted. The scan and the insert are one atomic step with respect to
// other pool mutations. created reports which path was taken.
func (p *Pool[T]) FindOrCreate(match func(T) bool, create func() T) (h Handle, v T, created bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, cur := range p.order {
		cand, ok := p.arena.Load(cur)
		if ok && match(cand) {
			return cur, cand, false
		}
	}
	v = create()
	return p.insertLocked(v), v, true
}

// Remove takes the member out of the pool and hands it to the caller.
func (p *Pool[T]) Remove(h Handle) (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.arena.LoadAndDelete(h)
	if !ok {
		return v, false
	}
	for i, cur := range p.order {
		if cur == h {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return v, true
}

// Get returns the member behind h if it is still in the pool.
func (p *Pool[T]) Get(h Handle) (T, bool) {
	return p.arena.Load(h)
}

// Handles returns the current members' handles in scan order. The result is
// a point-in-time copy; members may leave before the caller looks them up.
func (p *Pool[T]) Handles() []Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Handle, len(p.order))
	copy(out, p.order)
	return out
}

// Values returns the current members in scan order.
func (p *Pool[T]) Values() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]T, 0, len(p.order))
	for _, h := range p.order {
		if v, ok := p.arena.Load(h); ok {
			out = append(out, v)
		}
	}
	return out
}

// Len returns the number of members.
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}
