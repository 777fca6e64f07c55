// Package dedupe tracks which entrant ids are currently waiting so the same
// entrant cannot be queued twice.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 500_000

// Deduper records ids of waiting entrants.
type Deduper interface {
	// SeenAndRecord atomically checks if id is recorded and records it if not.
	// It returns true when id was already recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Forget removes ids so the entrants may queue again, typically once their
	// match is finalized or their group was dropped.
	Forget(ctx context.Context, ids ...string)

	Size() int64
}

type entry struct {
	id  string
	gen uint64
}

// inMemoryDeduper keeps ids in a map and evicts the oldest record once
// maxSize is reached. maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]uint64
	fifo    []entry
	gen     uint64
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]uint64)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 {
		for len(d.seen) >= d.maxSize && d.evictOldest() {
		}
	}
	d.gen++
	d.seen[id] = d.gen
	if d.maxSize > 0 {
		d.fifo = append(d.fifo, entry{id: id, gen: d.gen})
	}
	d.size.Store(int64(len(d.seen)))
	return false
}

func (d *inMemoryDeduper) Forget(_ context.Context, ids ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		delete(d.seen, id)
	}
	// drop stale fifo entries once they dominate the slice
	if len(d.fifo) > 2*len(d.seen)+64 {
		d.compact()
	}
	d.size.Store(int64(len(d.seen)))
}

// evictOldest removes the oldest live record. Callers hold d.mu.
func (d *inMemoryDeduper) evictOldest() bool {
	for len(d.fifo) > 0 {
		e := d.fifo[0]
		d.fifo = d.fifo[1:]
		if gen, ok := d.seen[e.id]; ok && gen == e.gen {
			delete(d.seen, e.id)
			return true
		}
	}
	return false
}

func (d *inMemoryDeduper) compact() {
	live := make([]entry, 0, len(d.seen))
	for _, e := range d.fifo {
		if gen, ok := d.seen[e.id]; ok && gen == e.gen {
			live = append(live, e)
		}
	}
	d.fifo = live
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
