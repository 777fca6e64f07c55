// Package queue implements the entrant source consumed by the intake loop.
//
// Entrants are delivered by enqueue time, then group id, then arrival order,
// so members of a group enqueued at the same instant arrive consecutively.
// Take blocks until an entrant is available, the queue is closed, or the
// context is cancelled.
package queue

import (
	"container/heap"
	"context"
	"fmt"
	"sync"

	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/metrics"
)

const defaultQueueCapacity = 100_000

// Source is the contract the intake loop consumes.
type Source interface {
	// Take returns the next entrant in delivery order.
	Take(ctx context.Context) (model.Entrant, error)
}

// Queue provides bounded enqueue and blocking, ordered dequeue.
type Queue interface {
	Source

	// Enqueue adds entrants atomically. Either all of them are queued or, when
	// the queue is closed or lacks room, none are.
	Enqueue(ctx context.Context, entrants ...model.Entrant) error

	// Len returns the current number of queued entrants.
	Len(ctx context.Context) int

	// Close wakes blocked consumers; further Enqueue calls fail and Take
	// drains what is left before reporting ErrClosed.
	Close() error

	IsClosed() bool
}

type item struct {
	entrant model.Entrant
	seq     uint64
}

type entrantHeap []item

func (h entrantHeap) Len() int { return len(h) }
func (h entrantHeap) Less(i, j int) bool {
	a, b := h[i].entrant, h[j].entrant
	if model.Before(a, b) {
		return true
	}
	if model.Before(b, a) {
		return false
	}
	return h[i].seq < h[j].seq
}
func (h entrantHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entrantHeap) Push(x any)   { *h = append(*h, x.(item)) }
func (h *entrantHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// PriorityQueue implements Queue with a binary heap.
type PriorityQueue struct {
	mu       sync.Mutex
	items    entrantHeap
	seq      uint64
	capacity int
	closed   bool
	// ready is closed and replaced whenever entrants arrive or the queue closes
	ready chan struct{}
}

// NewPriorityQueue creates an empty queue.
func NewPriorityQueue(opts ...Option) *PriorityQueue {
	q := &PriorityQueue{
		capacity: defaultQueueCapacity,
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue adds entrants in one step, so a group is never interleaved with a
// concurrent producer's entrants of the same timestamp and group id.
func (q *PriorityQueue) Enqueue(ctx context.Context, entrants ...model.Entrant) error {
	if err := ctx.Err(); err != nil {
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return fmt.Errorf("enqueue: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if len(q.items)+len(entrants) > q.capacity {
		metrics.RecordErrorByComponent("queue", "capacity_exceeded")
		return fmt.Errorf("enqueue %d entrants: %w", len(entrants), ErrFull)
	}

	for _, e := range entrants {
		q.seq++
		heap.Push(&q.items, item{entrant: e, seq: q.seq})
		metrics.RecordEntrantEnqueued()
	}
	q.updateMetricsLocked()
	q.signalLocked()
	return nil
}

// Take blocks for the next entrant. It returns ctx.Err() when ctx is
// cancelled and ErrClosed once the queue is closed and drained.
func (q *PriorityQueue) Take(ctx context.Context) (model.Entrant, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			it := heap.Pop(&q.items).(item)
			q.updateMetricsLocked()
			q.mu.Unlock()
			return it.entrant, nil
		}
		if q.closed {
			q.mu.Unlock()
			return model.Entrant{}, ErrClosed
		}
		ready := q.ready
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return model.Entrant{}, ctx.Err()
		case <-ready:
		}
	}
}

// Len returns the number of queued entrants.
func (q *PriorityQueue) Len(_ context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting entrants and wakes blocked consumers.
func (q *PriorityQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	q.signalLocked()
	return nil
}

// IsClosed reports whether Close was called.
func (q *PriorityQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *PriorityQueue) signalLocked() {
	close(q.ready)
	q.ready = make(chan struct{})
}

func (q *PriorityQueue) updateMetricsLocked() {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
