// Package queue provides the shared task queue consumed by the thread pool.
//
// A Queue is an unbounded FIFO that any number of goroutines may post to and
// pull from. Consumers block in Next while the queue is empty and at least one
// Work guard is outstanding; once every guard is released an empty queue makes
// Next return immediately. Stop releases every consumer regardless of guards
// or pending items.
package queue

import (
	"errors"
	"sync"
)

const Namespace = "queue"

// ErrStopped is returned by Post once Stop has been called.
var ErrStopped = errors.New(Namespace + ": queue stopped")

// Queue is a thread-safe FIFO of work items.
// The zero value is not usable; construct with New.
type Queue[T any] struct {
	mu   sync.Mutex
	cond *sync.Cond

	// ring buffer
	items []T
	head  int
	size  int

	guards  int
	stopped bool
	hint    int
}

// New creates a queue. concurrencyHint is the expected number of consumers;
// it presizes the backing buffer and is otherwise advisory.
func New[T any](concurrencyHint int) *Queue[T] {
	if concurrencyHint < 1 {
		concurrencyHint = 1
	}
	q := &Queue[T]{
		items: make([]T, concurrencyHint*2),
		hint:  concurrencyHint,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// ConcurrencyHint returns the hint the queue was created with.
func (q *Queue[T]) ConcurrencyHint() int { return q.hint }

// Post appends item to the queue and wakes one waiting consumer.
func (q *Queue[T]) Post(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return ErrStopped
	}
	if q.size == len(q.items) {
		q.grow()
	}
	q.items[(q.head+q.size)%len(q.items)] = item
	q.size++
	q.cond.Signal()
	return nil
}

// Next removes and returns the oldest item.
//
// It blocks while the queue is empty and a Work guard is outstanding.
// It returns false when the queue has been stopped, or when the queue is
// empty and no guard is outstanding.
func (q *Queue[T]) Next() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	for {
		if q.stopped {
			return zero, false
		}
		if q.size > 0 {
			item := q.items[q.head]
			q.items[q.head] = zero
			q.head = (q.head + 1) % len(q.items)
			q.size--
			return item, true
		}
		if q.guards == 0 {
			return zero, false
		}
		q.cond.Wait()
	}
}

// Stop marks the queue finished. Every blocked and future Next returns false,
// and Post starts failing with ErrStopped. Items still queued are abandoned.
// Stop is idempotent.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Stopped reports whether Stop has been called.
func (q *Queue[T]) Stopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}

// Len returns the number of queued items not yet handed to a consumer.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// NewWork takes a keep-alive guard on the queue.
func (q *Queue[T]) NewWork() *Work {
	q.mu.Lock()
	q.guards++
	q.mu.Unlock()
	return &Work{release: q.releaseGuard}
}

func (q *Queue[T]) releaseGuard() {
	q.mu.Lock()
	q.guards--
	last := q.guards == 0
	q.mu.Unlock()
	if last {
		// idle consumers must observe the empty, unguarded queue
		q.cond.Broadcast()
	}
}

// grow doubles the ring. Caller holds q.mu.
func (q *Queue[T]) grow() {
	n := len(q.items) * 2
	if n == 0 {
		n = 2
	}
	items := make([]T, n)
	for i := 0; i < q.size; i++ {
		items[i] = q.items[(q.head+i)%len(q.items)]
	}
	q.items = items
	q.head = 0
}

// Work keeps a Queue's consumers parked in Next while the queue is empty.
type Work struct {
	once    sync.Once
	release func()
}

// Release drops the guard. Only the first call has an effect.
func (w *Work) Release() {
	w.once.Do(w.release)
}
