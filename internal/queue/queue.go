package queue

import (
	"errors"
	"sync"

	"factorize/internal/task"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 128

// ErrClosed is returned by Put once the queue has been closed.
var ErrClosed = errors.New("queue closed")

// Queue is a bounded ring buffer of entries with blocking Put and Take.
type Queue struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	slots  []task.Entry
	head   int
	tail   int
	count  int
	closed bool
}

// New creates a queue holding at most capacity entries.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	q := &Queue{
		slots: make([]task.Entry, capacity),
	}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Put appends e at the tail, blocking while the queue is full.
// It returns ErrClosed if the queue is closed before e could be stored.
func (q *Queue) Put(e task.Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == len(q.slots) && !q.closed {
		q.notFull.Wait()
	}
	if q.closed {
		return ErrClosed
	}

	q.slots[q.tail] = e
	q.tail = (q.tail + 1) % len(q.slots)
	q.count++

	q.notEmpty.Signal()
	return nil
}

// Take removes the entry at the head, blocking while the queue is empty.
// It returns ok == false once the queue is both closed and empty.
func (q *Queue) Take() (e task.Entry, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 {
		if q.closed {
			return task.Entry{}, false
		}
		q.notEmpty.Wait()
	}

	e = q.slots[q.head]
	q.slots[q.head] = task.Entry{}
	q.head = (q.head + 1) % len(q.slots)
	q.count--

	q.notFull.Signal()
	return e, true
}

// Close marks the queue closed and wakes every blocked caller.
// Entries already queued remain available to Take. Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true

	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the fixed capacity.
func (q *Queue) Cap() int {
	return len(q.slots)
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
