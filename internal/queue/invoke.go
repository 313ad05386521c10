// Package queue provides the invoke queue used to marshal topology mutations
// from the main/data-loop context onto the realtime thread, at well-defined
// drain points inside the per-cycle protocol.
//
// The design follows the teacher event loop's ChunkedIngress: a chunked
// linked list of fixed-size arrays, recycled via a sync.Pool, protected by a
// single mutex. The teacher's own benchmarks found mutex+chunking
// outperforms a lock-free MPSC ring under contention (retry storms as
// producer count grows), so this module keeps that choice rather than
// reaching for a lock-free structure for its own sake.
package queue

import "sync"

const chunkSize = 128

// Invoke is a single topology-mutation closure, captured by value at
// enqueue time so the realtime thread never touches main-thread memory it
// doesn't own.
type Invoke func()

type chunk struct {
	items   [chunkSize]Invoke
	next    *chunk
	readPos int
	pos     int
}

var chunkPool = sync.Pool{New: func() any { return &chunk{} }}

func newChunk() *chunk {
	c := chunkPool.Get().(*chunk)
	c.pos, c.readPos, c.next = 0, 0, nil
	return c
}

func returnChunk(c *chunk) {
	for i := 0; i < c.pos; i++ {
		c.items[i] = nil
	}
	c.pos, c.readPos, c.next = 0, 0, nil
	chunkPool.Put(c)
}

// Queue is a multi-producer/single-consumer FIFO of Invoke closures.
// Producers (main-thread callers, from any goroutine) call Push under the
// internal mutex; the single consumer (the driver's realtime goroutine)
// calls Drain at the start of each cycle.
type Queue struct {
	mu         sync.Mutex
	head, tail *chunk
	length     int
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Push enqueues fn for execution on the consumer goroutine. Safe to call
// from any goroutine.
func (q *Queue) Push(fn Invoke) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.tail == nil {
		q.tail = newChunk()
		q.head = q.tail
	}
	if q.tail.pos == chunkSize {
		next := newChunk()
		q.tail.next = next
		q.tail = next
	}
	q.tail.items[q.tail.pos] = fn
	q.tail.pos++
	q.length++
}

// Len returns the number of pending invocations. Safe to call from any
// goroutine, but the result may be stale the instant it is returned.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.length
}

// Drain removes and runs every pending invocation, in FIFO order. Must only
// be called from the single consumer goroutine (the driver's realtime
// thread), at a cycle boundary.
func (q *Queue) Drain() (ran int) {
	for {
		fn, ok := q.pop()
		if !ok {
			return ran
		}
		fn()
		ran++
	}
}

func (q *Queue) pop() (Invoke, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == nil {
		return nil, false
	}
	if q.head.readPos >= q.head.pos {
		if q.head == q.tail {
			q.head.pos, q.head.readPos = 0, 0
			return nil, false
		}
		old := q.head
		q.head = q.head.next
		returnChunk(old)
	}
	if q.head.readPos >= q.head.pos {
		return nil, false
	}

	fn := q.head.items[q.head.readPos]
	q.head.items[q.head.readPos] = nil
	q.head.readPos++
	q.length--

	if q.head.readPos >= q.head.pos && q.head != q.tail {
		old := q.head
		q.head = q.head.next
		returnChunk(old)
	}
	return fn, true
}
