package graph

import (
	"sync"

	"github.com/joeycumines/go-microbatch"
)

// WorkItem is a unit of asynchronous backend work in flight: a negotiation,
// a buffer allocation, anything a Backend can't finish synchronously inside
// one of the six Backend methods.
type WorkItem struct {
	Seq    uint32
	NodeID uint32
	Kind   string
}

// WorkQueue tracks in-flight WorkItems and batches their completions before
// delivering them to the main thread, using the example pack's ping-pong
// channel batcher so a burst of near-simultaneous async completions (e.g.
// every link in a graph finishing negotiation within the same millisecond)
// produces one drain instead of one goroutine wake per item.
type WorkQueue struct {
	mu      sync.Mutex
	pending map[uint32]WorkItem

	batcher *microbatch.Batcher[completion]
}

type completion struct {
	seq uint32
	err error
}

// NewWorkQueue constructs a WorkQueue that calls onBatch with every
// completion collected within one batching window.
func NewWorkQueue(onBatch func([]WorkItem, []error)) *WorkQueue {
	wq := &WorkQueue{pending: make(map[uint32]WorkItem)}
	wq.batcher = microbatch.NewBatcher(func(batch []completion) {
		items := make([]WorkItem, 0, len(batch))
		errs := make([]error, 0, len(batch))
		wq.mu.Lock()
		for _, c := range batch {
			if item, ok := wq.pending[c.seq]; ok {
				items = append(items, item)
				errs = append(errs, c.err)
				delete(wq.pending, c.seq)
			}
		}
		wq.mu.Unlock()
		if len(items) > 0 {
			onBatch(items, errs)
		}
	})
	return wq
}

// Add registers a WorkItem as in flight, keyed by its Seq.
func (wq *WorkQueue) Add(item WorkItem) {
	wq.mu.Lock()
	wq.pending[item.Seq] = item
	wq.mu.Unlock()
}

// Complete reports that the work item identified by seq finished, with an
// optional error. Safe to call from any goroutine, including a backend's
// own async completion callback.
func (wq *WorkQueue) Complete(seq uint32, err error) {
	wq.batcher.Push(completion{seq: seq, err: err})
}

// Len reports the number of work items currently in flight.
func (wq *WorkQueue) Len() int {
	wq.mu.Lock()
	defer wq.mu.Unlock()
	return len(wq.pending)
}

// Close stops the underlying batcher, flushing anything already pushed.
func (wq *WorkQueue) Close() {
	wq.batcher.Close()
}
