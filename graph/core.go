package graph

import (
	"sync"
	"sync/atomic"

	"github.com/joeycumines/graphcore/internal/queue"
)

// Core is the top-level arena: it owns id allocation, the node/port/link
// registries, the global listener list, and the invoke queue used to marshal
// topology mutations onto the realtime thread. Every entity constructed
// through a Core is reachable from it, replacing what would otherwise be
// package-level mutable registries.
//
// A Core is safe for concurrent use. Registry mutation (Register/Unregister)
// takes the main-thread lock; lookups may be called from either thread.
type Core struct {
	opts coreOptions

	nextID uint32 // atomic

	mu    sync.RWMutex
	nodes map[uint32]*Node

	listenersMu sync.Mutex
	listeners   []coreListener

	invoke *queue.Queue

	logger Logger
}

// coreListener is a single registered core-event callback, with a tombstone
// flag so removal never disturbs an emit already iterating its snapshot.
// reapListeners compacts the slice, so an entry is found by its key rather
// than by its index.
type coreListener struct {
	key  *int
	dead bool
	fn   func(CoreEvent)
}

// CoreEvent is delivered to core listeners for global lifecycle
// notifications not tied to a single node (e.g. driver changes, graph
// recalculation).
type CoreEvent struct {
	Kind string
	Node *Node // nil for node-independent events
}

// NewCore constructs an empty Core ready to register nodes into.
func NewCore(opts ...CoreOption) *Core {
	c := &Core{
		nodes:  make(map[uint32]*Node),
		invoke: queue.New(),
	}
	for _, o := range opts {
		o.applyCore(&c.opts)
	}
	c.logger = c.opts.logger
	if c.logger == nil {
		c.logger = NopLogger{}
	}
	return c
}

// AllocID returns a fresh, never-reused id for a new entity (node, port or
// link share the same id space, matching the reference implementation).
func (c *Core) AllocID() uint32 {
	return atomic.AddUint32(&c.nextID, 1)
}

// Invoke schedules fn to run on the realtime thread, at the next cycle
// boundary where the driver drains its invoke queue. Safe to call from any
// goroutine; fn itself must not block.
func (c *Core) Invoke(fn func()) {
	c.invoke.Push(fn)
}

// DrainInvokeQueue runs every pending invocation, in FIFO order. Called by a
// Driver's realtime loop at the top of each cycle; not meaningful to call
// otherwise.
func (c *Core) DrainInvokeQueue() int {
	return c.invoke.Drain()
}

// RegisterNode adds n to the registry under its id. Returns ExistsError if
// the id is already taken.
func (c *Core) RegisterNode(n *Node) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.nodes[n.id]; ok {
		return &ExistsError{Kind: "node", ID: n.id}
	}
	c.nodes[n.id] = n
	c.emit(CoreEvent{Kind: "node-added", Node: n})
	return nil
}

// UnregisterNode removes n from the registry.
func (c *Core) UnregisterNode(n *Node) {
	c.mu.Lock()
	_, ok := c.nodes[n.id]
	delete(c.nodes, n.id)
	c.mu.Unlock()
	if ok {
		c.emit(CoreEvent{Kind: "node-removed", Node: n})
	}
}

// Node looks up a registered node by id.
func (c *Core) Node(id uint32) (*Node, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.nodes[id]
	if !ok {
		return nil, &NoEntityError{Kind: "node", ID: id}
	}
	return n, nil
}

// Nodes returns a snapshot slice of every currently registered node. The
// order is unspecified.
func (c *Core) Nodes() []*Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Node, 0, len(c.nodes))
	for _, n := range c.nodes {
		out = append(out, n)
	}
	return out
}

// AddListener registers fn to receive future core events. The returned
// function removes the listener; it is safe to call more than once and safe
// to call concurrently with Emit.
func (c *Core) AddListener(fn func(CoreEvent)) (remove func()) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	key := new(int)
	c.listeners = append(c.listeners, coreListener{key: key, fn: fn})
	var once sync.Once
	return func() {
		once.Do(func() {
			c.listenersMu.Lock()
			defer c.listenersMu.Unlock()
			for i := range c.listeners {
				if c.listeners[i].key == key {
					c.listeners[i].dead = true
				}
			}
			c.reapListeners()
		})
	}
}

// reapListeners compacts the slice once at least half of the entries are
// tombstoned, mirroring the mark-dead-then-reap discipline used for the
// per-node port/link listener lists.
func (c *Core) reapListeners() {
	dead := 0
	for _, l := range c.listeners {
		if l.dead {
			dead++
		}
	}
	if dead == 0 || dead*2 < len(c.listeners) {
		return
	}
	live := c.listeners[:0]
	for _, l := range c.listeners {
		if !l.dead {
			live = append(live, l)
		}
	}
	c.listeners = live
}

func (c *Core) emit(ev CoreEvent) {
	c.listenersMu.Lock()
	snapshot := make([]coreListener, len(c.listeners))
	copy(snapshot, c.listeners)
	c.listenersMu.Unlock()
	for _, l := range snapshot {
		if !l.dead {
			l.fn(ev)
		}
	}
}
