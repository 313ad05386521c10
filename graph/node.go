package graph

import (
	"context"
	"sync"
	"sync/atomic"
)

// Node is a single signal-processing unit in the graph: a named bundle of
// ports, backed by a Backend that does the actual work. A Node's topology
// (its ports and the links attached to them) is owned by the main thread.
// The realtime thread touches its per-cycle activation record and, through
// runCycle, sets its state to NodeRunning.
type Node struct {
	id   uint32
	core *Core

	mu      sync.RWMutex
	state   NodeState
	info    Info
	active  bool
	driver  bool
	backend Backend

	portsMu sync.Mutex
	ports   map[uint32]*Port

	activation *ActivationRecord

	listenersMu sync.Mutex
	listeners   []nodeListener

	// driverOf, when non-nil, is the Driver that elected this node as its
	// driver node. Set by (*Driver).RecalcGraph when the invoke queue
	// applies its election.
	driverOf atomic.Pointer[Driver]
}

// NodeEvent is delivered to a node's listeners on state or info changes.
type NodeEvent struct {
	Kind  string
	State NodeState
}

type nodeListener struct {
	dead bool
	fn   func(NodeEvent)
}

// NewNode constructs a node owned by core, allocates its id, and registers
// it. The node starts in NodeCreating with no backend attached.
func NewNode(core *Core, info Info) (*Node, error) {
	a, err := NewActivationRecord()
	if err != nil {
		return nil, err
	}
	n := &Node{
		id:         core.AllocID(),
		core:       core,
		state:      NodeCreating,
		info:       info,
		ports:      make(map[uint32]*Port),
		activation: a,
	}
	if err := core.RegisterNode(n); err != nil {
		a.Close()
		return nil, err
	}
	return n, nil
}

// ID returns the node's identity, stable for its lifetime.
func (n *Node) ID() uint32 { return n.id }

// State returns the node's current lifecycle state.
func (n *Node) State() NodeState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// Info returns a snapshot of the node's descriptive info.
func (n *Node) Info() Info {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.info
}

// SetImplementation attaches (or replaces) the node's backend. Only valid
// while the node is NodeCreating or NodeSuspended.
func (n *Node) SetImplementation(b Backend) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != NodeCreating && n.state != NodeSuspended {
		return &BadStateError{Entity: "node", State: n.state, Op: "set_implementation"}
	}
	n.backend = b
	b.SetCallbacks(BackendCallbacks{
		Done:         func(seq uint32, err error) { n.onAsyncDone(seq, err) },
		NeedsProcess: func() { n.requestProcess() },
	})
	return nil
}

// Register transitions a freshly created node to NodeSuspended, the state
// from which it becomes eligible for activation.
func (n *Node) Register() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != NodeCreating {
		return &BadStateError{Entity: "node", State: n.state, Op: "register"}
	}
	n.state = NodeSuspended
	n.emit(NodeEvent{Kind: "state", State: n.state})
	return nil
}

// SetState forces a node's lifecycle state, used by the driver protocol to
// move a node to NodeRunning/NodeIdle/NodeError and by callers to suspend a
// node manually. Forcing NodeRunning or NodeIdle directly (rather than via
// SetActive) is reserved for the driver's own bookkeeping.
func (n *Node) SetState(s NodeState) {
	n.mu.Lock()
	old := n.state
	n.state = s
	n.mu.Unlock()
	if old != s {
		n.emit(NodeEvent{Kind: "state", State: s})
	}
}

// SetActive marks a node wanting to process (true) or idle (false). A node
// that is active but has no driver stays NodeIdle until a driver elects it
// onto a target list; deactivating a running node moves it to NodeIdle.
func (n *Node) SetActive(active bool) error {
	n.mu.Lock()
	if n.state != NodeSuspended && n.state != NodeIdle && n.state != NodeRunning {
		s := n.state
		n.mu.Unlock()
		return &BadStateError{Entity: "node", State: s, Op: "set_active"}
	}
	n.active = active
	if active && n.state == NodeSuspended {
		n.state = NodeIdle
	} else if !active && n.state == NodeRunning {
		n.state = NodeIdle
	}
	s := n.state
	n.mu.Unlock()
	n.emit(NodeEvent{Kind: "state", State: s})
	return nil
}

// Active reports the node's last requested active flag.
func (n *Node) Active() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.active
}

// SetDriver marks a node as eligible to act as a graph driver. Drivers are
// elected by (*Driver).electDriver from among nodes with this flag set.
func (n *Node) SetDriver(isDriver bool) {
	n.mu.Lock()
	n.driver = isDriver
	n.mu.Unlock()
}

// IsDriverCapable reports whether SetDriver(true) was called on this node.
func (n *Node) IsDriverCapable() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.driver
}

// NewPort creates and attaches a new port to the node.
func (n *Node) NewPort(dir Direction, info Info) (*Port, error) {
	id := n.core.AllocID()
	p := newPort(id, n, dir)
	p.info = info
	n.portsMu.Lock()
	n.ports[id] = p
	n.portsMu.Unlock()
	return p, nil
}

// Port looks up one of the node's ports by id.
func (n *Node) Port(id uint32) (*Port, error) {
	n.portsMu.Lock()
	defer n.portsMu.Unlock()
	p, ok := n.ports[id]
	if !ok {
		return nil, &NoEntityError{Kind: "port", ID: id}
	}
	return p, nil
}

// Ports returns a snapshot of the node's ports.
func (n *Node) Ports() []*Port {
	n.portsMu.Lock()
	defer n.portsMu.Unlock()
	out := make([]*Port, 0, len(n.ports))
	for _, p := range n.ports {
		out = append(out, p)
	}
	return out
}

func (n *Node) removePort(p *Port) {
	n.portsMu.Lock()
	delete(n.ports, p.id)
	n.portsMu.Unlock()
}

// ForEachParam enumerates the node's parameters of the given id via its
// backend, synchronously.
func (n *Node) ForEachParam(ctx context.Context, paramID uint32, filter *Pod, fn func(Param) bool) error {
	n.mu.RLock()
	b := n.backend
	n.mu.RUnlock()
	if b == nil {
		return &BadStateError{Entity: "node", State: n.State(), Op: "enum_params"}
	}
	var start uint32
	for {
		params, err := b.EnumParams(ctx, paramID, filter, start, 64)
		if err != nil {
			return &BackendError{Op: "enum_params", Result: err}
		}
		if len(params) == 0 {
			return nil
		}
		for _, p := range params {
			if !fn(p) {
				return nil
			}
		}
		start += uint32(len(params))
	}
}

// SetParam applies a node-scoped (not port-scoped) parameter.
func (n *Node) SetParam(ctx context.Context, paramID uint32, flags uint32, value Pod) error {
	n.mu.RLock()
	b := n.backend
	n.mu.RUnlock()
	if b == nil {
		return &BadStateError{Entity: "node", State: n.State(), Op: "set_param"}
	}
	if err := b.SetParam(ctx, paramID, flags, value); err != nil {
		return &BackendError{Op: "set_param", Result: err}
	}
	return nil
}

func (n *Node) sendParamChanged(p *Port, paramID uint32, value Pod) error {
	n.mu.RLock()
	b := n.backend
	n.mu.RUnlock()
	if b == nil {
		return &BadStateError{Entity: "node", State: n.State(), Op: "set_param"}
	}
	if err := b.SendCommand(context.Background(), Command{Type: "ParamChanged", Param: value}); err != nil {
		return &BackendError{Op: "param_changed", Result: err}
	}
	return nil
}

// AddListener registers fn to receive future node events, returning a
// function that removes it.
func (n *Node) AddListener(fn func(NodeEvent)) (remove func()) {
	n.listenersMu.Lock()
	defer n.listenersMu.Unlock()
	idx := len(n.listeners)
	n.listeners = append(n.listeners, nodeListener{fn: fn})
	var once sync.Once
	return func() {
		once.Do(func() {
			n.listenersMu.Lock()
			defer n.listenersMu.Unlock()
			if idx < len(n.listeners) {
				n.listeners[idx].dead = true
			}
		})
	}
}

func (n *Node) emit(ev NodeEvent) {
	n.listenersMu.Lock()
	snapshot := make([]nodeListener, len(n.listeners))
	copy(snapshot, n.listeners)
	n.listenersMu.Unlock()
	for _, l := range snapshot {
		if !l.dead {
			l.fn(ev)
		}
	}
}

// runCycle invokes the node's backend for one cycle. Called only from the
// realtime thread via targetEntry.signal.
func (n *Node) runCycle(a *ActivationRecord) {
	n.mu.RLock()
	b := n.backend
	n.mu.RUnlock()
	if b == nil {
		return
	}
	n.SetState(NodeRunning)
	b.Process(context.Background(), a.Position())
}

func (n *Node) onAsyncDone(seq uint32, err error) {
	if err != nil {
		n.SetState(NodeError)
		n.core.logger.Error("async backend operation failed", err, map[string]any{"node": n.id, "seq": seq})
	}
}

func (n *Node) requestProcess() {
	if d := n.driverOf.Load(); d != nil {
		d.RequestProcess(n)
	}
}

// Destroy tears the node down: every port (and transitively every link
// attached to it) is destroyed, then the node is unregistered from its
// Core and its activation record's shared memory released.
func (n *Node) Destroy() {
	for _, p := range n.Ports() {
		p.Destroy()
	}
	n.core.UnregisterNode(n)
	n.activation.Close()
}
