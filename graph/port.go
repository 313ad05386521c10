package graph

import "sync"

// Port is an input or output point of attachment on a Node. A Port's
// lifecycle is entirely driven by its owning Node and the Links attached to
// it; callers never transition a Port's state directly.
type Port struct {
	id        uint32
	node      *Node
	direction Direction

	mu     sync.RWMutex
	state  PortState
	info   Info
	params map[uint32]Pod

	linksMu sync.Mutex
	links   map[uint32]*Link
}

func newPort(id uint32, node *Node, dir Direction) *Port {
	return &Port{
		id:        id,
		node:      node,
		direction: dir,
		state:     PortInit,
		params:    make(map[uint32]Pod),
		links:     make(map[uint32]*Link),
	}
}

// ID returns the port's identity, stable for its lifetime.
func (p *Port) ID() uint32 { return p.id }

// Direction reports whether this is an input or output port.
func (p *Port) Direction() Direction { return p.direction }

// Node returns the owning node.
func (p *Port) Node() *Node { return p.node }

// State returns the port's current lifecycle state.
func (p *Port) State() PortState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Port) setState(s PortState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Info returns a snapshot of the port's descriptive info.
func (p *Port) Info() Info {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.info
}

// UpdateInfo replaces the port's descriptive info (name, format, flags),
// forbidden once the port has an active link, matching the spec's
// "configuration cannot change under an active link" invariant.
func (p *Port) UpdateInfo(info Info) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == PortReady || p.state == PortPaused {
		for _, l := range p.snapshotLinks() {
			if l.State() == LinkActive {
				return &BadStateError{Entity: "port", State: p.state, Op: "update_info"}
			}
		}
	}
	p.info = info
	return nil
}

// SetParam stores a parameter value for later enumeration and forwards it
// to the node's backend via SendCommand, matching the spec's "set_param
// forwards a ParamChanged command" note.
func (p *Port) SetParam(paramID uint32, value Pod) error {
	p.mu.Lock()
	p.params[paramID] = value
	p.mu.Unlock()
	return p.node.sendParamChanged(p, paramID, value)
}

// Param returns a previously set parameter, if any.
func (p *Port) Param(paramID uint32) (Pod, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.params[paramID]
	return v, ok
}

func (p *Port) snapshotLinks() []*Link {
	p.linksMu.Lock()
	defer p.linksMu.Unlock()
	out := make([]*Link, 0, len(p.links))
	for _, l := range p.links {
		out = append(out, l)
	}
	return out
}

func (p *Port) addLink(l *Link) {
	p.linksMu.Lock()
	p.links[l.id] = l
	p.linksMu.Unlock()
	p.setState(PortReady)
}

func (p *Port) removeLink(id uint32) {
	p.linksMu.Lock()
	delete(p.links, id)
	remaining := len(p.links)
	p.linksMu.Unlock()
	if remaining == 0 {
		p.setState(PortConfigure)
	}
}

// Destroy tears the port down: every attached link is destroyed first, then
// the port is detached from its node.
func (p *Port) Destroy() {
	for _, l := range p.snapshotLinks() {
		l.Destroy()
	}
	p.node.removePort(p)
}
