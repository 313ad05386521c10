package graph

import (
	"context"
	"sync"
	"sync/atomic"
)

// FormatNegotiator is implemented by whatever resolves the buffer format
// two linked ports will exchange. Actual negotiation algorithms are out of
// scope (see Non-goals): this interface only describes the asynchronous
// handshake shape the Link drives, so a caller can plug in any negotiator,
// including a trivial always-succeeds one for tests.
type FormatNegotiator interface {
	// Negotiate begins a negotiation for the link, identified by seq. The
	// negotiator must eventually call done exactly once with that same
	// seq, either synchronously before returning or from any goroutine
	// afterwards.
	Negotiate(ctx context.Context, seq uint32, output, input *Port, done func(seq uint32, err error)) error
}

// Link connects an output port of one node to the input port of another.
// Its lifecycle (Init -> Negotiating -> Allocating -> Active, with
// Deactivate moving Active -> Paused and Activate moving it back) is
// driven by Negotiate/Activate/Deactivate/Destroy; a Link never transitions
// itself without one of those being called.
type Link struct {
	id uint32

	output *Port
	input  *Port

	negotiator FormatNegotiator

	mu    sync.RWMutex
	state LinkState
	err   error

	seq atomic.Uint32

	core *Core
}

// NewLink constructs a link between output and input, in LinkInit, not yet
// attached to either port.
func NewLink(core *Core, output, input *Port, negotiator FormatNegotiator) (*Link, error) {
	if output.Direction() != DirectionOutput {
		return nil, &InvalidError{Message: "output port must be an output"}
	}
	if input.Direction() != DirectionInput {
		return nil, &InvalidError{Message: "input port must be an input"}
	}
	l := &Link{
		id:         core.AllocID(),
		output:     output,
		input:      input,
		negotiator: negotiator,
		state:      LinkInit,
		core:       core,
	}
	return l, nil
}

// ID returns the link's identity.
func (l *Link) ID() uint32 { return l.id }

// State returns the link's current lifecycle state.
func (l *Link) State() LinkState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *Link) setState(s LinkState) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Negotiate kicks off format negotiation asynchronously. The link moves to
// LinkNegotiating immediately and to LinkAllocating (or LinkError) once the
// negotiator reports completion.
func (l *Link) Negotiate(ctx context.Context) error {
	l.mu.Lock()
	if l.state != LinkInit {
		s := l.state
		l.mu.Unlock()
		return &BadStateError{Entity: "link", State: s, Op: "negotiate"}
	}
	l.state = LinkNegotiating
	l.mu.Unlock()

	seq := l.seq.Add(1)
	if err := l.negotiator.Negotiate(ctx, seq, l.output, l.input, l.onNegotiateDone); err != nil {
		l.fail(err)
		return &BackendError{Op: "negotiate", Result: err}
	}
	return nil
}

// onNegotiateDone is the done callback handed to the negotiator. A stale
// seq (one that doesn't match the most recent Negotiate call) is ignored,
// matching the spec's note that async completions must match the sequence
// number they were issued with.
func (l *Link) onNegotiateDone(seq uint32, err error) {
	if seq != l.seq.Load() {
		return
	}
	if err != nil {
		l.fail(err)
		return
	}
	l.setState(LinkAllocating)
}

func (l *Link) fail(err error) {
	l.mu.Lock()
	l.state = LinkError
	l.err = err
	l.mu.Unlock()
}

// Err returns the error that moved the link to LinkError, if any.
func (l *Link) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Activate transitions an allocated link to Active, wiring it into the
// activation graph: the output port's node becomes a feeder of the input
// port's node, incrementing the input node's required fan-in by one.
func (l *Link) Activate() error {
	l.mu.Lock()
	if l.state != LinkAllocating && l.state != LinkPaused {
		s := l.state
		l.mu.Unlock()
		return &BadStateError{Entity: "link", State: s, Op: "activate"}
	}
	l.state = LinkActive
	l.mu.Unlock()

	l.input.node.activation.IncrementRequired(1)
	l.output.addLink(l)
	l.input.addLink(l)
	return nil
}

// Deactivate pauses an active link without destroying it: the downstream
// node's required fan-in is decremented so the driver no longer waits on
// this feeder.
func (l *Link) Deactivate() error {
	l.mu.Lock()
	if l.state != LinkActive {
		s := l.state
		l.mu.Unlock()
		return &BadStateError{Entity: "link", State: s, Op: "deactivate"}
	}
	l.state = LinkPaused
	l.mu.Unlock()

	l.input.node.activation.DecrementRequired(1)
	return nil
}

// Destroy tears the link down, deactivating it first if still active, and
// detaches it from both ports.
func (l *Link) Destroy() {
	if l.State() == LinkActive {
		_ = l.Deactivate()
	}
	l.setState(LinkInit)
	l.output.removeLink(l.id)
	l.input.removeLink(l.id)
}
