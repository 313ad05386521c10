package graph

import "context"

// Backend is implemented by whatever owns the actual signal-processing
// work for a node (a plugin, a device driver, a remote peer proxy). The
// graph package only ever calls these six methods; everything else about
// a node's concrete behaviour is opaque to it, matching the spec's
// separation between topology and processing.
type Backend interface {
	// SetIO installs or updates a shared buffer for the given port io id.
	SetIO(ctx context.Context, portID uint32, ioID uint32, data []byte) error

	// SendCommand delivers an out-of-band control message (Pause, Start,
	// ParamChanged, ...).
	SendCommand(ctx context.Context, cmd Command) error

	// SetCallbacks installs the hooks the backend uses to report async
	// results and request a future process() call.
	SetCallbacks(cb BackendCallbacks)

	// EnumParams lists the backend's parameters of the given id, optionally
	// filtered, returning at most num values starting at index start.
	EnumParams(ctx context.Context, paramID uint32, filter *Pod, start, num uint32) ([]Param, error)

	// SetParam applies a parameter value.
	SetParam(ctx context.Context, paramID uint32, flags uint32, value Pod) error

	// Process runs one cycle's worth of work. Called only from the
	// realtime thread, never concurrently with itself for the same
	// backend, and must not block on anything but the data it was handed.
	Process(ctx context.Context, pos Position) ProcessStatus
}

// BackendCallbacks lets a Backend signal completion of async work (format
// negotiation, buffer allocation) back into the graph without blocking its
// own goroutine.
type BackendCallbacks struct {
	// Done reports the result of a previously requested async operation,
	// keyed by the sequence number the graph supplied when it asked for it.
	Done func(seq uint32, err error)
	// NeedsProcess is forwarded to RequestProcess of the Driver that
	// elected this node as its driver node; for any other node it does
	// nothing.
	NeedsProcess func()
}

// ProcessStatus is the result backend.Process() reports for a cycle. The
// graph does not inspect it: a node's downstream targets are signalled after
// every Process call, whatever status it returns.
type ProcessStatus int

const (
	// StatusHaveData indicates the node produced data.
	StatusHaveData ProcessStatus = iota
	// StatusNeedData indicates the node is waiting on upstream input.
	StatusNeedData
	// StatusFlush indicates buffered state should be discarded.
	StatusFlush
)

// Command is an out-of-band control message delivered via SendCommand.
type Command struct {
	Type  string
	Param Pod
}

// Pod is an opaque parameter/property payload, deliberately untyped: the
// wire format for actual parameter negotiation is out of scope (see
// Non-goals), so the graph package only ever moves these values around
// without interpreting them.
type Pod struct {
	Type uint32
	Data []byte
}

// Param is one enumerated parameter value together with its id.
type Param struct {
	ID    uint32
	Value Pod
}
