package graph

import (
	"context"
	"sync"
)

// fakeBackend is a minimal Backend used across the graph package's tests:
// it records Process calls and reports whatever status it is configured
// with, without doing any real signal processing.
type fakeBackend struct {
	mu       sync.Mutex
	cb       BackendCallbacks
	status   ProcessStatus
	calls    int
	lastPos  Position
	setIOErr error
}

func (f *fakeBackend) SetIO(ctx context.Context, portID, ioID uint32, data []byte) error {
	return f.setIOErr
}

func (f *fakeBackend) SendCommand(ctx context.Context, cmd Command) error { return nil }

func (f *fakeBackend) SetCallbacks(cb BackendCallbacks) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *fakeBackend) EnumParams(ctx context.Context, paramID uint32, filter *Pod, start, num uint32) ([]Param, error) {
	return nil, nil
}

func (f *fakeBackend) SetParam(ctx context.Context, paramID uint32, flags uint32, value Pod) error {
	return nil
}

func (f *fakeBackend) Process(ctx context.Context, pos Position) ProcessStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastPos = pos
	return f.status
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeNegotiator completes synchronously, before Negotiate returns, by
// calling done itself.
type fakeNegotiator struct {
	err     error
	onStart func(seq uint32)
}

func (f *fakeNegotiator) Negotiate(ctx context.Context, seq uint32, output, input *Port, done func(seq uint32, err error)) error {
	if f.onStart != nil {
		f.onStart(seq)
	}
	done(seq, f.err)
	return nil
}
