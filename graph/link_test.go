package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestNodeWithPort(t *testing.T, core *Core, dir Direction) (*Node, *Port) {
	t.Helper()
	n, err := NewNode(core, Info{Name: "n"})
	require.NoError(t, err)
	require.NoError(t, n.SetImplementation(&fakeBackend{}))
	require.NoError(t, n.Register())
	require.NoError(t, n.SetActive(true))
	p, err := n.NewPort(dir, Info{Name: "p"})
	require.NoError(t, err)
	return n, p
}

func TestLinkFullLifecycle(t *testing.T) {
	core := NewCore()
	_, outPort := newTestNodeWithPort(t, core, DirectionOutput)
	inNode, inPort := newTestNodeWithPort(t, core, DirectionInput)

	l, err := NewLink(core, outPort, inPort, &fakeNegotiator{})
	require.NoError(t, err)
	require.Equal(t, LinkInit, l.State())

	require.NoError(t, l.Negotiate(context.Background()))
	require.Equal(t, LinkAllocating, l.State())

	require.NoError(t, l.Activate())
	require.Equal(t, LinkActive, l.State())
	require.EqualValues(t, 1, inNode.activation.Required())

	require.NoError(t, l.Deactivate())
	require.Equal(t, LinkPaused, l.State())
	require.EqualValues(t, 0, inNode.activation.Required())

	l.Destroy()
	require.Empty(t, outPort.snapshotLinks())
	require.Empty(t, inPort.snapshotLinks())
}

func TestLinkDirectionMismatchRejected(t *testing.T) {
	core := NewCore()
	_, a := newTestNodeWithPort(t, core, DirectionInput)
	_, b := newTestNodeWithPort(t, core, DirectionInput)

	_, err := NewLink(core, a, b, &fakeNegotiator{})
	require.Error(t, err)
}

func TestLinkNegotiationFailureMovesToError(t *testing.T) {
	core := NewCore()
	_, outPort := newTestNodeWithPort(t, core, DirectionOutput)
	_, inPort := newTestNodeWithPort(t, core, DirectionInput)

	wantErr := &BackendError{Op: "negotiate", Result: context.Canceled}
	l, err := NewLink(core, outPort, inPort, &fakeNegotiator{err: wantErr})
	require.NoError(t, err)

	// The negotiator reports its failure through done, not through its
	// return value, so Negotiate itself succeeds and the link records it.
	err = l.Negotiate(context.Background())
	require.NoError(t, err)
	require.Equal(t, LinkError, l.State())
	require.Equal(t, wantErr, l.Err())
}

func TestLinkStaleNegotiationSeqIgnored(t *testing.T) {
	core := NewCore()
	_, outPort := newTestNodeWithPort(t, core, DirectionOutput)
	_, inPort := newTestNodeWithPort(t, core, DirectionInput)

	l, err := NewLink(core, outPort, inPort, &fakeNegotiator{})
	require.NoError(t, err)
	l.seq.Store(99)

	l.onNegotiateDone(1, nil)
	require.Equal(t, LinkInit, l.State())
}
