package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNodeLifecycle(t *testing.T) {
	core := NewCore()
	n, err := NewNode(core, Info{Name: "sine-source"})
	require.NoError(t, err)
	require.Equal(t, NodeCreating, n.State())

	b := &fakeBackend{}
	require.NoError(t, n.SetImplementation(b))
	require.NoError(t, n.Register())
	require.Equal(t, NodeSuspended, n.State())

	require.NoError(t, n.SetActive(true))
	require.Equal(t, NodeIdle, n.State())
	require.True(t, n.Active())

	got, err := core.Node(n.ID())
	require.NoError(t, err)
	require.Same(t, n, got)

	n.Destroy()
	_, err = core.Node(n.ID())
	require.Error(t, err)
}

func TestNodeSetImplementationRejectedOnceRunning(t *testing.T) {
	core := NewCore()
	n, err := NewNode(core, Info{Name: "n"})
	require.NoError(t, err)
	require.NoError(t, n.SetImplementation(&fakeBackend{}))
	require.NoError(t, n.Register())
	n.SetState(NodeRunning)

	err = n.SetImplementation(&fakeBackend{})
	require.Error(t, err)
	var badState *BadStateError
	require.ErrorAs(t, err, &badState)
}

func TestNodePortsAndDestroyCascade(t *testing.T) {
	core := NewCore()
	n, err := NewNode(core, Info{Name: "n"})
	require.NoError(t, err)

	out, err := n.NewPort(DirectionOutput, Info{Name: "out"})
	require.NoError(t, err)
	require.Equal(t, DirectionOutput, out.Direction())

	got, err := n.Port(out.ID())
	require.NoError(t, err)
	require.Same(t, out, got)

	n.Destroy()
	require.Empty(t, n.Ports())
}

func TestNodeListenerReceivesStateEvents(t *testing.T) {
	core := NewCore()
	n, err := NewNode(core, Info{Name: "n"})
	require.NoError(t, err)

	var events []NodeEvent
	remove := n.AddListener(func(ev NodeEvent) { events = append(events, ev) })
	defer remove()

	require.NoError(t, n.Register())
	n.SetState(NodeRunning)

	require.Len(t, events, 2)
	require.Equal(t, NodeSuspended, events[0].State)
	require.Equal(t, NodeRunning, events[1].State)
}
