package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDriverSingleSourceSinkCycle(t *testing.T) {
	core := NewCore()
	srcNode, srcPort := newTestNodeWithPort(t, core, DirectionOutput)
	srcNode.SetDriver(true)
	sinkNode, sinkPort := newTestNodeWithPort(t, core, DirectionInput)

	l, err := NewLink(core, srcPort, sinkPort, &fakeNegotiator{})
	require.NoError(t, err)
	require.NoError(t, l.Negotiate(context.Background()))
	require.NoError(t, l.Activate())

	d, err := NewDriver(core, WithQuantum(64), WithSampleRate(48000))
	require.NoError(t, err)
	defer d.Close()

	d.RecalcGraph()
	core.DrainInvokeQueue()

	d.runCycle(time.Second)

	srcBackend := srcNode.backend.(*fakeBackend)
	sinkBackend := sinkNode.backend.(*fakeBackend)
	require.Equal(t, 1, srcBackend.callCount())
	require.Equal(t, 1, sinkBackend.callCount())
}

func TestDriverTwoParallelLinksSignalBothOnce(t *testing.T) {
	core := NewCore()
	srcNode, srcPort := newTestNodeWithPort(t, core, DirectionOutput)
	srcNode.SetDriver(true)

	sinkANode, sinkAPort := newTestNodeWithPort(t, core, DirectionInput)
	sinkBNode, sinkBPort := newTestNodeWithPort(t, core, DirectionInput)

	outPort2, err := srcNode.NewPort(DirectionOutput, Info{Name: "out2"})
	require.NoError(t, err)

	lA, err := NewLink(core, srcPort, sinkAPort, &fakeNegotiator{})
	require.NoError(t, err)
	require.NoError(t, lA.Negotiate(context.Background()))
	require.NoError(t, lA.Activate())

	lB, err := NewLink(core, outPort2, sinkBPort, &fakeNegotiator{})
	require.NoError(t, err)
	require.NoError(t, lB.Negotiate(context.Background()))
	require.NoError(t, lB.Activate())

	d, err := NewDriver(core, WithQuantum(64), WithSampleRate(48000))
	require.NoError(t, err)
	defer d.Close()

	d.RecalcGraph()
	core.DrainInvokeQueue()
	d.runCycle(time.Second)

	sinkABackend := sinkANode.backend.(*fakeBackend)
	sinkBBackend := sinkBNode.backend.(*fakeBackend)
	require.Equal(t, 1, sinkABackend.callCount())
	require.Equal(t, 1, sinkBBackend.callCount())

	d.mu.Lock()
	for _, te := range d.targets {
		if te.node.id == sinkANode.id || te.node.id == sinkBNode.id {
			require.LessOrEqual(t, te.activation.SignalTime(), te.activation.AwakeTime())
			require.LessOrEqual(t, te.activation.AwakeTime(), te.activation.FinishTime())
		}
	}
	d.mu.Unlock()
}

func TestDriverPauseOnIdleSkipsEmptyGraph(t *testing.T) {
	core := NewCore()
	d, err := NewDriver(core, WithQuantum(64), WithSampleRate(48000))
	require.NoError(t, err)
	defer d.Close()

	d.RecalcGraph()
	core.DrainInvokeQueue()
	d.runCycle(time.Second)
	require.EqualValues(t, 0, d.Metrics().Count, "idle cycle must not be counted")
}

func TestDriverReassignmentViaInvokeQueue(t *testing.T) {
	core := NewCore()
	nodeA, _ := newTestNodeWithPort(t, core, DirectionOutput)
	nodeA.SetDriver(true)
	nodeB, _ := newTestNodeWithPort(t, core, DirectionOutput)
	nodeB.SetDriver(true)
	require.NoError(t, nodeB.SetActive(false))

	d, err := NewDriver(core, WithQuantum(64), WithSampleRate(48000))
	require.NoError(t, err)
	defer d.Close()

	d.RecalcGraph()
	core.DrainInvokeQueue()
	d.mu.Lock()
	first := d.driverNode
	d.mu.Unlock()
	require.Equal(t, nodeA.ID(), first.ID())

	require.NoError(t, nodeA.SetActive(false))
	require.NoError(t, nodeB.SetActive(true))
	d.RecalcGraph()
	core.DrainInvokeQueue()

	d.mu.Lock()
	second := d.driverNode
	d.mu.Unlock()
	require.Equal(t, nodeB.ID(), second.ID())
}

func TestDriverElectionTieBrokenByRegistrationOrder(t *testing.T) {
	core := NewCore()

	var nodes []*Node
	for i := 0; i < 8; i++ {
		n, _ := newTestNodeWithPort(t, core, DirectionOutput)
		n.SetDriver(true)
		nodes = append(nodes, n)
	}

	d, err := NewDriver(core, WithQuantum(64), WithSampleRate(48000))
	require.NoError(t, err)
	defer d.Close()

	// All candidates are simultaneously eligible: Core.Nodes() ranges over a
	// map, so the elected node must be the lowest id (first registered),
	// never whichever map iteration happens to surface first.
	var lowest *Node
	for _, n := range nodes {
		if lowest == nil || n.ID() < lowest.ID() {
			lowest = n
		}
	}

	for i := 0; i < 20; i++ {
		elected := d.electDriver()
		require.NotNil(t, elected)
		require.Equal(t, lowest.ID(), elected.ID(), "election must deterministically pick the first-registered candidate")
	}
}
