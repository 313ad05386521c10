package graph

// targetEntry is one element of a Driver's target list: a node reachable
// from the driver, together with the activation record the driver signals
// to trigger it and the set of feeders it is waiting on each cycle.
//
// The target list is rebuilt by RecalcGraph from the link topology whenever
// the graph changes; during a cycle it is read-only from the realtime
// thread's point of view.
type targetEntry struct {
	node       *Node
	activation *ActivationRecord
	// fanIn is the number of active links into this target's input ports,
	// i.e. the value Reset() is called with at the start of each cycle.
	fanIn int32
	// feeds lists the targets downstream of this one, i.e. those this
	// target's completion will signal; a target appears once per active
	// link it receives from this one.
	feeds []*targetEntry
}

func newTargetEntry(n *Node) *targetEntry {
	return &targetEntry{node: n, activation: n.activation}
}

// signal decrements pending on this target's activation record and, if this
// call observed the transition to zero, runs the node's process step and
// propagates the signal to every downstream feed. A target with no feeders
// (fanIn 0, a source) has nothing to decrement and runs on every call; only
// the driver signals it. Called from the realtime thread only.
func (t *targetEntry) signal(nowNanos func() uint64) {
	if t.fanIn > 0 && !t.activation.DecPending() {
		return
	}
	t.activation.SetAwakeTime(nowNanos())
	t.activation.SetStatus(StatusAwake)
	t.node.runCycle(t.activation)
	t.activation.SetFinishTime(nowNanos())
	t.activation.SetStatus(StatusFinished)
	for _, feed := range t.feeds {
		feed.signal(nowNanos)
	}
}
