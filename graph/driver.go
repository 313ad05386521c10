package graph

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/graphcore/internal/shm"
)

// Driver owns one realtime thread: it elects a driver node from among the
// candidates registered on its Core, rebuilds a target list from the link
// topology whenever the graph changes, and runs the per-cycle protocol on a
// ticker whose period is one quantum at the configured sample rate.
//
// There is one Driver per independent clock domain; a graph with multiple
// driver-capable node groups (e.g. two soundcards) runs one Driver each.
type Driver struct {
	core *Core
	opts driverOptions

	mu         sync.Mutex
	driverNode *Node
	targets    []*targetEntry
	byNodeID   map[uint32]*targetEntry

	wakeup *shm.Signal

	metrics  CycleMetrics
	watchdog *Watchdog

	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}

	cycleID atomic.Uint32
	offset  atomic.Uint64

	pauseOnIdle atomic.Bool

	affinityMu sync.Mutex
	affinity   affinity
}

// NewDriver constructs a Driver bound to core. It does not start running
// cycles until Start is called, and has no elected driver node until
// RecalcGraph finds one.
func NewDriver(core *Core, opts ...DriverOption) (*Driver, error) {
	o := defaultDriverOptions()
	for _, opt := range opts {
		opt.applyDriver(&o)
	}
	if o.logger == nil {
		o.logger = core.logger
	}
	wakeup, err := shm.NewSignal()
	if err != nil {
		return nil, &NoMemoryError{Cause: err}
	}
	d := &Driver{
		core:     core,
		opts:     o,
		byNodeID: make(map[uint32]*targetEntry),
		wakeup:   wakeup,
		watchdog: NewWatchdog(5, time.Second),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	// pause_on_idle defaults to true: a driver with no active consumers
	// stops spinning cycles until something reactivates, rather than
	// burning a realtime thread on an empty graph. See DESIGN.md for the
	// rationale behind evaluating this once per cycle rather than
	// continuously.
	d.pauseOnIdle.Store(true)
	return d, nil
}

// SetPauseOnIdle controls whether the driver stops signalling cycles when
// RecalcGraph finds no active target. Re-evaluated once, at the start of
// the next cycle, not asynchronously the instant the last node deactivates.
func (d *Driver) SetPauseOnIdle(v bool) { d.pauseOnIdle.Store(v) }

// electDriver picks a driver-capable, active node from the Core's registry.
// The current driver node, if it is still valid, is kept to avoid
// needlessly disrupting the clock domain.
// electDriver picks a driver-capable, active node. Node ids are assigned
// from a single monotonic counter at registration (Core.AllocID), so the
// node with the lowest id among the candidates is always the one that
// registered first: comparing ids is how ties are broken by registration
// order, as required. Core.Nodes() itself ranges over a map and returns its
// candidates in no particular order, so the result must not depend on that
// order — this scans every candidate and keeps the lowest id rather than
// stopping at the first one encountered.
func (d *Driver) electDriver() *Node {
	d.mu.Lock()
	current := d.driverNode
	d.mu.Unlock()
	if current != nil && current.IsDriverCapable() && current.Active() {
		return current
	}
	var best *Node
	for _, n := range d.core.Nodes() {
		if !n.IsDriverCapable() || !n.Active() {
			continue
		}
		if best == nil || n.id < best.id {
			best = n
		}
	}
	return best
}

// RecalcGraph rebuilds the target list from the current link topology. It
// is safe to call at any time from the main thread; the rebuilt list is
// installed atomically (under the driver's mutex) and picked up by the
// realtime thread at the next cycle boundary via the invoke queue, matching
// the spec's "topology changes take effect at a cycle boundary" rule.
func (d *Driver) RecalcGraph() {
	newDriverNode := d.electDriver()

	targets := make(map[uint32]*targetEntry)
	for _, n := range d.core.Nodes() {
		if !n.Active() {
			continue
		}
		targets[n.id] = newTargetEntry(n)
	}
	for _, n := range d.core.Nodes() {
		te, ok := targets[n.id]
		if !ok {
			continue
		}
		fanIn := int32(0)
		for _, p := range n.Ports() {
			if p.Direction() != DirectionInput {
				continue
			}
			for _, l := range p.snapshotLinks() {
				if l.State() != LinkActive {
					continue
				}
				fanIn++
				if feeder, ok := targets[l.output.node.id]; ok {
					feeder.feeds = append(feeder.feeds, te)
				}
			}
		}
		te.fanIn = fanIn
	}

	d.core.Invoke(func() {
		d.mu.Lock()
		if d.driverNode != newDriverNode {
			if d.driverNode != nil {
				d.driverNode.driverOf.Store(nil)
			}
			d.driverNode = newDriverNode
			if newDriverNode != nil {
				newDriverNode.driverOf.Store(d)
			}
		}
		d.targets = d.targets[:0]
		for _, te := range targets {
			d.targets = append(d.targets, te)
		}
		d.byNodeID = targets
		d.mu.Unlock()
	})
}

// RequestProcess raises the driver's wakeup signal on behalf of n. The
// realtime loop runs cycles on its ticker and does not wait on that signal,
// so the call does not by itself cause an extra cycle. Safe to call from any
// goroutine.
func (d *Driver) RequestProcess(n *Node) {
	d.wakeup.Raise()
}

// Start launches the driver's realtime goroutine. It runs until Stop is
// called.
func (d *Driver) Start() {
	if !d.running.CompareAndSwap(false, true) {
		return
	}
	go d.loop()
}

// Stop halts the realtime goroutine and waits for it to exit.
func (d *Driver) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}
	close(d.stop)
	<-d.done
}

func (d *Driver) loop() {
	defer close(d.done)
	d.affinityMu.Lock()
	d.affinity = newAffinity()
	d.affinityMu.Unlock()
	budget := d.cycleBudget()
	ticker := time.NewTicker(budget)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.runCycle(budget)
		}
	}
}

func (d *Driver) cycleBudget() time.Duration {
	if d.opts.sampleRate == 0 || d.opts.quantum == 0 {
		return time.Millisecond
	}
	return time.Duration(float64(d.opts.quantum) / float64(d.opts.sampleRate) * float64(time.Second))
}

// runCycle executes the seven-step per-cycle protocol once:
//  1. drain the invoke queue (apply any pending topology mutations)
//  2. if pause_on_idle and there is nothing to do, skip the cycle entirely
//  3. reset every target's activation record for the new generation
//  4. record signal_time, mark every target not-triggered, and publish the
//     next position/clock to every target
//  5. signal every target with zero required feeders (the graph's sources)
//  6. block (conceptually; here, simply return once the last started
//     signal chain has synchronously finished) until every target has
//     reached finished
//  7. advance each record's generation
func (d *Driver) runCycle(budget time.Duration) {
	d.affinityMu.Lock()
	a := d.affinity
	d.affinityMu.Unlock()
	if err := a.check(); err != nil {
		d.opts.logger.Error("runCycle called from the wrong goroutine", err, nil)
		return
	}

	start := time.Now()
	d.core.DrainInvokeQueue()

	d.mu.Lock()
	targets := d.targets
	driverNode := d.driverNode
	d.mu.Unlock()

	if len(targets) == 0 && d.pauseOnIdle.Load() {
		return
	}

	nowNanos := func() uint64 { return uint64(time.Now().UnixNano()) }
	signalTime := nowNanos()

	for _, te := range targets {
		te.activation.Reset(te.fanIn)
		te.activation.SetSignalTime(signalTime)
		te.activation.SetStatus(StatusNotTriggered)
	}

	pos := d.nextPosition(driverNode)
	for _, te := range targets {
		te.activation.SetPosition(pos)
	}

	for _, te := range targets {
		if te.fanIn == 0 {
			te.activation.SetStatus(StatusTriggered)
			te.signal(nowNanos)
		}
	}

	for _, te := range targets {
		te.activation.AdvanceGeneration()
	}

	d.metrics.Observe(time.Since(start), budget)
	if time.Since(start) > budget && d.watchdog.Allow() {
		d.opts.logger.Warn("cycle over budget", map[string]any{
			"elapsed_ns": time.Since(start).Nanoseconds(),
			"budget_ns":  budget.Nanoseconds(),
		})
	}
}

func (d *Driver) nextPosition(driverNode *Node) Position {
	id := d.cycleID.Add(1)
	offset := d.offset.Add(uint64(d.opts.quantum))
	return Position{
		RateNum:  1,
		RateDen:  int32(d.opts.sampleRate),
		Offset:   offset,
		Duration: uint64(d.opts.quantum),
		ID:       id,
		Size:     d.opts.quantum,
	}
}

// Metrics returns a snapshot of the driver's cycle-timing counters.
func (d *Driver) Metrics() Snapshot { return d.metrics.Snapshot() }

// Close releases the driver's resources. Stop must be called first if the
// driver was started.
func (d *Driver) Close() error {
	return d.wakeup.Close()
}
