package graph

import (
	"sync"
	"time"

	"github.com/joeycumines/go-catrate"
)

// CycleMetrics tracks lightweight per-cycle timing statistics for a Driver:
// running min/max/last cycle duration, and an over-budget counter. This is
// deliberately simpler than a full percentile estimator: the driver only
// needs "are we currently missing the deadline", not a trailing
// distribution, so a fixed set of running counters is enough.
type CycleMetrics struct {
	mu         sync.Mutex
	count      uint64
	last       time.Duration
	min, max   time.Duration
	overBudget uint64
}

// Observe records one cycle's wall-clock duration against budget.
func (m *CycleMetrics) Observe(d, budget time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	m.last = d
	if m.count == 1 || d < m.min {
		m.min = d
	}
	if d > m.max {
		m.max = d
	}
	if d > budget {
		m.overBudget++
	}
}

// Snapshot is a point-in-time copy of a CycleMetrics' counters.
type Snapshot struct {
	Count      uint64
	Last       time.Duration
	Min        time.Duration
	Max        time.Duration
	OverBudget uint64
}

// Snapshot returns the current counters.
func (m *CycleMetrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{Count: m.count, Last: m.last, Min: m.min, Max: m.max, OverBudget: m.overBudget}
}

// Watchdog rate-limits how often the driver will log an over-budget cycle,
// using the example pack's sliding-window
// rate limiter so a sustained run of slow cycles produces one diagnostic
// burst instead of one log line per cycle.
type Watchdog struct {
	limiter *catrate.Limiter
}

// NewWatchdog builds a Watchdog allowing at most max events per window.
func NewWatchdog(max int, window time.Duration) *Watchdog {
	return &Watchdog{limiter: catrate.NewLimiter(max, window)}
}

// Allow reports whether the watchdog should act (log) for the
// current event, consuming one slot in its window if so.
func (w *Watchdog) Allow() bool {
	return w.limiter.Allow()
}
