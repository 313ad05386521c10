package graph

import (
	"sync/atomic"
	"unsafe"

	"github.com/joeycumines/graphcore/internal/shm"
)

// Activation record byte layout (§6, bit-exact for cross-process signalling):
//
//	state[2] × {int32 pending, int32 required, int32 status}  // 24 bytes
//	uint64 signal_time                                        //  8 bytes
//	uint64 awake_time                                         //  8 bytes
//	uint64 finish_time                                        //  8 bytes
//	uint32 status                                             //  4 bytes
//	uint32 running                                            //  4 bytes
//	position block (rate_num, rate_den, position, duration,
//	                 id, size)                                 // 32 bytes
//
// Total: 88 bytes, 8-byte aligned throughout. Endianness is native: this
// layout is only meaningful to peers sharing the same architecture's memory,
// matching the spec's "endianness native" note.
const (
	offCycleState  = 0  // 2 * 12 bytes
	cycleSlotSize  = 12 // pending(4) required(4) status(4)
	offSignalTime  = 24
	offAwakeTime   = 32
	offFinishTime  = 40
	offStatus      = 48
	offRunning     = 52
	offPositionRaw = 56
	activationSize = 88
)

// ActivationRecord is the lock-free, shared-memory-backed per-cycle counter
// and timestamp block described in the data model. It is safe for
// concurrent access from multiple goroutines and, because its storage is an
// mmap'd Block, would remain valid if mapped into a peer process.
type ActivationRecord struct {
	block *shm.Block
	buf   []byte
	slot  int32 // current cycle-generation index, 0 or 1
}

// NewActivationRecord allocates a fresh record backed by its own shared
// memory block, with all counters and timestamps zeroed.
func NewActivationRecord() (*ActivationRecord, error) {
	b, err := shm.NewBlock(activationSize)
	if err != nil {
		return nil, &NoMemoryError{Cause: err}
	}
	return &ActivationRecord{block: b, buf: b.Bytes()}, nil
}

// Close releases the backing shared memory.
func (a *ActivationRecord) Close() error {
	return a.block.Close()
}

func (a *ActivationRecord) slotOffset() int {
	return offCycleState + int(atomic.LoadInt32(&a.slot))*cycleSlotSize
}

func (a *ActivationRecord) i32(off int) *int32 {
	return (*int32)(unsafe.Pointer(&a.buf[off]))
}

func (a *ActivationRecord) u32(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&a.buf[off]))
}

func (a *ActivationRecord) u64(off int) *uint64 {
	return (*uint64)(unsafe.Pointer(&a.buf[off]))
}

// Reset prepares the record for a new cycle: pending := required := fan-in,
// status := not-triggered. Called by the driver at the start of each cycle,
// after it drains the invoke queue (Driver.runCycle).
func (a *ActivationRecord) Reset(fanIn int32) {
	off := a.slotOffset()
	atomic.StoreInt32(a.i32(off), fanIn)   // pending
	atomic.StoreInt32(a.i32(off+4), fanIn) // required
	atomic.StoreInt32(a.i32(off+8), int32(StatusNotTriggered))
	atomic.StoreInt32(a.i32(offStatus), int32(StatusNotTriggered))
}

// AdvanceGeneration flips the active cycle-generation slot. Overlapping
// cycles (a slow downstream node still draining generation N while the
// driver resets generation N+1) read/write disjoint slots.
func (a *ActivationRecord) AdvanceGeneration() {
	atomic.StoreInt32(&a.slot, 1-atomic.LoadInt32(&a.slot))
}

// Required returns the fan-in recorded for the current generation.
func (a *ActivationRecord) Required() int32 {
	return atomic.LoadInt32(a.i32(a.slotOffset() + 4))
}

// Pending returns the current pending count for the current generation.
func (a *ActivationRecord) Pending() int32 {
	return atomic.LoadInt32(a.i32(a.slotOffset()))
}

// IncrementRequired bumps the fan-in, e.g. when a new link is activated onto
// this target. Main-thread only.
func (a *ActivationRecord) IncrementRequired(delta int32) {
	atomic.AddInt32(a.i32(a.slotOffset()+4), delta)
}

// DecrementRequired reduces the fan-in, e.g. when destroy(node) removes this
// target from a feeder's downstream set. Main-thread only.
func (a *ActivationRecord) DecrementRequired(delta int32) {
	atomic.AddInt32(a.i32(a.slotOffset()+4), -delta)
}

// DecPending atomically decrements pending for the current generation and
// reports whether THIS call observed the transition to zero. Exactly one
// concurrent caller, across any number of threads or processes sharing the
// block, will ever see true for a given generation: the CAS loop below
// retries only on a losing race, never re-reporting a zero it already lost.
//
// Ordering: the final successful CompareAndSwap is a full (acquire-release)
// atomic operation, so a caller observing true is guaranteed to see every
// write this record's fields received from the cycle's Reset onward before
// it goes on to call the target's signal function.
func (a *ActivationRecord) DecPending() bool {
	p := a.i32(a.slotOffset())
	for {
		old := atomic.LoadInt32(p)
		if old <= 0 {
			// Already drained (or never armed): this caller is not the one
			// that triggers the target.
			return false
		}
		if atomic.CompareAndSwapInt32(p, old, old-1) {
			return old-1 == 0
		}
	}
}

// SetStatus stores the record's overall status (distinct from the
// per-generation status byte, which mirrors it at the time of the call).
func (a *ActivationRecord) SetStatus(s ActivationStatus) {
	atomic.StoreInt32(a.i32(offStatus), int32(s))
	atomic.StoreInt32(a.i32(a.slotOffset()+8), int32(s))
}

// Status returns the record's current overall status.
func (a *ActivationRecord) Status() ActivationStatus {
	return ActivationStatus(atomic.LoadInt32(a.i32(offStatus)))
}

// SetRunning is owned by the driver: true while a cycle it started has not
// yet completed.
func (a *ActivationRecord) SetRunning(running bool) {
	var v uint32
	if running {
		v = 1
	}
	atomic.StoreUint32(a.u32(offRunning), v)
}

// Running reports the driver-owned running flag.
func (a *ActivationRecord) Running() bool {
	return atomic.LoadUint32(a.u32(offRunning)) != 0
}

// SetSignalTime, SetAwakeTime and SetFinishTime record the three
// per-cycle timestamps used to assert signal_time <= awake_time <=
// finish_time in tests, and for the watchdog's diagnostic dump.
func (a *ActivationRecord) SetSignalTime(ns uint64) { atomic.StoreUint64(a.u64(offSignalTime), ns) }
func (a *ActivationRecord) SetAwakeTime(ns uint64)  { atomic.StoreUint64(a.u64(offAwakeTime), ns) }
func (a *ActivationRecord) SetFinishTime(ns uint64) { atomic.StoreUint64(a.u64(offFinishTime), ns) }

func (a *ActivationRecord) SignalTime() uint64 { return atomic.LoadUint64(a.u64(offSignalTime)) }
func (a *ActivationRecord) AwakeTime() uint64   { return atomic.LoadUint64(a.u64(offAwakeTime)) }
func (a *ActivationRecord) FinishTime() uint64  { return atomic.LoadUint64(a.u64(offFinishTime)) }

// Position returns a snapshot of the embedded clock/position block.
func (a *ActivationRecord) Position() Position {
	return Position{
		RateNum:  atomic.LoadInt32(a.i32(offPositionRaw)),
		RateDen:  atomic.LoadInt32(a.i32(offPositionRaw + 4)),
		Offset:   atomic.LoadUint64(a.u64(offPositionRaw + 8)),
		Duration: atomic.LoadUint64(a.u64(offPositionRaw + 16)),
		ID:       atomic.LoadUint32(a.u32(offPositionRaw + 24)),
		Size:     atomic.LoadUint32(a.u32(offPositionRaw + 28)),
	}
}

// SetPosition is called by the driver node's backend.process() to publish the
// new clock/position for this cycle.
func (a *ActivationRecord) SetPosition(p Position) {
	atomic.StoreInt32(a.i32(offPositionRaw), p.RateNum)
	atomic.StoreInt32(a.i32(offPositionRaw+4), p.RateDen)
	atomic.StoreUint64(a.u64(offPositionRaw+8), p.Offset)
	atomic.StoreUint64(a.u64(offPositionRaw+16), p.Duration)
	atomic.StoreUint32(a.u32(offPositionRaw+24), p.ID)
	atomic.StoreUint32(a.u32(offPositionRaw+28), p.Size)
}
