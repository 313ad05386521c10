package graph

import (
	"math/big"

	"github.com/joeycumines/floater"
)

// Position is the driver-published clock/position snapshot propagated to
// every node through the activation record it signals, each cycle.
type Position struct {
	// RateNum/RateDen express the duration of one frame as a rational
	// number of seconds (e.g. 1/48000), matching the data model's
	// "rational, not floating point" requirement for clock math.
	RateNum int32
	RateDen int32
	// Offset is the running sample/frame count since the driver started.
	Offset uint64
	// Duration is the size, in frames, of the current cycle's quantum.
	Duration uint64
	// ID increments once per cycle; peers use it to detect a missed signal.
	ID uint32
	// Size mirrors Duration; kept distinct to match the wire layout, where
	// a backend may report a different process buffer size than the
	// driver's nominal quantum (e.g. during a quantum change).
	Size uint32
}

// QuantumDuration returns the duration of one quantum as a rational number of
// nanoseconds, using the teacher's big.Rat-based nanosecond conversion
// instead of floating point so accumulated-position math never drifts.
func (p Position) QuantumDuration() *big.Rat {
	if p.RateDen == 0 {
		return new(big.Rat)
	}
	seconds := big.NewRat(int64(p.Duration)*int64(p.RateNum), int64(p.RateDen))
	return floater.UnitsNanosToRat(seconds, big.NewRat(1, 1))
}

// ElapsedNanos returns Offset expressed as whole nanoseconds at the current
// rate, rounded down.
func (p Position) ElapsedNanos() uint64 {
	if p.RateDen == 0 {
		return 0
	}
	r := big.NewRat(int64(p.Offset)*int64(p.RateNum), int64(p.RateDen))
	ns := floater.RatToUnitsNanos(r, big.NewRat(1, 1))
	return uint64(ns.Int64())
}

// DefaultQuantum is the driver's fallback quantum in frames when a graph
// brings up no node expressing a preference. The spec hardcodes 48000 Hz
// sample-rate reasoning at several points without naming a quantum size;
// 1024 frames at 48kHz (~21.3ms) is the conventional low-latency default
// carried over from the reference implementation's own fallback.
const DefaultQuantum = 1024

// DefaultSampleRate is the driver's fallback nominal sample rate in Hz, used
// unless WithSampleRate overrides it; the driver publishes it as RateDen.
const DefaultSampleRate = 48000
