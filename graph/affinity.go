package graph

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID extracts the calling goroutine's id from its own stack trace
// header ("goroutine 123 [running]:"). This is the same trick the teacher's
// event loop uses to capture loopGoroutineID at construction time and assert
// single-threaded affinity later — there is no cheaper, allocation-free way
// to identify "am I the goroutine that created this" without threading an
// explicit token through every call site.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}

// affinity records the goroutine id an entity was constructed on, so
// operations documented as "main thread only" or "realtime thread only" can
// be asserted rather than silently assumed.
type affinity struct {
	goroutineID uint64
}

func newAffinity() affinity {
	return affinity{goroutineID: goroutineID()}
}

// check returns ErrWrongContext if called from a different goroutine than
// the one that captured this affinity. A zero-value affinity (the check was
// never armed) always passes, so tests that don't care about affinity don't
// need to route every call through the capturing goroutine.
func (a affinity) check() error {
	if a.goroutineID == 0 {
		return nil
	}
	if goroutineID() != a.goroutineID {
		return ErrWrongContext
	}
	return nil
}
