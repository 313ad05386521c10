package shm

// Signal is a one-shot, cross-thread (and, on linux, cross-process) wakeup
// primitive: Raise() makes a pending poll on the underlying descriptor
// return. It is the out-of-band companion to a Block: the driver passes the
// Block's memory handle and a Signal's descriptor to a target together, per
// the external-interface note that "the eventfd used to wake a node is
// passed out-of-band alongside the memory handle".
type Signal struct {
	readFD, writeFD int
}

// NewSignal creates a new Signal in the non-signalled state.
func NewSignal() (*Signal, error) {
	r, w, err := createSignalFD()
	if err != nil {
		return nil, err
	}
	return &Signal{readFD: r, writeFD: w}, nil
}

// FD returns the descriptor a poller should watch for readability.
func (s *Signal) FD() int {
	return s.readFD
}

// Raise makes the descriptor readable and so wakes any pending waiter;
// multiple raises prior to a Drain coalesce into a single wakeup, matching
// eventfd counter semantics.
func (s *Signal) Raise() error {
	return raiseSignalFD(s.writeFD)
}

// Drain clears the pending wakeup state so a subsequent Raise is observable
// again. Must be called by the waiter after waking.
func (s *Signal) Drain() error {
	return drainSignalFD(s.readFD)
}

// Close releases the underlying descriptor(s).
func (s *Signal) Close() error {
	return closeSignalFD(s.readFD, s.writeFD)
}
