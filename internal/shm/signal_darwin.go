//go:build darwin

package shm

import "golang.org/x/sys/unix"

// Darwin has no eventfd; a self-pipe gives the same "readable means raised"
// semantics for the local-process case this module exercises.
func createSignalFD() (int, int, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return -1, -1, err
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}

func raiseSignalFD(writeFD int) error {
	_, err := unix.Write(writeFD, []byte{1})
	return err
}

func drainSignalFD(readFD int) error {
	var buf [64]byte
	for {
		_, err := unix.Read(readFD, buf[:])
		if err != nil {
			return nil
		}
	}
}

func closeSignalFD(readFD, writeFD int) error {
	_ = unix.Close(writeFD)
	return unix.Close(readFD)
}
