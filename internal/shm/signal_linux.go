//go:build linux

package shm

import "golang.org/x/sys/unix"

// createSignalFD creates an eventfd: a single descriptor that is both the
// read and write end, and which remains valid if duplicated into another
// process (e.g. via SCM_RIGHTS), giving cross-process signalling for free.
func createSignalFD() (int, int, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return -1, -1, err
	}
	return fd, fd, nil
}

func raiseSignalFD(fd int) error {
	var buf [8]byte
	buf[0] = 1
	_, err := unix.Write(fd, buf[:])
	return err
}

func drainSignalFD(fd int) error {
	var buf [8]byte
	for {
		_, err := unix.Read(fd, buf[:])
		if err != nil {
			return nil
		}
	}
}

func closeSignalFD(readFD, writeFD int) error {
	return unix.Close(readFD)
}
