//go:build linux || darwin

package shm

import "golang.org/x/sys/unix"

func mmapAnon(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
}

func munmapAnon(b []byte) error {
	return unix.Munmap(b)
}
