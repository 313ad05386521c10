//go:build windows

package shm

// Windows has no MAP_SHARED|MAP_ANON equivalent exercised by this module; a
// plain heap allocation preserves the same Go-visible semantics (a stable,
// non-moving-for-our-purposes byte slice) for single-process use. Real
// cross-process sharing on Windows would use a file mapping object, which is
// out of scope until a Windows peer-process scenario is specified.
func mmapAnon(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func munmapAnon(b []byte) error {
	return nil
}
