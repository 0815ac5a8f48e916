package util

import "io"

// ReadBytes reads up to size bytes at addr. The returned slice holds what was
// actually read, which is shorter than size whenever err is non-nil.
func ReadBytes(r io.ReaderAt, addr uint64, size int) ([]byte, error) {
	buf := make([]byte, size)
	n, err := r.ReadAt(buf, int64(addr))
	return buf[:n], err
}

// ReadInto is ReadBytes without the allocation.
func ReadInto(r io.ReaderAt, buf []byte, addr uint64) (int, error) {
	return r.ReadAt(buf, int64(addr))
}
