package memscan

import (
	"errors"
	"io"

	"golang.org/x/sys/unix"
)

var (
	// ErrInvalidArgument is returned before any process I/O when a pid,
	// address, chunk size or signature cannot be used.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTargetUnavailable is returned when the target does not exist, refuses
	// tracing, or goes away while it is being accessed.
	ErrTargetUnavailable = errors.New("target unavailable")

	// ErrChannel is returned when the memory pseudo-file cannot be opened.
	ErrChannel = errors.New("memory channel unavailable")

	// ErrShortIO is returned when fewer bytes than requested were transferred.
	ErrShortIO = errors.New("short i/o")

	// ErrDetach marks a failed detach. A successful operation only logs it.
	ErrDetach = errors.New("detach failed")

	// ErrUnsupported is returned by traced operations where ptrace is not
	// available.
	ErrUnsupported = errors.New("process tracing unsupported on this platform")
)

// endOfRegion reports whether a read error means the readable range ended
// rather than the channel failing.
func endOfRegion(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, unix.EIO) || errors.Is(err, unix.EFAULT)
}

// targetGone classifies errno values that mean the process cannot be traced
// or no longer exists.
func targetGone(err error) bool {
	return errors.Is(err, unix.ESRCH) || errors.Is(err, unix.EPERM) ||
		errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ECHILD)
}
