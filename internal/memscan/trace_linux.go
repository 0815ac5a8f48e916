//go:build linux

package memscan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/s-hammon/p"
	"golang.org/x/sys/unix"
)

const waitPoll = time.Millisecond

// tracee is a target whose threads are seized for one operation.
type tracee struct {
	pid     int
	stopped []int

	// dirty is set when a thread may still be traced after detach.
	dirty bool
}

func ptrace(request int, tid int, addr, data uintptr) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_PTRACE,
		uintptr(request),
		uintptr(tid),
		addr,
		data,
		0,
		0,
	)
	if errno != 0 {
		return errno
	}

	return nil
}

// listTasks returns the thread ids of pid, leader first.
func listTasks(pid int) ([]int, error) {
	ents, err := os.ReadDir(p.Format("/proc/%d/task", pid))
	if err != nil {
		return nil, err
	}

	tids := make([]int, 0, len(ents))
	for _, e := range ents {
		tid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		tids = append(tids, tid)
	}

	sort.Slice(tids, func(i, j int) bool {
		if tids[i] == pid {
			return true
		}
		if tids[j] == pid {
			return false
		}
		return tids[i] < tids[j]
	})

	return tids, nil
}

// attach seizes and stops every thread of the target. Threads that exit
// between listing and seizing are skipped; the leader must succeed.
func (t *tracee) attach(ctx context.Context) error {
	tids, err := listTasks(t.pid)
	if err != nil {
		return fmt.Errorf("%w: pid %d: %w", ErrTargetUnavailable, t.pid, err)
	}
	if len(tids) == 0 {
		return fmt.Errorf("%w: pid %d has no threads", ErrTargetUnavailable, t.pid)
	}

	for _, tid := range tids {
		if err := t.stop(ctx, tid); err != nil {
			if tid != t.pid && errors.Is(err, unix.ESRCH) {
				continue
			}
			if targetGone(err) || ctx.Err() != nil {
				return fmt.Errorf("%w: attach %d: %w", ErrTargetUnavailable, tid, err)
			}
			return fmt.Errorf("attach %d: %w", tid, err)
		}
	}

	return nil
}

func (t *tracee) stop(ctx context.Context, tid int) error {
	if err := ptrace(unix.PTRACE_SEIZE, tid, 0, 0); err != nil {
		return err
	}

	// From here on the thread is ours until it is detached in a stop.
	if err := ptrace(unix.PTRACE_INTERRUPT, tid, 0, 0); err != nil {
		t.dirty = !errors.Is(err, unix.ESRCH)
		return err
	}
	if err := waitStop(ctx, tid); err != nil {
		t.dirty = !errors.Is(err, unix.ESRCH)
		return err
	}

	t.stopped = append(t.stopped, tid)
	return nil
}

// waitStop blocks until tid reports the interrupt stop. Signal stops that
// arrive first are handed back to the thread.
func waitStop(ctx context.Context, tid int) error {
	for {
		var ws unix.WaitStatus
		wpid, err := unix.Wait4(tid, &ws, unix.WALL|unix.WNOHANG, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			return err
		case wpid == 0:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitPoll):
			}
			continue
		}

		switch {
		case ws.Exited(), ws.Signaled():
			return unix.ESRCH
		case !ws.Stopped():
			continue
		case ptraceEvent(ws) == unix.PTRACE_EVENT_STOP:
			return nil
		}

		if err := ptrace(unix.PTRACE_CONT, tid, 0, uintptr(ws.StopSignal())); err != nil {
			return err
		}
	}
}

func ptraceEvent(ws unix.WaitStatus) int {
	return int(uint32(ws) >> 16)
}

func (t *tracee) detach() error {
	var errs []error
	for _, tid := range t.stopped {
		err := ptrace(unix.PTRACE_DETACH, tid, 0, 0)
		if err != nil && !errors.Is(err, unix.ESRCH) {
			errs = append(errs, fmt.Errorf("tid %d: %w", tid, err))
			t.dirty = true
		}
	}
	t.stopped = nil

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrDetach, errors.Join(errs...))
	}

	return nil
}

// traced runs fn with every thread of pid stopped. ptrace only honours
// requests from the attaching thread, so the whole cycle runs on one locked
// OS thread. If a thread could not be released the OS thread stays locked and
// is discarded with the goroutine, which makes the kernel detach it.
func traced(ctx context.Context, pid int, log *logger.Logger, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		runtime.LockOSThread()

		t := &tracee{pid: pid}
		err := t.attach(ctx)
		if err == nil {
			err = fn()
		}

		if derr := t.detach(); derr != nil {
			if err != nil {
				err = errors.Join(err, derr)
			} else {
				log.Warn("detach after successful operation: ", derr)
			}
		}

		if !t.dirty {
			runtime.UnlockOSThread()
		}
		done <- err
	}()

	return <-done
}

// alive reports ErrTargetUnavailable once pid has exited. A zombie still
// answers signal 0, so the scheduler state in /proc/<pid>/stat decides.
func alive(pid int) error {
	if err := unix.Kill(pid, 0); err != nil && !errors.Is(err, unix.EPERM) {
		return fmt.Errorf("%w: pid %d: %v", ErrTargetUnavailable, pid, err)
	}

	state, err := procState(pid)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, unix.ESRCH) {
			return fmt.Errorf("%w: pid %d: %v", ErrTargetUnavailable, pid, err)
		}
		return nil
	}

	switch state {
	case 'Z', 'X', 'x':
		return fmt.Errorf("%w: pid %d has exited (state %c)", ErrTargetUnavailable, pid, state)
	}

	return nil
}

// procState returns the state letter from /proc/<pid>/stat. The command name
// may itself hold ')' so the state is looked up after the last one.
func procState(pid int) (byte, error) {
	stat, err := os.ReadFile(p.Format("/proc/%d/stat", pid))
	if err != nil {
		return 0, err
	}

	i := bytes.LastIndexByte(stat, ')')
	if i < 0 || i+2 >= len(stat) {
		return 0, fmt.Errorf("malformed stat for pid %d", pid)
	}

	return stat[i+2], nil
}
