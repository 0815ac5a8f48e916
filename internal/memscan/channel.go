package memscan

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/s-hammon/p"
)

// MaxTransfer bounds a single ReadBytes or WriteBytes call.
const MaxTransfer = 4 << 20

// Channel performs positioned reads, writes and scans against the memory of
// other processes. Every call is a fresh attach/open/close/detach cycle; the
// only state kept between calls is the per-pid lock table.
type Channel struct {
	attach    bool
	chunkSize int
	scanLimit uint64
	locks     *targetLocks
	log       *logger.Logger
}

// Option configures a Channel.
type Option func(*Channel)

// WithoutAttach skips the ptrace handshake. Useful when the controller can
// already access the target, such as its own process or a tracee it owns.
func WithoutAttach() Option {
	return func(c *Channel) {
		c.attach = false
	}
}

// WithChunkSize sets the number of bytes read per scan round.
func WithChunkSize(size int) Option {
	return func(c *Channel) {
		c.chunkSize = size
	}
}

// WithScanLimit bounds Scan to limit bytes from its start address. Zero
// leaves the scan unbounded.
func WithScanLimit(limit uint64) Option {
	return func(c *Channel) {
		c.scanLimit = limit
	}
}

func NewChannel(options ...Option) *Channel {
	c := &Channel{
		attach:    true,
		chunkSize: DefaultChunkSize,
		locks:     newTargetLocks(),
		log:       logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "memscan")),
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

func sessionLogger(pid int) *logger.Logger {
	return logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, p.Format("pid-%d", pid)))
}

func MemPath(pid int) string {
	return p.Format("/proc/%d/mem", pid)
}

func checkTarget(pid int, addr uint64) error {
	if pid <= 0 {
		return fmt.Errorf("%w: pid %d", ErrInvalidArgument, pid)
	}
	if addr > math.MaxInt64 {
		return fmt.Errorf("%w: address 0x%x beyond file offset range", ErrInvalidArgument, addr)
	}

	return nil
}

// session serializes on pid, stops the target when attaching, and hands fn
// the opened memory file. The file is closed before the target is released.
func (c *Channel) session(ctx context.Context, pid int, flag int, fn func(mem *os.File) error) error {
	unlock := c.locks.lock(pid)
	defer unlock()

	run := func() error {
		mem, err := os.OpenFile(MemPath(pid), flag, 0)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: %w: %v", ErrTargetUnavailable, ErrChannel, err)
			}
			return fmt.Errorf("%w: %v", ErrChannel, err)
		}

		err = fn(mem)
		if cerr := mem.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close: %v", ErrChannel, cerr)
		}
		return err
	}

	log := sessionLogger(pid)
	if !c.attach {
		log.Debugln("open", MemPath(pid), "without attach")
		return run()
	}

	log.Debugln("attach", pid)
	return traced(ctx, pid, log, run)
}

// ReadBytes reads exactly n bytes at addr.
func (c *Channel) ReadBytes(ctx context.Context, pid int, addr uint64, n int) ([]byte, error) {
	if err := checkTarget(pid, addr); err != nil {
		return nil, err
	}
	if n <= 0 || n > MaxTransfer {
		return nil, fmt.Errorf("%w: read size %d outside 1..%d", ErrInvalidArgument, n, MaxTransfer)
	}

	buf := make([]byte, n)
	err := c.session(ctx, pid, os.O_RDONLY, func(mem *os.File) error {
		got, err := mem.ReadAt(buf, int64(addr))
		if got < n {
			return fmt.Errorf("%w: read 0x%x: %d of %d bytes: %v", ErrShortIO, addr, got, n, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return buf, nil
}

// WriteBytes writes all of b at addr.
func (c *Channel) WriteBytes(ctx context.Context, pid int, addr uint64, b []byte) error {
	if err := checkTarget(pid, addr); err != nil {
		return err
	}
	if len(b) == 0 || len(b) > MaxTransfer {
		return fmt.Errorf("%w: write size %d outside 1..%d", ErrInvalidArgument, len(b), MaxTransfer)
	}

	return c.session(ctx, pid, os.O_RDWR, func(mem *os.File) error {
		got, err := mem.WriteAt(b, int64(addr))
		if got < len(b) {
			return fmt.Errorf("%w: write 0x%x: %d of %d bytes: %v", ErrShortIO, addr, got, len(b), err)
		}
		return nil
	})
}

func (c *Channel) ReadInt32(ctx context.Context, pid int, addr uint64) (int32, error) {
	b, err := c.ReadBytes(ctx, pid, addr, Int32Size)
	if err != nil {
		return 0, err
	}

	return DecodeInt32(b)
}

// ReadInt32s reads count consecutive int32 values starting at addr in one
// session.
func (c *Channel) ReadInt32s(ctx context.Context, pid int, addr uint64, count int) ([]int32, error) {
	if count <= 0 || count > MaxTransfer/Int32Size {
		return nil, fmt.Errorf("%w: count %d outside 1..%d", ErrInvalidArgument, count, MaxTransfer/Int32Size)
	}

	b, err := c.ReadBytes(ctx, pid, addr, count*Int32Size)
	if err != nil {
		return nil, err
	}

	return DecodeInt32s(b), nil
}

func (c *Channel) WriteInt32(ctx context.Context, pid int, addr uint64, v int32) error {
	return c.WriteBytes(ctx, pid, addr, EncodeInt32(v))
}
