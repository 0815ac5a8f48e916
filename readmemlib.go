// Package readmemlib reads, writes and signature-scans the memory of other
// processes on Linux.
package readmemlib

import (
	"context"
	"fmt"

	"github.com/cunev/readmemlib/internal/config"
	"github.com/cunev/readmemlib/internal/memscan"
)

// Memory is the operation table exposed to host bindings. Each call is an
// independent attach/access/detach cycle.
type Memory interface {
	ReadInt32(ctx context.Context, pid int, addr uint64) (int32, error)
	WriteInt32(ctx context.Context, pid int, addr uint64, v int32) error

	// ScanMemory returns the first address at or after start matching
	// signature. found is false, with a nil error, when the readable range
	// holds no match.
	ScanMemory(ctx context.Context, pid int, start uint64, signature string) (addr uint64, found bool, err error)
}

var (
	ErrInvalidArgument   = memscan.ErrInvalidArgument
	ErrTargetUnavailable = memscan.ErrTargetUnavailable
	ErrChannel           = memscan.ErrChannel
	ErrShortIO           = memscan.ErrShortIO
	ErrDetach            = memscan.ErrDetach
)

// Client implements Memory with the configured timeout, chunk size, attach
// policy and named signatures.
type Client struct {
	cfg config.Config
	ch  *memscan.Channel
}

var _ Memory = (*Client)(nil)

func New(cfg config.Config) *Client {
	opts := []memscan.Option{memscan.WithChunkSize(cfg.ChunkSize)}
	if cfg.ScanLimit > 0 {
		opts = append(opts, memscan.WithScanLimit(cfg.ScanLimit))
	}
	if !cfg.Attach {
		opts = append(opts, memscan.WithoutAttach())
	}

	return &Client{cfg: cfg, ch: memscan.NewChannel(opts...)}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

func (c *Client) ReadInt32(ctx context.Context, pid int, addr uint64) (int32, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.ch.ReadInt32(ctx, pid, addr)
}

// ReadInt32s reads count consecutive values in one session.
func (c *Client) ReadInt32s(ctx context.Context, pid int, addr uint64, count int) ([]int32, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.ch.ReadInt32s(ctx, pid, addr, count)
}

func (c *Client) ReadBytes(ctx context.Context, pid int, addr uint64, n int) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.ch.ReadBytes(ctx, pid, addr, n)
}

func (c *Client) WriteInt32(ctx context.Context, pid int, addr uint64, v int32) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.ch.WriteInt32(ctx, pid, addr, v)
}

func (c *Client) ScanMemory(ctx context.Context, pid int, start uint64, signature string) (uint64, bool, error) {
	text, err := c.resolve(signature)
	if err != nil {
		return 0, false, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.ch.Scan(ctx, pid, start, text)
}

// ScanAll looks for signature across every readable mapping of pid.
func (c *Client) ScanAll(ctx context.Context, pid int, signature string) (uint64, bool, error) {
	text, err := c.resolve(signature)
	if err != nil {
		return 0, false, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.ch.ScanRegions(ctx, pid, text)
}

func (c *Client) resolve(signature string) (string, error) {
	text, err := c.cfg.ResolveSignature(signature)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return text, nil
}
