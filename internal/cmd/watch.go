package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/cunev/readmemlib"
	"github.com/cunev/readmemlib/internal/memscan"
	"github.com/spf13/cobra"
)

const (
	Rows = 16
	Cols = 4
)

type WorkerConfig struct {
	Pid      int
	Addr     uint64
	Count    int
	Interval time.Duration
}

// ValueReader is the part of the client the watch worker needs.
type ValueReader interface {
	ReadInt32s(ctx context.Context, pid int, addr uint64, count int) ([]int32, error)
}

func newWatchCmd(f *rootFlags) *cobra.Command {
	var (
		addr     string
		rows     int
		cols     int
		interval time.Duration
		readOnly bool
	)

	c := &cobra.Command{
		Use:   "watch",
		Short: "show a live grid of int32 values",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ParseAddress(addr)
			if err != nil {
				return err
			}
			if rows <= 0 || cols <= 0 {
				return fmt.Errorf("%w: grid %dx%d", memscan.ErrInvalidArgument, rows, cols)
			}
			pid, err := f.target()
			if err != nil {
				return err
			}
			mem, _, err := f.client(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			updates := make(chan readmemlib.Update, 1)
			cfg := WorkerConfig{Pid: pid, Addr: a, Count: rows * cols, Interval: interval}
			go func() {
				RunWorker(ctx, cfg, mem, updates)
				close(updates)
			}()

			var write readmemlib.WriteFunc
			if !readOnly {
				write = func(idx int, v int32) error {
					if idx >= cfg.Count {
						return fmt.Errorf("%w: index %d outside grid", memscan.ErrInvalidArgument, idx)
					}
					return mem.WriteInt32(ctx, pid, a+uint64(idx*memscan.Int32Size), v)
				}
			}

			if err := readmemlib.RunTUI(updates, rows, cols, write); err != nil {
				return fmt.Errorf("tui: %v", err)
			}

			return nil
		},
	}

	c.Flags().StringVar(&addr, "addr", "", "first address of the grid")
	c.Flags().IntVar(&rows, "rows", Rows, "grid rows")
	c.Flags().IntVar(&cols, "cols", Cols, "grid columns")
	c.Flags().DurationVar(&interval, "interval", 250*time.Millisecond, "refresh interval")
	c.Flags().BoolVar(&readOnly, "read-only", false, "disable Ctrl+W writes")
	return c
}

// RunWorker reads the watched values every interval until ctx ends. Each
// tick is one read session; failures are reported as offline updates.
func RunWorker(ctx context.Context, cfg WorkerConfig, mem ValueReader, out chan<- readmemlib.Update) {
	if cfg.Interval <= 0 {
		cfg.Interval = 250 * time.Millisecond
	}
	tick := time.NewTicker(cfg.Interval)
	defer tick.Stop()

	send := func(u readmemlib.Update) {
		select {
		case out <- u:
		case <-ctx.Done():
		}
	}

	poll := func() {
		vals, err := mem.ReadInt32s(ctx, cfg.Pid, cfg.Addr, cfg.Count)
		if err != nil {
			send(readmemlib.Update{Online: false, Addr: cfg.Addr, Error: err.Error()})
			return
		}
		send(readmemlib.Update{Online: true, Addr: cfg.Addr, Values: vals})
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			poll()
		}
	}
}
