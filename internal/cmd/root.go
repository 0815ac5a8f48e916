package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"time"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/cunev/readmemlib"
	"github.com/cunev/readmemlib/internal/config"
	"github.com/cunev/readmemlib/internal/memscan"
	"github.com/spf13/cobra"
)

var log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "readmem"))

type rootFlags struct {
	configPath string
	timeout    time.Duration
	chunk      int
	noAttach   bool
	pid        int
	name       string
	limit      uint64
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}

	root := &cobra.Command{
		Use:           "readmem",
		Short:         "read, write and signature-scan the memory of a running process",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "configuration file (default: "+config.FileName+" in the config folders)")
	pf.DurationVar(&f.timeout, "timeout", config.DefaultTimeout, "per operation timeout, 0 disables it")
	pf.IntVar(&f.chunk, "chunk", config.DefaultChunkSize, "scan chunk size in bytes")
	pf.BoolVar(&f.noAttach, "no-attach", false, "skip the ptrace handshake")
	pf.IntVar(&f.pid, "pid", 0, "target process id")
	pf.StringVar(&f.name, "name", "", "target process name substring, used when --pid is absent")

	root.AddCommand(
		newReadCmd(f),
		newWriteCmd(f),
		newScanCmd(f),
		newMapsCmd(f),
		newWatchCmd(f),
		newMachineIDCmd(),
	)

	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	ctx := context.Background()
	if err := root.ExecuteContext(ctx); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return exitError.ExitCode()
		}

		fmt.Fprintln(stderr, "error:", err)
		if errors.Is(err, memscan.ErrInvalidArgument) {
			return 2
		}
		return 1
	}

	return 0
}

// load merges the configuration file with the flags the user set.
func (f *rootFlags) load(cmd *cobra.Command) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.LoadFile(f.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if flags.Changed("chunk") {
		cfg.ChunkSize = f.chunk
	}
	if flags.Changed("limit") {
		cfg.ScanLimit = f.limit
	}
	if flags.Changed("no-attach") {
		cfg.Attach = !f.noAttach
	}

	return cfg, cfg.Validate()
}

func (f *rootFlags) client(cmd *cobra.Command) (*readmemlib.Client, config.Config, error) {
	cfg, err := f.load(cmd)
	if err != nil {
		return nil, config.Config{}, err
	}

	return readmemlib.New(cfg), cfg, nil
}

func (f *rootFlags) target() (int, error) {
	if f.pid != 0 {
		return f.pid, nil
	}
	if f.name != "" {
		return memscan.FindPidBySubstring(f.name)
	}

	return 0, fmt.Errorf("%w: --pid or --name is required", memscan.ErrInvalidArgument)
}

// ParseAddress accepts 0x-prefixed hex, 0o octal or decimal.
func ParseAddress(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: address is required", memscan.ErrInvalidArgument)
	}

	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: address %q: %v", memscan.ErrInvalidArgument, s, err)
	}

	return v, nil
}
