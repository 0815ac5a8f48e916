package cmd

import (
	"fmt"
	"strconv"

	"github.com/cunev/readmemlib/internal/hostinfo"
	"github.com/cunev/readmemlib/internal/memscan"
	"github.com/spf13/cobra"
)

func newReadCmd(f *rootFlags) *cobra.Command {
	var (
		addr  string
		count int
	)

	c := &cobra.Command{
		Use:   "read",
		Short: "read int32 values",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ParseAddress(addr)
			if err != nil {
				return err
			}
			pid, err := f.target()
			if err != nil {
				return err
			}
			mem, _, err := f.client(cmd)
			if err != nil {
				return err
			}

			vals, err := mem.ReadInt32s(cmd.Context(), pid, a, count)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, v := range vals {
				fmt.Fprintf(out, "0x%x\t%d\n", a+uint64(i*memscan.Int32Size), v)
			}
			return nil
		},
	}

	c.Flags().StringVar(&addr, "addr", "", "address to read")
	c.Flags().IntVar(&count, "count", 1, "number of consecutive values")
	return c
}

func newWriteCmd(f *rootFlags) *cobra.Command {
	var (
		addr  string
		value string
	)

	c := &cobra.Command{
		Use:   "write",
		Short: "write one int32 value",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ParseAddress(addr)
			if err != nil {
				return err
			}
			v, err := strconv.ParseInt(value, 0, 32)
			if err != nil {
				return fmt.Errorf("%w: value %q: %v", memscan.ErrInvalidArgument, value, err)
			}
			pid, err := f.target()
			if err != nil {
				return err
			}
			mem, _, err := f.client(cmd)
			if err != nil {
				return err
			}

			if err := mem.WriteInt32(cmd.Context(), pid, a, int32(v)); err != nil {
				return err
			}

			log.Infoln("wrote", v, "at", fmt.Sprintf("0x%x", a), "in", pid)
			return nil
		},
	}

	c.Flags().StringVar(&addr, "addr", "", "address to write")
	c.Flags().StringVar(&value, "value", "", "int32 value, decimal or 0x hex")
	return c
}

func newScanCmd(f *rootFlags) *cobra.Command {
	var (
		start     string
		signature string
		all       bool
	)

	c := &cobra.Command{
		Use:   "scan",
		Short: "find the first address matching a byte signature",
		Long: `Find the first address matching a byte signature such as "48 8B ?? ?? 89 C0".
"??" matches any byte. A signature named in the configuration file can be
given as @name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := f.target()
			if err != nil {
				return err
			}
			mem, _, err := f.client(cmd)
			if err != nil {
				return err
			}

			var (
				addr  uint64
				found bool
			)
			if all {
				addr, found, err = mem.ScanAll(cmd.Context(), pid, signature)
			} else {
				a, perr := ParseAddress(start)
				if perr != nil {
					return perr
				}
				addr, found, err = mem.ScanMemory(cmd.Context(), pid, a, signature)
			}
			if err != nil {
				return err
			}

			if !found {
				fmt.Fprintln(cmd.OutOrStdout(), "not found")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "0x%x\n", addr)
			return nil
		},
	}

	c.Flags().StringVar(&start, "start", "", "address to start scanning at")
	c.Flags().StringVar(&signature, "sig", "", "byte signature or @name")
	c.Flags().BoolVar(&all, "all", false, "scan every readable mapping instead of from --start")
	c.Flags().Uint64Var(&f.limit, "limit", 0, "bytes to scan from --start, 0 for no bound")
	_ = c.MarkFlagRequired("sig")
	c.MarkFlagsMutuallyExclusive("start", "all")
	return c
}

func newMapsCmd(f *rootFlags) *cobra.Command {
	var writable bool

	c := &cobra.Command{
		Use:   "maps",
		Short: "list the memory mappings of the target",
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := f.target()
			if err != nil {
				return err
			}

			regions, err := memscan.ReadMaps(pid)
			if err != nil {
				return fmt.Errorf("%w: %v", memscan.ErrTargetUnavailable, err)
			}

			for _, r := range regions {
				if writable && !r.Writable() {
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), r.String())
			}
			return nil
		},
	}

	c.Flags().BoolVar(&writable, "writable", false, "only list writable mappings")
	return c
}

func newMachineIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "machine-id",
		Short: "print the firmware derived machine identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), hostinfo.NewDMI().MachineID())
			return nil
		},
	}
}
