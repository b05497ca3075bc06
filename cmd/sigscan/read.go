package main

import (
	"fmt"
	"strconv"
	"strings"

	"sigscan/hexdump"
	"sigscan/process"

	"github.com/spf13/cobra"
)

func newReadCmd() *cobra.Command {
	var (
		t    target
		addr string
		size int
	)

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Hexdump process memory at an address",
		Example: `  sigscan read --name memtest.exe --addr 0x140001000 --size 64
  sigscan read --from ./dump --addr 0x140001000`,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			address, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(addr), "0x"), 16, 64)
			if err != nil {
				return fmt.Errorf("invalid address %q: %w", addr, err)
			}
			if size <= 0 {
				return fmt.Errorf("invalid size %d", size)
			}

			open, pid, _, err := t.open()
			if err != nil {
				return err
			}

			h, err := open(pid)
			if err != nil {
				return err
			}
			defer closeHandle(h, &err)

			data, err := h.ReadMemory(process.ProcessMemoryAddress(address), process.ProcessMemorySize(size))
			if err != nil {
				return err
			}

			modules, merr := h.Modules()
			if merr != nil {
				log.Debugln("No module list for pointer annotations:", merr)
			}
			dump := hexdump.NewHexDump().
				SetNoColor(flagNoColor).
				SetStartOffset(address).
				SetPointerCheck(func(ptr uint64) bool {
					for _, m := range modules {
						if m.Contains(process.ProcessMemoryAddress(ptr)) {
							return true
						}
					}
					return false
				})
			dump.DumpToWriter(cmd.OutOrStdout(), data)
			return nil
		},
	}

	t.register(cmd, true)
	cmd.Flags().StringVar(&addr, "addr", "", "address to read from (hex)")
	cmd.Flags().IntVar(&size, "size", 256, "number of bytes to dump")
	_ = cmd.MarkFlagRequired("addr")
	return cmd
}
