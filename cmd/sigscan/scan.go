package main

import (
	"fmt"

	"sigscan/hexdump"
	"sigscan/pattern"
	"sigscan/process"
	"sigscan/snapshot"

	"github.com/spf13/cobra"
)

func newScanCmd() *cobra.Command {
	var (
		t       target
		module  string
		source  string
		offset  uint
		context int
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Find a pattern in one module of a process",
		Example: `  sigscan scan --name memtest.exe --pattern "8B 45 B0 89 45 C4"
  sigscan scan --from ./dump --pattern "48 8B 0D ?? ?? ?? ??" --context 32`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := pattern.Compile(offset, source)
			if err != nil {
				return err
			}

			open, pid, mainModule, err := t.open()
			if err != nil {
				return err
			}
			moduleName := module
			if moduleName == "" {
				moduleName = mainModule
			}

			return snapshot.With(open, pid, moduleName, func(s *snapshot.Snapshot) error {
				if err := s.Capture(); err != nil {
					return err
				}

				off, found := s.Scan(p)
				if !found {
					s.Release()
					fmt.Fprintf(cmd.OutOrStdout(), "pattern not found in %s (%s)\n", s.Module().Name, s.Module().Size.ToString())
					return nil
				}

				// copy the context window before the capture goes away
				data := s.Data()
				start := max(0, off-context)
				end := min(len(data), off+p.SearchOffset()+p.Len()+context)
				window := append([]byte(nil), data[start:end]...)
				s.Release()

				m := s.Module()
				fmt.Fprintf(cmd.OutOrStdout(), "%s+0x%X = %s\n", m.Name, off, s.OffsetToAddress(off).ToString())

				dump := hexdump.NewHexDump().
					SetNoColor(flagNoColor).
					SetStartOffset(uint64(s.OffsetToAddress(start))).
					SetPointerCheck(func(ptr uint64) bool {
						return m.Contains(process.ProcessMemoryAddress(ptr))
					})
				fmt.Fprint(cmd.OutOrStdout(), dump.DumpMatch(window, off-start, p))
				return nil
			})
		},
	}

	t.register(cmd, true)
	cmd.Flags().StringVar(&module, "module", "", "module to scan (default: the process executable)")
	cmd.Flags().StringVarP(&source, "pattern", "p", "", "pattern, e.g. \"8B 45 ?? 89 4?\"")
	cmd.Flags().UintVar(&offset, "offset", 0, "search offset of the pattern")
	cmd.Flags().IntVar(&context, "context", 16, "bytes of context to dump around the match")
	_ = cmd.MarkFlagRequired("pattern")
	return cmd
}
