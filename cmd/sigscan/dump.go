package main

import (
	"fmt"

	"sigscan/snapshot"

	"github.com/spf13/cobra"
)

func newDumpCmd() *cobra.Command {
	var (
		t      target
		module string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Capture a module and save it for offline scanning with --from",
		RunE: func(cmd *cobra.Command, _ []string) error {
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
				defer s.Release()

				if err := s.Save(out); err != nil {
					return err
				}

				sum, _ := s.Fingerprint()
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s %s at %s to %s (fingerprint %016x)\n",
					s.Module().Name, s.Module().Size.ToString(), s.Module().Base.ToString(), out, sum)
				return nil
			})
		},
	}

	t.register(cmd, false)
	cmd.Flags().StringVar(&module, "module", "", "module to capture (default: the process executable)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
