package main

import (
	"fmt"
	"os"

	"sigscan/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/spf13/cobra"
)

var (
	flagElevate bool
	flagNoColor bool

	log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "sigscan"))
)

// newRootCmd builds the sigscan command tree. Flags are bound fresh on
// every call.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sigscan",
		Short:         "Find byte signatures in the modules of a running process",
		Long:          "sigscan attaches to a process, captures one of its modules, finds byte patterns such as \"8B 45 ?? 89 4?\" in it and reads typed values relative to the match.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if flagElevate {
				return elevate()
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&flagElevate, "elevate", false, "acquire debug privileges before attaching")
	cmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colorized output")

	cmd.AddCommand(
		newPsCmd(),
		newModulesCmd(),
		newScanCmd(),
		newDumpCmd(),
		newResolveCmd(),
		newReadCmd(),
	)
	return cmd
}

// Execute runs the sigscan CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

// closeHandle closes h at the end of a command. A close failure is logged
// and returned unless the command already failed.
func closeHandle(h process.Handle, err *error) {
	pid := h.GetPID()
	cerr := h.Close()
	if cerr == nil {
		return
	}
	log.Warn("Failed to close process ", pid, ": ", cerr)
	if *err == nil {
		*err = fmt.Errorf("close process %d: %w", pid, cerr)
	}
}

var elevated bool

// elevate enables debug privileges once per run.
func elevate() error {
	if elevated {
		return nil
	}
	if err := enableDebugPrivilege(); err != nil {
		return fmt.Errorf("elevate: %w", err)
	}
	elevated = true
	log.Debugln("Debug privileges enabled")
	return nil
}
