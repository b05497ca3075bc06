package main

import (
	"fmt"
	"strconv"

	"sigscan/process"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newPsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ps [glob]",
		Short: "List processes, optionally filtered by a name glob",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter process.ProcessFilter
			if len(args) == 1 {
				filter = matchName(args[0])
			}

			infos, err := listProcesses(filter)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("PID", "PPID", "NAME", "EXE")
			for _, info := range infos {
				if err := table.Append([]string{
					strconv.Itoa(int(info.PID)),
					strconv.Itoa(int(info.PPID)),
					info.Name,
					info.Exe,
				}); err != nil {
					return err
				}
			}
			if err := table.Render(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d processes\n", len(infos))
			return nil
		},
	}
}
