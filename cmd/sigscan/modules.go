package main

import (
	"fmt"

	"sigscan/process"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newModulesCmd() *cobra.Command {
	var t target
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "List the modules loaded in a process",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			open, pid, _, err := t.open()
			if err != nil {
				return err
			}

			h, err := open(pid)
			if err != nil {
				return err
			}
			defer closeHandle(h, &err)

			modules, err := h.Modules()
			if err != nil {
				return err
			}
			return writeModules(cmd, modules)
		},
	}
	t.register(cmd, true)
	return cmd
}

func writeModules(cmd *cobra.Command, modules []process.ModuleInfo) error {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("NAME", "BASE", "SIZE", "PATH")
	for _, m := range modules {
		if err := table.Append([]string{
			m.Name,
			m.Base.ToString(),
			fmt.Sprintf("0x%X", uint(m.Size)),
			m.Path,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
