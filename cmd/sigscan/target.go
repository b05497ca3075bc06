package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"sigscan/process"
	"sigscan/process_blob"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
)

// target selects the process a command works on: a live pid, a live
// process found by name, or a dump directory.
type target struct {
	pid  int
	name string
	from string
}

func (t *target) register(cmd *cobra.Command, withFrom bool) {
	cmd.Flags().IntVar(&t.pid, "pid", 0, "process id")
	cmd.Flags().StringVar(&t.name, "name", "", "process name or glob, e.g. \"memtest*\"")
	if withFrom {
		cmd.Flags().StringVar(&t.from, "from", "", "use a dump directory written by \"sigscan dump\" instead of a live process")
	}
}

// open returns the opener and pid to attach with, and the name of the main
// module, which commands use when --module is not given.
func (t *target) open() (process.Opener, process.ProcessID, string, error) {
	switch {
	case t.from != "":
		blob, err := process_blob.Load(t.from)
		if err != nil {
			return nil, 0, "", err
		}
		modules, err := blob.Modules()
		if err != nil || len(modules) == 0 {
			return nil, 0, "", fmt.Errorf("dump %s has no module", t.from)
		}
		return blob.Opener(), blob.GetPID(), modules[0].Name, nil

	case t.pid > 0:
		pid := process.ProcessID(t.pid)
		infos, err := listProcesses(func(info process.ProcessInfo) bool { return info.PID == pid })
		if err != nil || len(infos) == 0 {
			return openProcess, pid, "", nil
		}
		return openProcess, pid, mainModuleName(infos[0]), nil

	case t.name != "":
		info, err := findProcess(t.name)
		if err != nil {
			return nil, 0, "", err
		}
		return openProcess, info.PID, mainModuleName(info), nil

	default:
		return nil, 0, "", errors.New("one of --pid or --name is required")
	}
}

// matchName matches a process by glob on its name or executable file name,
// or by case-insensitive equality.
func matchName(glob string) process.ProcessFilter {
	return func(info process.ProcessInfo) bool {
		if strings.EqualFold(info.Name, glob) {
			return true
		}
		if ok, _ := doublestar.Match(glob, info.Name); ok {
			return true
		}
		if info.Exe != "" {
			base := filepath.Base(info.Exe)
			if ok, _ := doublestar.Match(glob, base); ok || strings.EqualFold(base, glob) {
				return true
			}
		}
		return false
	}
}

func findProcess(glob string) (process.ProcessInfo, error) {
	infos, err := listProcesses(matchName(glob))
	if err != nil {
		return process.ProcessInfo{}, err
	}
	if len(infos) == 0 {
		return process.ProcessInfo{}, fmt.Errorf("process %q: %w", glob, process.ErrNotFound)
	}
	if len(infos) > 1 {
		log.Warn(len(infos), " processes match ", glob, ", using pid ", infos[0].PID)
	}
	return infos[0], nil
}

// mainModuleName is the module name of a process executable. On Linux comm
// is truncated, so the executable path wins when it is known.
func mainModuleName(info process.ProcessInfo) string {
	if info.Exe != "" {
		return filepath.Base(info.Exe)
	}
	return info.Name
}
