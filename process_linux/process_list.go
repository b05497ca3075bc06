//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"sigscan/process"
)

// ListProcesses returns every process accepted by match, in /proc order.
// A nil match accepts all. The calling process is skipped.
func ListProcesses(match process.ProcessFilter) ([]process.ProcessInfo, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("read /proc: %w", err)
	}

	selfPID := os.Getpid()
	var out []process.ProcessInfo

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid <= 0 {
			continue // not a PID dir
		}
		if pid == selfPID {
			continue // skip ourselves
		}

		info, ok := readProcessInfo(pid)
		if !ok {
			continue // exited while we were listing
		}

		if match == nil || match(info) {
			out = append(out, info)
		}
	}

	return out, nil
}

// ByName matches processes whose comm or exe basename equals name (like pidof).
func ByName(name string) process.ProcessFilter {
	return func(info process.ProcessInfo) bool {
		return info.Name == name || (info.Exe != "" && filepath.Base(info.Exe) == name)
	}
}

func readProcessInfo(pid int) (process.ProcessInfo, bool) {
	dir := filepath.Join("/proc", strconv.Itoa(pid))

	comm, err := os.ReadFile(filepath.Join(dir, "comm"))
	if err != nil {
		return process.ProcessInfo{}, false
	}

	info := process.ProcessInfo{
		PID:  process.ProcessID(pid),
		Name: string(bytesTrimNL(comm)),
	}

	// Resolve /proc/<pid>/exe symlink; may fail if zombie or permission
	info.Exe, _ = os.Readlink(filepath.Join(dir, "exe"))

	if status, err := os.ReadFile(filepath.Join(dir, "status")); err == nil {
		for _, line := range strings.Split(string(status), "\n") {
			if v, ok := strings.CutPrefix(line, "PPid:"); ok {
				if ppid, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
					info.PPID = process.ProcessID(ppid)
				}
				break
			}
		}
	}

	return info, true
}

func bytesTrimNL(b []byte) []byte {
	// Trim trailing '\n' if present (comm has a newline).
	for len(b) > 0 {
		switch b[len(b)-1] {
		case '\n', '\r', ' ', '\t':
			b = b[:len(b)-1]
		default:
			return b
		}
	}
	return b
}
