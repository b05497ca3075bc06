//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"sigscan/process"

	"golang.org/x/sys/windows"
)

// ListProcesses walks a Toolhelp32 snapshot and returns every process
// accepted by match. A nil match accepts all. The calling process is skipped.
func ListProcesses(match process.ProcessFilter) ([]process.ProcessInfo, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	if err := windows.Process32First(snapshot, &entry); err != nil {
		return nil, fmt.Errorf("Process32First failed: %w", err)
	}

	selfPID := uint32(os.Getpid())
	var out []process.ProcessInfo

	for {
		if entry.ProcessID != 0 && entry.ProcessID != selfPID {
			info := process.ProcessInfo{
				PID:  process.ProcessID(entry.ProcessID),
				PPID: process.ProcessID(entry.ParentProcessID),
				Name: windows.UTF16ToString(entry.ExeFile[:]),
				Exe:  imagePath(entry.ProcessID),
			}
			if match == nil || match(info) {
				out = append(out, info)
			}
		}

		if err := windows.Process32Next(snapshot, &entry); err != nil {
			if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
				break
			}
			return out, fmt.Errorf("Process32Next failed: %w", err)
		}
	}

	return out, nil
}

// ByName matches processes whose image name equals name, ignoring case.
func ByName(name string) process.ProcessFilter {
	return func(info process.ProcessInfo) bool {
		return process.ModuleInfo{Name: info.Name, Path: info.Exe}.NameMatches(name)
	}
}

// imagePath returns the full executable path, or "" when the process
// cannot be queried (protected or already gone).
func imagePath(pid uint32) string {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(h)

	var buf [windows.MAX_LONG_PATH]uint16
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return ""
	}
	return windows.UTF16ToString(buf[:size])
}
