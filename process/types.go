package process

import (
	"path/filepath"
	"strings"
)

// ProcessID represents a unique identifier for a process
type ProcessID int

// ProcessInfo contains basic information about a process
type ProcessInfo struct {
	PID  ProcessID // Process ID
	PPID ProcessID // Parent Process ID, zero when unknown
	Name string    // Short name (comm on Linux, exe file name on Windows)
	Exe  string    // Path to the executable, may be empty
}

// ModuleInfo describes an image mapped into a process
type ModuleInfo struct {
	Name string               // File name of the module, e.g. "memtest.exe" or "libc.so.6"
	Path string               // Full path when known
	Base ProcessMemoryAddress // First mapped address
	Size ProcessMemorySize    // Bytes from Base to the end of the last mapping
}

// End returns the first address past the module.
func (m ModuleInfo) End() ProcessMemoryAddress {
	return m.Base + ProcessMemoryAddress(m.Size)
}

// Contains reports whether addr falls inside the module.
func (m ModuleInfo) Contains(addr ProcessMemoryAddress) bool {
	return addr >= m.Base && addr < m.End()
}

// NameMatches reports whether the module answers to name. An exact match on the
// file name or full path wins; otherwise the file name is compared case-insensitively.
func (m ModuleInfo) NameMatches(name string) bool {
	if m.Name == name || m.Path == name {
		return true
	}
	return name != "" && strings.EqualFold(m.Name, filepath.Base(name))
}
