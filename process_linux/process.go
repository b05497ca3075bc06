//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"sigscan/process"
	"sigscan/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/unix"
)

// LinuxProcess implements process.Handle for Linux systems. The handle is a
// pidfd where the kernel supports it, which pins the process identity for the
// lifetime of the handle.
type LinuxProcess struct {
	pid   process.ProcessID
	pidfd int
	log   *logger.Logger
	mm    []memory_map.MemoryMapItem
	mu    sync.Mutex
}

var _ process.Handle = (*LinuxProcess)(nil)

// Open opens the process with the given PID. It satisfies process.Opener.
func Open(pid process.ProcessID) (process.Handle, error) {
	p, err := NewWithPID(pid)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NewWithPID creates a new LinuxProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (*LinuxProcess, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("invalid pid %d: %w", pid, process.ErrNotFound)
	}

	if _, err := os.Stat(fmt.Sprintf("/proc/%d", pid)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("process with PID %d does not exist: %w", pid, process.ErrNotFound)
		}
		return nil, fmt.Errorf("stat process %d: %w", pid, err)
	}

	p := &LinuxProcess{
		pid:   pid,
		pidfd: -1,
		log:   logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}

	fd, err := unix.PidfdOpen(int(pid), 0)
	switch {
	case err == nil:
		p.pidfd = fd
	case errors.Is(err, unix.ESRCH):
		return nil, fmt.Errorf("process with PID %d does not exist: %w", pid, process.ErrNotFound)
	default:
		// pidfd_open needs Linux 5.3; reads still work without it
		p.log.Debugln("pidfd_open unavailable:", err)
	}

	if err := p.UpdateMemoryMap(); err != nil {
		p.closeFD()
		return nil, fmt.Errorf("failed to initialize memory map: %w", err)
	}

	p.log.Infoln("Process opened")

	return p, nil
}

// GetPID returns the process ID
func (p *LinuxProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// Close releases the pidfd. Closing twice returns process.ErrProcessNotOpen.
func (p *LinuxProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return process.ErrProcessNotOpen
	}

	p.log.Infoln("Closing process")

	err := p.closeFD()

	// Reset process state
	p.pid = 0
	p.mm = nil

	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	if err != nil {
		return fmt.Errorf("close pidfd: %w", err)
	}
	return nil
}

func (p *LinuxProcess) closeFD() error {
	if p.pidfd < 0 {
		return nil
	}
	fd := p.pidfd
	p.pidfd = -1
	return unix.Close(fd)
}

// UpdateMemoryMap refreshes the memory map for the process
func (p *LinuxProcess) UpdateMemoryMap() error {
	p.mu.Lock()
	pid := p.pid
	p.mu.Unlock()

	if pid == 0 {
		return process.ErrProcessNotOpen
	}

	// Read memory map without holding the lock
	mm, err := memory_map.ReadMemoryMap(int(pid))
	if err != nil {
		return mapOpenError(pid, err)
	}

	p.mu.Lock()
	p.mm = mm
	p.mu.Unlock()
	return nil
}

// GetMemoryMap returns a copy of the current memory map
func (p *LinuxProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	// Make a copy of the memory map to prevent external modification
	result := make([]memory_map.MemoryMapItem, len(p.mm))
	copy(result, p.mm)

	return result, nil
}

// Modules lists the file-backed images mapped into the process
func (p *LinuxProcess) Modules() ([]process.ModuleInfo, error) {
	if err := p.UpdateMemoryMap(); err != nil {
		return nil, err
	}

	mm, err := p.GetMemoryMap()
	if err != nil {
		return nil, err
	}

	var modules []process.ModuleInfo
	for _, m := range memory_map.GroupModules(mm) {
		modules = append(modules, process.ModuleInfo{
			Name: m.Name(),
			Path: m.Path,
			Base: process.ProcessMemoryAddress(m.Start),
			Size: process.ProcessMemorySize(m.End - m.Start),
		})
	}

	return modules, nil
}

// Internal helper function that assumes the mutex is already locked
func (p *LinuxProcess) isValidAddressInternal(addr process.ProcessMemoryAddress) bool {
	if addr <= 0x10000 {
		return false
	}

	return memory_map.IsValidAddress(uint64(addr), p.mm)
}

func mapOpenError(pid process.ProcessID, err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("process %d: %w", pid, process.ErrNotFound)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("process %d: %w: %v", pid, process.ErrPermissionDenied, err)
	default:
		return err
	}
}
