//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"unsafe"

	"sigscan/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/windows"
)

const openAccess = windows.PROCESS_QUERY_INFORMATION | windows.PROCESS_VM_READ

// WindowsProcess implements process.Handle for Windows systems
type WindowsProcess struct {
	pid    process.ProcessID
	handle windows.Handle
	log    *logger.Logger
	mu     sync.Mutex
}

var _ process.Handle = (*WindowsProcess)(nil)

// Open opens the process with the given PID. It satisfies process.Opener.
func Open(pid process.ProcessID) (process.Handle, error) {
	p, err := NewWithPID(pid)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NewWithPID creates a new WindowsProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (*WindowsProcess, error) {
	if pid <= 0 {
		return nil, fmt.Errorf("invalid pid %d: %w", pid, process.ErrNotFound)
	}

	handle, err := windows.OpenProcess(openAccess, false, uint32(pid))
	if err != nil {
		return nil, fmt.Errorf("OpenProcess %d: %w", pid, mapWinError(err))
	}

	p := &WindowsProcess{
		pid:    pid,
		handle: handle,
		log:    logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}

	p.log.Infoln("Process opened")
	return p, nil
}

// Close releases the process handle. Closing twice returns process.ErrProcessNotOpen.
func (p *WindowsProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == 0 {
		return process.ErrProcessNotOpen
	}

	p.log.Infoln("Closing process")

	err := windows.CloseHandle(p.handle)
	p.handle = 0
	p.pid = 0
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	if err != nil {
		return fmt.Errorf("CloseHandle failed: %w", err)
	}
	return nil
}

func (p *WindowsProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// ReadMemory reads size bytes at addr. Partial copies are reported as
// *process.ReadFaultError.
func (p *WindowsProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	p.mu.Lock()
	handle := p.handle
	p.mu.Unlock()

	if handle == 0 {
		return nil, process.ErrProcessNotOpen
	}
	if size == 0 {
		return []byte{}, nil
	}

	buf := make([]byte, size)
	var bytesRead uintptr
	err := windows.ReadProcessMemory(handle, uintptr(addr), &buf[0], uintptr(size), &bytesRead)

	if err != nil {
		if errors.Is(err, windows.ERROR_PARTIAL_COPY) {
			return nil, &process.ReadFaultError{Addr: addr, Want: size, Got: process.ProcessMemorySize(bytesRead), Err: err}
		}
		return nil, &process.ReadFaultError{Addr: addr, Want: size, Got: process.ProcessMemorySize(bytesRead), Err: mapWinError(err)}
	}

	if bytesRead != uintptr(size) {
		return nil, &process.ReadFaultError{Addr: addr, Want: size, Got: process.ProcessMemorySize(bytesRead)}
	}

	return buf, nil
}

// Modules lists the images loaded in the process, main executable first.
func (p *WindowsProcess) Modules() ([]process.ModuleInfo, error) {
	p.mu.Lock()
	handle := p.handle
	p.mu.Unlock()

	if handle == 0 {
		return nil, process.ErrProcessNotOpen
	}

	// EnumProcessModules reports the size it needs; grow until it fits
	modules := make([]windows.Handle, 256)
	for {
		var needed uint32
		cb := uint32(len(modules)) * uint32(unsafe.Sizeof(modules[0]))
		if err := windows.EnumProcessModules(handle, &modules[0], cb, &needed); err != nil {
			return nil, fmt.Errorf("EnumProcessModules: %w", mapWinError(err))
		}
		if needed <= cb {
			modules = modules[:needed/uint32(unsafe.Sizeof(modules[0]))]
			break
		}
		modules = make([]windows.Handle, needed/uint32(unsafe.Sizeof(modules[0])))
	}

	out := make([]process.ModuleInfo, 0, len(modules))
	for _, m := range modules {
		var mi windows.ModuleInfo
		if err := windows.GetModuleInformation(handle, m, &mi, uint32(unsafe.Sizeof(mi))); err != nil {
			p.log.Debugln("GetModuleInformation failed:", err)
			continue
		}

		var path [windows.MAX_PATH]uint16
		if err := windows.GetModuleFileNameEx(handle, m, &path[0], windows.MAX_PATH); err != nil {
			p.log.Debugln("GetModuleFileNameEx failed:", err)
			continue
		}

		full := windows.UTF16ToString(path[:])
		out = append(out, process.ModuleInfo{
			Name: filepath.Base(full),
			Path: full,
			Base: process.ProcessMemoryAddress(mi.BaseOfDll),
			Size: process.ProcessMemorySize(mi.SizeOfImage),
		})
	}

	return out, nil
}

func mapWinError(err error) error {
	switch {
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return fmt.Errorf("%w: %v", process.ErrPermissionDenied, err)
	case errors.Is(err, windows.ERROR_INVALID_PARAMETER):
		// OpenProcess reports a pid that does not exist this way
		return fmt.Errorf("%w: %v", process.ErrNotFound, err)
	default:
		return err
	}
}
