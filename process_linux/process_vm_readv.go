//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"unsafe"

	"sigscan/process"

	"golang.org/x/sys/unix"
)

// process_vm_readv uses the process_vm_readv syscall to read memory from another process.
// It returns the bytes actually transferred, which may be fewer than requested.
func process_vm_readv(
	pid process.ProcessID,
	remoteAddr process.ProcessMemoryAddress,
	bytesToRead process.ProcessMemorySize,
) ([]byte, error) {
	localBuf := make([]byte, bytesToRead)

	// Create iovec for local buffer
	localIov := unix.Iovec{Base: &localBuf[0]}
	localIov.SetLen(int(bytesToRead))

	// Create iovec for remote buffer
	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  int(bytesToRead),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_READV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)

	if errno != 0 {
		return nil, errno
	}

	return localBuf[:n], nil
}

// ReadMemory reads memory from the process at the specified address.
// Anything short of size bytes is a *process.ReadFaultError.
func (p *LinuxProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	p.mu.Lock()
	pid := p.pid
	valid := p.isValidAddressInternal(addr)
	// Release the lock before the system call
	p.mu.Unlock()

	if pid == 0 {
		return nil, process.ErrProcessNotOpen
	}
	if size == 0 {
		return []byte{}, nil
	}
	if !valid {
		// the target may have mapped new regions since the last refresh
		if err := p.UpdateMemoryMap(); err == nil {
			p.mu.Lock()
			valid = p.isValidAddressInternal(addr)
			p.mu.Unlock()
		}
		if !valid {
			return nil, &process.ReadFaultError{Addr: addr, Want: size, Err: process.ErrAddressNotMapped}
		}
	}

	data, err := process_vm_readv(pid, addr, size)
	if err != nil {
		return nil, &process.ReadFaultError{Addr: addr, Want: size, Err: mapReadErrno(err)}
	}

	if process.ProcessMemorySize(len(data)) != size {
		p.log.Debugln("Partial read at", addr.ToString(), len(data), "of", uint(size))
		return nil, &process.ReadFaultError{Addr: addr, Want: size, Got: process.ProcessMemorySize(len(data))}
	}

	return data, nil
}

func mapReadErrno(err error) error {
	switch {
	case errors.Is(err, unix.EPERM), errors.Is(err, unix.EACCES):
		return fmt.Errorf("%w: process_vm_readv: %v", process.ErrPermissionDenied, err)
	case errors.Is(err, unix.ESRCH):
		return fmt.Errorf("%w: process_vm_readv: %v", process.ErrNotFound, err)
	default:
		return fmt.Errorf("process_vm_readv: %w", err)
	}
}
