// Package process defines the types and interfaces shared by the platform
// process backends and the snapshot scanner.
package process

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a process or module does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied is returned when the caller lacks the rights to open or read a process.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrReadFault is matched by every failed or short foreign memory read.
	ErrReadFault = errors.New("read fault")

	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")
)

// ReadFaultError describes a foreign memory read that failed or returned fewer
// bytes than requested. It always matches ErrReadFault.
type ReadFaultError struct {
	Addr ProcessMemoryAddress
	Want ProcessMemorySize
	Got  ProcessMemorySize
	Err  error
}

func (e *ReadFaultError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("read fault at %s (%d of %d bytes): %v", e.Addr.ToString(), e.Got, e.Want, e.Err)
	}
	return fmt.Sprintf("read fault at %s: short read, %d of %d bytes", e.Addr.ToString(), e.Got, e.Want)
}

func (e *ReadFaultError) Unwrap() error {
	return e.Err
}

func (e *ReadFaultError) Is(target error) bool {
	return target == ErrReadFault
}
