// Package snapshot captures one module of a foreign process into memory so
// it can be scanned for signatures.
//
// A Snapshot is Attached after Attach, Captured after Capture, and back to
// Attached after Release. Close ends it; the process handle is closed
// exactly once.
package snapshot

import (
	"errors"
	"fmt"
	"runtime"

	"sigscan/pattern"
	"sigscan/process"
	"sigscan/process_blob"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// AttachError reports a failure to open a process or to find the module in it.
type AttachError struct {
	PID    process.ProcessID
	Module string
	Err    error
}

func (e *AttachError) Error() string {
	return fmt.Sprintf("attach to module %q of process %d: %v", e.Module, e.PID, e.Err)
}

func (e *AttachError) Unwrap() error {
	return e.Err
}

// Snapshot owns a process handle and, while captured, a copy of one module.
// It is not safe for concurrent use.
type Snapshot struct {
	pid    process.ProcessID
	handle process.Handle
	module process.ModuleInfo
	data   []byte
	closed bool
	log    *logger.Logger
}

// Attach opens pid and resolves moduleName in it. On failure the handle, if
// one was opened, is closed before returning.
func Attach(open process.Opener, pid process.ProcessID, moduleName string) (*Snapshot, error) {
	log := logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("snapshot-%d", pid)))

	h, err := open(pid)
	if err != nil {
		return nil, &AttachError{PID: pid, Module: moduleName, Err: err}
	}

	module, err := process.FindModule(h, moduleName)
	if err == nil && module.Size == 0 {
		err = fmt.Errorf("module %q has zero size", module.Name)
	}
	if err != nil {
		if cerr := h.Close(); cerr != nil {
			log.Warn("Failed to close process after attach error: ", cerr)
		}
		return nil, &AttachError{PID: pid, Module: moduleName, Err: err}
	}

	s := &Snapshot{
		pid:    pid,
		handle: h,
		module: module,
		log:    log,
	}
	runtime.SetFinalizer(s, (*Snapshot).finalize)

	log.Debugln("Attached to", module.Name, "at", module.Base.ToString(), module.Size.ToString())
	return s, nil
}

// With attaches, runs fn and closes the snapshot on every exit path,
// including a panic in fn. A close failure is logged; fn's result wins.
func With(open process.Opener, pid process.ProcessID, moduleName string, fn func(s *Snapshot) error) error {
	s, err := Attach(open, pid, moduleName)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s)
}

func (s *Snapshot) finalize() {
	if s.closed {
		return
	}
	s.log.Warn("Snapshot of ", s.module.Name, " was garbage collected without Close")
	s.Close()
}

// Capture reads the whole module in one call, replacing any previous
// capture. On failure the previous state is kept and the error matches
// process.ErrReadFault.
func (s *Snapshot) Capture() error {
	if s.closed {
		return process.ErrProcessNotOpen
	}

	data, err := s.handle.ReadMemory(s.module.Base, s.module.Size)
	if err != nil {
		if errors.Is(err, process.ErrReadFault) {
			return fmt.Errorf("capture %s: %w", s.module.Name, err)
		}
		return fmt.Errorf("capture %s: %w", s.module.Name,
			&process.ReadFaultError{Addr: s.module.Base, Want: s.module.Size, Err: err})
	}
	if process.ProcessMemorySize(len(data)) != s.module.Size {
		return fmt.Errorf("capture %s: %w", s.module.Name,
			&process.ReadFaultError{Addr: s.module.Base, Want: s.module.Size, Got: process.ProcessMemorySize(len(data))})
	}

	s.data = data
	s.log.Debugln("Captured", s.module.Name, len(data), "bytes")
	return nil
}

// Release drops the captured bytes. It is a no-op when nothing is captured.
func (s *Snapshot) Release() {
	s.data = nil
}

// Close releases the capture and closes the process handle. Only the first
// call closes; later calls return nil.
func (s *Snapshot) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.data = nil
	runtime.SetFinalizer(s, nil)

	if err := s.handle.Close(); err != nil {
		s.log.Warn("Failed to close process handle: ", err)
		return fmt.Errorf("close process %d: %w", s.pid, err)
	}
	return nil
}

// Scan finds p in the captured module. It panics if the snapshot is not captured.
func (s *Snapshot) Scan(p *pattern.Pattern) (int, bool) {
	if s.data == nil {
		panic("snapshot: Scan called without a capture")
	}
	return p.Find(s.data)
}

// OffsetToAddress converts an offset into the module to an absolute address.
func (s *Snapshot) OffsetToAddress(off int) process.ProcessMemoryAddress {
	return s.module.Base + process.ProcessMemoryAddress(off)
}

// ReadAt reads a T from live process memory at module offset off.
func ReadAt[T any](s *Snapshot, off int) (T, error) {
	if s.closed {
		var zero T
		return zero, process.ErrProcessNotOpen
	}
	return process.Read[T](s.handle, s.OffsetToAddress(off))
}

func (s *Snapshot) Captured() bool {
	return s.data != nil
}

// Data returns the captured bytes, nil when not captured. The slice must not be modified.
func (s *Snapshot) Data() []byte {
	return s.data
}

func (s *Snapshot) Module() process.ModuleInfo {
	return s.module
}

// Handle returns the process handle for reads outside the module.
func (s *Snapshot) Handle() process.Handle {
	return s.handle
}

func (s *Snapshot) PID() process.ProcessID {
	return s.pid
}

// Fingerprint hashes the captured bytes. ok is false when not captured.
func (s *Snapshot) Fingerprint() (sum uint64, ok bool) {
	if s.data == nil {
		return 0, false
	}
	return process_blob.Fingerprint(s.data), true
}

// Save writes the current capture as a dump directory readable by process_blob.Load.
func (s *Snapshot) Save(dirname string) error {
	if s.data == nil {
		return fmt.Errorf("save %s: snapshot not captured", s.module.Name)
	}
	return process_blob.SaveModule(dirname, s.PID(), s.module.Name, s.module, s.data)
}
