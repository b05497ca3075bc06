package process

// Reader is the raw half of the memory accessor: read size bytes at addr.
type Reader interface {
	// ReadMemory reads memory from the process at the specified address.
	// A short read is reported as a *ReadFaultError.
	ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)
}

// Handle is an open foreign process. It is owned by exactly one caller, which
// must Close it once.
type Handle interface {
	Reader

	// GetPID returns the process ID
	GetPID() ProcessID

	// Modules lists the images loaded in the process
	Modules() ([]ModuleInfo, error)

	// Close releases the handle
	Close() error
}

// Opener opens a handle on a running process.
type Opener func(pid ProcessID) (Handle, error)

// ProcessFilter selects processes while listing them. A nil filter selects all.
type ProcessFilter func(info ProcessInfo) bool
