package process_blob

import (
	"sort"
	"sync"

	"sigscan/process"
)

// Region is a contiguous run of captured bytes starting at Base.
type Region struct {
	Base process.ProcessMemoryAddress
	Data []byte
}

func (r Region) End() process.ProcessMemoryAddress {
	return r.Base + process.ProcessMemoryAddress(len(r.Data))
}

// ProcessBlob is a process.Handle backed by byte regions held in memory.
// It stands in for a live process when scanning a saved dump, and in tests.
type ProcessBlob struct {
	pid     process.ProcessID
	name    string
	modules []process.ModuleInfo
	regions []Region

	closed     bool
	closeCount int
	closeErr   error
	mu         sync.Mutex
}

var _ process.Handle = (*ProcessBlob)(nil)

func NewProcessBlob(pid process.ProcessID, name string) *ProcessBlob {
	return &ProcessBlob{
		pid:  pid,
		name: name,
	}
}

// AddRegion makes data readable at base. Regions are kept sorted by address.
func (p *ProcessBlob) AddRegion(base process.ProcessMemoryAddress, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.regions = append(p.regions, Region{Base: base, Data: data})
	sort.Slice(p.regions, func(i, j int) bool {
		return p.regions[i].Base < p.regions[j].Base
	})
}

// AddModule registers m. When data is non-nil it is also mapped at m.Base;
// data may be shorter than m.Size to model a module with an unreadable tail.
func (p *ProcessBlob) AddModule(m process.ModuleInfo, data []byte) {
	p.mu.Lock()
	p.modules = append(p.modules, m)
	p.mu.Unlock()

	if data != nil {
		p.AddRegion(m.Base, data)
	}
}

// SetCloseError makes the next Close return err.
func (p *ProcessBlob) SetCloseError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeErr = err
}

// CloseCount reports how many times Close has been called.
func (p *ProcessBlob) CloseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeCount
}

func (p *ProcessBlob) Name() string {
	return p.name
}

func (p *ProcessBlob) GetPID() process.ProcessID {
	return p.pid
}

// Opener returns a process.Opener that hands out this blob for its own pid.
func (p *ProcessBlob) Opener() process.Opener {
	return func(pid process.ProcessID) (process.Handle, error) {
		if pid != p.pid {
			return nil, process.ErrNotFound
		}
		return p, nil
	}
}

func (p *ProcessBlob) Modules() ([]process.ModuleInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, process.ErrProcessNotOpen
	}

	result := make([]process.ModuleInfo, len(p.modules))
	copy(result, p.modules)
	return result, nil
}

// ReadMemory copies size bytes starting at addr. A read that starts outside
// every region, or runs off the end of one, is a *process.ReadFaultError.
func (p *ProcessBlob) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, process.ErrProcessNotOpen
	}
	if size == 0 {
		return []byte{}, nil
	}

	region := p.findRegion(addr)
	if region == nil {
		return nil, &process.ReadFaultError{Addr: addr, Want: size, Err: process.ErrAddressNotMapped}
	}

	offset := uint64(addr - region.Base)
	avail := uint64(len(region.Data)) - offset
	if uint64(size) > avail {
		return nil, &process.ReadFaultError{Addr: addr, Want: size, Got: process.ProcessMemorySize(avail)}
	}

	result := make([]byte, size)
	copy(result, region.Data[offset:offset+uint64(size)])
	return result, nil
}

// Close marks the blob closed. The first call returns the injected close
// error, if any; later calls return process.ErrProcessNotOpen.
func (p *ProcessBlob) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeCount++
	if p.closed {
		return process.ErrProcessNotOpen
	}
	p.closed = true
	return p.closeErr
}

func (p *ProcessBlob) findRegion(addr process.ProcessMemoryAddress) *Region {
	i := sort.Search(len(p.regions), func(i int) bool {
		return p.regions[i].End() > addr
	})
	if i < len(p.regions) && p.regions[i].Base <= addr {
		return &p.regions[i]
	}
	return nil
}
