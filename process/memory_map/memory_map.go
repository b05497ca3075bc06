package memory_map

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// MemoryMapItem represents a memory region in a process's address space
type MemoryMapItem struct {
	Address uint64 // The starting address of the memory region
	Size    uint   // The size of the memory region in bytes
	Perms   string // Permissions (e.g., "r-xp" for read, execute, private)
	Path    string // Backing file or pseudo path ("[heap]"), empty for anonymous mappings
}

// String returns a string representation of the memory map item
func (mmItem MemoryMapItem) String() string {
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s, Path: %s", mmItem.Address, mmItem.Size, mmItem.Perms, mmItem.Path)
}

// End returns the first address past the region
func (mmItem MemoryMapItem) End() uint64 {
	return mmItem.Address + uint64(mmItem.Size)
}

func (mmItem MemoryMapItem) IsReadable() bool {
	return len(mmItem.Perms) > 0 && mmItem.Perms[0] == 'r'
}

// IsFileBacked reports whether the region maps a file on disk
func (mmItem MemoryMapItem) IsFileBacked() bool {
	return strings.HasPrefix(mmItem.Path, "/")
}

// Module is the address range covered by every mapping of one file
type Module struct {
	Path  string
	Start uint64
	End   uint64
}

// Name returns the file name of the module
func (m Module) Name() string {
	return filepath.Base(m.Path)
}

// ParseMemoryMap parses the /proc/[pid]/maps text format, e.g.
//
//	55d0c8a00000-55d0c8a02000 r--p 00000000 08:01 1311 /usr/bin/cat
//
// The result is sorted by address.
func ParseMemoryMap(r io.Reader) ([]MemoryMapItem, error) {
	var memoryMap []MemoryMapItem

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		// Parse address range (e.g., "00400000-0040b000")
		addrRange := strings.Split(fields[0], "-")
		if len(addrRange) != 2 {
			continue
		}

		startAddr, err := strconv.ParseUint(addrRange[0], 16, 64)
		if err != nil {
			continue
		}

		endAddr, err := strconv.ParseUint(addrRange[1], 16, 64)
		if err != nil || endAddr <= startAddr {
			continue
		}

		var path string
		if len(fields) > 5 {
			path = strings.TrimSuffix(strings.Join(fields[5:], " "), " (deleted)")
		}

		memoryMap = append(memoryMap, MemoryMapItem{
			Address: startAddr,
			Size:    uint(endAddr - startAddr),
			Perms:   fields[1],
			Path:    path,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	// FindRegion requires the memory map to be sorted by address
	sort.Slice(memoryMap, func(i, j int) bool {
		return memoryMap[i].Address < memoryMap[j].Address
	})

	return memoryMap, nil
}

// FindRegion returns the region containing addr. memoryMap must be sorted by address.
func FindRegion(addr uint64, memoryMap []MemoryMapItem) *MemoryMapItem {
	i := sort.Search(len(memoryMap), func(i int) bool {
		return memoryMap[i].End() > addr
	})
	if i < len(memoryMap) && memoryMap[i].Address <= addr {
		return &memoryMap[i]
	}

	return nil
}

// IsValidAddress checks if an address is within a readable memory region
func IsValidAddress(addr uint64, memoryMap []MemoryMapItem) bool {
	item := FindRegion(addr, memoryMap)
	return item != nil && item.IsReadable()
}

// GroupModules folds the file-backed mappings into one range per file, spanning
// the lowest start to the highest end of that file's mappings. Modules are
// returned in order of their first mapping.
func GroupModules(memoryMap []MemoryMapItem) []Module {
	var modules []Module
	index := make(map[string]int)

	for _, item := range memoryMap {
		if !item.IsFileBacked() {
			continue
		}

		i, ok := index[item.Path]
		if !ok {
			index[item.Path] = len(modules)
			modules = append(modules, Module{Path: item.Path, Start: item.Address, End: item.End()})
			continue
		}

		if item.Address < modules[i].Start {
			modules[i].Start = item.Address
		}
		if item.End() > modules[i].End {
			modules[i].End = item.End()
		}
	}

	return modules
}
