package process

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// SizeOf returns the number of bytes Read[T] consumes, or 0 when T has no fixed size.
func SizeOf[T any]() ProcessMemorySize {
	var t T
	n := binary.Size(t)
	if n < 0 {
		return 0
	}
	return ProcessMemorySize(n)
}

// Read decodes a fixed-size value of type T from exactly SizeOf[T] bytes at addr.
// T must be a fixed-size type accepted by encoding/binary (sized integers, floats,
// bools, arrays and structs of those). Values are little-endian.
func Read[T any](r Reader, addr ProcessMemoryAddress) (T, error) {
	var t T
	size := SizeOf[T]()
	if size == 0 {
		return t, fmt.Errorf("Read: %T has no fixed size", t)
	}

	data, err := r.ReadMemory(addr, size)
	if err != nil {
		return t, err
	}
	if ProcessMemorySize(len(data)) != size {
		return t, &ReadFaultError{Addr: addr, Want: size, Got: ProcessMemorySize(len(data))}
	}

	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &t); err != nil {
		return t, fmt.Errorf("Read: failed to decode %T at %s: %w", t, addr.ToString(), err)
	}
	return t, nil
}

// ReadPath reads a value of type T at the end of a pointer path.
// It starts at base, adds the first offset, reads a pointer, adds the next offset, reads a pointer, etc.
// The last offset is added to the final pointer, and then T is read from that address.
// If offsets is empty, it reads T from base. Pointers are 8 bytes.
func ReadPath[T any](r Reader, base ProcessMemoryAddress, offsets ...int64) (T, error) {
	current := base

	for i := 0; i < len(offsets)-1; i++ {
		ptrAddr := current + ProcessMemoryAddress(offsets[i])

		ptr, err := Read[uint64](r, ptrAddr)
		if err != nil {
			var zero T
			return zero, fmt.Errorf("failed to read pointer at step %d (addr %s): %w", i, ptrAddr.ToString(), err)
		}
		if ptr == 0 {
			var zero T
			return zero, fmt.Errorf("pointer at step %d (addr %s) is null", i, ptrAddr.ToString())
		}

		current = ProcessMemoryAddress(ptr)
	}

	if len(offsets) > 0 {
		current += ProcessMemoryAddress(offsets[len(offsets)-1])
	}

	val, err := Read[T](r, current)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to read final value at %s: %w", current.ToString(), err)
	}
	return val, nil
}
