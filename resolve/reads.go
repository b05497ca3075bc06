package resolve

import (
	"fmt"

	"sigscan/config"
	"sigscan/process"
	"sigscan/snapshot"
)

func evalReads(s *snapshot.Snapshot, match process.ProcessMemoryAddress, reads []config.Read) ([]Value, error) {
	values := make([]Value, 0, len(reads))
	byName := make(map[string]Value, len(reads))

	for _, rd := range reads {
		base, err := readBase(s, match, rd.From, byName)
		if err != nil {
			return values, fmt.Errorf("read %q: %w", rd.Name, err)
		}

		addr := base + process.ProcessMemoryAddress(rd.Delta)
		v, err := readTyped(s.Handle(), addr, rd.Type, rd.Path)
		if err != nil {
			return values, fmt.Errorf("read %q at %s: %w", rd.Name, addr.ToString(), err)
		}

		val := Value{Name: rd.Name, Type: rd.Type, Address: addr, Value: v}
		values = append(values, val)
		byName[rd.Name] = val
	}

	return values, nil
}

func readBase(s *snapshot.Snapshot, match process.ProcessMemoryAddress, from string, prev map[string]Value) (process.ProcessMemoryAddress, error) {
	switch from {
	case "", config.FromMatch:
		return match, nil
	case config.FromModule:
		return s.Module().Base, nil
	}

	v, ok := prev[from]
	if !ok {
		return 0, fmt.Errorf("unknown read %q", from)
	}

	// pointers are absolute, integers are offsets into the module
	switch x := v.Value.(type) {
	case process.ProcessMemoryAddress:
		return x, nil
	case uint8:
		return s.Module().Base + process.ProcessMemoryAddress(x), nil
	case uint16:
		return s.Module().Base + process.ProcessMemoryAddress(x), nil
	case uint32:
		return s.Module().Base + process.ProcessMemoryAddress(x), nil
	case uint64:
		return s.Module().Base + process.ProcessMemoryAddress(x), nil
	case int8:
		return s.Module().Base + process.ProcessMemoryAddress(int64(x)), nil
	case int16:
		return s.Module().Base + process.ProcessMemoryAddress(int64(x)), nil
	case int32:
		return s.Module().Base + process.ProcessMemoryAddress(int64(x)), nil
	case int64:
		return s.Module().Base + process.ProcessMemoryAddress(x), nil
	default:
		return 0, fmt.Errorf("%q is a %s and cannot be an address", from, v.Type)
	}
}

func readTyped(r process.Reader, addr process.ProcessMemoryAddress, typ string, path []int64) (any, error) {
	switch typ {
	case "u8":
		return readAs[uint8](r, addr, path)
	case "u16":
		return readAs[uint16](r, addr, path)
	case "u32":
		return readAs[uint32](r, addr, path)
	case "u64":
		return readAs[uint64](r, addr, path)
	case "i8":
		return readAs[int8](r, addr, path)
	case "i16":
		return readAs[int16](r, addr, path)
	case "i32":
		return readAs[int32](r, addr, path)
	case "i64":
		return readAs[int64](r, addr, path)
	case "f32":
		return readAs[float32](r, addr, path)
	case "f64":
		return readAs[float64](r, addr, path)
	case "ptr":
		v, err := readAs[uint64](r, addr, path)
		if err != nil {
			return nil, err
		}
		return process.ProcessMemoryAddress(v.(uint64)), nil
	default:
		return nil, fmt.Errorf("unknown type %q", typ)
	}
}

func readAs[T any](r process.Reader, addr process.ProcessMemoryAddress, path []int64) (any, error) {
	var (
		v   T
		err error
	)
	if len(path) == 0 {
		v, err = process.Read[T](r, addr)
	} else {
		v, err = process.ReadPath[T](r, addr, path...)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
