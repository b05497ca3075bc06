package config

var typeSizes = map[string]int{
	"u8":  1,
	"u16": 2,
	"u32": 4,
	"u64": 8,
	"i8":  1,
	"i16": 2,
	"i32": 4,
	"i64": 8,
	"f32": 4,
	"f64": 8,
	"ptr": 8,
}

// TypeSize returns the byte size of a read type name.
func TypeSize(name string) (int, bool) {
	n, ok := typeSizes[name]
	return n, ok
}

// IsAddressType reports whether a value of the type can serve as the base of
// a later read: integers as module offsets, ptr as an absolute address.
func IsAddressType(name string) bool {
	switch name {
	case "f32", "f64":
		return false
	default:
		_, ok := typeSizes[name]
		return ok
	}
}
