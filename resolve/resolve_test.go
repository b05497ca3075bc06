package resolve

import (
	"encoding/binary"
	"math"
	"testing"

	"sigscan/config"
	"sigscan/process"
	"sigscan/process_blob"
	"sigscan/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPID    = 77
	moduleBase = process.ProcessMemoryAddress(0x400000)
)

// newTarget builds a fake process:
//
//	module+4   8B 45 B0 89 ..     "num" signature, u8 at match+8 = 32
//	module+32  int32 1337
//	module+40  ptr -> 0x900000
//	module+48  CA FE              "player" signature
//	0x900010   ptr -> 0xA00000
//	0xA00020   float32 12.5
func newTarget(t *testing.T) (*process_blob.ProcessBlob, []byte) {
	t.Helper()

	module := make([]byte, 64)
	copy(module[4:], []byte{0x8B, 0x45, 0xB0, 0x89})
	module[12] = 32
	binary.LittleEndian.PutUint32(module[32:], 1337)
	binary.LittleEndian.PutUint64(module[40:], 0x900000)
	copy(module[48:], []byte{0xCA, 0xFE})

	heap := make([]byte, 0x40)
	binary.LittleEndian.PutUint64(heap[0x10:], 0xA00000)

	player := make([]byte, 0x40)
	binary.LittleEndian.PutUint32(player[0x20:], math.Float32bits(12.5))

	blob := process_blob.NewProcessBlob(testPID, "memtest.exe")
	blob.AddModule(process.ModuleInfo{Name: "memtest.exe", Base: moduleBase, Size: 64}, module)
	blob.AddRegion(0x900000, heap)
	blob.AddRegion(0xA00000, player)
	return blob, module
}

var signatures = []config.Signature{
	{
		Name:    "num",
		Pattern: "8B 45 ?? 89",
		Reads: []config.Read{
			{Name: "num_rel", Delta: 8, Type: "u8"},
			{Name: "num", From: "num_rel", Type: "i32"},
		},
	},
	{
		Name:    "player",
		Pattern: "CA FE",
		Reads: []config.Read{
			{Name: "player_ptr", From: config.FromModule, Delta: 40, Type: "ptr"},
			{Name: "health", From: "player_ptr", Path: []int64{0x10, 0x20}, Type: "f32"},
		},
	},
	{
		Name:    "missing",
		Pattern: "FF EE DD",
		Reads:   []config.Read{{Name: "never", Type: "u8"}},
	},
}

func attach(t *testing.T, blob *process_blob.ProcessBlob) *snapshot.Snapshot {
	t.Helper()
	s, err := snapshot.Attach(blob.Opener(), testPID, "memtest.exe")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRun(t *testing.T) {
	blob, _ := newTarget(t)
	s := attach(t, blob)

	results, err := New().Run(s, signatures)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.False(t, s.Captured(), "capture is released after scanning")

	num := results[0]
	assert.True(t, num.Found)
	assert.Equal(t, 4, num.Offset)
	assert.Equal(t, moduleBase+4, num.Address)
	require.Len(t, num.Values, 2)
	assert.Equal(t, uint8(32), num.Values[0].Value)
	assert.Equal(t, moduleBase+12, num.Values[0].Address)
	assert.Equal(t, int32(1337), num.Values[1].Value)
	assert.Equal(t, moduleBase+32, num.Values[1].Address)
	assert.Equal(t, "1337", num.Values[1].String())

	player := results[1]
	assert.True(t, player.Found)
	assert.Equal(t, 48, player.Offset)
	require.Len(t, player.Values, 2)
	assert.Equal(t, process.ProcessMemoryAddress(0x900000), player.Values[0].Value)
	assert.Equal(t, "0x900000", player.Values[0].String())
	assert.Equal(t, float32(12.5), player.Values[1].Value)
	assert.Equal(t, "12.5", player.Values[1].String())

	missing := results[2]
	assert.False(t, missing.Found)
	assert.Empty(t, missing.Values)
}

func TestRunCache(t *testing.T) {
	blob, module := newTarget(t)
	s := attach(t, blob)
	r := New()

	_, err := r.Run(s, signatures)
	require.NoError(t, err)
	hits, misses := r.Stats()
	assert.Equal(t, 0, hits)
	assert.Equal(t, 3, misses)

	_, err = r.Run(s, signatures)
	require.NoError(t, err)
	hits, misses = r.Stats()
	assert.Equal(t, 3, hits)
	assert.Equal(t, 3, misses)

	// any change to the module invalidates cached offsets
	module[60] = 0x01
	results, err := r.Run(s, signatures)
	require.NoError(t, err)
	hits, misses = r.Stats()
	assert.Equal(t, 3, hits)
	assert.Equal(t, 6, misses)
	assert.Equal(t, 4, results[0].Offset)
}

func TestRunReadFault(t *testing.T) {
	blob, _ := newTarget(t)
	s := attach(t, blob)

	sigs := []config.Signature{{
		Name:    "num",
		Pattern: "8B 45",
		Reads:   []config.Read{{Name: "far", Delta: 0x10000, Type: "u32"}},
	}}

	results, err := New().Run(s, sigs)
	assert.ErrorIs(t, err, process.ErrReadFault)
	require.Len(t, results, 1)
	assert.True(t, results[0].Found)
}

func TestRunBadPattern(t *testing.T) {
	blob, _ := newTarget(t)
	s := attach(t, blob)

	_, err := New().Run(s, []config.Signature{{Name: "bad", Pattern: "8B XYZ"}})
	assert.Error(t, err)
	assert.False(t, s.Captured())
}

func TestRunCaptureFailure(t *testing.T) {
	blob := process_blob.NewProcessBlob(testPID, "memtest.exe")
	blob.AddModule(process.ModuleInfo{Name: "memtest.exe", Base: moduleBase, Size: 64}, make([]byte, 8))
	s := attach(t, blob)

	_, err := New().Run(s, signatures)
	assert.ErrorIs(t, err, process.ErrReadFault)
}

func TestReadTypedAllTypes(t *testing.T) {
	blob := process_blob.NewProcessBlob(1, "x")
	data := make([]byte, 16)
	for i := range data {
		data[i] = 0xFF
	}
	blob.AddRegion(0x1000, data)

	want := map[string]any{
		"u8":  uint8(0xFF),
		"u16": uint16(0xFFFF),
		"u32": uint32(0xFFFFFFFF),
		"u64": uint64(math.MaxUint64),
		"i8":  int8(-1),
		"i16": int16(-1),
		"i32": int32(-1),
		"i64": int64(-1),
		"ptr": process.ProcessMemoryAddress(math.MaxUint64),
	}
	for typ, w := range want {
		got, err := readTyped(blob, 0x1000, typ, nil)
		require.NoError(t, err, typ)
		assert.Equal(t, w, got, typ)
	}

	_, err := readTyped(blob, 0x1000, "u128", nil)
	assert.Error(t, err)
}
