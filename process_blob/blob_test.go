package process_blob

import (
	"errors"
	"testing"

	"sigscan/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessBlobReadMemory(t *testing.T) {
	blob := NewProcessBlob(42, "game.exe")
	blob.AddRegion(0x2000, []byte{5, 6, 7, 8})
	blob.AddRegion(0x1000, []byte{1, 2, 3, 4})

	data, err := blob.ReadMemory(0x1001, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3}, data)

	data, err = blob.ReadMemory(0x2000, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{5, 6, 7, 8}, data)

	// returned slices are copies
	data[0] = 0xFF
	again, err := blob.ReadMemory(0x2000, 1)
	require.NoError(t, err)
	assert.Equal(t, byte(5), again[0])

	_, err = blob.ReadMemory(0x1800, 1)
	assert.ErrorIs(t, err, process.ErrReadFault)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)

	_, err = blob.ReadMemory(0x1002, 4)
	var fault *process.ReadFaultError
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, process.ProcessMemorySize(2), fault.Got)
	assert.Equal(t, process.ProcessMemorySize(4), fault.Want)
}

func TestProcessBlobTypedRead(t *testing.T) {
	blob := NewProcessBlob(1, "x")
	blob.AddRegion(0x1000, []byte{0x78, 0x56, 0x34, 0x12, 0x00, 0x20, 0x00, 0x00, 0, 0, 0, 0})

	v, err := process.Read[uint32](blob, 0x1000)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), v)

	_, err = process.Read[uint64](blob, 0x1008)
	assert.ErrorIs(t, err, process.ErrReadFault)
}

func TestProcessBlobReadPath(t *testing.T) {
	blob := NewProcessBlob(1, "x")
	// 0x1000: pointer to 0x2000; 0x2010: int32 99
	blob.AddRegion(0x1000, []byte{0x00, 0x20, 0, 0, 0, 0, 0, 0})
	region := make([]byte, 0x20)
	region[0x10] = 99
	blob.AddRegion(0x2000, region)

	v, err := process.ReadPath[int32](blob, 0x1000, 0, 0x10)
	require.NoError(t, err)
	assert.Equal(t, int32(99), v)

	_, err = process.ReadPath[int32](blob, 0x2000, 0, 0)
	assert.Error(t, err, "null pointer")
}

func TestProcessBlobClose(t *testing.T) {
	blob := NewProcessBlob(7, "x")
	boom := errors.New("boom")
	blob.SetCloseError(boom)

	assert.ErrorIs(t, blob.Close(), boom)
	assert.ErrorIs(t, blob.Close(), process.ErrProcessNotOpen)
	assert.Equal(t, 2, blob.CloseCount())

	_, err := blob.ReadMemory(0, 1)
	assert.ErrorIs(t, err, process.ErrProcessNotOpen)
	_, err = blob.Modules()
	assert.ErrorIs(t, err, process.ErrProcessNotOpen)
}

func TestProcessBlobOpenerAndFindModule(t *testing.T) {
	blob := NewProcessBlob(7, "memtest.exe")
	blob.AddModule(process.ModuleInfo{Name: "memtest.exe", Path: `C:\bin\memtest.exe`, Base: 0x140000000, Size: 0x1000}, nil)
	blob.AddModule(process.ModuleInfo{Name: "KERNEL32.DLL", Path: `C:\Windows\System32\KERNEL32.DLL`, Base: 0x7ff800000000, Size: 0x2000}, nil)

	_, err := blob.Opener()(8)
	assert.ErrorIs(t, err, process.ErrNotFound)

	h, err := blob.Opener()(7)
	require.NoError(t, err)

	m, err := process.FindModule(h, "kernel32.dll")
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(0x7ff800000000), m.Base)

	_, err = process.FindModule(h, "missing.dll")
	assert.ErrorIs(t, err, process.ErrNotFound)
}
