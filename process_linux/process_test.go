//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unsafe"

	"sigscan/pattern"
	"sigscan/process"
	"sigscan/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMissingProcess(t *testing.T) {
	_, err := Open(0)
	assert.ErrorIs(t, err, process.ErrNotFound)

	// pid_max never reaches this on a default kernel
	_, err = Open(1 << 30)
	assert.ErrorIs(t, err, process.ErrNotFound)
}

func TestListProcessesByName(t *testing.T) {
	all, err := ListProcesses(nil)
	require.NoError(t, err)

	for _, info := range all {
		assert.NotEqual(t, process.ProcessID(os.Getpid()), info.PID, "self is skipped")
	}

	none, err := ListProcesses(ByName("no-such-process-name-for-sure"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBytesTrimNL(t *testing.T) {
	assert.Equal(t, "bash", string(bytesTrimNL([]byte("bash\n"))))
	assert.Equal(t, "", string(bytesTrimNL([]byte("\r\n"))))
}

var selfReadMarker = [16]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C}

func TestReadOwnMemory(t *testing.T) {
	p, err := NewWithPID(process.ProcessID(os.Getpid()))
	require.NoError(t, err)
	defer p.Close()

	addr := process.ProcessMemoryAddress(uintptr(unsafe.Pointer(&selfReadMarker[0])))
	data, err := p.ReadMemory(addr, 16)
	require.NoError(t, err)
	assert.Equal(t, selfReadMarker[:], data)

	v, err := process.Read[uint32](p, addr)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xEFBEADDE), v)

	_, err = p.ReadMemory(0x1000, 4)
	assert.ErrorIs(t, err, process.ErrReadFault)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)

	modules, err := p.Modules()
	require.NoError(t, err)
	assert.NotEmpty(t, modules)

	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Close(), process.ErrProcessNotOpen)

	_, err = p.ReadMemory(addr, 4)
	assert.ErrorIs(t, err, process.ErrProcessNotOpen)
}

func TestSnapshotOwnExecutable(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)

	s, err := snapshot.Attach(Open, process.ProcessID(os.Getpid()), filepath.Base(exe))
	require.NoError(t, err)
	defer s.Close()

	m := s.Module()
	addr := process.ProcessMemoryAddress(uintptr(unsafe.Pointer(&selfReadMarker[0])))
	require.True(t, m.Contains(addr), "marker %s outside %s at %s", addr.ToString(), m.Name, m.Base.ToString())

	// the whole image comes back in one read
	require.NoError(t, s.Capture())
	require.Len(t, s.Data(), int(m.Size))

	off := int(addr - m.Base)
	assert.Equal(t, selfReadMarker[:], s.Data()[off:off+len(selfReadMarker)])

	var tokens []string
	for _, b := range selfReadMarker {
		tokens = append(tokens, fmt.Sprintf("%02X", b))
	}
	p := pattern.MustCompile(0, strings.Join(tokens, " "))
	pos, found := s.Scan(p)
	require.True(t, found)
	assert.Equal(t, selfReadMarker[:], s.Data()[pos:pos+p.Len()])

	s.Release()
	require.NoError(t, s.Close())
}
