package process

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadFaultError(t *testing.T) {
	short := &ReadFaultError{Addr: 0x1000, Want: 8, Got: 3}
	assert.ErrorIs(t, short, ErrReadFault)
	assert.Equal(t, "read fault at 0x1000: short read, 3 of 8 bytes", short.Error())

	osErr := errors.New("EFAULT")
	wrapped := &ReadFaultError{Addr: 0x1000, Want: 8, Err: osErr}
	assert.ErrorIs(t, wrapped, ErrReadFault)
	assert.ErrorIs(t, wrapped, osErr)
	assert.NotErrorIs(t, wrapped, ErrNotFound)
}

func TestModuleInfo(t *testing.T) {
	m := ModuleInfo{Name: "Game.exe", Path: `C:\Games\Game.exe`, Base: 0x140000000, Size: 0x1000}

	assert.Equal(t, ProcessMemoryAddress(0x140001000), m.End())
	assert.True(t, m.Contains(0x140000000))
	assert.True(t, m.Contains(0x140000FFF))
	assert.False(t, m.Contains(0x140001000))

	assert.True(t, m.NameMatches("Game.exe"))
	assert.True(t, m.NameMatches(`C:\Games\Game.exe`))
	assert.True(t, m.NameMatches("game.EXE"))
	assert.False(t, m.NameMatches("other.exe"))
	assert.False(t, m.NameMatches(""))
}

func TestSizeOf(t *testing.T) {
	assert.Equal(t, ProcessMemorySize(4), SizeOf[int32]())
	assert.Equal(t, ProcessMemorySize(16), SizeOf[[2]uint64]())
	assert.Equal(t, ProcessMemorySize(0), SizeOf[string]())
}

func TestReadRejectsVariableSize(t *testing.T) {
	_, err := Read[[]byte](nil, 0x1000)
	assert.Error(t, err)
}
