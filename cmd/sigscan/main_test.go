package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sigscan/pattern"
	"sigscan/process"
	"sigscan/process_blob"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeDump saves a fake memtest.exe module:
//
//	+4   8B 45 B0 89 45 C4   signature
//	+12  u8 32               module offset of the value
//	+32  int32 1337
func writeDump(t *testing.T) string {
	t.Helper()
	module := make([]byte, 64)
	copy(module[4:], []byte{0x8B, 0x45, 0xB0, 0x89, 0x45, 0xC4})
	module[12] = 32
	binary.LittleEndian.PutUint32(module[32:], 1337)

	dir := t.TempDir()
	info := process.ModuleInfo{Name: "memtest.exe", Path: `C:\memtest\memtest.exe`, Base: 0x400000, Size: 64}
	require.NoError(t, process_blob.SaveModule(dir, 99, "memtest.exe", info, module))
	return dir
}

func TestScanFromDump(t *testing.T) {
	dir := writeDump(t)

	out, err := execute(t, "scan", "--no-color", "--from", dir, "--pattern", "8B 45 ?? 89 4? C4", "--offset", "0", "--context", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "memtest.exe+0x4 = 0x400004")
	assert.Contains(t, out, "8B 45 b0 89 | 45 C4")
}

func TestScanFromDumpNotFound(t *testing.T) {
	dir := writeDump(t)

	out, err := execute(t, "scan", "--no-color", "--from", dir, "--pattern", "DE AD BE EF", "--offset", "0", "--context", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "pattern not found in memtest.exe")
}

func TestScanInvalidPattern(t *testing.T) {
	dir := writeDump(t)

	_, err := execute(t, "scan", "--from", dir, "--pattern", "8B 4", "--offset", "0")
	assert.ErrorIs(t, err, pattern.ErrInvalidToken)
}

func TestScanMissingModule(t *testing.T) {
	dir := writeDump(t)

	_, err := execute(t, "scan", "--from", dir, "--module", "other.dll", "--pattern", "8B", "--offset", "0")
	assert.ErrorIs(t, err, process.ErrNotFound)
}

func TestScanHugeOffset(t *testing.T) {
	dir := writeDump(t)

	out, err := execute(t, "scan", "--no-color", "--from", dir, "--pattern", "8B 45", "--offset", "18446744073709551615")
	require.NoError(t, err)
	assert.Contains(t, out, "pattern not found in memtest.exe")
}

func TestFlagsDoNotLeakBetweenRuns(t *testing.T) {
	dir := writeDump(t)

	_, err := execute(t, "scan", "--no-color", "--from", dir, "--module", "other.dll", "--pattern", "8B 45", "--offset", "2")
	assert.ErrorIs(t, err, process.ErrNotFound)

	// --module and --offset fall back to their defaults
	out, err := execute(t, "scan", "--no-color", "--from", dir, "--pattern", "8B 45")
	require.NoError(t, err)
	assert.Contains(t, out, "memtest.exe+0x4 = 0x400004")
}

func TestCloseHandleReportsError(t *testing.T) {
	closeErr := errors.New("handle leaked")
	run := func(h process.Handle, result error) (err error) {
		defer closeHandle(h, &err)
		return result
	}

	blob := process_blob.NewProcessBlob(7, "memtest.exe")
	blob.SetCloseError(closeErr)
	err := run(blob, nil)
	assert.ErrorIs(t, err, closeErr)
	assert.ErrorContains(t, err, "close process 7")
	assert.Equal(t, 1, blob.CloseCount())

	// the command's own failure wins
	failed := errors.New("read failed")
	blob = process_blob.NewProcessBlob(7, "memtest.exe")
	blob.SetCloseError(closeErr)
	assert.Equal(t, failed, run(blob, failed))

	assert.NoError(t, run(process_blob.NewProcessBlob(7, "memtest.exe"), nil))
}

func TestModulesFromDump(t *testing.T) {
	dir := writeDump(t)

	out, err := execute(t, "modules", "--from", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "memtest.exe")
	assert.Contains(t, out, "0x400000")
}

func TestResolveFromDump(t *testing.T) {
	dir := writeDump(t)
	cfgPath := filepath.Join(t.TempDir(), "sigscan.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
process: memtest.exe
signatures:
  - name: num
    pattern: "8B 45 B0 89 45 C4"
    reads:
      - name: num_rel
        delta: 8
        type: u8
      - name: num
        from: num_rel
        type: i32
  - name: gone
    pattern: "DE AD"
`), 0o644))

	out, err := execute(t, "resolve", "-c", cfgPath, "--from", dir, "--watch", "0s")
	require.NoError(t, err)
	assert.Contains(t, out, "1337")
	assert.Contains(t, out, "0x400004")
	assert.Contains(t, out, "not found")
}

func TestResolveInvalidConfig(t *testing.T) {
	dir := writeDump(t)
	cfgPath := filepath.Join(t.TempDir(), "sigscan.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("process: memtest.exe\nsignatures: []\n"), 0o644))

	_, err := execute(t, "resolve", "-c", cfgPath, "--from", dir, "--watch", "0s")
	assert.ErrorContains(t, err, "no signatures")
}

func TestMatchName(t *testing.T) {
	info := process.ProcessInfo{PID: 1, Name: "memtest", Exe: "/opt/games/memtest-linux-x64"}

	assert.True(t, matchName("memtest")(info))
	assert.True(t, matchName("MEMTEST")(info))
	assert.True(t, matchName("mem*")(info))
	assert.True(t, matchName("memtest-linux-*")(info))
	assert.False(t, matchName("other*")(info))
}

func TestMainModuleName(t *testing.T) {
	assert.Equal(t, "memtest-linux-x64", mainModuleName(process.ProcessInfo{Name: "memtest-linux-x", Exe: "/opt/memtest-linux-x64"}))
	assert.Equal(t, "kthreadd", mainModuleName(process.ProcessInfo{Name: "kthreadd"}))
}

func TestReadFromDump(t *testing.T) {
	dir := writeDump(t)

	out, err := execute(t, "read", "--no-color", "--from", dir, "--addr", "0x400020", "--size", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "00400020  39 05 00 00")

	_, err = execute(t, "read", "--no-color", "--from", dir, "--addr", "0x400040", "--size", "4")
	assert.ErrorIs(t, err, process.ErrReadFault)

	_, err = execute(t, "read", "--from", dir, "--addr", "zz", "--size", "4")
	assert.Error(t, err)
}
