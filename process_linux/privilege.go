//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"sigscan/process"

	"golang.org/x/sys/unix"
)

const ptraceScopePath = "/proc/sys/kernel/yama/ptrace_scope"

// EnableDebugPrivilege checks that this process may read foreign process memory.
// Linux has no privilege to switch on; what matters is the Yama ptrace scope
// and whether we run as root. Without Yama, the classic ptrace rules apply and
// the check passes.
func EnableDebugPrivilege() error {
	raw, err := os.ReadFile(ptraceScopePath)
	if err != nil {
		return nil
	}

	scope, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return fmt.Errorf("parse %s: %w", ptraceScopePath, err)
	}

	return checkPtraceScope(scope, unix.Geteuid())
}

func checkPtraceScope(scope int, euid int) error {
	switch {
	case scope <= 0:
		return nil
	case scope >= 3:
		return fmt.Errorf("%w: ptrace_scope=%d disables process memory access", process.ErrPermissionDenied, scope)
	case euid == 0:
		return nil
	default:
		return fmt.Errorf("%w: ptrace_scope=%d requires root (or CAP_SYS_PTRACE) to read other processes", process.ErrPermissionDenied, scope)
	}
}
