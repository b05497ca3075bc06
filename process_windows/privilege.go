//go:build windows

package process_windows

import (
	"errors"
	"fmt"

	"sigscan/process"

	"golang.org/x/sys/windows"
)

// EnableDebugPrivilege enables SeDebugPrivilege for the current process.
// Requires an elevated token.
func EnableDebugPrivilege() error {
	var token windows.Token
	err := windows.OpenProcessToken(windows.CurrentProcess(), windows.TOKEN_ADJUST_PRIVILEGES|windows.TOKEN_QUERY, &token)
	if err != nil {
		return fmt.Errorf("OpenProcessToken: %w", err)
	}
	defer token.Close()

	// A filtered admin token silently drops SeDebugPrivilege from the adjustment
	if !token.IsElevated() {
		return fmt.Errorf("%w: process token is not elevated", process.ErrPermissionDenied)
	}

	seDebug, err := windows.UTF16PtrFromString("SeDebugPrivilege")
	if err != nil {
		return err
	}

	var luid windows.LUID
	if err := windows.LookupPrivilegeValue(nil, seDebug, &luid); err != nil {
		return fmt.Errorf("LookupPrivilegeValue: %w", err)
	}

	tp := windows.Tokenprivileges{
		PrivilegeCount: 1,
	}
	tp.Privileges[0] = windows.LUIDAndAttributes{
		Luid:       luid,
		Attributes: windows.SE_PRIVILEGE_ENABLED,
	}

	if err := windows.AdjustTokenPrivileges(token, false, &tp, 0, nil, nil); err != nil {
		if errors.Is(err, windows.ERROR_NOT_ALL_ASSIGNED) {
			return fmt.Errorf("%w: SeDebugPrivilege not held by this token", process.ErrPermissionDenied)
		}
		return fmt.Errorf("AdjustTokenPrivileges: %w", err)
	}

	return nil
}
