//go:build !linux && !windows

package main

import (
	"errors"
	"runtime"

	"sigscan/process"
)

var errUnsupported = errors.New("live processes are not supported on " + runtime.GOOS + ", use --from with a dump")

var openProcess process.Opener = func(process.ProcessID) (process.Handle, error) {
	return nil, errUnsupported
}

func listProcesses(process.ProcessFilter) ([]process.ProcessInfo, error) {
	return nil, errUnsupported
}

func enableDebugPrivilege() error {
	return errUnsupported
}
