//go:build windows

package main

import (
	"sigscan/process"
	"sigscan/process_windows"
)

var (
	openProcess          process.Opener = process_windows.Open
	listProcesses                       = process_windows.ListProcesses
	enableDebugPrivilege                = process_windows.EnableDebugPrivilege
)
