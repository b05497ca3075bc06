//go:build linux

package main

import (
	"sigscan/process"
	"sigscan/process_linux"
)

var (
	openProcess          process.Opener = process_linux.Open
	listProcesses                       = process_linux.ListProcesses
	enableDebugPrivilege                = process_linux.EnableDebugPrivilege
)
