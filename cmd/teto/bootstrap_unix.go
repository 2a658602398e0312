//go:build unix

package main

import "syscall"

// raiseFileLimit bumps the open-file limit: a multi-output render holds
// many clip and overlay files at once and default limits on macOS are low.
func raiseFileLimit() {
	var rlimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rlimit); err != nil {
		return
	}
	if rlimit.Cur >= 2048 {
		return
	}
	rlimit.Cur = 2048
	if rlimit.Cur > rlimit.Max {
		rlimit.Cur = rlimit.Max
	}
	_ = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rlimit)
}
