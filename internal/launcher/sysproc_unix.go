//go:build !windows

package launcher

import "syscall"

// sysProcAttr detaches the child into a new session so it survives the
// daemon and never receives its terminal's signals.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setsid: true,
	}
}
