//go:build !linux

package main

import (
	"fmt"
	"runtime"
)

func unsupported(cmd string) error {
	return fmt.Errorf("%s: evdev input is not available on %s", cmd, runtime.GOOS)
}

func cmdRun([]string) error { return unsupported("run") }

func cmdEcho([]string) error { return unsupported("echo") }

func cmdListDevices([]string) error { return unsupported("list-devices") }

func cmdListKeys([]string) error { return unsupported("list-keys") }

func cmdDoctor([]string) error { return unsupported("doctor") }
