// Package launcher starts shell commands detached from the daemon.
package launcher

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/google/shlex"
)

// ErrEmptyCommand is returned for a command with no words.
var ErrEmptyCommand = errors.New("empty command")

// Split breaks command into a program and its arguments using POSIX
// shell quoting rules.
func Split(command string) (string, []string, error) {
	words, err := shlex.Split(command)
	if err != nil {
		return "", nil, fmt.Errorf("split %q: %w", command, err)
	}
	if len(words) == 0 {
		return "", nil, ErrEmptyCommand
	}
	return words[0], words[1:], nil
}

// Detached spawns programs in their own session with no inherited stdio.
// Children are reaped in the background and never waited on by callers.
type Detached struct {
	logger *slog.Logger
}

// NewDetached returns a launcher that logs child exit status at debug level.
func NewDetached(logger *slog.Logger) *Detached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detached{logger: logger.With("component", "launcher")}
}

// Spawn starts program. It fails only when the program cannot be found or
// started; the child's own exit status is logged, not returned.
func (d *Detached) Spawn(program string, args []string) error {
	cmd := exec.Command(program, args...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", program, err)
	}

	pid := cmd.Process.Pid
	d.logger.Debug("spawned", "program", program, "pid", pid)
	go func() {
		if err := cmd.Wait(); err != nil {
			d.logger.Debug("child exited", "program", program, "pid", pid, "error", err)
		}
	}()
	return nil
}
