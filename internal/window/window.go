// Package window reports the class of the focused X11 window.
package window

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrNoFocus is returned when no window has the input focus.
	ErrNoFocus = errors.New("no focused window")

	// ErrNoClass is returned when the focused window has no WM_CLASS.
	ErrNoClass = errors.New("focused window has no WM_CLASS")
)

// queryTimeout bounds each xprop call; the event loop waits on it.
const queryTimeout = 500 * time.Millisecond

// runFunc runs a command and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// XProp looks up the focused window with the xprop utility.
type XProp struct {
	run runFunc
}

// NewXProp returns a provider backed by xprop(1). It fails when xprop is
// not installed.
func NewXProp() (*XProp, error) {
	if _, err := exec.LookPath("xprop"); err != nil {
		return nil, fmt.Errorf("xprop not found: %w", err)
	}
	return &XProp{run: execRun}, nil
}

// FocusedWindowClass returns the class part of the focused window's
// WM_CLASS, e.g. "firefox" for WM_CLASS = "Navigator", "firefox".
func (x *XProp) FocusedWindowClass() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	out, err := x.run(ctx, "xprop", "-root", "_NET_ACTIVE_WINDOW")
	if err != nil {
		return "", fmt.Errorf("query active window: %w", err)
	}
	id, err := parseActiveWindow(string(out))
	if err != nil {
		return "", err
	}

	out, err = x.run(ctx, "xprop", "-id", id, "WM_CLASS")
	if err != nil {
		return "", fmt.Errorf("query WM_CLASS of %s: %w", id, err)
	}
	return parseWMClass(string(out))
}

// parseActiveWindow extracts the id from
// "_NET_ACTIVE_WINDOW(WINDOW): window id # 0x3a00007".
func parseActiveWindow(out string) (string, error) {
	fields := strings.Fields(out)
	if len(fields) < 5 || fields[len(fields)-2] != "#" {
		return "", fmt.Errorf("unexpected xprop output: %q", strings.TrimSpace(out))
	}
	id := fields[len(fields)-1]
	if id == "0x0" {
		return "", ErrNoFocus
	}
	return id, nil
}

// parseWMClass extracts the class from `WM_CLASS(STRING) = "instance", "class"`.
func parseWMClass(out string) (string, error) {
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "WM_CLASS") {
			continue
		}
		idx := strings.Index(line, "= ")
		if idx < 0 {
			return "", ErrNoClass
		}

		var values []string
		for _, v := range strings.Split(line[idx+2:], ",") {
			values = append(values, strings.Trim(strings.TrimSpace(v), `"`))
		}
		switch len(values) {
		case 0:
			return "", ErrNoClass
		case 1:
			return values[0], nil
		default:
			return values[1], nil
		}
	}
	return "", ErrNoClass
}
