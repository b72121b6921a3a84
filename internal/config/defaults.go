package config

import (
	"os"
	"path/filepath"
)

// Paths follow the XDG Base Directory Specification.

// ConfigDir returns the keymapd configuration directory.
func ConfigDir() string {
	// XDG_CONFIG_HOME or ~/.config
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "keymapd")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "keymapd")
}

// StateDir returns the keymapd state directory (logs, crash reports).
func StateDir() string {
	// XDG_STATE_HOME or ~/.local/state
	if xdgState := os.Getenv("XDG_STATE_HOME"); xdgState != "" {
		return filepath.Join(xdgState, "keymapd")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "keymapd")
}

// ConfigPath returns the default keymap file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "keymapd.log")
}

// DefaultCrashDir returns where crash reports are written.
func DefaultCrashDir() string {
	return filepath.Join(StateDir(), "crashes")
}
