// Package config handles keymap loading, validation, and hot-reloading for keymapd.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds a complete keymap plus daemon settings.
type Config struct {
	// Modmap is a flat key-to-key table. It is parsed and validated
	// but the remapping engine never consults it.
	Modmap map[string]string `toml:"modmap" json:"modmap" yaml:"modmap"`

	// Modes, in declaration order. Empty means the keymap is mode-less.
	Modes ModeList `toml:"-" json:"modes" yaml:"modes"`

	// Groups, in declaration order.
	Groups GroupList `toml:"-" json:"groups" yaml:"groups"`

	// Options holds the global mode switching settings.
	Options *Options `toml:"options" json:"options" yaml:"options"`

	// Daemon holds runtime settings that are not part of the keymap.
	Daemon DaemonConfig `toml:"daemon" json:"daemon" yaml:"daemon"`
}

// KeyBinding binds a trigger combo to exactly one action.
type KeyBinding struct {
	Key   KeyCombo  `toml:"key" json:"key" yaml:"key"`
	Remap *KeyCombo `toml:"remap" json:"remap,omitempty" yaml:"remap"`
	Shell *string   `toml:"shell" json:"shell,omitempty" yaml:"shell"`

	// Desc is a human-readable description with no runtime effect.
	Desc string `toml:"desc" json:"desc,omitempty" yaml:"desc"`
}

// Action resolves the binding's action. It fails when the binding
// carries zero or two actions.
func (b KeyBinding) Action() (Action, error) {
	switch {
	case b.Remap != nil && b.Shell != nil:
		return Action{}, ErrTwoActions
	case b.Remap != nil:
		return RemapAction(*b.Remap), nil
	case b.Shell != nil:
		return ShellAction(*b.Shell), nil
	default:
		return Action{}, ErrNoAction
	}
}

// Group is a named set of key bindings with optional application filters.
type Group struct {
	KeyBindings []KeyBinding `toml:"key_bindings" json:"key_bindings" yaml:"key_bindings"`

	// In is an allow-list of window classes (empty = everywhere).
	In StringList `toml:"in" json:"in,omitempty" yaml:"in"`

	// NotIn is a deny-list of window classes (empty = nothing excluded).
	NotIn StringList `toml:"not_in" json:"not_in,omitempty" yaml:"not_in"`

	// LegacyNotIn accepts the older "notin" spelling. Parse merges it into
	// NotIn and clears it.
	LegacyNotIn StringList `toml:"notin" json:"notin,omitempty" yaml:"notin"`
}

// Mode selects which groups are live while it is current.
type Mode struct {
	Groups    []string  `toml:"groups" json:"groups" yaml:"groups"`
	SwitchKey *KeyCombo `toml:"switch_key" json:"switch_key,omitempty" yaml:"switch_key"`
}

// Options holds the global mode settings.
type Options struct {
	// ModeSwitchKey cycles to the next mode in declaration order.
	ModeSwitchKey *KeyCombo `toml:"mode_switch_key" json:"mode_switch_key,omitempty" yaml:"mode_switch_key"`

	// DefaultMode is the mode that is current at startup.
	DefaultMode string `toml:"default_mode" json:"default_mode,omitempty" yaml:"default_mode"`
}

// DaemonConfig holds runtime settings for the keymapd process.
type DaemonConfig struct {
	// Devices lists the input device paths to grab.
	Devices []string `toml:"devices" json:"devices" yaml:"devices"`

	// Notifications enables desktop notifications.
	Notifications bool `toml:"notifications" json:"notifications" yaml:"notifications"`

	// WatchConfig reloads the keymap when the file changes.
	WatchConfig bool `toml:"watch_config" json:"watch_config" yaml:"watch_config"`

	// MetricsFile receives a Prometheus text dump on shutdown (empty = off).
	MetricsFile string `toml:"metrics_file" json:"metrics_file" yaml:"metrics_file"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level" json:"log_level" yaml:"log_level"`

	// LogFormat is text or json.
	LogFormat string `toml:"log_format" json:"log_format" yaml:"log_format"`

	// LogOutput is stderr, stdout, file or both.
	LogOutput string `toml:"log_output" json:"log_output" yaml:"log_output"`

	// LogFile is used when LogOutput includes a file.
	LogFile string `toml:"log_file" json:"log_file" yaml:"log_file"`
}

// DefaultConfig returns an empty keymap with default daemon settings.
func DefaultConfig() *Config {
	return &Config{
		Daemon: DaemonConfig{
			Notifications: true,
			WatchConfig:   false,
			LogLevel:      "info",
			LogFormat:     "text",
			LogOutput:     "stderr",
			LogFile:       DefaultLogPath(),
		},
	}
}

// ModeNames returns the configured mode names in declaration order.
func (c *Config) ModeNames() []string {
	names := make([]string, 0, len(c.Modes))
	for _, m := range c.Modes {
		names = append(names, m.Name)
	}
	return names
}

// DefaultMode returns options.default_mode, or "" when unset.
func (c *Config) DefaultMode() string {
	if c.Options == nil {
		return ""
	}
	return c.Options.DefaultMode
}

// ModeSwitchKey returns options.mode_switch_key, or nil when unset.
func (c *Config) ModeSwitchKey() *KeyCombo {
	if c.Options == nil {
		return nil
	}
	return c.Options.ModeSwitchKey
}

// Warnings lists accepted-but-suspicious settings worth logging at startup.
func (c *Config) Warnings() []string {
	var warnings []string
	if len(c.Modmap) > 0 {
		warnings = append(warnings, "modmap is parsed but not applied by the remapping engine")
	}
	if len(c.Modes) > 0 && c.DefaultMode() == "" {
		warnings = append(warnings, "modes are configured without options.default_mode: no binding matches and no mode switch fires")
	}
	if len(c.Modes) == 0 && c.ModeSwitchKey() != nil {
		warnings = append(warnings, "options.mode_switch_key has no effect without modes")
	}
	for _, m := range c.Modes {
		for _, g := range m.Groups {
			if _, ok := c.Groups.Get(g); !ok {
				warnings = append(warnings, "mode "+m.Name+" references unknown group "+g+" (skipped)")
			}
		}
	}
	return warnings
}

// ApplyEnvOverrides applies KEYMAPD_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("KEYMAPD_DEVICES"); v != "" {
		var devices []string
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(d); d != "" {
				devices = append(devices, d)
			}
		}
		c.Daemon.Devices = devices
	}
	if v := os.Getenv("KEYMAPD_LOG_LEVEL"); v != "" {
		c.Daemon.LogLevel = v
	}
	if v := os.Getenv("KEYMAPD_LOG_FILE"); v != "" {
		c.Daemon.LogFile = v
	}
	if v := os.Getenv("KEYMAPD_NOTIFICATIONS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Daemon.Notifications = b
		}
	}
}
