package engine

import (
	"slices"

	"keymapd/internal/config"
)

// ModeState is the mode state machine. An empty current mode means either
// that no modes are configured or that none has been entered yet.
type ModeState struct {
	current    string
	names      []string
	cycleKey   *config.KeyCombo
	switchKeys map[config.KeyCombo]string
}

// NewModeState initializes the machine in the configured default mode.
func NewModeState(cfg *config.Config, table *BindingTable) *ModeState {
	return &ModeState{
		current:    cfg.DefaultMode(),
		names:      cfg.ModeNames(),
		cycleKey:   cfg.ModeSwitchKey(),
		switchKeys: table.SwitchKeys(),
	}
}

// Current returns the current mode, or "" when none is active.
func (s *ModeState) Current() string {
	return s.current
}

// Active reports whether some mode is current.
func (s *ModeState) Active() bool {
	return s.current != ""
}

// Names returns the configured modes in declaration order.
func (s *ModeState) Names() []string {
	return s.names
}

// Next returns the mode combo switches to, if any. Switching only happens
// while a mode is current; the cycle key takes precedence over direct keys.
func (s *ModeState) Next(combo config.KeyCombo) (string, bool) {
	if !s.Active() {
		return "", false
	}

	if s.cycleKey != nil && combo == *s.cycleKey {
		if i := slices.Index(s.names, s.current); i >= 0 {
			return s.names[(i+1)%len(s.names)], true
		}
	}

	next, ok := s.switchKeys[combo]
	return next, ok
}

// Switch makes mode current.
func (s *ModeState) Switch(mode string) {
	s.current = mode
}

// carryOver keeps the current mode of prev if it still exists here.
func (s *ModeState) carryOver(prev *ModeState) {
	if prev == nil || !prev.Active() {
		return
	}
	if slices.Contains(s.names, prev.current) {
		s.current = prev.current
	}
}
