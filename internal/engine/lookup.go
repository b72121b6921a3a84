package engine

import (
	"fmt"

	evdev "github.com/holoplot/go-evdev"

	"keymapd/internal/config"
	"keymapd/internal/keycode"
)

// FindAction resolves combo against the current mode's table. The window
// class is queried only when the matched rule carries a filter; a failed
// query is returned as an error rather than treated as "no filter".
func (e *Engine) FindAction(combo config.KeyCombo) (config.Action, bool, error) {
	rule, ok := e.table.Lookup(e.modes.Current(), combo)
	if !ok {
		return config.Action{}, false, nil
	}
	if !rule.Filtered() {
		return rule.Action, true, nil
	}

	if e.focus == nil {
		return config.Action{}, false, ErrNoFocusProvider
	}
	class, err := e.focus.FocusedWindowClass()
	if err != nil {
		return config.Action{}, false, fmt.Errorf("query focused window: %w", err)
	}
	if !rule.Allows(class) {
		return config.Action{}, false, nil
	}
	return rule.Action, true, nil
}

// comboFor builds the combo for code from the combined modifier state, so
// either side of a modifier satisfies a binding.
func (e *Engine) comboFor(code evdev.EvCode) config.KeyCombo {
	return config.KeyCombo{
		Key:     code,
		Shift:   e.mods.Combined(keycode.Shift),
		Control: e.mods.Combined(keycode.Control),
		Alt:     e.mods.Combined(keycode.Alt),
		Super:   e.mods.Combined(keycode.Super),
	}
}
