package engine

import (
	"keymapd/internal/config"
	"keymapd/internal/keycode"
	"keymapd/internal/launcher"
)

// Dispatch executes an action. Output failures are returned wrapped in
// ErrOutput; shell failures are logged and swallowed.
func (e *Engine) Dispatch(action config.Action) error {
	e.logger.Debug("dispatch action", "action", action.String())

	switch action.Kind {
	case config.ActionRemap:
		if err := e.remap(action.Target); err != nil {
			return err
		}
		e.metrics.RecordRemap()
		return nil
	case config.ActionShell:
		e.shell(action.Command)
		return nil
	default:
		return nil
	}
}

// remap taps target.Key with exactly target's modifiers held, then puts
// every modifier back the way the user is physically holding it.
func (e *Engine) remap(target config.KeyCombo) error {
	var saved [len(keycode.Modifiers)]DualState

	for i, m := range keycode.Modifiers {
		prev, err := e.sendModifier(m, e.mods.Expect(m, target.Has(m)))
		if err != nil {
			return err
		}
		saved[i] = prev
	}

	if err := e.emitKey(target.Key, keycode.Press); err != nil {
		return err
	}
	if err := e.emitKey(target.Key, keycode.Release); err != nil {
		return err
	}

	for i := len(keycode.Modifiers) - 1; i >= 0; i-- {
		if _, err := e.sendModifier(keycode.Modifiers[i], saved[i]); err != nil {
			return err
		}
	}
	return nil
}

// sendModifier emits the presses and releases that move m to desired,
// left key first, and returns the state m had before.
func (e *Engine) sendModifier(m keycode.Modifier, desired DualState) (DualState, error) {
	orig := e.mods.Dual(m)
	cur := orig
	left, right := m.Keys()

	if cur.Left != desired.Left {
		if err := e.emitKey(left, pressValue(desired.Left)); err != nil {
			return orig, err
		}
		cur.Left = desired.Left
		e.mods.set(m, cur)
	}
	if cur.Right != desired.Right {
		if err := e.emitKey(right, pressValue(desired.Right)); err != nil {
			return orig, err
		}
		cur.Right = desired.Right
		e.mods.set(m, cur)
	}
	return orig, nil
}

func pressValue(pressed bool) int32 {
	if pressed {
		return keycode.Press
	}
	return keycode.Release
}

func (e *Engine) shell(command string) {
	program, args, err := launcher.Split(command)
	if err != nil {
		e.metrics.RecordShell(false)
		e.logger.Warn("invalid shell command", "command", command, "error", err)
		return
	}
	if e.launcher == nil {
		e.metrics.RecordShell(false)
		e.logger.Warn("no launcher configured, dropping shell command", "command", command)
		return
	}
	if err := e.launcher.Spawn(program, args); err != nil {
		e.metrics.RecordShell(false)
		e.logger.Warn("shell command failed to start", "command", command, "error", err)
		return
	}
	e.metrics.RecordShell(true)
	e.logger.Debug("shell command started", "program", program)
}
