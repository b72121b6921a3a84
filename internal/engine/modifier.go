package engine

import (
	"fmt"

	evdev "github.com/holoplot/go-evdev"

	"keymapd/internal/keycode"
)

// DualState is the pressed state of the left and right key of one modifier.
type DualState struct {
	Left  bool
	Right bool
}

// Any reports whether either side is pressed.
func (d DualState) Any() bool {
	return d.Left || d.Right
}

func (d DualState) String() string {
	return fmt.Sprintf("(%t,%t)", d.Left, d.Right)
}

var (
	bothPressed  = DualState{Left: true, Right: true}
	bothReleased = DualState{}
)

// ModifierState tracks the eight modifier keys. The zero value has every
// modifier released.
type ModifierState struct {
	dual [len(keycode.Modifiers)]DualState
}

// Update records the state of a modifier key. Non-modifier codes are ignored.
func (s *ModifierState) Update(code evdev.EvCode, pressed bool) {
	m, side, ok := keycode.ModifierOf(code)
	if !ok {
		return
	}
	if side == keycode.Left {
		s.dual[m].Left = pressed
	} else {
		s.dual[m].Right = pressed
	}
}

// Combined reports whether either side of m is pressed.
func (s ModifierState) Combined(m keycode.Modifier) bool {
	return s.dual[m].Any()
}

// Dual returns the per-side state of m.
func (s ModifierState) Dual(m keycode.Modifier) DualState {
	return s.dual[m]
}

func (s *ModifierState) set(m keycode.Modifier, d DualState) {
	s.dual[m] = d
}

// Expect computes the state m should have for a combo that wants it
// pressed (or not). A modifier already in the wanted combined state is
// left alone so the side the user is holding is preserved.
func (s *ModifierState) Expect(m keycode.Modifier, pressed bool) DualState {
	cur := s.dual[m]
	switch {
	case cur.Any() == pressed:
		return cur
	case pressed:
		return bothPressed
	default:
		return bothReleased
	}
}

func (s ModifierState) String() string {
	return fmt.Sprintf("shift=%s control=%s alt=%s super=%s",
		s.dual[keycode.Shift], s.dual[keycode.Control], s.dual[keycode.Alt], s.dual[keycode.Super])
}
