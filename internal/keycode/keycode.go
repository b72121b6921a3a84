// Package keycode maps between human key names and Linux input event codes.
//
// Names follow the kernel's input-event-codes.h spelling (KEY_A, KEY_LEFTCTRL,
// ...) and are resolved through the go-evdev code tables. The KEY_ prefix is
// optional and matching is case-insensitive, so "a", "KEY_A" and "key_a" all
// resolve to the same code. A few xkeysnail-style aliases for the left/right
// modifiers are accepted as well.
package keycode

import (
	"fmt"
	"sort"
	"strings"

	evdev "github.com/holoplot/go-evdev"
)

// Values carried by an EV_KEY event.
const (
	Release int32 = 0
	Press   int32 = 1
	Repeat  int32 = 2
)

// Modifier identifies one of the four tracked modifier families.
type Modifier int

const (
	Shift Modifier = iota
	Control
	Alt
	Super
)

// Modifiers lists the families in dispatch order.
var Modifiers = [...]Modifier{Shift, Control, Alt, Super}

func (m Modifier) String() string {
	switch m {
	case Shift:
		return "shift"
	case Control:
		return "control"
	case Alt:
		return "alt"
	case Super:
		return "super"
	default:
		return fmt.Sprintf("modifier(%d)", int(m))
	}
}

// Keys returns the left and right physical key for a modifier family.
func (m Modifier) Keys() (left, right evdev.EvCode) {
	switch m {
	case Shift:
		return evdev.KEY_LEFTSHIFT, evdev.KEY_RIGHTSHIFT
	case Control:
		return evdev.KEY_LEFTCTRL, evdev.KEY_RIGHTCTRL
	case Alt:
		return evdev.KEY_LEFTALT, evdev.KEY_RIGHTALT
	default:
		return evdev.KEY_LEFTMETA, evdev.KEY_RIGHTMETA
	}
}

// Side distinguishes the two physical keys of a modifier family.
type Side int

const (
	Left Side = iota
	Right
)

// ModifierOf reports which modifier family and side a key code belongs to.
// ok is false for every key that is not one of the eight modifier keys.
func ModifierOf(code evdev.EvCode) (m Modifier, side Side, ok bool) {
	switch code {
	case evdev.KEY_LEFTSHIFT:
		return Shift, Left, true
	case evdev.KEY_RIGHTSHIFT:
		return Shift, Right, true
	case evdev.KEY_LEFTCTRL:
		return Control, Left, true
	case evdev.KEY_RIGHTCTRL:
		return Control, Right, true
	case evdev.KEY_LEFTALT:
		return Alt, Left, true
	case evdev.KEY_RIGHTALT:
		return Alt, Right, true
	case evdev.KEY_LEFTMETA:
		return Super, Left, true
	case evdev.KEY_RIGHTMETA:
		return Super, Right, true
	}
	return 0, 0, false
}

// IsModifier reports whether code is one of the eight modifier keys.
func IsModifier(code evdev.EvCode) bool {
	_, _, ok := ModifierOf(code)
	return ok
}

var aliases = map[string]evdev.EvCode{
	"SHIFT_L":   evdev.KEY_LEFTSHIFT,
	"SHIFT_R":   evdev.KEY_RIGHTSHIFT,
	"CONTROL_L": evdev.KEY_LEFTCTRL,
	"CONTROL_R": evdev.KEY_RIGHTCTRL,
	"CTRL_L":    evdev.KEY_LEFTCTRL,
	"CTRL_R":    evdev.KEY_RIGHTCTRL,
	"ALT_L":     evdev.KEY_LEFTALT,
	"ALT_R":     evdev.KEY_RIGHTALT,
	"SUPER_L":   evdev.KEY_LEFTMETA,
	"SUPER_R":   evdev.KEY_RIGHTMETA,
	"WIN_L":     evdev.KEY_LEFTMETA,
	"WIN_R":     evdev.KEY_RIGHTMETA,
}

// Parse resolves a key name to its event code.
func Parse(name string) (evdev.EvCode, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if upper == "" {
		return 0, fmt.Errorf("empty key name")
	}
	if code, ok := evdev.KEYFromString[upper]; ok {
		return code, nil
	}
	if code, ok := evdev.KEYFromString["KEY_"+upper]; ok {
		return code, nil
	}
	if code, ok := aliases[upper]; ok {
		return code, nil
	}
	return 0, fmt.Errorf("failed to parse key: %q", name)
}

// Name returns the canonical name for a key code, or a numeric placeholder.
func Name(code evdev.EvCode) string {
	if name, ok := evdev.KEYToString[code]; ok {
		return name
	}
	return fmt.Sprintf("KEY_%d", code)
}

var mouseButtons = []evdev.EvCode{
	evdev.BTN_0, evdev.BTN_1, evdev.BTN_2, evdev.BTN_3, evdev.BTN_4,
	evdev.BTN_5, evdev.BTN_6, evdev.BTN_7, evdev.BTN_8, evdev.BTN_9,
	evdev.BTN_LEFT, evdev.BTN_MIDDLE, evdev.BTN_RIGHT,
}

// OutputKeys returns every code a synthetic keyboard should advertise:
// all KEY_* codes plus the common mouse buttons, sorted ascending.
func OutputKeys() []evdev.EvCode {
	seen := make(map[evdev.EvCode]bool)
	for code, name := range evdev.KEYToString {
		if strings.HasPrefix(name, "KEY_") && code != evdev.KEY_RESERVED {
			seen[code] = true
		}
	}
	for _, code := range mouseButtons {
		seen[code] = true
	}

	keys := make([]evdev.EvCode, 0, len(seen))
	for code := range seen {
		keys = append(keys, code)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ValueName describes an EV_KEY value.
func ValueName(value int32) string {
	switch value {
	case Release:
		return "RELEASE"
	case Press:
		return "PRESS"
	case Repeat:
		return "REPEAT"
	default:
		return fmt.Sprintf("VALUE(%d)", value)
	}
}
