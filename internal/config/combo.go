package config

import (
	"errors"
	"fmt"
	"strings"

	evdev "github.com/holoplot/go-evdev"

	"keymapd/internal/keycode"
)

var (
	// ErrNoAction is returned for a binding with neither remap nor shell.
	ErrNoAction = errors.New("binding has neither remap nor shell")

	// ErrTwoActions is returned for a binding with both remap and shell.
	ErrTwoActions = errors.New("binding has both remap and shell")
)

// KeyCombo is a physical key plus the exact set of modifiers held with it.
// Two combos are equal only when all five fields are equal, so KeyCombo
// can be used directly as a map key.
type KeyCombo struct {
	Key     evdev.EvCode
	Shift   bool
	Control bool
	Alt     bool
	Super   bool
}

// Has reports whether the combo requires modifier m.
func (k KeyCombo) Has(m keycode.Modifier) bool {
	switch m {
	case keycode.Shift:
		return k.Shift
	case keycode.Control:
		return k.Control
	case keycode.Alt:
		return k.Alt
	case keycode.Super:
		return k.Super
	}
	return false
}

// String renders the combo in the same syntax ParseCombo accepts.
func (k KeyCombo) String() string {
	var b strings.Builder
	if k.Control {
		b.WriteString("C-")
	}
	if k.Alt {
		b.WriteString("M-")
	}
	if k.Shift {
		b.WriteString("Shift-")
	}
	if k.Super {
		b.WriteString("Super-")
	}
	b.WriteString(strings.TrimPrefix(keycode.Name(k.Key), "KEY_"))
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (k KeyCombo) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It is used by the
// YAML, TOML and JSON decoders alike.
func (k *KeyCombo) UnmarshalText(text []byte) error {
	combo, err := ParseCombo(string(text))
	if err != nil {
		return err
	}
	*k = combo
	return nil
}

// ParseCombo parses "C-M-a", "shift-super-f1", "Down" and friends.
// The last dash-separated element is the key; every element before it
// must be a modifier name.
func ParseCombo(input string) (KeyCombo, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return KeyCombo{}, fmt.Errorf("empty key combo")
	}

	parts := strings.Split(s, "-")
	keyName := parts[len(parts)-1]
	if keyName == "" {
		return KeyCombo{}, fmt.Errorf("key combo %q has no key", input)
	}

	var combo KeyCombo
	for _, name := range parts[:len(parts)-1] {
		m, ok := ParseModifier(name)
		if !ok {
			return KeyCombo{}, fmt.Errorf("unknown modifier %q in %q", name, input)
		}
		switch m {
		case keycode.Shift:
			combo.Shift = true
		case keycode.Control:
			combo.Control = true
		case keycode.Alt:
			combo.Alt = true
		case keycode.Super:
			combo.Super = true
		}
	}

	code, err := keycode.Parse(keyName)
	if err != nil {
		return KeyCombo{}, err
	}
	combo.Key = code
	return combo, nil
}

// MustParseCombo is ParseCombo for literals known to be valid.
func MustParseCombo(input string) KeyCombo {
	combo, err := ParseCombo(input)
	if err != nil {
		panic(err)
	}
	return combo
}

// ParseModifier resolves a modifier name.
func ParseModifier(name string) (keycode.Modifier, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "SHIFT":
		return keycode.Shift, true
	case "C", "CTRL", "CONTROL":
		return keycode.Control, true
	case "M", "META", "ALT":
		return keycode.Alt, true
	case "SUPER", "WIN", "WINDOWS":
		return keycode.Super, true
	}
	return 0, false
}

// ActionKind tags the Action variant.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionRemap
	ActionShell
)

func (k ActionKind) String() string {
	switch k {
	case ActionRemap:
		return "remap"
	case ActionShell:
		return "shell"
	default:
		return "none"
	}
}

// Action is either a remap to another combo or a shell command.
type Action struct {
	Kind    ActionKind
	Target  KeyCombo
	Command string
}

// RemapAction builds a Remap action.
func RemapAction(target KeyCombo) Action {
	return Action{Kind: ActionRemap, Target: target}
}

// ShellAction builds a Shell action.
func ShellAction(command string) Action {
	return Action{Kind: ActionShell, Command: command}
}

func (a Action) String() string {
	switch a.Kind {
	case ActionRemap:
		return "remap(" + a.Target.String() + ")"
	case ActionShell:
		return "shell(" + a.Command + ")"
	default:
		return "none"
	}
}
