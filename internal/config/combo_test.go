package config

import (
	"testing"

	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keymapd/internal/keycode"
)

func TestParseCombo(t *testing.T) {
	tests := []struct {
		input string
		want  KeyCombo
	}{
		{"a", KeyCombo{Key: evdev.KEY_A}},
		{"KEY_ENTER", KeyCombo{Key: evdev.KEY_ENTER}},
		{"C-a", KeyCombo{Key: evdev.KEY_A, Control: true}},
		{"ctrl-control-a", KeyCombo{Key: evdev.KEY_A, Control: true}},
		{"M-x", KeyCombo{Key: evdev.KEY_X, Alt: true}},
		{"meta-alt-x", KeyCombo{Key: evdev.KEY_X, Alt: true}},
		{"Shift-Tab", KeyCombo{Key: evdev.KEY_TAB, Shift: true}},
		{"win-e", KeyCombo{Key: evdev.KEY_E, Super: true}},
		{"Windows-Super-e", KeyCombo{Key: evdev.KEY_E, Super: true}},
		{"C-M-Shift-Super-f1", KeyCombo{Key: evdev.KEY_F1, Control: true, Alt: true, Shift: true, Super: true}},
		{" C-Down ", KeyCombo{Key: evdev.KEY_DOWN, Control: true}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCombo(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseComboErrors(t *testing.T) {
	for _, input := range []string{"", "  ", "C-", "X-a", "C-M-nosuchkey", "a-b"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseCombo(input)
			assert.Error(t, err)
		})
	}
}

func TestComboStringRoundTrip(t *testing.T) {
	for _, input := range []string{"a", "C-a", "M-Shift-Left", "C-M-Shift-Super-F12"} {
		combo := MustParseCombo(input)
		again, err := ParseCombo(combo.String())
		require.NoError(t, err)
		assert.Equal(t, combo, again, input)
	}
}

func TestComboHas(t *testing.T) {
	combo := MustParseCombo("C-Super-a")
	assert.True(t, combo.Has(keycode.Control))
	assert.True(t, combo.Has(keycode.Super))
	assert.False(t, combo.Has(keycode.Shift))
	assert.False(t, combo.Has(keycode.Alt))
}

func TestComboAsMapKey(t *testing.T) {
	m := map[KeyCombo]string{MustParseCombo("C-a"): "ctrl"}
	_, ok := m[MustParseCombo("control-A")]
	assert.True(t, ok)
	_, ok = m[MustParseCombo("C-Shift-a")]
	assert.False(t, ok)
}

func TestBindingAction(t *testing.T) {
	target := MustParseCombo("Home")
	cmd := "notify-send hi"

	action, err := KeyBinding{Key: MustParseCombo("C-a"), Remap: &target}.Action()
	require.NoError(t, err)
	assert.Equal(t, ActionRemap, action.Kind)
	assert.Equal(t, "remap(HOME)", action.String())

	action, err = KeyBinding{Key: MustParseCombo("C-a"), Shell: &cmd}.Action()
	require.NoError(t, err)
	assert.Equal(t, ShellAction(cmd), action)

	_, err = KeyBinding{Key: MustParseCombo("C-a")}.Action()
	assert.ErrorIs(t, err, ErrNoAction)

	_, err = KeyBinding{Key: MustParseCombo("C-a"), Remap: &target, Shell: &cmd}.Action()
	assert.ErrorIs(t, err, ErrTwoActions)
}

func TestValidateConfig(t *testing.T) {
	target := MustParseCombo("b")
	empty := "  "

	cfg := DefaultConfig()
	cfg.Groups = GroupList{
		{Name: "g", Group: Group{KeyBindings: []KeyBinding{
			{Key: MustParseCombo("a"), Remap: &target},
			{Key: MustParseCombo("c"), Shell: &empty},
			{Remap: &target},
		}}},
		{Name: "g"},
	}
	cfg.Modes = ModeList{{Name: "m"}, {Name: "m"}}
	cfg.Modmap = map[string]string{"nope": "ESC"}
	cfg.Daemon.LogOutput = "file"
	cfg.Daemon.LogFile = ""

	err := cfg.Validate()
	require.Error(t, err)

	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)

	fields := make(map[string]bool)
	for _, e := range errs {
		fields[e.Field] = true
	}
	assert.True(t, fields["groups.g"], "duplicate group")
	assert.True(t, fields["groups.g.key_bindings[1].shell"], "empty shell")
	assert.True(t, fields["groups.g.key_bindings[2].key"], "missing key")
	assert.True(t, fields["modes.m"], "duplicate mode")
	assert.True(t, fields["modmap.nope"], "bad modmap key")
	assert.True(t, fields["daemon.log_file"], "missing log file")
}

func TestValidateDefaultModeWithoutModes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Groups = GroupList{{Name: "g"}}
	cfg.Options = &Options{DefaultMode: "normal"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no modes are configured")
}
