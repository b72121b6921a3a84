package keycode

import (
	"testing"

	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected evdev.EvCode
	}{
		{"a", evdev.KEY_A},
		{"A", evdev.KEY_A},
		{"KEY_A", evdev.KEY_A},
		{"key_down", evdev.KEY_DOWN},
		{"Down", evdev.KEY_DOWN},
		{"f13", evdev.KEY_F13},
		{"leftctrl", evdev.KEY_LEFTCTRL},
		{"ctrl_l", evdev.KEY_LEFTCTRL},
		{"Control_R", evdev.KEY_RIGHTCTRL},
		{"shift_r", evdev.KEY_RIGHTSHIFT},
		{"win_l", evdev.KEY_LEFTMETA},
		{"super_r", evdev.KEY_RIGHTMETA},
		{"alt_r", evdev.KEY_RIGHTALT},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			code, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, code)
		})
	}
}

func TestParseUnknown(t *testing.T) {
	for _, input := range []string{"", "  ", "notakey", "KEY_NOPE"} {
		_, err := Parse(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestModifierOf(t *testing.T) {
	tests := []struct {
		code evdev.EvCode
		mod  Modifier
		side Side
	}{
		{evdev.KEY_LEFTSHIFT, Shift, Left},
		{evdev.KEY_RIGHTSHIFT, Shift, Right},
		{evdev.KEY_LEFTCTRL, Control, Left},
		{evdev.KEY_RIGHTCTRL, Control, Right},
		{evdev.KEY_LEFTALT, Alt, Left},
		{evdev.KEY_RIGHTALT, Alt, Right},
		{evdev.KEY_LEFTMETA, Super, Left},
		{evdev.KEY_RIGHTMETA, Super, Right},
	}

	for _, tt := range tests {
		mod, side, ok := ModifierOf(tt.code)
		require.True(t, ok, Name(tt.code))
		assert.Equal(t, tt.mod, mod)
		assert.Equal(t, tt.side, side)

		left, right := mod.Keys()
		if side == Left {
			assert.Equal(t, tt.code, left)
		} else {
			assert.Equal(t, tt.code, right)
		}
	}

	assert.False(t, IsModifier(evdev.KEY_A))
	assert.False(t, IsModifier(evdev.KEY_CAPSLOCK))
}

func TestOutputKeys(t *testing.T) {
	keys := OutputKeys()
	require.NotEmpty(t, keys)

	assert.Contains(t, keys, evdev.EvCode(evdev.KEY_A))
	assert.Contains(t, keys, evdev.EvCode(evdev.KEY_LEFTMETA))
	assert.Contains(t, keys, evdev.EvCode(evdev.BTN_LEFT))
	assert.NotContains(t, keys, evdev.EvCode(evdev.KEY_RESERVED))

	for i := 1; i < len(keys); i++ {
		assert.Less(t, keys[i-1], keys[i], "keys must be sorted and unique")
	}
}

func TestValueName(t *testing.T) {
	assert.Equal(t, "PRESS", ValueName(Press))
	assert.Equal(t, "RELEASE", ValueName(Release))
	assert.Equal(t, "REPEAT", ValueName(Repeat))
	assert.Equal(t, "VALUE(7)", ValueName(7))
}
