package engine

import (
	"testing"

	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keymapd/internal/config"
	"keymapd/internal/keycode"
)

const modalKeymap = `
modes:
  normal:
    groups: [motion, common]
    switch_key: C-n
  insert:
    groups: [common, missing]
    switch_key: C-i
  visual:
    groups: [motion]
groups:
  motion:
    key_bindings:
      - {key: j, remap: Down}
      - {key: k, remap: Up}
  common:
    key_bindings:
      - {key: j, remap: PageDown}
      - {key: C-s, shell: "save-session"}
options:
  mode_switch_key: C-z
  default_mode: normal
`

func TestBuildTableModeless(t *testing.T) {
	cfg := mustConfig(t, `
groups:
  first:
    key_bindings:
      - {key: a, remap: b}
      - {key: c, remap: d}
  second:
    in: [Firefox]
    key_bindings:
      - {key: a, remap: x}
`)
	table, err := BuildTable(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len(modelessKey))

	rule, ok := table.Lookup(modelessKey, config.MustParseCombo("a"))
	require.True(t, ok)
	assert.Equal(t, "second", rule.Group, "later group wins")
	assert.Equal(t, config.MustParseCombo("x"), rule.Action.Target)
	assert.True(t, rule.Filtered())

	rule, ok = table.Lookup(modelessKey, config.MustParseCombo("c"))
	require.True(t, ok)
	assert.False(t, rule.Filtered())

	_, ok = table.Lookup("normal", config.MustParseCombo("a"))
	assert.False(t, ok)
	assert.Empty(t, table.SwitchKeys())
}

func TestBuildTableModes(t *testing.T) {
	table, err := BuildTable(mustConfig(t, modalKeymap))
	require.NoError(t, err)

	// normal lists motion before common, so common's j wins
	rule, ok := table.Lookup("normal", config.MustParseCombo("j"))
	require.True(t, ok)
	assert.Equal(t, "common", rule.Group)
	_, ok = table.Lookup("normal", config.MustParseCombo("k"))
	assert.True(t, ok)

	// insert skips the missing group
	assert.Equal(t, 2, table.Len("insert"))
	_, ok = table.Lookup("insert", config.MustParseCombo("k"))
	assert.False(t, ok)

	rule, ok = table.Lookup("visual", config.MustParseCombo("j"))
	require.True(t, ok)
	assert.Equal(t, "motion", rule.Group)

	_, ok = table.Lookup(modelessKey, config.MustParseCombo("j"))
	assert.False(t, ok, "no modeless table when modes are configured")

	assert.Equal(t, map[config.KeyCombo]string{
		config.MustParseCombo("C-n"): "normal",
		config.MustParseCombo("C-i"): "insert",
	}, table.SwitchKeys())
}

func TestRuleAllows(t *testing.T) {
	tests := []struct {
		name  string
		rule  Rule
		class string
		want  bool
	}{
		{"unfiltered", Rule{}, "anything", true},
		{"allowed", Rule{In: config.StringList{"A", "B"}}, "B", true},
		{"not allowed", Rule{In: config.StringList{"A"}}, "C", false},
		{"denied", Rule{NotIn: config.StringList{"A"}}, "A", false},
		{"not denied", Rule{NotIn: config.StringList{"A"}}, "C", true},
		{"allowed then denied", Rule{In: config.StringList{"A"}, NotIn: config.StringList{"A"}}, "A", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.Allows(tt.class))
		})
	}
}

func TestModeCycleWraps(t *testing.T) {
	cfg := mustConfig(t, modalKeymap)
	table, err := BuildTable(cfg)
	require.NoError(t, err)
	s := NewModeState(cfg, table)
	cycle := config.MustParseCombo("C-z")

	assert.Equal(t, "normal", s.Current())
	var seen []string
	for range len(s.Names()) {
		next, ok := s.Next(cycle)
		require.True(t, ok)
		s.Switch(next)
		seen = append(seen, next)
	}
	assert.Equal(t, []string{"insert", "visual", "normal"}, seen)
}

func TestModeDirectSwitch(t *testing.T) {
	cfg := mustConfig(t, modalKeymap)
	table, err := BuildTable(cfg)
	require.NoError(t, err)
	s := NewModeState(cfg, table)

	next, ok := s.Next(config.MustParseCombo("C-i"))
	require.True(t, ok)
	assert.Equal(t, "insert", next)

	_, ok = s.Next(config.MustParseCombo("C-v"))
	assert.False(t, ok)
}

func TestModeCycleKeyTakesPrecedence(t *testing.T) {
	cfg := mustConfig(t, `
modes:
  a:
    groups: [g]
  b:
    groups: [g]
  c:
    groups: [g]
    switch_key: C-z
groups:
  g:
    key_bindings: []
options:
  mode_switch_key: C-z
  default_mode: a
`)
	table, err := BuildTable(cfg)
	require.NoError(t, err)
	s := NewModeState(cfg, table)

	next, ok := s.Next(config.MustParseCombo("C-z"))
	require.True(t, ok)
	assert.Equal(t, "b", next)
}

func TestModesWithoutDefaultNeverSwitch(t *testing.T) {
	doc := `
modes:
  normal:
    groups: [g]
    switch_key: C-n
  insert:
    groups: [g]
groups:
  g:
    key_bindings:
      - {key: j, remap: Down}
options:
  mode_switch_key: C-z
`
	h := newHarness(t, doc)
	assert.Equal(t, "", h.engine.Mode())

	h.tap(t, evdev.KEY_J)
	h.feed(t, keyEv(evdev.KEY_LEFTCTRL, keycode.Press))
	h.tap(t, evdev.KEY_Z)
	h.tap(t, evdev.KEY_N)

	assert.Equal(t, "", h.engine.Mode())
	assert.Empty(t, h.notifier.bodies)
	assert.Equal(t, []string{
		"KEY_J:1", "KEY_J:0",
		"KEY_LEFTCTRL:1",
		"KEY_Z:1", "KEY_Z:0",
		"KEY_N:1", "KEY_N:0",
	}, h.sink.keys())
}

func TestHandleModeSwitch(t *testing.T) {
	h := newHarness(t, modalKeymap)

	h.feed(t, keyEv(evdev.KEY_LEFTCTRL, keycode.Press))
	h.sink.reset()

	h.feed(t, keyEv(evdev.KEY_Z, keycode.Press))
	assert.Equal(t, "insert", h.engine.Mode())
	assert.Empty(t, h.sink.events, "the switch key itself is consumed")
	assert.Equal(t, []string{"keymapd is switching to insert mode."}, h.notifier.bodies)

	// the release is still forwarded
	h.feed(t, keyEv(evdev.KEY_Z, keycode.Release))
	assert.Equal(t, []string{"KEY_Z:0"}, h.sink.keys())

	h.feed(t, keyEv(evdev.KEY_N, keycode.Press))
	assert.Equal(t, "normal", h.engine.Mode())
	h.feed(t, keyEv(evdev.KEY_LEFTCTRL, keycode.Release))
	h.sink.reset()

	// bindings follow the current mode
	h.feed(t, keyEv(evdev.KEY_J, keycode.Press))
	assert.Equal(t, []string{"KEY_PAGEDOWN:1", "KEY_PAGEDOWN:0"}, h.sink.keys())
}

func TestHandleInsertModeBindings(t *testing.T) {
	h := newHarness(t, modalKeymap)
	h.engine.modes.Switch("insert")

	h.feed(t, keyEv(evdev.KEY_K, keycode.Press))
	assert.Equal(t, []string{"KEY_K:1"}, h.sink.keys(), "k is unbound in insert")

	h.feed(t, keyEv(evdev.KEY_LEFTCTRL, keycode.Press), keyEv(evdev.KEY_S, keycode.Press))
	require.Len(t, h.launcher.spawned, 1)
	assert.Equal(t, "save-session", h.launcher.spawned[0].program)
}

func TestReloadKeepsModifiersAndMode(t *testing.T) {
	h := newHarness(t, modalKeymap)
	h.engine.modes.Switch("visual")
	h.feed(t, keyEv(evdev.KEY_RIGHTSHIFT, keycode.Press))

	require.NoError(t, h.engine.Reload(mustConfig(t, modalKeymap)))
	assert.Equal(t, "visual", h.engine.Mode())
	assert.True(t, h.engine.Modifiers().Combined(keycode.Shift))

	// visual disappears: fall back to the new default
	require.NoError(t, h.engine.Reload(mustConfig(t, `
modes:
  normal:
    groups: [g]
  insert:
    groups: [g]
groups:
  g:
    key_bindings: []
options:
  default_mode: insert
`)))
	assert.Equal(t, "insert", h.engine.Mode())
	assert.Equal(t, DualState{Right: true}, h.engine.Modifiers().Dual(keycode.Shift))

	// switching to a mode-less keymap clears the mode
	require.NoError(t, h.engine.Reload(mustConfig(t, "groups: {g: {key_bindings: []}}\n")))
	assert.Equal(t, "", h.engine.Mode())
}
