package engine

import (
	"keymapd/internal/config"
)

// modelessKey indexes the single table built when no modes are configured.
// Mode names are validated non-empty, so it never collides with a mode.
const modelessKey = ""

// Rule is a resolved binding: the group's filters plus the action.
type Rule struct {
	In     config.StringList
	NotIn  config.StringList
	Action config.Action
	Group  string
}

// Filtered reports whether the rule depends on the focused window.
func (r Rule) Filtered() bool {
	return len(r.In) > 0 || len(r.NotIn) > 0
}

// Allows applies the allow-list then the deny-list to a window class.
func (r Rule) Allows(class string) bool {
	if len(r.In) > 0 && !r.In.Contains(class) {
		return false
	}
	if len(r.NotIn) > 0 && r.NotIn.Contains(class) {
		return false
	}
	return true
}

// BindingTable maps a mode to its live combos. It is read-only once built.
type BindingTable struct {
	modes      map[string]map[config.KeyCombo]Rule
	switchKeys map[config.KeyCombo]string
}

// BuildTable flattens the configured groups into per-mode lookup tables.
// Later groups override earlier ones on combo collisions. Group names a
// mode references but that do not exist are skipped.
func BuildTable(cfg *config.Config) (*BindingTable, error) {
	t := &BindingTable{
		modes:      make(map[string]map[config.KeyCombo]Rule),
		switchKeys: make(map[config.KeyCombo]string),
	}

	if len(cfg.Modes) == 0 {
		rules := make(map[config.KeyCombo]Rule)
		for _, g := range cfg.Groups {
			if err := addGroup(rules, g); err != nil {
				return nil, err
			}
		}
		t.modes[modelessKey] = rules
		return t, nil
	}

	for _, m := range cfg.Modes {
		if m.SwitchKey != nil {
			t.switchKeys[*m.SwitchKey] = m.Name
		}

		rules := make(map[config.KeyCombo]Rule)
		for _, name := range m.Groups {
			g, ok := findGroup(cfg.Groups, name)
			if !ok {
				continue
			}
			if err := addGroup(rules, g); err != nil {
				return nil, err
			}
		}
		t.modes[m.Name] = rules
	}
	return t, nil
}

func findGroup(groups config.GroupList, name string) (config.NamedGroup, bool) {
	for _, g := range groups {
		if g.Name == name {
			return g, true
		}
	}
	return config.NamedGroup{}, false
}

func addGroup(rules map[config.KeyCombo]Rule, g config.NamedGroup) error {
	for _, kb := range g.KeyBindings {
		action, err := kb.Action()
		if err != nil {
			return &config.ValidationError{Field: "groups." + g.Name, Message: err.Error()}
		}
		rules[kb.Key] = Rule{
			In:     g.In,
			NotIn:  g.NotIn,
			Action: action,
			Group:  g.Name,
		}
	}
	return nil
}

// Lookup returns the rule bound to combo in mode. Pass the empty string
// when no modes are configured.
func (t *BindingTable) Lookup(mode string, combo config.KeyCombo) (Rule, bool) {
	rules, ok := t.modes[mode]
	if !ok {
		return Rule{}, false
	}
	r, ok := rules[combo]
	return r, ok
}

// SwitchKeys returns the direct mode switch keys.
func (t *BindingTable) SwitchKeys() map[config.KeyCombo]string {
	return t.switchKeys
}

// Len returns the number of combos bound in mode.
func (t *BindingTable) Len(mode string) int {
	return len(t.modes[mode])
}
