package config

import (
	"encoding/json"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// StringList accepts either a single string or a list of strings.
type StringList []string

// Contains reports whether s is in the list.
func (l StringList) Contains(s string) bool {
	return slices.Contains(l, s)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list of strings", node.Line)
	}
}

// UnmarshalTOML implements toml.Unmarshaler.
func (l *StringList) UnmarshalTOML(v any) error {
	switch val := v.(type) {
	case string:
		*l = StringList{val}
		return nil
	case []any:
		items := make([]string, 0, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("item %d: expected string, got %T", i, item)
			}
			items = append(items, s)
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("expected string or list of strings, got %T", v)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = StringList{s}
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("expected string or list of strings")
	}
	*l = items
	return nil
}

// NamedMode is a mode together with its name.
type NamedMode struct {
	Name string
	Mode
}

// ModeList keeps modes in the order they were declared.
type ModeList []NamedMode

// Get finds a mode by name.
func (l ModeList) Get(name string) (Mode, bool) {
	for _, m := range l {
		if m.Name == name {
			return m.Mode, true
		}
	}
	return Mode{}, false
}

// UnmarshalYAML decodes a mapping while preserving key order.
func (l *ModeList) UnmarshalYAML(node *yaml.Node) error {
	var out ModeList
	err := decodeOrderedMapping(node, func(name string, value *yaml.Node) error {
		var m Mode
		if err := value.Decode(&m); err != nil {
			return err
		}
		out = append(out, NamedMode{Name: name, Mode: m})
		return nil
	})
	if err != nil {
		return err
	}
	*l = out
	return nil
}

// NamedGroup is a group together with its name.
type NamedGroup struct {
	Name string
	Group
}

// GroupList keeps groups in the order they were declared.
type GroupList []NamedGroup

// Get finds a group by name.
func (l GroupList) Get(name string) (Group, bool) {
	for _, g := range l {
		if g.Name == name {
			return g.Group, true
		}
	}
	return Group{}, false
}

// UnmarshalYAML decodes a mapping while preserving key order.
func (l *GroupList) UnmarshalYAML(node *yaml.Node) error {
	var out GroupList
	err := decodeOrderedMapping(node, func(name string, value *yaml.Node) error {
		var g Group
		if err := value.Decode(&g); err != nil {
			return err
		}
		out = append(out, NamedGroup{Name: name, Group: g})
		return nil
	})
	if err != nil {
		return err
	}
	*l = out
	return nil
}

func decodeOrderedMapping(node *yaml.Node, fn func(name string, value *yaml.Node) error) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}

	seen := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		name := keyNode.Value
		if seen[name] {
			return fmt.Errorf("line %d: %q defined more than once", keyNode.Line, name)
		}
		seen[name] = true
		if err := fn(name, valueNode); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
