package program

import (
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Selector is a CSS selector, optionally collecting every match.
// It decodes from either a bare string or {"selector": ..., "multiple": true}.
type Selector struct {
	Selector string `json:"selector" yaml:"selector"`
	Multiple bool   `json:"multiple,omitempty" yaml:"multiple,omitempty"`
}

// SelectorSpec maps a result field name to the selector that fills it.
type SelectorSpec map[string]Selector

// Keys returns the field names in sorted order.
func (s SelectorSpec) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Selector) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		*s = Selector{Selector: bare}
		return nil
	}
	type plain Selector
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("selector must be a string or {selector, multiple}: %w", err)
	}
	*s = Selector(p)
	return nil
}

// MarshalJSON writes single selectors back in their bare form.
func (s Selector) MarshalJSON() ([]byte, error) {
	if !s.Multiple {
		return json.Marshal(s.Selector)
	}
	type plain Selector
	return json.Marshal(plain(s))
}

func (s *Selector) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*s = Selector{Selector: node.Value}
		return nil
	}
	type plain Selector
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("selector must be a string or {selector, multiple}: %w", err)
	}
	*s = Selector(p)
	return nil
}
