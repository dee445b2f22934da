package intent

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Rules holds the keyword sets for the keyword-driven intents.
type Rules struct {
	Values  []string `yaml:"values"`
	Handoff []string `yaml:"handoff"`
	Product []string `yaml:"product"`
}

// DefaultRules returns the built-in keyword sets.
func DefaultRules() Rules {
	var r Rules
	if err := yaml.Unmarshal(defaultRulesYAML, &r); err != nil {
		panic(fmt.Sprintf("intent: embedded rules.yaml: %v", err))
	}
	return r.normalized()
}

// LoadRules reads a YAML override file. Sets missing from the file keep
// their built-in values.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read intent rules %s: %w", path, err)
	}
	var override Rules
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Rules{}, fmt.Errorf("parse intent rules %s: %w", path, err)
	}

	if len(override.Values) > 0 {
		rules.Values = override.Values
	}
	if len(override.Handoff) > 0 {
		rules.Handoff = override.Handoff
	}
	if len(override.Product) > 0 {
		rules.Product = override.Product
	}
	return rules.normalized(), nil
}

func (r Rules) normalized() Rules {
	return Rules{
		Values:  lowerAll(r.Values),
		Handoff: lowerAll(r.Handoff),
		Product: lowerAll(r.Product),
	}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
