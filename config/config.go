package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/rollout/rule"
)

// ErrInvalidRuleSet is returned by [Load] when one or more formulas in
// the rule set fail to parse.
var ErrInvalidRuleSet = rule.NewError("invalid rule set")

// Rule is a single named formula.
type Rule struct {
	Name    string `yaml:"name"`
	Formula string `yaml:"formula"`
}

// RuleSet is a named collection of formulas plus the default
// environment values used when a request does not supply a field.
type RuleSet struct {
	Rules    []Rule            `yaml:"rules"`
	Defaults map[string]any    `yaml:"defaults"`
	byName   map[string]string `yaml:"-"`
}

// Formula returns the formula text registered under name, and whether
// it was found.
func (rs *RuleSet) Formula(name string) (string, bool) {
	f, ok := rs.byName[name]

	return f, ok
}

// Env returns an [rule.Env] built from the rule set's defaults merged
// under overrides (overrides win on key collision).
func (rs *RuleSet) Env(overrides map[string]any) *rule.Env {
	merged := make(map[string]any, len(rs.Defaults)+len(overrides))

	for k, v := range rs.Defaults {
		merged[k] = v
	}

	for k, v := range overrides {
		merged[k] = v
	}

	return rule.NewEnvFromMap(merged)
}

// Load reads a rule set from path, validating every formula with
// [rule.Validate]. Every invalid formula is reported, not just the
// first, so a bad deploy fails loudly and completely.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule set %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes YAML rule-set content, validating every formula.
func Parse(data []byte) (*RuleSet, error) {
	var rs RuleSet

	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("decode rule set: %w", err)
	}

	rs.byName = make(map[string]string, len(rs.Rules))

	var invalid []string

	for _, r := range rs.Rules {
		if !rule.Validate(r.Formula) {
			invalid = append(invalid, r.Name)

			continue
		}

		rs.byName[r.Name] = r.Formula
	}

	if len(invalid) > 0 {
		return nil, fmt.Errorf(
			"%w: invalid formula in rule(s): %s",
			ErrInvalidRuleSet, strings.Join(invalid, ", "),
		)
	}

	return &rs, nil
}

// LogValue implements slog.LogValuer so a *RuleSet can be passed
// directly to a structured log call.
func (rs *RuleSet) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("rule_count", len(rs.Rules)),
		slog.Int("default_count", len(rs.Defaults)),
	)
}
