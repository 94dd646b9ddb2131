package hours

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Registry maps a jurisdiction (state code) to the overtime rule it uses.
type Registry struct {
	Default RuleKey
	States  map[string]RuleKey
}

type registryFile struct {
	Default string            `toml:"default"`
	States  map[string]string `toml:"states"`
}

// DefaultRegistry applies the daily rule in California and the weekly rule
// everywhere else.
func DefaultRegistry() *Registry {
	return &Registry{
		Default: RuleWeeklyThreshold,
		States:  map[string]RuleKey{"CA": RuleDailyThreshold},
	}
}

// LoadRegistry reads a jurisdictions TOML file:
//
//	default = "weekly-threshold"
//
//	[states]
//	CA = "daily-threshold"
func LoadRegistry(path string) (*Registry, error) {
	var f registryFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("read jurisdictions %s: %w", path, err)
	}
	return newRegistry(f)
}

// ParseRegistry is LoadRegistry for in-memory TOML.
func ParseRegistry(data string) (*Registry, error) {
	var f registryFile
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("parse jurisdictions: %w", err)
	}
	return newRegistry(f)
}

func newRegistry(f registryFile) (*Registry, error) {
	r := &Registry{Default: RuleWeeklyThreshold, States: make(map[string]RuleKey, len(f.States))}
	if f.Default != "" {
		r.Default = RuleKey(f.Default)
	}
	if !r.Default.Known() {
		return nil, &PolicyResolutionError{Key: r.Default}
	}

	states := make([]string, 0, len(f.States))
	for state := range f.States {
		states = append(states, state)
	}
	sort.Strings(states)
	for _, state := range states {
		key := RuleKey(f.States[state])
		if !key.Known() {
			return nil, &PolicyResolutionError{Key: key, Reason: "configured for " + state}
		}
		r.States[normalizeState(state)] = key
	}
	return r, nil
}

// RuleFor returns the rule for a state code, falling back to the default.
func (r *Registry) RuleFor(state string) RuleKey {
	if key, ok := r.States[normalizeState(state)]; ok {
		return key
	}
	return r.Default
}

// PolicyFor builds the overtime policy for an employee's flags.
func (r *Registry) PolicyFor(exempt bool, state string) Policy {
	return Policy{Exempt: exempt, Rule: r.RuleFor(state)}
}

func normalizeState(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
