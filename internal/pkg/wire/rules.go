package wire

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/kind"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/rules"
)

// RuleJSON is one rules.json entry (spec.md §6): either a SourceSinkRule
// (Sources/Sinks/Transforms set) or a MultiSourceMultiSinkRule
// (MultiSources/PartialSinks set) — never both.
type RuleJSON struct {
	Name        string              `json:"name"`
	Code        int                 `json:"code"`
	Description string              `json:"description,omitempty"`
	Sources     []string            `json:"sources,omitempty"`
	Sinks       []string            `json:"sinks,omitempty"`
	Transforms  []string            `json:"transforms,omitempty"`

	MultiSources map[string][]string `json:"multi_sources,omitempty"`
	PartialSinks map[string][]string `json:"partial_sinks,omitempty"`
}

func namedKinds(names []string) []kind.Kind {
	out := make([]kind.Kind, len(names))
	for i, name := range names {
		out[i] = kind.NewNamed(name)
	}
	return out
}

func namedKindsByLabel(byLabel map[string][]string) map[string][]kind.Kind {
	out := make(map[string][]kind.Kind, len(byLabel))
	for label, names := range byLabel {
		out[label] = namedKinds(names)
	}
	return out
}

// transformList builds a TransformList from a flat list of pure-transform
// names. rules.json's wire encoding of sanitizer-set transform entries is
// not modeled here: sanitizer sets are produced internally by the
// sanitizer package as it rewrites flows, never named directly in a
// rule's required transform sequence.
func transformList(names []string) kind.TransformList {
	entries := make([]kind.TransformEntry, len(names))
	for i, name := range names {
		entries[i] = kind.NewPureTransform(name)
	}
	return kind.Of(entries...)
}

// ToRule converts r into the Rule variant its shape implies: a rule with
// MultiSources is a MultiSourceMultiSinkRule, otherwise a SourceSinkRule.
func (r RuleJSON) ToRule() (rules.Rule, error) {
	if len(r.MultiSources) > 0 || len(r.PartialSinks) > 0 {
		if len(r.Sources) > 0 || len(r.Sinks) > 0 {
			return nil, fmt.Errorf("wire: rule %q (code %d) mixes multi_sources/partial_sinks with sources/sinks", r.Name, r.Code)
		}
		return rules.NewMultiSourceMultiSinkRule(r.Code, r.Name, namedKindsByLabel(r.MultiSources), namedKindsByLabel(r.PartialSinks)), nil
	}
	return rules.NewSourceSinkRule(r.Code, r.Name, namedKinds(r.Sources), namedKinds(r.Sinks), transformList(r.Transforms)), nil
}

// LoadRules reads a rules.json file and returns its decoded Rule set, in
// file order.
func LoadRules(path string) ([]rules.Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wire: reading rules file %s: %w", path, err)
	}

	var entries []RuleJSON
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("wire: decoding rules file %s: %w", path, err)
	}

	out := make([]rules.Rule, 0, len(entries))
	for _, entry := range entries {
		rule, err := entry.ToRule()
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}
