// Package rules implements SourceSinkRule, MultiSourceMultiSinkRule, the
// Rules lookup table, RulesCoverage reporting, and FulfilledPartialKindState
// (spec.md §4.6). Grounded on the teacher's internal/pkg/config package
// (Config.IsSink/IsSanitizer/IsSource's matcher-list-and-scan shape is the
// direct model for Rules's linear candidate scan); exact lookup/composition
// semantics are pinned by original_source/Rules.cpp,
// MultiSourceMultiSinkRule.cpp, and UsedKinds.cpp.
package rules

import "github.com/facebook/mariana-trench-sub003/internal/pkg/kind"

// Rule is the common interface both rule kinds satisfy, per spec.md §4.6.
type Rule interface {
	Code() int
	Name() string
	Uses(k kind.Kind) bool
}

// SourceSinkRule matches a single source kind reaching a single sink kind,
// optionally through an exact composed transform sequence (spec.md §4.6).
type SourceSinkRule struct {
	code        int
	name        string
	sourceKinds []kind.Kind
	sinkKinds   []kind.Kind
	transforms  kind.TransformList
	hasTransforms bool
}

// NewSourceSinkRule builds a SourceSinkRule. Pass kind.Empty() for
// transforms (or call NewSourceSinkRuleWithoutTransforms) when the rule has
// no required transform sequence.
func NewSourceSinkRule(code int, name string, sources, sinks []kind.Kind, transforms kind.TransformList) *SourceSinkRule {
	return &SourceSinkRule{
		code:          code,
		name:          name,
		sourceKinds:   sources,
		sinkKinds:     sinks,
		transforms:    transforms,
		hasTransforms: !transforms.Empty(),
	}
}

func (r *SourceSinkRule) Code() int { return r.code }
func (r *SourceSinkRule) Name() string { return r.name }
func (r *SourceSinkRule) SourceKinds() []kind.Kind { return r.sourceKinds }
func (r *SourceSinkRule) SinkKinds() []kind.Kind { return r.sinkKinds }
func (r *SourceSinkRule) Transforms() (kind.TransformList, bool) { return r.transforms, r.hasTransforms }

// Uses reports whether k appears, by structural equality, among this rule's
// source or sink kinds (spec.md §4.6's collect_unused_kinds).
func (r *SourceSinkRule) Uses(k kind.Kind) bool {
	for _, s := range r.sourceKinds {
		if s.Equal(k) {
			return true
		}
	}
	for _, s := range r.sinkKinds {
		if s.Equal(k) {
			return true
		}
	}
	return false
}

// MultiSourceMultiSinkRule fulfills when, for every label, some source of
// that label reaches some partial sink of that label (spec.md §4.6).
type MultiSourceMultiSinkRule struct {
	code                int
	name                string
	sourcesByLabel      map[string][]kind.Kind
	partialSinksByLabel map[string][]kind.Kind
}

func NewMultiSourceMultiSinkRule(code int, name string, sourcesByLabel map[string][]kind.Kind, partialSinksByLabel map[string][]kind.Kind) *MultiSourceMultiSinkRule {
	return &MultiSourceMultiSinkRule{
		code:                code,
		name:                name,
		sourcesByLabel:      sourcesByLabel,
		partialSinksByLabel: partialSinksByLabel,
	}
}

func (r *MultiSourceMultiSinkRule) Code() int { return r.code }
func (r *MultiSourceMultiSinkRule) Name() string { return r.name }

// Labels returns every label this rule requires fulfillment for.
func (r *MultiSourceMultiSinkRule) Labels() []string {
	out := make([]string, 0, len(r.sourcesByLabel))
	for label := range r.sourcesByLabel {
		out = append(out, label)
	}
	return out
}

func (r *MultiSourceMultiSinkRule) SourceKinds(label string) []kind.Kind { return r.sourcesByLabel[label] }
func (r *MultiSourceMultiSinkRule) PartialSinkKinds(label string) []kind.Kind { return r.partialSinksByLabel[label] }

func (r *MultiSourceMultiSinkRule) Uses(k kind.Kind) bool {
	for _, sources := range r.sourcesByLabel {
		for _, s := range sources {
			if s.Equal(k) {
				return true
			}
		}
	}
	for _, sinks := range r.partialSinksByLabel {
		for _, s := range sinks {
			if s.Equal(k) {
				return true
			}
		}
	}
	return false
}
