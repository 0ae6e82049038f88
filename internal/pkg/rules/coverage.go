package rules

import "github.com/facebook/mariana-trench-sub003/internal/pkg/kind"

// RuleCoverage reports, for one rule, which of its declared source/sink
// kinds (and, for multi-source rules, which labels) were actually observed
// somewhere in the Registry during analysis (spec.md §4.6).
type RuleCoverage struct {
	Code               int
	ObservedSources    []kind.Kind
	ObservedSinks      []kind.Kind
	ObservedLabels     []string
	FullyCovered       bool
}

// RulesCoverage computes a RuleCoverage per rule from a caller-supplied
// "observed kind" predicate, grounded on original_source/
// tests/RulesCoverageTest.cpp's "which declared kinds were actually seen"
// reporting view.
type RulesCoverage struct {
	rules *Rules
}

func NewRulesCoverage(r *Rules) *RulesCoverage { return &RulesCoverage{rules: r} }

// Compute returns one RuleCoverage per loaded rule. observed reports whether
// kind k was ever matched by the analysis (e.g. appeared as a Generation,
// ParameterSource, or Sink kind somewhere in the final Registry).
func (c *RulesCoverage) Compute(observed func(k kind.Kind) bool) []RuleCoverage {
	out := make([]RuleCoverage, 0, len(c.rules.byCode))
	for _, rule := range c.rules.All() {
		switch rr := rule.(type) {
		case *SourceSinkRule:
			out = append(out, coverSourceSinkRule(rr, observed))
		case *MultiSourceMultiSinkRule:
			out = append(out, coverMultiSourceRule(rr, observed))
		}
	}
	return out
}

func coverSourceSinkRule(rr *SourceSinkRule, observed func(kind.Kind) bool) RuleCoverage {
	cov := RuleCoverage{Code: rr.Code()}
	for _, s := range rr.SourceKinds() {
		if observed(s) {
			cov.ObservedSources = append(cov.ObservedSources, s)
		}
	}
	for _, s := range rr.SinkKinds() {
		if observed(s) {
			cov.ObservedSinks = append(cov.ObservedSinks, s)
		}
	}
	cov.FullyCovered = len(cov.ObservedSources) == len(rr.SourceKinds()) && len(cov.ObservedSinks) == len(rr.SinkKinds())
	return cov
}

func coverMultiSourceRule(rr *MultiSourceMultiSinkRule, observed func(kind.Kind) bool) RuleCoverage {
	cov := RuleCoverage{Code: rr.Code()}
	labels := rr.Labels()
	for _, label := range labels {
		labelCovered := false
		for _, s := range rr.SourceKinds(label) {
			if observed(s) {
				cov.ObservedSources = append(cov.ObservedSources, s)
				labelCovered = true
			}
		}
		for _, s := range rr.PartialSinkKinds(label) {
			if observed(s) {
				cov.ObservedSinks = append(cov.ObservedSinks, s)
			}
		}
		if labelCovered {
			cov.ObservedLabels = append(cov.ObservedLabels, label)
		}
	}
	cov.FullyCovered = len(cov.ObservedLabels) == len(labels)
	return cov
}
