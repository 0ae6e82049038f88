package rules

import (
	"fmt"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/kind"
)

// Rules is the lookup table of spec.md §4.6: it indexes every loaded Rule by
// (source kind, sink kind) and (source kind, partial sink kind) so the
// transfer step can find candidate rules without scanning every rule on
// every call site. Grounded on original_source/Rules.cpp's add()/rules()/
// partial_rules() (the source_to_sink_to_rules_/source_to_partial_sink_to_rules_
// maps), reusing the teacher's config.Config pattern of "index once at load
// time, scan/lookup many times at analysis time".
type Rules struct {
	byCode                 map[int]Rule
	sourceToSinkToRules    map[string]map[string][]Rule
	sourceToPartialToRules map[string]map[string][]*MultiSourceMultiSinkRule
}

func New() *Rules {
	return &Rules{
		byCode:                 map[int]Rule{},
		sourceToSinkToRules:    map[string]map[string][]Rule{},
		sourceToPartialToRules: map[string]map[string][]*MultiSourceMultiSinkRule{},
	}
}

// Add indexes rule, returning an error if a rule with the same code was
// already added (original_source/Rules.cpp's "A rule for code %d already
// exists!" check, made a returned error rather than a logged-and-skipped
// warning).
func (r *Rules) Add(rule Rule) error {
	if _, exists := r.byCode[rule.Code()]; exists {
		return fmt.Errorf("rules: duplicate rule code %d (%q)", rule.Code(), rule.Name())
	}
	r.byCode[rule.Code()] = rule

	switch rr := rule.(type) {
	case *SourceSinkRule:
		r.addSourceSinkRule(rr)
	case *MultiSourceMultiSinkRule:
		r.addMultiSourceRule(rr)
	default:
		return fmt.Errorf("rules: unknown rule type %T", rule)
	}
	return nil
}

func (r *Rules) addSourceSinkRule(rr *SourceSinkRule) {
	transforms, hasTransforms := rr.Transforms()
	for _, source := range rr.SourceKinds() {
		for _, sink := range rr.SinkKinds() {
			sinkKey := sink
			if hasTransforms {
				sinkKey = kind.NewTransform(sink, transforms, kind.Empty())
			}
			r.index(source, sinkKey, rr)
		}
	}
}

func (r *Rules) addMultiSourceRule(rr *MultiSourceMultiSinkRule) {
	for _, label := range rr.Labels() {
		for _, source := range rr.SourceKinds(label) {
			for _, sink := range rr.PartialSinkKinds(label) {
				triggered := kind.NewTriggered(sink, rr.Code())
				r.indexPartial(source, sink, rr)
				r.index(source, triggered, rr)
			}
		}
	}
}

func (r *Rules) index(source, sink kind.Kind, rule Rule) {
	bySink, ok := r.sourceToSinkToRules[keyOf(source)]
	if !ok {
		bySink = map[string][]Rule{}
		r.sourceToSinkToRules[keyOf(source)] = bySink
	}
	bySink[keyOf(sink)] = append(bySink[keyOf(sink)], rule)
}

func (r *Rules) indexPartial(source, partialSink kind.Kind, rule *MultiSourceMultiSinkRule) {
	bySink, ok := r.sourceToPartialToRules[keyOf(source)]
	if !ok {
		bySink = map[string][]*MultiSourceMultiSinkRule{}
		r.sourceToPartialToRules[keyOf(source)] = bySink
	}
	bySink[keyOf(partialSink)] = append(bySink[keyOf(partialSink)], rule)
}

// keyOf canonicalizes a Kind into a map key via its structural String()
// rendering, since Kind embeds TransformList (which in turn embeds a slice)
// and so is not itself comparable.
func keyOf(k kind.Kind) string { return k.String() }

// composeTransforms reproduces original_source/Rules.cpp's `rules()`
// canonicalization: the source side's transforms are read in reverse
// (a flow walks source -> ... -> sink, but a TransformKind's local list
// records transforms nearest the sink first), concatenated with the sink
// side's transforms in forward order.
func composeTransforms(sourceKind, sinkKind kind.Kind) (kind.TransformList, bool) {
	var all kind.TransformList
	has := false
	if sourceKind.Variant() == kind.Transform {
		all = sourceKind.Local().Concat(sourceKind.Global()).Reverse()
		has = true
	}
	if sinkKind.Variant() == kind.Transform {
		sinkTransforms := sinkKind.Local().Concat(sinkKind.Global())
		if has {
			all = all.Concat(sinkTransforms)
		} else {
			all = sinkTransforms
		}
		has = true
	}
	return all, has
}

// Rules returns every rule whose composed transform sequence matches
// exactly for sourceKind flowing into sinkKind, canonicalizing any
// Transform-wrapped kinds first (original_source/Rules.cpp's
// `rules(source_kind, sink_kind)`).
func (r *Rules) Rules(sourceKind, sinkKind kind.Kind) []Rule {
	lookupSink := sinkKind.DiscardTransforms()
	if transforms, has := composeTransforms(sourceKind, sinkKind); has {
		lookupSink = kind.NewTransform(lookupSink, transforms, kind.Empty())
	}

	bySink, ok := r.sourceToSinkToRules[keyOf(sourceKind.DiscardTransforms())]
	if !ok {
		return nil
	}
	return bySink[keyOf(lookupSink)]
}

// PartialRules returns the multi-source rules to consider for partial
// fulfillment when sourceKind reaches partialSinkKind.
func (r *Rules) PartialRules(sourceKind, partialSinkKind kind.Kind) []*MultiSourceMultiSinkRule {
	bySink, ok := r.sourceToPartialToRules[keyOf(sourceKind)]
	if !ok {
		return nil
	}
	return bySink[keyOf(partialSinkKind)]
}

// isNeverRuleReferenced reports whether k's variant can never appear as a
// rule's declared source/sink kind, per original_source/Rules.cpp's
// collect_unused_kinds skipping TriggeredPartialKind and PropagationKind.
func isNeverRuleReferenced(k kind.Kind) bool {
	return k.Variant() == kind.Triggered || k.Variant() == kind.Propagation
}

// CollectUnusedKinds returns every kind in allKinds not referenced by any
// indexed rule, skipping kinds that are never rule-referenced by
// construction (original_source/Rules.cpp's `collect_unused_kinds`).
func (r *Rules) CollectUnusedKinds(allKinds []kind.Kind) []kind.Kind {
	var unused []kind.Kind
	for _, k := range allKinds {
		if isNeverRuleReferenced(k) {
			continue
		}
		used := false
		for _, rule := range r.byCode {
			if rule.Uses(k) {
				used = true
				break
			}
		}
		if !used {
			unused = append(unused, k)
		}
	}
	return unused
}

func (r *Rules) All() []Rule {
	out := make([]Rule, 0, len(r.byCode))
	for _, rule := range r.byCode {
		out = append(out, rule)
	}
	return out
}

func (r *Rules) Get(code int) (Rule, bool) {
	rule, ok := r.byCode[code]
	return rule, ok
}
