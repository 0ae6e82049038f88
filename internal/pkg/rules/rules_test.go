package rules

import (
	"testing"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/callinfo"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/frame"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/kind"
)

func singleFrameFor(k kind.Kind) frame.Taint {
	return frame.SingleFrame(frame.NoCallee(), callinfo.DeclarationInfo(), 0, accesspath.Leaf(), frame.Leaf(k))
}

func TestRulesAddRejectsDuplicateCode(t *testing.T) {
	r := New()
	rule1 := NewSourceSinkRule(1, "Rule1", []kind.Kind{kind.NewNamed("Source")}, []kind.Kind{kind.NewNamed("Sink")}, kind.Empty())
	rule2 := NewSourceSinkRule(1, "Rule1Dup", []kind.Kind{kind.NewNamed("Source")}, []kind.Kind{kind.NewNamed("Sink")}, kind.Empty())

	if err := r.Add(rule1); err != nil {
		t.Fatalf("unexpected error adding first rule: %v", err)
	}
	if err := r.Add(rule2); err == nil {
		t.Fatalf("expected an error adding a rule with a duplicate code")
	}
}

func TestRulesLookupFindsExactSourceSinkMatch(t *testing.T) {
	r := New()
	source := kind.NewNamed("Source")
	sink := kind.NewNamed("Sink")
	rule := NewSourceSinkRule(1, "Rule1", []kind.Kind{source}, []kind.Kind{sink}, kind.Empty())
	if err := r.Add(rule); err != nil {
		t.Fatalf("Add: %v", err)
	}

	found := r.Rules(source, sink)
	if len(found) != 1 || found[0].Code() != 1 {
		t.Fatalf("expected to find Rule1, got %v", found)
	}

	if found := r.Rules(source, kind.NewNamed("OtherSink")); len(found) != 0 {
		t.Fatalf("expected no match for an unrelated sink, got %v", found)
	}
}

func TestRulesLookupComposesTransformSequence(t *testing.T) {
	r := New()
	source := kind.NewNamed("Source")
	sink := kind.NewNamed("Sink")
	transforms := kind.Of(kind.NewPureTransform("Encode"))
	rule := NewSourceSinkRule(1, "EncodedRule", []kind.Kind{source}, []kind.Kind{sink}, transforms)
	if err := r.Add(rule); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// A flow where the source is untransformed but the sink itself already
	// carries the Encode transform (e.g. the frontend attached it at the
	// call site) must still resolve to the rule.
	transformedSink := kind.NewTransform(sink, transforms, kind.Empty())
	found := r.Rules(source, transformedSink)
	if len(found) != 1 || found[0].Code() != 1 {
		t.Fatalf("expected EncodedRule to match a pre-transformed sink kind, got %v", found)
	}

	if found := r.Rules(source, sink); len(found) != 0 {
		t.Fatalf("expected no match when the required transform is absent, got %v", found)
	}
}

func TestRulesPartialRulesAndMultiSourceIndexing(t *testing.T) {
	r := New()
	sourceA := kind.NewNamed("SourceA")
	sourceB := kind.NewNamed("SourceB")
	partialSink := kind.NewPartial("SinkX", "a")
	partialSinkB := kind.NewPartial("SinkX", "b")

	rule := NewMultiSourceMultiSinkRule(
		1000,
		"MultiRule",
		map[string][]kind.Kind{"a": {sourceA}, "b": {sourceB}},
		map[string][]kind.Kind{"a": {partialSink}, "b": {partialSinkB}},
	)
	if err := r.Add(rule); err != nil {
		t.Fatalf("Add: %v", err)
	}

	partials := r.PartialRules(sourceA, partialSink)
	if len(partials) != 1 || partials[0].Code() != 1000 {
		t.Fatalf("expected MultiRule as a partial rule for sourceA -> partialSink(a), got %v", partials)
	}

	// The triggered counterpart of label b's partial sink must be reachable
	// from label b's own source through the regular (non-partial) index, per
	// original_source/Rules.cpp's add() comment.
	triggered := kind.NewTriggered(partialSinkB, 1000)
	found := r.Rules(sourceB, triggered)
	if len(found) != 1 || found[0].Code() != 1000 {
		t.Fatalf("expected sourceB -> Triggered(partialSinkB, 1000) to resolve to MultiRule, got %v", found)
	}
}

func TestCollectUnusedKindsSkipsPropagationAndTriggeredByConstruction(t *testing.T) {
	r := New()
	source := kind.NewNamed("Source")
	sink := kind.NewNamed("Sink")
	if err := r.Add(NewSourceSinkRule(1, "Rule1", []kind.Kind{source}, []kind.Kind{sink}, kind.Empty())); err != nil {
		t.Fatalf("Add: %v", err)
	}

	unreferenced := kind.NewNamed("NeverUsed")
	propagation := kind.NewPropagation("Argument(0)")
	triggered := kind.NewTriggered(kind.NewPartial("X", "a"), 1)

	unused := r.CollectUnusedKinds([]kind.Kind{source, sink, unreferenced, propagation, triggered})
	if len(unused) != 1 || !unused[0].Equal(unreferenced) {
		t.Fatalf("expected only the unreferenced named kind to be reported unused, got %v", unused)
	}
}

func TestFulfilledPartialKindStateCompletesOnSecondLabel(t *testing.T) {
	fulfilled := kind.NewPartial("Partial", "a")
	unfulfilled := kind.NewPartial("Partial", "b")

	rule1 := NewMultiSourceMultiSinkRule(1, "Rule1",
		map[string][]kind.Kind{"a": {kind.NewNamed("Source1")}, "b": {kind.NewNamed("Source2")}},
		map[string][]kind.Kind{"a": {fulfilled}, "b": {unfulfilled}})

	state := NewFulfilledPartialKindState()

	sinkFrame := singleFrameFor(fulfilled)
	_, complete := state.FulfillKind(fulfilled, "a", rule1, frame.NewFeatures([]string{"Feature1"}, nil), sinkFrame)
	if complete {
		t.Fatalf("expected the first label's fulfillment to not yet complete the rule")
	}

	counterpart, ok := state.GetFulfilledCounterpart("b", rule1)
	if !ok || !counterpart.Equal(fulfilled) {
		t.Fatalf("expected label b's counterpart to be the fulfilled partial kind, got %v, ok=%v", counterpart, ok)
	}

	secondSink := singleFrameFor(unfulfilled)
	result, complete := state.FulfillKind(unfulfilled, "b", rule1, frame.EmptyFeatures(), secondSink)
	if !complete {
		t.Fatalf("expected the second label's fulfillment to complete the rule")
	}
	if result.IsBottom() {
		t.Fatalf("expected a non-bottom issue taint once the rule completes")
	}
	if !result.ContainsKind(kind.NewTriggered(unfulfilled, 1)) {
		t.Fatalf("expected the completed issue to carry the Triggered(unfulfilled, rule=1) kind")
	}
}

func TestFulfilledPartialKindStateRequiresEveryOtherLabelForThreeLabelRule(t *testing.T) {
	sinkA := kind.NewPartial("Partial", "a")
	sinkB := kind.NewPartial("Partial", "b")
	sinkC := kind.NewPartial("Partial", "c")

	rule := NewMultiSourceMultiSinkRule(7, "ThreeLabelRule",
		map[string][]kind.Kind{
			"a": {kind.NewNamed("Source1")},
			"b": {kind.NewNamed("Source2")},
			"c": {kind.NewNamed("Source3")},
		},
		map[string][]kind.Kind{"a": {sinkA}, "b": {sinkB}, "c": {sinkC}})

	state := NewFulfilledPartialKindState()

	if _, complete := state.FulfillKind(sinkA, "a", rule, frame.EmptyFeatures(), singleFrameFor(sinkA)); complete {
		t.Fatalf("expected one of three labels fulfilled to not complete the rule")
	}
	if _, complete := state.FulfillKind(sinkB, "b", rule, frame.EmptyFeatures(), singleFrameFor(sinkB)); complete {
		t.Fatalf("expected two of three labels fulfilled to not complete the rule")
	}
	result, complete := state.FulfillKind(sinkC, "c", rule, frame.EmptyFeatures(), singleFrameFor(sinkC))
	if !complete {
		t.Fatalf("expected all three labels fulfilled to complete the rule")
	}
	if !result.ContainsKind(kind.NewTriggered(sinkC, 7)) {
		t.Fatalf("expected the completed issue to carry the Triggered(sinkC, rule=7) kind")
	}
}

func TestRulesCoverageReportsPartialAndFullCoverage(t *testing.T) {
	r := New()
	source := kind.NewNamed("Source")
	sink := kind.NewNamed("Sink")
	otherSink := kind.NewNamed("OtherSink")
	if err := r.Add(NewSourceSinkRule(1, "Rule1", []kind.Kind{source}, []kind.Kind{sink, otherSink}, kind.Empty())); err != nil {
		t.Fatalf("Add: %v", err)
	}

	coverage := NewRulesCoverage(r)
	observed := func(k kind.Kind) bool { return k.Equal(source) || k.Equal(sink) }
	results := coverage.Compute(observed)
	if len(results) != 1 {
		t.Fatalf("expected one coverage entry, got %d", len(results))
	}
	if results[0].FullyCovered {
		t.Fatalf("expected partial coverage since otherSink was never observed")
	}
	if len(results[0].ObservedSinks) != 1 {
		t.Fatalf("expected exactly one observed sink, got %v", results[0].ObservedSinks)
	}
}
