package rules

import (
	"sync"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/frame"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/kind"
)

// FulfilledPartialKindState tracks, across an analysis, which labels of
// which multi-source rules have so far been reached by a tainted flow: the
// first label to fulfill records its features and sink frames; once every
// other label of the same rule has also fulfilled, FulfillKind returns the
// Taint to emit as the rule's issue (spec.md §4.6: "the first label produces
// a triggered sink kind carrying the rule id; the second label matching that
// triggered kind emits the issue"). Grounded on
// original_source/tests/FulfilledPartialKindStateTest.cpp's fulfill_kind/
// get_fulfilled_counterpart/make_triggered_counterparts behavior, simplified
// to this package's FeatureSet (no inferred/locally-inferred distinction).
type FulfilledPartialKindState struct {
	mu      sync.Mutex
	records map[fulfillKey]partialRecord
}

type fulfillKey struct {
	ruleCode int
	label    string
}

type partialRecord struct {
	kind     kind.Kind
	features frame.FeatureSet
	sink     frame.Taint
}

func NewFulfilledPartialKindState() *FulfilledPartialKindState {
	return &FulfilledPartialKindState{records: map[fulfillKey]partialRecord{}}
}

// FulfillKind records that sinkKind (label's partial sink) was reached under
// rule, carrying features and the sink-side frame tree sink. It returns
// (combined-issue-taint, true) once every other label of rule has already
// fulfilled, or (EmptyTaint, false) while the rule is still partially
// fulfilled.
func (s *FulfilledPartialKindState) FulfillKind(sinkKind kind.Kind, label string, rule *MultiSourceMultiSinkRule, features frame.FeatureSet, sink frame.Taint) (frame.Taint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[fulfillKey{rule.Code(), label}] = partialRecord{kind: sinkKind, features: features, sink: sink}

	combined := frame.EmptyFeatures()
	for _, other := range rule.Labels() {
		if other == label {
			continue
		}
		rec, ok := s.records[fulfillKey{rule.Code(), other}]
		if !ok {
			return frame.EmptyTaint(), false
		}
		combined = combined.Join(rec.features)
	}

	triggered := kind.NewTriggered(sinkKind, rule.Code())
	result := sink.Transform(func(f frame.Frame) (frame.Frame, bool) {
		f = f.WithKind(triggered)
		for _, name := range combined.May().Sorted() {
			f = f.WithInferredFeature(name)
		}
		return f, true
	})
	return result, true
}

// GetFulfilledCounterpart returns the partial kind already recorded for
// another label of rule, if any, and whether one was found.
func (s *FulfilledPartialKindState) GetFulfilledCounterpart(label string, rule *MultiSourceMultiSinkRule) (kind.Kind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range rule.Labels() {
		if other == label {
			continue
		}
		if rec, ok := s.records[fulfillKey{rule.Code(), other}]; ok {
			return rec.kind, true
		}
	}
	return kind.Kind{}, false
}

// GetFeatures returns the features recorded the last time label's partial
// sink fulfilled under rule.
func (s *FulfilledPartialKindState) GetFeatures(label string, rule *MultiSourceMultiSinkRule) (frame.FeatureSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[fulfillKey{rule.Code(), label}]
	if !ok {
		return frame.EmptyFeatures(), false
	}
	return rec.features, true
}
