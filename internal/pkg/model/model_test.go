package model

import (
	"testing"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/callinfo"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/frame"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/kind"
)

func sourceAt(argPos uint32, elems ...string) (accesspath.AccessPath, frame.Taint) {
	es := make([]accesspath.Element, len(elems))
	for i, e := range elems {
		es[i] = accesspath.Element(e)
	}
	path := accesspath.New(accesspath.Argument(argPos), accesspath.PathOf(es...))
	f := frame.Leaf(kind.NewNamed("Source"))
	taint := frame.SingleFrame(frame.NoCallee(), callinfo.DeclarationInfo(), 0, accesspath.Leaf(), f)
	return path, taint
}

func TestModelLeqReflexiveAndAddGenerationGrows(t *testing.T) {
	m := New()
	if !m.Leq(m) {
		t.Fatalf("expected empty model leq itself")
	}
	path, taint := sourceAt(0, "f")
	m.AddGeneration(path, taint)
	if m.Leq(New()) {
		t.Fatalf("expected model with a generation to not be leq the empty model")
	}
	if !New().Leq(m) {
		t.Fatalf("expected empty model leq to be leq a model with more data")
	}
}

func TestModelAddRespectsFrozenBits(t *testing.T) {
	m := New()
	m.Frozen = FrozenGenerations | FrozenSinks
	path, taint := sourceAt(0, "f")
	m.AddGeneration(path, taint)
	m.AddSink(path, taint)
	m.AddParameterSource(path, taint)
	m.AddPropagation(path, taint)

	if !m.Generations.IsBottom() {
		t.Fatalf("expected AddGeneration to be a no-op while FrozenGenerations is set")
	}
	if !m.Sinks.IsBottom() {
		t.Fatalf("expected AddSink to be a no-op while FrozenSinks is set")
	}
	if m.ParameterSources.IsBottom() {
		t.Fatalf("expected AddParameterSource to take effect, ParameterSources is not frozen")
	}
	if m.Propagations.IsBottom() {
		t.Fatalf("expected AddPropagation to take effect, Propagations is not frozen")
	}
}

func TestModelJoinIdempotentCommutativeAssociative(t *testing.T) {
	pathA, taintA := sourceAt(0, "a")
	pathB, taintB := sourceAt(1, "b")

	a := New()
	a.AddGeneration(pathA, taintA)
	b := New()
	b.AddGeneration(pathB, taintB)
	c := New()
	c.AddSink(pathA, taintA)

	if ab := a.Join(b); !ab.Join(b).Leq(ab) || !ab.Leq(ab.Join(b)) {
		t.Fatalf("expected join to be idempotent")
	}
	lhs := a.Join(b).Join(c)
	rhs := a.Join(b.Join(c))
	if !lhs.Leq(rhs) || !rhs.Leq(lhs) {
		t.Fatalf("expected join to be associative")
	}
	if !a.Join(b).Leq(b.Join(a)) || !b.Join(a).Leq(a.Join(b)) {
		t.Fatalf("expected join to be commutative")
	}
}

func TestModelJoinUnionsModesAndFrozenBits(t *testing.T) {
	a := New()
	a.Modes = TaintInTaintOut
	a.Frozen = FrozenGenerations
	b := New()
	b.Modes = AddViaObscureFeature
	b.Frozen = FrozenSinks

	joined := a.Join(b)
	if !joined.Modes.Has(TaintInTaintOut) || !joined.Modes.Has(AddViaObscureFeature) {
		t.Fatalf("expected joined modes to carry both sides' bits")
	}
	if !joined.Frozen.Has(FrozenGenerations) || !joined.Frozen.Has(FrozenSinks) {
		t.Fatalf("expected joined frozen bits to carry both sides' bits")
	}
}

func TestModelWidenFallsBackToJoin(t *testing.T) {
	pathA, taintA := sourceAt(0, "a")
	a := New()
	b := New()
	b.AddGeneration(pathA, taintA)
	if got, want := a.Widen(b), a.Join(b); !got.Leq(want) || !want.Leq(got) {
		t.Fatalf("expected widen to equal join")
	}
}

func TestDegradedSetsAllDegradedModeBits(t *testing.T) {
	m := Degraded()
	for _, bit := range []Mode{TaintInTaintOut, TaintInTaintThis, SkipAnalysis, AddViaObscureFeature, NoJoinVirtualOverrides} {
		if !m.Modes.Has(bit) {
			t.Fatalf("expected Degraded model to have mode bit %d set", bit)
		}
	}
}

func TestApproximateCollapseDeeperThanPreservesNestedStructureBelowCutoff(t *testing.T) {
	m := New()
	deep, taint := sourceAt(0, "a", "b", "c", "d")
	m.AddGeneration(deep, taint)

	approximated := m.Approximate(Heuristics{MaxInputPathDepth: 2})

	var sawDeeperLeaf bool
	approximated.Generations.Visit(func(root accesspath.Root, path accesspath.Path, v frame.Taint) {
		if len(path.Elements()) > 2 {
			sawDeeperLeaf = true
		}
	})
	if sawDeeperLeaf {
		t.Fatalf("expected CollapseDeeperThan(2) to leave no leaf deeper than 2 elements")
	}

	var sawBroadeningFeature bool
	approximated.Generations.Visit(func(root accesspath.Root, path accesspath.Path, v frame.Taint) {
		v.VisitFrames(func(f frame.Frame) {
			if f.InferredFeatures().May().Contains("broadening:input-depth") {
				sawBroadeningFeature = true
			}
		})
	})
	if !sawBroadeningFeature {
		t.Fatalf("expected the collapsed frame to carry the broadening:input-depth feature")
	}
}

func TestApproximateLeavesShallowTreesUnchanged(t *testing.T) {
	m := New()
	shallow, taint := sourceAt(0, "a")
	m.AddGeneration(shallow, taint)

	approximated := m.Approximate(Heuristics{MaxInputPathDepth: 5})
	if !approximated.Generations.Leq(m.Generations) || !m.Generations.Leq(approximated.Generations) {
		t.Fatalf("expected a tree within the depth budget to be unchanged by Approximate")
	}
}

func TestCollapseInvalidPathsDropsUnknownFields(t *testing.T) {
	m := New()
	path, taint := sourceAt(0, "unknownField")
	m.AddGeneration(path, taint)

	isValid := func(acc interface{}, elem accesspath.Element) (interface{}, bool) {
		return nil, string(elem) == "knownField"
	}
	pruned := m.CollapseInvalidPaths(isValid, func(root accesspath.Root) interface{} { return nil })

	var sawAnyPath bool
	pruned.Generations.Visit(func(root accesspath.Root, path accesspath.Path, v frame.Taint) {
		if len(path.Elements()) > 0 {
			sawAnyPath = true
		}
	})
	if sawAnyPath {
		t.Fatalf("expected CollapseInvalidPaths to collapse the unknown-field leaf back to its root")
	}
}

func TestRegistryGetMissingReturnsEmptyModel(t *testing.T) {
	r := NewRegistry[string]()
	m := r.Get("com.example.Foo#bar")
	if !m.Leq(New()) || !New().Leq(m) {
		t.Fatalf("expected Get on an absent method to return an empty model")
	}
}

func TestRegistrySetAndGetRoundTrip(t *testing.T) {
	r := NewRegistry[string]()
	path, taint := sourceAt(0, "a")
	m := New()
	m.AddGeneration(path, taint)
	r.Set("m", m)
	got := r.Get("m")
	if !got.Leq(m) || !m.Leq(got) {
		t.Fatalf("expected Get to return what was Set")
	}
}

func TestRegistryJoinIntoReportsGrowth(t *testing.T) {
	r := NewRegistry[string]()
	path, taint := sourceAt(0, "a")
	delta := New()
	delta.AddGeneration(path, taint)

	if grew := r.JoinInto("m", delta); !grew {
		t.Fatalf("expected joining into an absent method's model to report growth")
	}
	if grew := r.JoinInto("m", delta); grew {
		t.Fatalf("expected joining the same delta again to report no growth")
	}
}

func TestRegistryMethodsListsEverySetMethod(t *testing.T) {
	r := NewRegistry[string]()
	r.Set("a", New())
	r.Set("b", New())
	methods := r.Methods()
	if len(methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(methods))
	}
}

func TestRegistryJoinMergesBothRegistries(t *testing.T) {
	left := NewRegistry[string]()
	right := NewRegistry[string]()
	pathA, taintA := sourceAt(0, "a")
	pathB, taintB := sourceAt(1, "b")

	lm := New()
	lm.AddGeneration(pathA, taintA)
	left.Set("shared", lm)
	left.Set("onlyLeft", New())

	rm := New()
	rm.AddSink(pathB, taintB)
	right.Set("shared", rm)
	right.Set("onlyRight", New())

	merged := left.Join(right)
	methods := merged.Methods()
	if len(methods) != 3 {
		t.Fatalf("expected 3 distinct methods after join, got %d", len(methods))
	}
	sharedModel := merged.Get("shared")
	if sharedModel.Generations.IsBottom() || sharedModel.Sinks.IsBottom() {
		t.Fatalf("expected the shared method's model to carry both sides' contributions")
	}
}
