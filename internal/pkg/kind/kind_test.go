package kind

import "testing"

func TestDiscardTransforms(t *testing.T) {
	base := NewNamed("UserInput")
	wrapped := NewTransform(base, Of(NewPureTransform("encode")), Empty())
	if got := wrapped.DiscardTransforms(); !got.Equal(base) {
		t.Fatalf("DiscardTransforms() = %v, want %v", got, base)
	}
	if got := base.DiscardTransforms(); !got.Equal(base) {
		t.Fatalf("DiscardTransforms() on a base kind should be identity")
	}
}

func TestKindEqualAcrossVariants(t *testing.T) {
	a := NewPartial("UserInput", "label-a")
	b := NewPartial("UserInput", "label-a")
	c := NewPartial("UserInput", "label-b")
	if !a.Equal(b) {
		t.Fatalf("expected equal partial kinds to be Equal")
	}
	if a.Equal(c) {
		t.Fatalf("expected differing labels to not be Equal")
	}
}

func TestTriggeredCarriesRuleID(t *testing.T) {
	p := NewPartial("UserInput", "a")
	tr := NewTriggered(p, 3)
	if tr.Rule() != 3 {
		t.Fatalf("Rule() = %d, want 3", tr.Rule())
	}
	if !tr.Partial().Equal(p) {
		t.Fatalf("Partial() = %v, want %v", tr.Partial(), p)
	}
}

func TestTransformListCanonicalizationMergesAdjacentSanitizers(t *testing.T) {
	ts := Of(
		NewPureTransform("encode"),
		NewSanitizerSet("A", "B"),
		NewSanitizerSet("B", "C"),
		NewPureTransform("decode"),
	)
	want := Of(
		NewPureTransform("encode"),
		NewSanitizerSet("A", "B", "C"),
		NewPureTransform("decode"),
	)
	if !ts.Equal(want) {
		t.Fatalf("canonicalized = %v, want %v", ts, want)
	}
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	ts := Of(NewSanitizerSet("A"), NewSanitizerSet("B"), NewPureTransform("x"))
	once := ts.Canonicalize()
	twice := once.Canonicalize()
	if !once.Equal(twice) {
		t.Fatalf("canonicalize is not idempotent: %v != %v", once, twice)
	}
}

func TestReverseThenReverseRoundTrips(t *testing.T) {
	ts := Of(NewPureTransform("a"), NewPureTransform("b"), NewPureTransform("c"))
	got := ts.Reverse().Reverse()
	if !got.Equal(ts) {
		t.Fatalf("Reverse().Reverse() = %v, want %v", got, ts)
	}
}

func TestConcatMergesAcrossBoundary(t *testing.T) {
	left := Of(NewSanitizerSet("A"))
	right := Of(NewSanitizerSet("B"), NewPureTransform("x"))
	got := left.Concat(right)
	want := Of(NewSanitizerSet("A", "B"), NewPureTransform("x"))
	if !got.Equal(want) {
		t.Fatalf("Concat = %v, want %v", got, want)
	}
}

func TestEmptySanitizerSetIsIdentity(t *testing.T) {
	ts := Of(NewPureTransform("x"), NewSanitizerSet())
	want := Of(NewPureTransform("x"))
	if !ts.Equal(want) {
		t.Fatalf("empty sanitizer set should vanish on canonicalize: got %v", ts)
	}
}
