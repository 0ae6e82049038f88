package accesspath

import "testing"

func TestLeqReflexiveAntisymmetricTransitive(t *testing.T) {
	a := New(Argument(0), PathOf("x", "y"))
	b := New(Argument(0), PathOf("x"))
	c := New(Argument(0), EmptyPath())

	if !a.Leq(a) {
		t.Fatalf("expected reflexivity")
	}
	if !a.Leq(b) || !b.Leq(c) {
		t.Fatalf("expected a<=b<=c for decreasing specificity")
	}
	if !a.Leq(c) {
		t.Fatalf("expected transitivity a<=c")
	}
	if b.Leq(a) && a.Leq(b) && !a.Equal(b) {
		t.Fatalf("antisymmetry violated")
	}
}

func TestJoinWithIsCommonPrefix(t *testing.T) {
	a := New(Argument(0), PathOf("x", "y"))
	b := New(Argument(0), PathOf("x", "z"))

	got := a.JoinWith(b)
	want := New(Argument(0), PathOf("x"))
	if !got.Equal(want) {
		t.Fatalf("JoinWith = %v, want %v", got, want)
	}

	if !a.Leq(got) || !b.Leq(got) {
		t.Fatalf("join must be an upper bound in the specificity order")
	}
}

func TestJoinWithDifferentRootsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic joining mismatched roots")
		}
	}()
	New(Argument(0), EmptyPath()).JoinWith(New(Return(), EmptyPath()))
}

func TestRootStringRoundTrip(t *testing.T) {
	cases := []Root{Argument(0), Argument(3), Return(), Leaf(), Anchor(), Producer(), CanonicalThis()}
	for _, r := range cases {
		s := r.String()
		got, err := ParseRoot(s)
		if err != nil {
			t.Fatalf("ParseRoot(%q) error: %v", s, err)
		}
		if !got.Equal(r) {
			t.Fatalf("round trip %q => %v, want %v", s, got, r)
		}
	}
}

func TestPathPrefixAndCommonPrefix(t *testing.T) {
	p1 := PathOf("a", "b", "c")
	p2 := PathOf("a", "b")
	if !p2.IsPrefixOf(p1) {
		t.Fatalf("expected p2 to be a prefix of p1")
	}
	if p1.IsPrefixOf(p2) {
		t.Fatalf("longer path should not be a prefix of a shorter one")
	}
	if got := p1.ReduceToCommonPrefix(PathOf("a", "x")); !got.Equal(PathOf("a")) {
		t.Fatalf("ReduceToCommonPrefix = %v, want [a]", got)
	}
}

func TestAccessPathString(t *testing.T) {
	ap := New(Argument(1), PathOf("field", "sub"))
	if got, want := ap.String(), "Argument(1).field.sub"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestParseRoundTripsWithString(t *testing.T) {
	cases := []AccessPath{
		New(Argument(1), PathOf("field", "sub")),
		New(Return(), EmptyPath()),
		New(Leaf(), PathOf("x")),
		New(Anchor(), EmptyPath()),
	}
	for _, ap := range cases {
		got, err := Parse(ap.String())
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", ap.String(), err)
		}
		if !got.Equal(ap) {
			t.Fatalf("Parse(%q) = %v, want %v", ap.String(), got, ap)
		}
	}
}

func TestParseRejectsUnknownRoot(t *testing.T) {
	if _, err := Parse("Bogus.field"); err == nil {
		t.Fatalf("expected an error parsing an unrecognized root")
	}
}
