package callinfo

import "testing"

func TestPropagateTransitions(t *testing.T) {
	d := DeclarationInfo()
	o := d.Propagate()
	if o.State() != Origin {
		t.Fatalf("declaration.propagate() = %v, want origin", o.State())
	}
	c := o.Propagate()
	if c.State() != Callsite {
		t.Fatalf("origin.propagate() = %v, want callsite", c.State())
	}
	c2 := c.Propagate()
	if c2.State() != Callsite {
		t.Fatalf("callsite.propagate() = %v, want callsite (fixed point)", c2.State())
	}
}

func TestWithTraceIsStickyAcrossPropagate(t *testing.T) {
	c := New(Callsite).WithTrace()
	if !c.RequiresTrace() {
		t.Fatalf("expected WithTrace to set RequiresTrace")
	}
	next := c.Propagate()
	if !next.RequiresTrace() {
		t.Fatalf("propagation_with_trace must remain sticky across Propagate hops")
	}
}

func TestWithTraceNoOpOnDeclaration(t *testing.T) {
	d := DeclarationInfo().WithTrace()
	if d.RequiresTrace() {
		t.Fatalf("WithTrace should not affect a declaration frame")
	}
}

func TestIsDeclarationGatesLocalPosition(t *testing.T) {
	if !DeclarationInfo().IsDeclaration() {
		t.Fatalf("expected IsDeclaration on a fresh declaration")
	}
	if OriginInfo().IsDeclaration() {
		t.Fatalf("origin must not report IsDeclaration")
	}
}

func TestIsPropagation(t *testing.T) {
	if DeclarationInfo().IsPropagation() || OriginInfo().IsPropagation() {
		t.Fatalf("declaration/origin must not be propagation frames")
	}
	if !New(Callsite).IsPropagation() || !New(PropagationWithTrace).IsPropagation() {
		t.Fatalf("callsite/propagation_with_trace must be propagation frames")
	}
}
