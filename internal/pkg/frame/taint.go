package frame

import (
	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/callinfo"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/kind"
)

// calleeCallInfoKey is the compound grouping key Taint partitions by: the
// callee (or lack of one) together with the call-info state under which its
// frames were produced.
type calleeCallInfoKey struct {
	callee CalleeRef
	state  callinfo.State
}

func (k calleeCallInfoKey) String() string {
	return k.callee.key() + "#" + k.state.String()
}

// Taint is, for a method's access-path, a partition by (callee, call-info)
// into CalleeFrames (spec.md §3/§4.1). It is the value stored at every node
// of a TaintTree.
type Taint struct {
	byCallee *Partition[calleeCallInfoKey, *CalleeFrames]
}

func calleeFramesKey(k calleeCallInfoKey) string { return k.String() }

// EmptyTaint is the bottom element.
func EmptyTaint() Taint {
	return Taint{byCallee: NewPartition[calleeCallInfoKey, *CalleeFrames](calleeFramesKey)}
}

// SingleFrame builds a Taint holding exactly one frame under the given
// callee/call-info/position/port coordinate. Passing NoCallee() and
// callinfo.DeclarationInfo() is the common case for a freshly-declared
// source/sink/propagation entry read off an input Model.
func SingleFrame(callee CalleeRef, info callinfo.CallInfo, position int, port accesspath.Root, f Frame) Taint {
	t := EmptyTaint()
	t.Write(callee, info, position, port, f)
	return t
}

// IsBottom reports whether the Taint holds no frames at all.
func (t Taint) IsBottom() bool { return t.byCallee == nil || t.byCallee.IsBottom() }

// Write adds a frame at the given coordinate, joining with whatever was
// already present there.
func (t *Taint) Write(callee CalleeRef, info callinfo.CallInfo, position int, port accesspath.Root, f Frame) {
	if t.byCallee == nil {
		*t = EmptyTaint()
	}
	key := calleeCallInfoKey{callee: callee, state: info.State()}
	existing, ok := t.byCallee.Get(key)
	if !ok {
		existing = NewCalleeFrames(callee, info)
	}
	existing.Add(position, port, f)
	t.byCallee.Set(key, existing)
}

// Visit calls f for every (CalleeFrames) group.
func (t Taint) Visit(f func(*CalleeFrames)) {
	if t.byCallee == nil {
		return
	}
	t.byCallee.Visit(func(_ calleeCallInfoKey, cf *CalleeFrames) { f(cf) })
}

// VisitFrames calls f for every individual Frame, depth-first, with no
// ancestor taint included, implementing the visitor contract of spec.md §9.
func (t Taint) VisitFrames(f func(Frame)) {
	t.Visit(func(cf *CalleeFrames) { cf.VisitFrames(f) })
}

// ContainsKind reports whether any frame anywhere in t has kind k.
func (t Taint) ContainsKind(k kind.Kind) bool {
	found := false
	t.VisitFrames(func(fr Frame) {
		if !found && fr.Kind().Equal(k) {
			found = true
		}
	})
	return found
}

// FilterInvalidFrames keeps only frames whose (callee, port, kind) triple is
// accepted by valid; callee is CalleeRef{} with HasCallee=false for frames
// with no next hop. Used to drop trace hops into a callee whose own model no
// longer advertises the matching generation/sink (PostprocessTraces's
// check_callee_kinds/filter_invalid_frames pattern).
func (t Taint) FilterInvalidFrames(valid func(callee CalleeRef, port accesspath.Root, k kind.Kind) bool) Taint {
	if t.byCallee == nil {
		return t
	}
	out := EmptyTaint()
	out.byCallee = t.byCallee.Transform(func(key calleeCallInfoKey, cf *CalleeFrames) (*CalleeFrames, bool) {
		filtered := cf.FilterPorts(func(port accesspath.Root, f Frame) bool {
			return valid(key.callee, port, f.Kind())
		})
		return filtered, !filtered.IsBottom()
	})
	return out
}

// Leq implements the Taint partial order.
func (t Taint) Leq(other Taint) bool {
	if t.IsBottom() {
		return true
	}
	if other.IsBottom() {
		return false
	}
	return t.byCallee.Leq(other.byCallee)
}

// Join returns the pointwise union of t and other.
func (t Taint) Join(other Taint) Taint {
	if t.IsBottom() {
		return other
	}
	if other.IsBottom() {
		return t
	}
	return Taint{byCallee: t.byCallee.Join(other.byCallee)}
}

// Widen falls back to Join, per spec.md §4.4.5 ("widen_with ... falls back
// to join_with").
func (t Taint) Widen(other Taint) Taint { return t.Join(other) }

// Transform applies f to every frame across the whole Taint value.
func (t Taint) Transform(f func(Frame) (Frame, bool)) Taint {
	if t.byCallee == nil {
		return t
	}
	out := EmptyTaint()
	out.byCallee = t.byCallee.Transform(func(k calleeCallInfoKey, cf *CalleeFrames) (*CalleeFrames, bool) {
		tr := cf.Transform(f)
		return tr, !tr.IsBottom()
	})
	return out
}

// AttachPosition produces a new leaf-like Taint where every frame becomes a
// leaf (distance 0) at the given position, with features preserved
// (spec.md §4.1, used to materialize inferred model entries at a
// representative source location).
func (t Taint) AttachPosition(pos Position) Taint {
	out := t.Transform(func(f Frame) (Frame, bool) { return f.AsLeaf(), true })
	out.Visit(func(cf *CalleeFrames) {
		cf.Visit(func(_ int, ppf *CalleePortFrames) { ppf.AddLocalPosition(pos) })
	})
	return out
}
