package frame

import (
	"fmt"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/callinfo"
)

// CalleeRef identifies the callee a group of frames was produced by, or the
// absence of one for frames local to the current method (declarations,
// origins not yet attached to any call).
type CalleeRef struct {
	Name      string
	HasCallee bool
}

// NoCallee is the ref for frames with no associated callee.
func NoCallee() CalleeRef { return CalleeRef{} }

// Callee builds a ref for the named callee.
func Callee(name string) CalleeRef { return CalleeRef{Name: name, HasCallee: true} }

func (c CalleeRef) Equal(other CalleeRef) bool { return c == other }

func (c CalleeRef) key() string {
	if !c.HasCallee {
		return "<none>"
	}
	return c.Name
}

// CalleeFrames is, for a given (callee, call-info) key, a partition by call
// position into CalleePortFrames (spec.md §4.1).
type CalleeFrames struct {
	callee   CalleeRef
	callInfo callinfo.CallInfo
	byPosition *Partition[int, *CalleePortFrames]
}

func calleePortFramesKey(i int) string { return fmt.Sprintf("%d", i) }

// NewCalleeFrames builds an empty container for the given (callee, call-info) key.
func NewCalleeFrames(callee CalleeRef, info callinfo.CallInfo) *CalleeFrames {
	return &CalleeFrames{
		callee:     callee,
		callInfo:   info,
		byPosition: NewPartition[int, *CalleePortFrames](calleePortFramesKey),
	}
}

func (c *CalleeFrames) Callee() CalleeRef          { return c.callee }
func (c *CalleeFrames) CallInfo() callinfo.CallInfo { return c.callInfo }

// Add writes a frame at the given (port, position) coordinate.
func (c *CalleeFrames) Add(position int, port accesspath.Root, f Frame) {
	existing, ok := c.byPosition.Get(position)
	if !ok {
		existing = NewCalleePortFrames(port)
	}
	existing.Add(f)
	c.byPosition.Set(position, existing)
}

// IsBottom reports whether no positions hold any frames.
func (c *CalleeFrames) IsBottom() bool { return c.byPosition.IsBottom() }

// Visit calls f for every (position, CalleePortFrames) pair.
func (c *CalleeFrames) Visit(f func(int, *CalleePortFrames)) { c.byPosition.Visit(f) }

// VisitFrames calls f for every individual Frame across all positions/ports/kinds.
func (c *CalleeFrames) VisitFrames(f func(Frame)) {
	c.byPosition.Visit(func(_ int, ppf *CalleePortFrames) { ppf.VisitFrames(f) })
}

// AtPort returns the combined CalleePortFrames across all call positions for
// the given port (propagate needs to read "the callee's generations at this
// port" irrespective of which call position produced them).
func (c *CalleeFrames) AtPort(port accesspath.Root) *CalleePortFrames {
	out := NewCalleePortFrames(port)
	c.byPosition.Visit(func(_ int, ppf *CalleePortFrames) {
		if ppf.Port().Equal(port) {
			out = out.Join(ppf)
		}
	})
	return out
}

// Transform applies f to every frame, keeping (callee, call-info, position, port) fixed.
func (c *CalleeFrames) Transform(f func(Frame) (Frame, bool)) *CalleeFrames {
	out := NewCalleeFrames(c.callee, c.callInfo)
	out.byPosition = c.byPosition.Transform(func(pos int, ppf *CalleePortFrames) (*CalleePortFrames, bool) {
		t := ppf.Transform(f)
		return t, !t.IsBottom()
	})
	return out
}

// FilterPorts keeps only frames at ports accepted by pred, which also sees
// the individual frame so it can inspect its kind.
func (c *CalleeFrames) FilterPorts(pred func(port accesspath.Root, f Frame) bool) *CalleeFrames {
	out := NewCalleeFrames(c.callee, c.callInfo)
	out.byPosition = c.byPosition.Transform(func(_ int, ppf *CalleePortFrames) (*CalleePortFrames, bool) {
		filtered := ppf.Filter(func(f Frame) bool { return pred(ppf.Port(), f) })
		return filtered, !filtered.IsBottom()
	})
	return out
}

// Leq implements the partition order, requiring equal callee and call-info.
func (c *CalleeFrames) Leq(other *CalleeFrames) bool {
	if c.IsBottom() {
		return true
	}
	if other.IsBottom() || !c.callee.Equal(other.callee) || c.callInfo.State() != other.callInfo.State() {
		return false
	}
	return c.byPosition.Leq(other.byPosition)
}

// Join merges two CalleeFrames for the same (callee, call-info) key.
func (c *CalleeFrames) Join(other *CalleeFrames) *CalleeFrames {
	if c.IsBottom() {
		return other
	}
	if other.IsBottom() {
		return c
	}
	out := NewCalleeFrames(c.callee, c.callInfo)
	out.byPosition = c.byPosition.Join(other.byPosition)
	return out
}
