package frame

import (
	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/kind"
)

func kindKey(k kind.Kind) string { return k.String() }

// CalleePortFrames holds, for a given callee port, a partition by kind into
// KindFrames, plus port-local inferred features and local source positions
// (spec.md §4.1).
type CalleePortFrames struct {
	port             accesspath.Root
	byKind           *Partition[kind.Kind, *KindFrames]
	localFeatures    FeatureSet
	localPositions   PositionSet
}

func kindFramesKey(k kind.Kind) string { return kindKey(k) }

func emptyKindFrames(k kind.Kind) *KindFrames { return NewKindFrames(k) }

// kindFramesLattice adapts *KindFrames to the generic Lattice interface
// (Go's type system cannot express "Join returns the same pointer kind"
// directly on a method set already defined with value receivers elsewhere,
// so we keep *KindFrames as the value type throughout).
type kindFramesLattice = *KindFrames

// NewCalleePortFrames builds an empty port-level container for port.
func NewCalleePortFrames(port accesspath.Root) *CalleePortFrames {
	return &CalleePortFrames{
		port:   port,
		byKind: NewPartition[kind.Kind, *KindFrames](kindFramesKey),
	}
}

func (c *CalleePortFrames) Port() accesspath.Root     { return c.port }
func (c *CalleePortFrames) LocalFeatures() FeatureSet  { return c.localFeatures }
func (c *CalleePortFrames) LocalPositions() PositionSet { return c.localPositions }

// AddLocalFeatures joins additional port-local inferred features.
func (c *CalleePortFrames) AddLocalFeatures(f FeatureSet) {
	c.localFeatures = c.localFeatures.Join(f)
}

// AddLocalPosition records a local source position for this port.
func (c *CalleePortFrames) AddLocalPosition(p Position) {
	c.localPositions = c.localPositions.Join(NewPositionSet(p))
}

// Add writes a frame into the KindFrames bucket for its kind.
func (c *CalleePortFrames) Add(f Frame) {
	existing, ok := c.byKind.Get(f.Kind())
	if !ok {
		existing = emptyKindFrames(f.Kind())
	}
	existing.Add(f)
	c.byKind.Set(f.Kind(), existing)
}

// IsBottom reports whether no frames and no local metadata are present.
func (c *CalleePortFrames) IsBottom() bool {
	return c.byKind.IsBottom() && c.localFeatures.May().Len() == 0 && c.localFeatures.Always().Len() == 0 && c.localPositions.Len() == 0
}

// ContainsKind reports whether any frame of kind k is present.
func (c *CalleePortFrames) ContainsKind(k kind.Kind) bool {
	kf, ok := c.byKind.Get(k)
	return ok && !kf.IsBottom()
}

// Visit calls f for every (kind, KindFrames) pair.
func (c *CalleePortFrames) Visit(f func(kind.Kind, *KindFrames)) { c.byKind.Visit(f) }

// VisitFrames calls f for every individual Frame, depth-first, with no
// ancestor taint included (spec.md §9's visitor contract).
func (c *CalleePortFrames) VisitFrames(f func(Frame)) {
	c.byKind.Visit(func(_ kind.Kind, kf *KindFrames) {
		kf.Visit(func(_ ClassInterval, fr Frame) { f(fr) })
	})
}

// PartitionByKind groups frames under a rewritten kind produced by mapKind,
// used by apply_transform-style rewrites that change the grouping key.
func (c *CalleePortFrames) PartitionByKind(mapKind func(kind.Kind) kind.Kind) *CalleePortFrames {
	out := NewCalleePortFrames(c.port)
	out.localFeatures = c.localFeatures
	out.localPositions = c.localPositions
	c.VisitFrames(func(fr Frame) {
		out.Add(fr.WithKind(mapKind(fr.Kind())))
	})
	return out
}

// Transform applies f to every frame (kind preserved) across all kinds.
func (c *CalleePortFrames) Transform(f func(Frame) (Frame, bool)) *CalleePortFrames {
	out := NewCalleePortFrames(c.port)
	out.localFeatures = c.localFeatures
	out.localPositions = c.localPositions
	out.byKind = c.byKind.Transform(func(k kind.Kind, kf *KindFrames) (*KindFrames, bool) {
		t := kf.Transform(f)
		return t, !t.IsBottom()
	})
	return out
}

// Filter returns a new CalleePortFrames retaining only frames matching pred.
func (c *CalleePortFrames) Filter(pred func(Frame) bool) *CalleePortFrames {
	out := NewCalleePortFrames(c.port)
	out.localFeatures = c.localFeatures
	out.localPositions = c.localPositions
	out.byKind = c.byKind.Transform(func(k kind.Kind, kf *KindFrames) (*KindFrames, bool) {
		f := kf.Filter(pred)
		return f, !f.IsBottom()
	})
	return out
}

// Leq implements the partition order, requiring equal ports.
func (c *CalleePortFrames) Leq(other *CalleePortFrames) bool {
	if c.IsBottom() {
		return true
	}
	if other.IsBottom() || !c.port.Equal(other.port) {
		return false
	}
	return c.byKind.Leq(other.byKind) &&
		c.localFeatures.Leq(other.localFeatures) &&
		c.localPositions.Leq(other.localPositions)
}

// Join merges two CalleePortFrames for the same port.
func (c *CalleePortFrames) Join(other *CalleePortFrames) *CalleePortFrames {
	if c.IsBottom() {
		return other
	}
	if other.IsBottom() {
		return c
	}
	out := NewCalleePortFrames(c.port)
	out.byKind = c.byKind.Join(other.byKind)
	out.localFeatures = c.localFeatures.Join(other.localFeatures)
	out.localPositions = c.localPositions.Join(other.localPositions)
	return out
}
