package environment

import (
	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/frame"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/tree"
)

// TaintEnvironment maps a root MemoryLocation to a TaintTree, per spec.md
// §4.4.2 ("ForwardTaintEnvironment = TaintEnvironment, keyed by root memory
// location to TaintTree"). The same type serves the backward analysis of
// §4.4.3, which stores sink-style frames using the same Taint lattice.
type TaintEnvironment struct {
	byRoot map[string]*rootEntry
}

type rootEntry struct {
	root MemoryLocation
	tree *tree.Tree[frame.Taint]
}

func NewTaintEnvironment() *TaintEnvironment {
	return &TaintEnvironment{byRoot: map[string]*rootEntry{}}
}

func (e *TaintEnvironment) entry(root MemoryLocation) *rootEntry {
	k := root.key()
	r, ok := e.byRoot[k]
	if !ok {
		r = &rootEntry{root: root, tree: tree.New[frame.Taint]()}
		e.byRoot[k] = r
	}
	return r
}

// Write performs a direct (non-alias-resolving) write of taint at loc.
func (e *TaintEnvironment) Write(loc MemoryLocation, value frame.Taint, kind tree.WriteKind) {
	e.entry(loc.Root()).tree.Write(loc.Path(), value, kind)
}

// Read performs a direct (non-alias-resolving) propagated read at loc: the
// propagate callback computes what a frame inherits from its ancestor at
// each field descended into (spec.md §4.3/§4.4.3's propagate_output_path).
func (e *TaintEnvironment) Read(loc MemoryLocation, propagate func(ancestor frame.Taint, elem accesspath.Element) frame.Taint) frame.Taint {
	return e.entry(loc.Root()).tree.Read(loc.Path(), propagate).Value()
}

// RawRead performs a direct, non-propagated read at loc.
func (e *TaintEnvironment) RawRead(loc MemoryLocation) frame.Taint {
	return e.entry(loc.Root()).tree.RawRead(loc.Path()).Value()
}

// DeepWrite writes value at m, resolving m through the points-to environment
// first: a write at a memory location with resolved alias set {m1, m2}
// becomes a weak update at each element, per spec.md §4.4.1.
func (e *TaintEnvironment) DeepWrite(points *PointsToEnvironment, m MemoryLocation, value frame.Taint, kind tree.WriteKind) {
	targets := points.ResolveChain(m).Locations()
	if len(targets) <= 1 {
		for _, t := range targets {
			e.Write(t, value, kind)
		}
		if len(targets) == 0 {
			e.Write(m, value, kind)
		}
		return
	}
	// More than one resolved alias: a strong update would be unsound, so it
	// is downgraded to weak at every element (spec.md §4.4.1).
	for _, t := range targets {
		e.Write(t, value, tree.Weak)
	}
}

// DeepRead reads the taint at m through the resolved alias set, joining the
// taint present at every resolved location.
func (e *TaintEnvironment) DeepRead(points *PointsToEnvironment, m MemoryLocation) frame.Taint {
	targets := points.ResolveChain(m).Locations()
	if len(targets) == 0 {
		return e.RawRead(m)
	}
	out := frame.EmptyTaint()
	for _, t := range targets {
		out = out.Join(e.RawRead(t))
	}
	return out
}

// Roots returns every root location that has a stored taint tree; a stored
// tree may be bottom.
func (e *TaintEnvironment) Roots() []MemoryLocation {
	out := make([]MemoryLocation, 0, len(e.byRoot))
	for _, r := range e.byRoot {
		out = append(out, r.root)
	}
	return out
}

// Tree returns the TaintTree rooted at root.
func (e *TaintEnvironment) Tree(root MemoryLocation) *tree.Tree[frame.Taint] {
	return e.entry(root).tree
}

func (e *TaintEnvironment) Leq(other *TaintEnvironment) bool {
	for k, r := range e.byRoot {
		or, ok := other.byRoot[k]
		if !ok {
			if !r.tree.IsBottom() {
				return false
			}
			continue
		}
		if !r.tree.Leq(or.tree) {
			return false
		}
	}
	return true
}

func (e *TaintEnvironment) Join(other *TaintEnvironment) *TaintEnvironment {
	out := NewTaintEnvironment()
	for k, r := range e.byRoot {
		out.byRoot[k] = &rootEntry{root: r.root, tree: r.tree}
	}
	for k, r := range other.byRoot {
		if ex, ok := out.byRoot[k]; ok {
			out.byRoot[k] = &rootEntry{root: ex.root, tree: ex.tree.Join(r.tree)}
		} else {
			out.byRoot[k] = &rootEntry{root: r.root, tree: r.tree}
		}
	}
	return out
}

// Widen falls back to Join for the taint component, per spec.md §4.4.5
// ("widen_with ... falls back to join_with").
func (e *TaintEnvironment) Widen(other *TaintEnvironment) *TaintEnvironment {
	return e.Join(other)
}
