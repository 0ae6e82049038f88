package tree

import "github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"

// AccessPathTree is a map from Root to Tree, the TaintAccessPathTree of
// spec.md §4 used for a Model's generations, sinks, and propagations.
type AccessPathTree[V Value[V]] struct {
	byRoot map[accesspath.Root]*Tree[V]
}

// NewAccessPathTree builds an empty AccessPathTree.
func NewAccessPathTree[V Value[V]]() *AccessPathTree[V] {
	return &AccessPathTree[V]{byRoot: map[accesspath.Root]*Tree[V]{}}
}

// Write stores value at path's full (root, path) coordinate.
func (a *AccessPathTree[V]) Write(path accesspath.AccessPath, value V, kind WriteKind) {
	root := path.Root()
	t, ok := a.byRoot[root]
	if !ok {
		t = New[V]()
		a.byRoot[root] = t
	}
	t.Write(path.Path(), value, kind)
}

// Tree returns the tree rooted at root, creating it empty if absent so
// callers may read without a prior existence check.
func (a *AccessPathTree[V]) Tree(root accesspath.Root) *Tree[V] {
	if t, ok := a.byRoot[root]; ok {
		return t
	}
	return New[V]()
}

// SetTree replaces the whole subtree at root, used by whole-tree rewrites
// (e.g. model.Approximate's collapse operations) that already hold a
// *Tree[V] and would otherwise have to re-flatten it through Write.
func (a *AccessPathTree[V]) SetTree(root accesspath.Root, t *Tree[V]) {
	a.byRoot[root] = t
}

// Roots returns every root that has a stored tree; a stored tree may be
// bottom.
func (a *AccessPathTree[V]) Roots() []accesspath.Root {
	out := make([]accesspath.Root, 0, len(a.byRoot))
	for r := range a.byRoot {
		out = append(out, r)
	}
	return out
}

// Read applies Tree.Read at the given access path's root.
func (a *AccessPathTree[V]) Read(path accesspath.AccessPath, propagate func(ancestor V, elem accesspath.Element) V) *Tree[V] {
	return a.Tree(path.Root()).Read(path.Path(), propagate)
}

// Visit calls f for every (root, path, value) triple across every root tree.
func (a *AccessPathTree[V]) Visit(f func(root accesspath.Root, path accesspath.Path, value V)) {
	for r, t := range a.byRoot {
		t.Visit(func(path accesspath.Path, v V) { f(r, path, v) })
	}
}

// IsBottom reports whether every root's tree is bottom.
func (a *AccessPathTree[V]) IsBottom() bool {
	for _, t := range a.byRoot {
		if !t.IsBottom() {
			return false
		}
	}
	return true
}

// Leq implements the partition order across roots (a root missing from
// other is compared against a fresh, bottom tree).
func (a *AccessPathTree[V]) Leq(other *AccessPathTree[V]) bool {
	for r, t := range a.byRoot {
		if !t.Leq(other.Tree(r)) {
			return false
		}
	}
	return true
}

// Join merges two AccessPathTrees root by root.
func (a *AccessPathTree[V]) Join(other *AccessPathTree[V]) *AccessPathTree[V] {
	out := NewAccessPathTree[V]()
	for r, t := range a.byRoot {
		out.byRoot[r] = t
	}
	for r, ot := range other.byRoot {
		if et, ok := out.byRoot[r]; ok {
			out.byRoot[r] = et.Join(ot)
		} else {
			out.byRoot[r] = ot
		}
	}
	return out
}

// Widen falls back to Join.
func (a *AccessPathTree[V]) Widen(other *AccessPathTree[V]) *AccessPathTree[V] { return a.Join(other) }
