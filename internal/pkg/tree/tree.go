// Package tree implements the access-path tree domain of spec.md §4.3: a
// node stores a value plus an ordered partition of children keyed by a
// Path.Element, with closure semantics (every descendant logically includes
// its ancestors' values). Grounded on original_source/AccessPathTreeDomain.h
// and TaintAccessPathTree.h, whose Patricia-trie merge is structural node by
// node; this package keeps that representation (each node stores only its
// own increment) rather than materializing inherited values eagerly.
package tree

import "github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"

// Value is the constraint a tree's node type must satisfy: the usual
// Leq/Join pair plus IsBottom, needed here (unlike internal/pkg/frame's
// Lattice) to build bottom leaves when a path is unmatched or a child is
// absent.
type Value[V any] interface {
	Leq(other V) bool
	Join(other V) V
	IsBottom() bool
}

// WriteKind discriminates a Strong (replace) write from a Weak (join) write,
// per spec.md §4.3.
type WriteKind int

const (
	Strong WriteKind = iota
	Weak
)

// Tree is a node in the access-path tree: a value plus children keyed by
// Path.Element.
type Tree[V Value[V]] struct {
	value    V
	children map[accesspath.Element]*Tree[V]
}

// New builds an empty (bottom-valued) tree node.
func New[V Value[V]]() *Tree[V] {
	return &Tree[V]{children: map[accesspath.Element]*Tree[V]{}}
}

// Leaf builds a childless node holding value.
func Leaf[V Value[V]](value V) *Tree[V] {
	t := New[V]()
	t.value = value
	return t
}

// Value returns this node's own (un-inherited) value.
func (t *Tree[V]) Value() V { return t.value }

// Children returns the node's child map; callers must not mutate it.
func (t *Tree[V]) Children() map[accesspath.Element]*Tree[V] { return t.children }

// IsBottom reports whether the node (and everything beneath it) is empty.
func (t *Tree[V]) IsBottom() bool {
	if !t.value.IsBottom() {
		return false
	}
	for _, c := range t.children {
		if !c.IsBottom() {
			return false
		}
	}
	return true
}

func (t *Tree[V]) childOrEmpty(e accesspath.Element) *Tree[V] {
	if c, ok := t.children[e]; ok {
		return c
	}
	return New[V]()
}

func (t *Tree[V]) getOrCreate(path accesspath.Path) *Tree[V] {
	node := t
	for _, e := range path.Elements() {
		child, ok := node.children[e]
		if !ok {
			child = New[V]()
			node.children[e] = child
		}
		node = child
	}
	return node
}

// Write stores value at path: Strong replaces the exact sub-tree there, Weak
// joins with whatever was already present. Downgrading Strong to Weak for
// non-singleton write targets is a caller (environment layer) concern, not
// this domain's.
func (t *Tree[V]) Write(path accesspath.Path, value V, kind WriteKind) {
	node := t.getOrCreate(path)
	if kind == Strong {
		node.value = value
		node.children = map[accesspath.Element]*Tree[V]{}
		return
	}
	node.value = node.value.Join(value)
}

// joinSubtreeValues folds this node's value and every descendant's value
// into one, used by the collapse operations below.
func (t *Tree[V]) joinSubtreeValues() V {
	acc := t.value
	for _, c := range t.children {
		acc = acc.Join(c.joinSubtreeValues())
	}
	return acc
}

// Read traverses as far as path can be matched, invoking propagate at each
// descent to compute what the next level inherits from its ancestor, and
// returns a tree whose root is the accumulated value at path (with whatever
// subtree was rooted there still attached, so further reads below path keep
// working). An unmatched path returns a childless leaf at the accumulated
// value.
func (t *Tree[V]) Read(path accesspath.Path, propagate func(ancestor V, elem accesspath.Element) V) *Tree[V] {
	node := t
	acc := t.value
	for _, e := range path.Elements() {
		acc = propagate(acc, e)
		child, ok := node.children[e]
		if !ok {
			return Leaf[V](acc)
		}
		acc = acc.Join(child.value)
		node = child
	}
	out := New[V]()
	out.value = acc
	out.children = node.children
	return out
}

// RawRead navigates to path without propagation (ancestors are dropped),
// returning the exact subtree rooted there, or a bottom leaf if absent.
func (t *Tree[V]) RawRead(path accesspath.Path) *Tree[V] {
	node := t
	for _, e := range path.Elements() {
		child, ok := node.children[e]
		if !ok {
			return New[V]()
		}
		node = child
	}
	return node
}

// CollapseDeeperThan collapses every subtree at depth > maxDepth into its
// ancestor node's value, passing the collapsed value through addFeatures
// (e.g. to join in a "collapse-depth" feature and reset output-path collapse
// depths on propagation frames), per spec.md §4.3.
func (t *Tree[V]) CollapseDeeperThan(maxDepth int, addFeatures func(V) V) *Tree[V] {
	return t.collapseDeeperThan(0, maxDepth, addFeatures)
}

func (t *Tree[V]) collapseDeeperThan(depth, maxDepth int, addFeatures func(V) V) *Tree[V] {
	if depth >= maxDepth {
		out := New[V]()
		out.value = t.value
		for _, c := range t.children {
			out.value = addFeatures(out.value.Join(c.joinSubtreeValues()))
		}
		return out
	}
	out := New[V]()
	out.value = t.value
	for e, c := range t.children {
		out.children[e] = c.collapseDeeperThan(depth+1, maxDepth, addFeatures)
	}
	return out
}

// CountLeaves returns the number of childless nodes reachable from t (t
// itself counts as one leaf when it has no children).
func (t *Tree[V]) CountLeaves() int {
	if len(t.children) == 0 {
		return 1
	}
	n := 0
	for _, c := range t.children {
		n += c.CountLeaves()
	}
	return n
}

// LimitLeaves collapses t entirely into its own value (via addFeatures) if
// it has more than max leaves transitively; otherwise returns a structural
// copy unchanged. max <= 0 disables the limit.
func (t *Tree[V]) LimitLeaves(max int, addFeatures func(V) V) *Tree[V] {
	if max <= 0 || t.CountLeaves() <= max {
		return t.clone()
	}
	return Leaf[V](addFeatures(t.joinSubtreeValues()))
}

func (t *Tree[V]) clone() *Tree[V] {
	out := New[V]()
	out.value = t.value
	for e, c := range t.children {
		out.children[e] = c.clone()
	}
	return out
}

// Visit calls f for every node's raw (un-inherited) value, depth first,
// along with the path from the root at which it was found.
func (t *Tree[V]) Visit(f func(path accesspath.Path, value V)) {
	t.visit(accesspath.EmptyPath(), f)
}

func (t *Tree[V]) visit(prefix accesspath.Path, f func(accesspath.Path, V)) {
	f(prefix, t.value)
	for e, c := range t.children {
		c.visit(prefix.Append(e), f)
	}
}

// Leq implements the structural partial order: t's own value must be
// dominated, and every one of t's children must be leq the corresponding
// child of other (a missing child in other is treated as bottom).
func (t *Tree[V]) Leq(other *Tree[V]) bool {
	if !t.value.Leq(other.value) {
		return false
	}
	for e, c := range t.children {
		if !c.Leq(other.childOrEmpty(e)) {
			return false
		}
	}
	return true
}

// Join merges two trees structurally: values join at each node, children
// keys union.
func (t *Tree[V]) Join(other *Tree[V]) *Tree[V] {
	out := New[V]()
	out.value = t.value.Join(other.value)
	for e, c := range t.children {
		out.children[e] = c
	}
	for e, oc := range other.children {
		if ec, ok := out.children[e]; ok {
			out.children[e] = ec.Join(oc)
		} else {
			out.children[e] = oc
		}
	}
	return out
}

// Widen falls back to Join, per spec.md §4.4.5.
func (t *Tree[V]) Widen(other *Tree[V]) *Tree[V] { return t.Join(other) }

// CollapseInvalidPaths visits the tree top-down, feeding isValid the
// traversal accumulator and the element being descended into; when it
// reports the path invalid, that subtree is joined (via addFeatures) into
// the parent instead of being kept, per spec.md §4.3. It is a package-level
// function rather than a method because Go methods cannot introduce a type
// parameter beyond the receiver's.
func CollapseInvalidPaths[V Value[V], A any](t *Tree[V], initial A, isValid func(acc A, elem accesspath.Element) (A, bool), addFeatures func(V) V) *Tree[V] {
	out := New[V]()
	out.value = t.value
	for e, c := range t.children {
		next, ok := isValid(initial, e)
		if !ok {
			out.value = addFeatures(out.value.Join(c.joinSubtreeValues()))
			continue
		}
		out.children[e] = CollapseInvalidPaths[V, A](c, next, isValid, addFeatures)
	}
	return out
}

// ShapeWith prunes branches of self that do not appear at the corresponding
// position of mold, folding each pruned branch's value into its parent via
// onCollapse. Used to deduplicate redundant per-feature branching, per
// spec.md §4.3.
func ShapeWith[V Value[V]](self, mold *Tree[V], onCollapse func(V) V) *Tree[V] {
	out := New[V]()
	out.value = self.value
	for e, c := range self.children {
		moldChild, ok := mold.children[e]
		if !ok {
			out.value = onCollapse(out.value.Join(c.joinSubtreeValues()))
			continue
		}
		out.children[e] = ShapeWith[V](c, moldChild, onCollapse)
	}
	return out
}
