package accesspath

import "strings"

// AccessPath pairs a Root with the Path of field/index accesses performed on
// it. The lattice orientation (spec.md §4.1) is that more specific paths are
// *smaller*: a ≤ b iff same root and b.path is a prefix of a.path.
type AccessPath struct {
	root Root
	path Path
}

// New constructs an AccessPath from a root and a path.
func New(root Root, path Path) AccessPath {
	return AccessPath{root: root, path: path}
}

// Root returns the access path's root.
func (a AccessPath) Root() Root { return a.root }

// Path returns the access path's path.
func (a AccessPath) Path() Path { return a.path }

// Extend returns a new AccessPath with elem appended to the path.
func (a AccessPath) Extend(elem Element) AccessPath {
	return AccessPath{root: a.root, path: a.path.Append(elem)}
}

// Truncate returns a new AccessPath whose path is truncated to n elements.
func (a AccessPath) Truncate(n int) AccessPath {
	return AccessPath{root: a.root, path: a.path.Truncate(n)}
}

// Leq implements the AccessPath partial order: same root, and other.path is
// a prefix of a.path (a is at least as specific as other).
func (a AccessPath) Leq(other AccessPath) bool {
	return a.root.Equal(other.root) && other.path.IsPrefixOf(a.path)
}

// JoinWith requires the same root; it replaces a's path with the longest
// common prefix of a.path and other.path, i.e. moves up the lattice to the
// nearest common generalization.
func (a AccessPath) JoinWith(other AccessPath) AccessPath {
	if !a.root.Equal(other.root) {
		panic("accesspath: JoinWith requires matching roots")
	}
	return AccessPath{root: a.root, path: a.path.ReduceToCommonPrefix(other.path)}
}

// Equal reports structural equality of root and path.
func (a AccessPath) Equal(other AccessPath) bool {
	return a.root.Equal(other.root) && a.path.Equal(other.path)
}

// String renders "<root>.<elem>.<elem>..." per the grammar of spec.md §6.
func (a AccessPath) String() string {
	return a.root.String() + a.path.String()
}

// Parse is the inverse of String: it splits off the Root token (which
// never itself contains '.') and parses the remaining dot-separated
// segments as path Elements, per spec.md §6's "access-path string grammar
// (Return | Leaf | Anchor | Producer | Argument(<int>) optionally
// followed by .field segments)".
func Parse(s string) (AccessPath, error) {
	rootPart, rest, hasRest := strings.Cut(s, ".")
	root, err := ParseRoot(rootPart)
	if err != nil {
		return AccessPath{}, err
	}
	if !hasRest || rest == "" {
		return New(root, EmptyPath()), nil
	}
	segments := strings.Split(rest, ".")
	elements := make([]Element, len(segments))
	for i, segment := range segments {
		elements[i] = Element(segment)
	}
	return New(root, PathOf(elements...)), nil
}
