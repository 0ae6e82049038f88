// Package environment implements the alias/points-to/taint environments of
// spec.md §4.4: MemoryLocation, MemoryLocationEnvironment, PointsToEnvironment,
// and TaintEnvironment. It is grounded on the teacher's internal/pkg/earpointer
// package (heap.go's Reference/Local/Global/Synthetic/Field vocabulary,
// state.go's abstract heap with widening at back edges), adapted from an
// ssa.Value-keyed heap abstraction into the register-agnostic
// Parameter/Field/Instruction/This vocabulary spec.md names, so this package
// stays independent of the frontend's SSA representation; internal/pkg/frontend
// is responsible for mapping ssa.Value registers to MemoryLocations.
package environment

import (
	"fmt"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
)

// LocationKind discriminates the MemoryLocation root variants of spec.md §4.
type LocationKind int

const (
	LocationParameter LocationKind = iota
	LocationField
	LocationInstruction
	LocationThis
	// LocationResult is the special RESULT_REGISTER location move-result-*
	// instructions forward (spec.md §4.4.1).
	LocationResult
)

// MemoryLocation is a symbolic heap slot: a root variant plus, for Field
// locations, the parent location and field name it was derived from.
type MemoryLocation struct {
	kind     LocationKind
	position int    // Parameter
	name     string // Field
	parent   *MemoryLocation
	id       int // Instruction
}

func Parameter(position int) MemoryLocation {
	return MemoryLocation{kind: LocationParameter, position: position}
}

func Field(parent MemoryLocation, name string) MemoryLocation {
	return MemoryLocation{kind: LocationField, parent: &parent, name: name}
}

func Instruction(id int) MemoryLocation { return MemoryLocation{kind: LocationInstruction, id: id} }

func This() MemoryLocation { return MemoryLocation{kind: LocationThis} }

func Result() MemoryLocation { return MemoryLocation{kind: LocationResult} }

func (m MemoryLocation) Kind() LocationKind { return m.kind }
func (m MemoryLocation) Position() int      { return m.position }
func (m MemoryLocation) Name() string       { return m.name }
func (m MemoryLocation) ID() int            { return m.id }

// Parent returns the location this Field location was derived from. Only
// valid when Kind() == LocationField.
func (m MemoryLocation) Parent() MemoryLocation { return *m.parent }

// Root returns the non-Field ancestor this location is ultimately rooted at,
// per spec.md's "a location is a (root-location, path) pair".
func (m MemoryLocation) Root() MemoryLocation {
	cur := m
	for cur.kind == LocationField {
		cur = *cur.parent
	}
	return cur
}

func (m MemoryLocation) Equal(other MemoryLocation) bool {
	if m.kind != other.kind {
		return false
	}
	switch m.kind {
	case LocationParameter:
		return m.position == other.position
	case LocationField:
		return m.name == other.name && m.parent.Equal(*other.parent)
	case LocationInstruction:
		return m.id == other.id
	default:
		return true
	}
}

func (m MemoryLocation) String() string {
	switch m.kind {
	case LocationParameter:
		return fmt.Sprintf("Parameter(%d)", m.position)
	case LocationField:
		return fmt.Sprintf("%s.%s", m.parent.String(), m.name)
	case LocationInstruction:
		return fmt.Sprintf("Instruction(%d)", m.id)
	case LocationThis:
		return "This"
	case LocationResult:
		return "$result"
	default:
		return "<invalid-location>"
	}
}

// key renders a string suitable for use as a map/partition key; two equal
// locations always render the same key.
func (m MemoryLocation) key() string { return m.String() }

// Path decomposes m into its (root, path) pair, per spec.md's "a location is
// a (root-location, path) pair": it returns the chain of field names
// traversed from Root() down to m.
func (m MemoryLocation) Path() accesspath.Path {
	if m.kind != LocationField {
		return accesspath.EmptyPath()
	}
	return m.parent.Path().Append(accesspath.Element(m.name))
}
