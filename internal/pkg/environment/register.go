package environment

// LocationSet is a set of MemoryLocations, keyed internally by their
// rendered string so MemoryLocation need not be Go-comparable beyond that.
type LocationSet struct {
	members map[string]MemoryLocation
}

func NewLocationSet(locs ...MemoryLocation) LocationSet {
	s := LocationSet{members: map[string]MemoryLocation{}}
	for _, l := range locs {
		s.members[l.key()] = l
	}
	return s
}

func (s LocationSet) Contains(l MemoryLocation) bool {
	_, ok := s.members[l.key()]
	return ok
}

func (s LocationSet) Len() int { return len(s.members) }

func (s LocationSet) With(l MemoryLocation) LocationSet {
	return s.Join(NewLocationSet(l))
}

func (s LocationSet) Leq(other LocationSet) bool {
	for k := range s.members {
		if _, ok := other.members[k]; !ok {
			return false
		}
	}
	return true
}

func (s LocationSet) Join(other LocationSet) LocationSet {
	out := map[string]MemoryLocation{}
	for k, v := range s.members {
		out[k] = v
	}
	for k, v := range other.members {
		out[k] = v
	}
	return LocationSet{members: out}
}

// Locations returns the set's members in unspecified order.
func (s LocationSet) Locations() []MemoryLocation {
	out := make([]MemoryLocation, 0, len(s.members))
	for _, v := range s.members {
		out = append(out, v)
	}
	return out
}

// MemoryLocationEnvironment is the register -> set-of-MemoryLocations map of
// spec.md §4.4.1. Register is left generic (rather than hardcoded to
// ssa.Value) so this package stays independent of the frontend's IR; the
// frontend adapter instantiates it with its own register type.
type MemoryLocationEnvironment[Register comparable] struct {
	byRegister map[Register]LocationSet
}

func NewMemoryLocationEnvironment[Register comparable]() *MemoryLocationEnvironment[Register] {
	return &MemoryLocationEnvironment[Register]{byRegister: map[Register]LocationSet{}}
}

// Bind performs a strong write: reg now points only at loc (e.g. load-param,
// new-instance, new-array per spec.md §4.4.1).
func (e *MemoryLocationEnvironment[Register]) Bind(reg Register, loc MemoryLocation) {
	e.byRegister[reg] = NewLocationSet(loc)
}

// Merge performs a weak write: loc is added to reg's existing location set.
func (e *MemoryLocationEnvironment[Register]) Merge(reg Register, loc MemoryLocation) {
	e.byRegister[reg] = e.Get(reg).With(loc)
}

// Get returns the set of locations reg may denote.
func (e *MemoryLocationEnvironment[Register]) Get(reg Register) LocationSet {
	return e.byRegister[reg]
}

// Leq implements the pointwise partial order.
func (e *MemoryLocationEnvironment[Register]) Leq(other *MemoryLocationEnvironment[Register]) bool {
	for r, s := range e.byRegister {
		if !s.Leq(other.Get(r)) {
			return false
		}
	}
	return true
}

// Join unions the location sets register by register.
func (e *MemoryLocationEnvironment[Register]) Join(other *MemoryLocationEnvironment[Register]) *MemoryLocationEnvironment[Register] {
	out := NewMemoryLocationEnvironment[Register]()
	for r, s := range e.byRegister {
		out.byRegister[r] = s
	}
	for r, s := range other.byRegister {
		out.byRegister[r] = out.Get(r).Join(s)
	}
	return out
}

// Widen falls back to Join; alias sets are bounded by the program's static
// field/parameter vocabulary so they stabilize without a distinct widening
// operator, per spec.md §4.4.5.
func (e *MemoryLocationEnvironment[Register]) Widen(other *MemoryLocationEnvironment[Register]) *MemoryLocationEnvironment[Register] {
	return e.Join(other)
}
