package environment

// PointsToEnvironment is the tree-shaped points-to relation of spec.md
// §4.4.1: for each base location and field name, the set of locations it may
// point to. Unlike the teacher's earpointer package (which maintains
// union-find equivalence classes of mutually-aliased references),
// spec.md calls for a tree-shaped relation, so this adapts earpointer's
// FieldMap vocabulary (heap.go's Field/FieldMap) onto a plain
// location -> field -> locations map, with a depth-capped resolver standing
// in for earpointer's widening-at-back-edges (state.go's union-find merge)
// to guarantee termination on cyclic structures.
type PointsToEnvironment struct {
	edges map[string]map[string]LocationSet
}

func NewPointsToEnvironment() *PointsToEnvironment {
	return &PointsToEnvironment{edges: map[string]map[string]LocationSet{}}
}

func (p *PointsToEnvironment) fields(base MemoryLocation) map[string]LocationSet {
	k := base.key()
	f, ok := p.edges[k]
	if !ok {
		f = map[string]LocationSet{}
		p.edges[k] = f
	}
	return f
}

// Write records that base's field points to target. strong=true discards
// whatever base.field previously pointed to (a strong update, guarded by the
// caller on "is this write target a singleton location"); strong=false
// merges target into the existing set (spec.md §4.4.1's iput/aput rule).
func (p *PointsToEnvironment) Write(base MemoryLocation, field string, target MemoryLocation, strong bool) {
	fields := p.fields(base)
	if strong {
		fields[field] = NewLocationSet(target)
		return
	}
	fields[field] = fields[field].Join(NewLocationSet(target))
}

// Aliases returns the locations base.field may point to.
func (p *PointsToEnvironment) Aliases(base MemoryLocation, field string) LocationSet {
	return p.edges[base.key()][field]
}

// maxResolveDepth caps how many base locations ResolveChain consults at each
// field step; bases past the cap are ignored. The recursion itself follows
// the location's own Field nesting and is not bounded by this constant.
const maxResolveDepth = 64

// ResolveChain follows a Field(parent, name) location's parent chain through
// the points-to edges to compute the concrete set of heap locations it may
// denote, used by TaintEnvironment.DeepRead/DeepWrite to read/write "through"
// aliases (spec.md §4.4.1).
func (p *PointsToEnvironment) ResolveChain(loc MemoryLocation) LocationSet {
	if loc.Kind() != LocationField {
		return NewLocationSet(loc)
	}
	bases := p.ResolveChain(loc.Parent())
	out := NewLocationSet()
	depth := 0
	for _, base := range bases.Locations() {
		if depth >= maxResolveDepth {
			break
		}
		out = out.Join(p.Aliases(base, loc.Name()))
		depth++
	}
	if out.Len() == 0 {
		// No recorded alias yet: the location itself is the best known
		// approximation (e.g. the first read of a field before any write).
		return NewLocationSet(loc)
	}
	return out
}

// Leq implements the pointwise partial order over (base, field) edges.
func (p *PointsToEnvironment) Leq(other *PointsToEnvironment) bool {
	for base, fields := range p.edges {
		ofields, ok := other.edges[base]
		if !ok {
			return false
		}
		for field, set := range fields {
			if !set.Leq(ofields[field]) {
				return false
			}
		}
	}
	return true
}

// Join unions the points-to edges.
func (p *PointsToEnvironment) Join(other *PointsToEnvironment) *PointsToEnvironment {
	out := NewPointsToEnvironment()
	for base, fields := range p.edges {
		merged := map[string]LocationSet{}
		for field, set := range fields {
			merged[field] = set
		}
		out.edges[base] = merged
	}
	for base, fields := range other.edges {
		merged := out.edges[base]
		if merged == nil {
			merged = map[string]LocationSet{}
			out.edges[base] = merged
		}
		for field, set := range fields {
			merged[field] = merged[field].Join(set)
		}
	}
	return out
}

// Widen merges back edges by falling back to Join: because ResolveChain is
// already depth-capped, repeated widening at a loop header converges once
// the edge set stabilizes, matching spec.md §4.4.5's "widening resolver...
// merges back edges that would otherwise cause divergence".
func (p *PointsToEnvironment) Widen(other *PointsToEnvironment) *PointsToEnvironment {
	return p.Join(other)
}
