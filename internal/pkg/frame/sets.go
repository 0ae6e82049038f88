package frame

import "sort"

// StringSet is an immutable-by-convention set of strings used throughout the
// frame domain (origins, canonical names, extra traces, via-ports).
type StringSet struct {
	members map[string]bool
}

// NewStringSet builds a set from the given members.
func NewStringSet(members ...string) StringSet {
	s := StringSet{members: map[string]bool{}}
	for _, m := range members {
		s.members[m] = true
	}
	return s
}

// Contains reports whether m is in the set.
func (s StringSet) Contains(m string) bool { return s.members[m] }

// Len returns the number of members.
func (s StringSet) Len() int { return len(s.members) }

// Leq reports whether s is a subset of other.
func (s StringSet) Leq(other StringSet) bool {
	for m := range s.members {
		if !other.members[m] {
			return false
		}
	}
	return true
}

// Join returns the union of s and other.
func (s StringSet) Join(other StringSet) StringSet {
	out := map[string]bool{}
	for m := range s.members {
		out[m] = true
	}
	for m := range other.members {
		out[m] = true
	}
	return StringSet{members: out}
}

// Intersect returns the members common to s and other.
func (s StringSet) Intersect(other StringSet) StringSet {
	out := map[string]bool{}
	for m := range s.members {
		if other.members[m] {
			out[m] = true
		}
	}
	return StringSet{members: out}
}

// With returns a copy of s with elem added.
func (s StringSet) With(elem string) StringSet {
	return s.Join(NewStringSet(elem))
}

// Sorted returns the set's members in sorted order, for deterministic output.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s.members))
	for m := range s.members {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// FeatureSet models the may/always feature pair of spec.md §4.1: "inferred
// features (may/always)" and "user features (always)". May-features are
// joined by union; always-features are joined by intersection (a feature is
// "always" present only if every path agrees), following the standard
// may/always abstraction. AddAlways mirrors Frame::join_with's use of
// add_always for user features.
type FeatureSet struct {
	may    StringSet
	always StringSet
	// alwaysInitialized distinguishes "no always-features asserted yet"
	// (bottom for the always component, which is the universal set under
	// intersection) from "always-features is the empty set" (top).
	alwaysInitialized bool
}

// EmptyFeatures is the identity FeatureSet.
func EmptyFeatures() FeatureSet { return FeatureSet{} }

// NewFeatures builds a FeatureSet from explicit may/always members.
func NewFeatures(may, always []string) FeatureSet {
	return FeatureSet{
		may:               NewStringSet(may...),
		always:            NewStringSet(always...),
		alwaysInitialized: true,
	}
}

// May returns the may-feature set.
func (f FeatureSet) May() StringSet { return f.may }

// Always returns the always-feature set.
func (f FeatureSet) Always() StringSet { return f.always }

// AddMay returns a copy of f with name added to the may-set.
func (f FeatureSet) AddMay(name string) FeatureSet {
	f.may = f.may.With(name)
	return f
}

// AddAlways returns a copy of f with name added to the always-set (and the
// always-set marked initialized, e.g. as Frame::join_with does for user
// features).
func (f FeatureSet) AddAlways(name string) FeatureSet {
	f.always = f.always.With(name)
	f.alwaysInitialized = true
	return f
}

// Leq: may is subset-ordered; always is superset-ordered (more "always"
// facts asserted is a stronger, i.e. smaller, statement) the standard way
// around for an always/universal component, but here we define leq to mean
// "no less information content", matching spec.md's blanket "componentwise
// leq on may/always and set components": both components compared as sets
// under subset.
func (f FeatureSet) Leq(other FeatureSet) bool {
	return f.may.Leq(other.may) && f.always.Leq(other.always)
}

// Join unions the may-set, but intersects the always-set: a feature is
// "always" present in the joined result only if every side agrees, per the
// doc comment on FeatureSet above. An uninitialized always-set is the
// universal set under intersection (no always-facts asserted yet, so it
// imposes no constraint), not the empty set, so intersecting against it
// yields the other side's always-set unchanged.
func (f FeatureSet) Join(other FeatureSet) FeatureSet {
	always := f.always
	switch {
	case f.alwaysInitialized && other.alwaysInitialized:
		always = f.always.Intersect(other.always)
	case other.alwaysInitialized:
		always = other.always
	}
	return FeatureSet{
		may:               f.may.Join(other.may),
		always:            always,
		alwaysInitialized: f.alwaysInitialized || other.alwaysInitialized,
	}
}
