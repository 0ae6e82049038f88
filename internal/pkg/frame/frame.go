package frame

import (
	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/kind"
)

// Frame is the atom of taint (spec.md §4.1): a single annotated hop in a
// taint trace, carrying its kind, receiver-type refinement, distance to the
// nearest source/sink, origin provenance, features, via-ports, CRTEX
// canonical names, propagation output paths, and extra traces. Frame values
// are immutable; every mutator below returns a new Frame.
type Frame struct {
	kind     kind.Kind
	interval ClassInterval
	distance int

	origins StringSet

	inferredFeatures FeatureSet
	userFeatures     FeatureSet

	viaTypeOf  StringSet
	viaValueOf StringSet

	canonicalNames StringSet

	outputPaths OutputPaths
	extraTraces StringSet
}

// Leaf builds a distance-0 frame of the given kind with no other metadata.
func Leaf(k kind.Kind) Frame {
	return Frame{kind: k, interval: Unbounded(), distance: 0}
}

// NewFrame builds a frame with full field control, used by the wire decoder
// and by propagate's frame reconstruction.
func NewFrame(k kind.Kind, interval ClassInterval, distance int, origins StringSet, inferredFeatures, userFeatures FeatureSet, viaTypeOf, viaValueOf, canonicalNames StringSet, outputPaths OutputPaths, extraTraces StringSet) Frame {
	return Frame{
		kind:             k,
		interval:         interval,
		distance:         distance,
		origins:          origins,
		inferredFeatures: inferredFeatures,
		userFeatures:     userFeatures,
		viaTypeOf:        viaTypeOf,
		viaValueOf:       viaValueOf,
		canonicalNames:   canonicalNames,
		outputPaths:      outputPaths,
		extraTraces:      extraTraces,
	}
}

func (f Frame) Kind() kind.Kind             { return f.kind }
func (f Frame) Interval() ClassInterval     { return f.interval }
func (f Frame) Distance() int               { return f.distance }
func (f Frame) Origins() StringSet          { return f.origins }
func (f Frame) InferredFeatures() FeatureSet { return f.inferredFeatures }
func (f Frame) UserFeatures() FeatureSet     { return f.userFeatures }
func (f Frame) ViaTypeOf() StringSet         { return f.viaTypeOf }
func (f Frame) ViaValueOf() StringSet        { return f.viaValueOf }
func (f Frame) CanonicalNames() StringSet    { return f.canonicalNames }
func (f Frame) OutputPaths() OutputPaths     { return f.outputPaths }
func (f Frame) ExtraTraces() StringSet       { return f.extraTraces }

// IsPropagation reports whether this frame's kind is a Propagation kind,
// gating the no-op behavior of AppendToPropagationOutputPaths and
// UpdateMaximumCollapseDepth on non-propagation frames.
func (f Frame) IsPropagation() bool { return f.kind.Variant() == kind.Propagation }

// WithKind returns a copy of f with only the kind replaced; used by
// transform rewriting (apply_transform, transform_kind_with_features).
func (f Frame) WithKind(k kind.Kind) Frame {
	f.kind = k
	return f
}

// WithInterval returns a copy of f with only the class-interval context replaced.
func (f Frame) WithInterval(interval ClassInterval) Frame {
	f.interval = interval
	return f
}

// WithDistance returns a copy of f with distance replaced.
func (f Frame) WithDistance(d int) Frame {
	f.distance = d
	return f
}

// AppendToPropagationOutputPaths appends elem to the frame's output paths.
// No-op on non-propagation frames.
func (f Frame) AppendToPropagationOutputPaths(elem accesspath.Element) Frame {
	if !f.IsPropagation() {
		return f
	}
	f.outputPaths = f.outputPaths.Append(elem)
	return f
}

// UpdateMaximumCollapseDepth sets the collapse depth on all tracked output
// paths. No-op on non-propagation frames.
func (f Frame) UpdateMaximumCollapseDepth(depth int) Frame {
	if !f.IsPropagation() {
		return f
	}
	f.outputPaths = f.outputPaths.UpdateMaximumCollapseDepth(depth)
	return f
}

// AsLeaf returns a copy of f with distance reset to 0, used by
// Taint.AttachPosition to materialize inferred model entries at a
// representative source location.
func (f Frame) AsLeaf() Frame {
	f.distance = 0
	return f
}

// WithOrigin returns a copy of f with origin added to the origin set.
func (f Frame) WithOrigin(origin string) Frame {
	f.origins = f.origins.With(origin)
	return f
}

// WithCanonicalName returns a copy of f with name added to the canonical
// name set (CRTEX).
func (f Frame) WithCanonicalName(name string) Frame {
	f.canonicalNames = f.canonicalNames.With(name)
	return f
}

// WithInferredFeature returns a copy of f with name added to its inferred
// may-features, e.g. the "broadening" features collapse operations attach to
// mark a frame as having had information approximated away.
func (f Frame) WithInferredFeature(name string) Frame {
	f.inferredFeatures = f.inferredFeatures.AddMay(name)
	return f
}

// MaterializeViaTypeOf returns a copy of f with a synthetic "via-type-of"
// feature added for every name in typeNames, per spec.md §4.1
// materialize_via_type_of_ports.
func (f Frame) MaterializeViaTypeOf(typeNames ...string) Frame {
	for _, n := range typeNames {
		f.viaTypeOf = f.viaTypeOf.With(n)
	}
	return f
}

// MaterializeViaValueOf returns a copy of f with a synthetic "via-value-of"
// feature added for every constant in values.
func (f Frame) MaterializeViaValueOf(values ...string) Frame {
	for _, v := range values {
		f.viaValueOf = f.viaValueOf.With(v)
	}
	return f
}

// FilterInvalidViaFeatures drops via-ports whose argument position exceeds
// the method's arity, per spec.md §4.1 filter_invalid_via_features. validPort
// reports whether a given via-port name is valid for the method being
// analyzed.
func (f Frame) FilterInvalidViaFeatures(validPort func(name string) bool) Frame {
	f.viaTypeOf = filterSet(f.viaTypeOf, validPort)
	f.viaValueOf = filterSet(f.viaValueOf, validPort)
	return f
}

func filterSet(s StringSet, keep func(string) bool) StringSet {
	out := NewStringSet()
	for _, m := range s.Sorted() {
		if keep(m) {
			out = out.With(m)
		}
	}
	return out
}

// Leq implements the Frame partial order of spec.md §4.1: same kind,
// receiver-compatible interval, and componentwise leq on the may/always and
// set components; distance is ordered by "at least as large" (a frame that
// is farther from its source/sink carries strictly less information).
func (f Frame) Leq(other Frame) bool {
	if !f.kind.Equal(other.kind) {
		return false
	}
	if !other.interval.Subsumes(f.interval) && !f.interval.Equal(other.interval) {
		return false
	}
	if f.distance < other.distance {
		return false
	}
	return f.origins.Leq(other.origins) &&
		f.inferredFeatures.Leq(other.inferredFeatures) &&
		f.userFeatures.Leq(other.userFeatures) &&
		f.viaTypeOf.Leq(other.viaTypeOf) &&
		f.viaValueOf.Leq(other.viaValueOf) &&
		f.canonicalNames.Leq(other.canonicalNames) &&
		f.outputPaths.Leq(other.outputPaths) &&
		f.extraTraces.Leq(other.extraTraces)
}

// Join combines two frames of the same kind: intervals combine by interval
// join, distance takes the min (closer wins, a stronger bound on
// source/sink distance), features/sets union, and user features join with
// add_always semantics: every always-feature of either side stays always.
func (f Frame) Join(other Frame) Frame {
	if !f.kind.Equal(other.kind) {
		// Mismatched kinds are joined at the KindFrames layer, not here;
		// returning the receiver keeps Join total as the interface demands
		// while signaling "no-op" to a caller that violated the precondition.
		return f
	}
	distance := f.distance
	if other.distance < distance {
		distance = other.distance
	}
	userFeatures := f.userFeatures.Join(other.userFeatures)
	for _, name := range f.userFeatures.Always().Join(other.userFeatures.Always()).Sorted() {
		userFeatures = userFeatures.AddAlways(name)
	}
	return Frame{
		kind:             f.kind,
		interval:         f.interval.Join(other.interval),
		distance:         distance,
		origins:          f.origins.Join(other.origins),
		inferredFeatures: f.inferredFeatures.Join(other.inferredFeatures),
		userFeatures:     userFeatures,
		viaTypeOf:        f.viaTypeOf.Join(other.viaTypeOf),
		viaValueOf:       f.viaValueOf.Join(other.viaValueOf),
		canonicalNames:   f.canonicalNames.Join(other.canonicalNames),
		outputPaths:      f.outputPaths.Join(other.outputPaths),
		extraTraces:      f.extraTraces.Join(other.extraTraces),
	}
}
