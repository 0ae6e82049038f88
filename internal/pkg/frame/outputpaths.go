package frame

import "github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"

// OutputPaths tracks, for a propagation frame, the set of access paths the
// propagation writes to and the maximum collapse depth configured for each
// (spec.md §4.1, "output-paths tree (propagations only)"). It is meaningful
// only on Propagation-kind frames; append/update are no-ops otherwise (see
// Frame.AppendToPropagationOutputPaths).
type OutputPaths struct {
	depths map[string]int
	paths  map[string]accesspath.Path
}

// EmptyOutputPaths is the identity value.
func EmptyOutputPaths() OutputPaths { return OutputPaths{} }

// SingletonOutputPath builds an OutputPaths with one path at the given
// maximum collapse depth, e.g. the initial "receiver" propagation frame of
// spec.md §4.4.3 whose output_paths is `{ ε : max_collapse_depth }`.
func SingletonOutputPath(path accesspath.Path, maxCollapseDepth int) OutputPaths {
	return OutputPaths{
		depths: map[string]int{path.String(): maxCollapseDepth},
		paths:  map[string]accesspath.Path{path.String(): path},
	}
}

// Append returns a copy of o with elem appended to every tracked path.
func (o OutputPaths) Append(elem accesspath.Element) OutputPaths {
	if len(o.paths) == 0 {
		return o
	}
	next := OutputPaths{depths: map[string]int{}, paths: map[string]accesspath.Path{}}
	for k, p := range o.paths {
		np := p.Append(elem)
		next.paths[np.String()] = np
		next.depths[np.String()] = o.depths[k]
	}
	return next
}

// UpdateMaximumCollapseDepth returns a copy of o with every tracked path's
// collapse depth set to depth.
func (o OutputPaths) UpdateMaximumCollapseDepth(depth int) OutputPaths {
	if len(o.paths) == 0 {
		return o
	}
	next := OutputPaths{depths: map[string]int{}, paths: o.paths}
	for k := range o.paths {
		next.depths[k] = depth
	}
	return next
}

// Leq reports whether every path tracked by o is tracked by other with a
// collapse depth at least as large (more permissive).
func (o OutputPaths) Leq(other OutputPaths) bool {
	for k, d := range o.depths {
		od, ok := other.depths[k]
		if !ok || od < d {
			return false
		}
	}
	return true
}

// Join unions the tracked paths, taking the max collapse depth when both
// sides track the same path.
func (o OutputPaths) Join(other OutputPaths) OutputPaths {
	out := OutputPaths{depths: map[string]int{}, paths: map[string]accesspath.Path{}}
	for k, p := range o.paths {
		out.paths[k] = p
		out.depths[k] = o.depths[k]
	}
	for k, p := range other.paths {
		out.paths[k] = p
		if d, ok := out.depths[k]; !ok || other.depths[k] > d {
			out.depths[k] = other.depths[k]
		}
	}
	return out
}

// Paths returns the tracked paths with their collapse depths.
func (o OutputPaths) Paths() map[string]int {
	out := make(map[string]int, len(o.depths))
	for k, v := range o.depths {
		out[k] = v
	}
	return out
}

// Empty reports whether no paths are tracked.
func (o OutputPaths) Empty() bool { return len(o.paths) == 0 }

// OutputPathEntry pairs a tracked output path with its collapse depth.
type OutputPathEntry struct {
	Path  accesspath.Path
	Depth int
}

// Entries returns every tracked path alongside its collapse depth, used by
// the propagation step to materialize each output path's destination.
func (o OutputPaths) Entries() []OutputPathEntry {
	out := make([]OutputPathEntry, 0, len(o.paths))
	for k, p := range o.paths {
		out = append(out, OutputPathEntry{Path: p, Depth: o.depths[k]})
	}
	return out
}
