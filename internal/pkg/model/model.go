// Package model implements Model and Registry (spec.md §4.7): the per-method
// taint summary and the concurrent map every worker reads from and writes to
// during the interprocedural fixpoint. Grounded on the teacher's
// internal/pkg/config package for the "load once, read many times" shape of
// a per-entity configuration record, generalized here to a mutable,
// concurrently-joined analysis result rather than a static read-only config.
package model

import (
	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/frame"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/tree"
)

// Mode is a bitmask of per-method analysis modes (spec.md §4.4.5, §5).
type Mode uint32

const (
	TaintInTaintOut Mode = 1 << iota
	TaintInTaintThis
	SkipAnalysis
	AddViaObscureFeature
	NoJoinVirtualOverrides
)

func (m Mode) Has(flag Mode) bool { return m&flag != 0 }
func (m Mode) With(flag Mode) Mode { return m | flag }
func (m Mode) Join(other Mode) Mode { return m | other }

// DegradedToTaintThrough is the conservative summary a method's Model is set
// to when its intra-procedural fixpoint does not settle within the transfer
// package's per-method iteration budget (spec.md §4.4.5), so the rest of the
// program still sees a safe approximation.
const DegradedToTaintThrough = TaintInTaintOut | TaintInTaintThis | SkipAnalysis | AddViaObscureFeature | NoJoinVirtualOverrides

// Frozen marks which components of a Model are frozen (not to be further
// inferred), e.g. because they came from a user-provided models.json entry.
type Frozen uint32

const (
	FrozenGenerations Frozen = 1 << iota
	FrozenParameterSources
	FrozenSinks
	FrozenPropagations
)

func (f Frozen) Has(flag Frozen) bool { return f&flag != 0 }

// Model is the per-method taint summary of spec.md §3/§4.7.
type Model struct {
	Generations      *tree.AccessPathTree[frame.Taint]
	ParameterSources *tree.AccessPathTree[frame.Taint]
	Sinks            *tree.AccessPathTree[frame.Taint]
	Propagations     *tree.AccessPathTree[frame.Taint]
	CallEffectSources *tree.AccessPathTree[frame.Taint]
	CallEffectSinks   *tree.AccessPathTree[frame.Taint]

	Modes  Mode
	Frozen Frozen
}

// New builds an empty Model.
func New() *Model {
	return &Model{
		Generations:       tree.NewAccessPathTree[frame.Taint](),
		ParameterSources:  tree.NewAccessPathTree[frame.Taint](),
		Sinks:             tree.NewAccessPathTree[frame.Taint](),
		Propagations:      tree.NewAccessPathTree[frame.Taint](),
		CallEffectSources: tree.NewAccessPathTree[frame.Taint](),
		CallEffectSinks:   tree.NewAccessPathTree[frame.Taint](),
	}
}

// Degraded builds the conservative "abort" summary of spec.md §4.4.5.
func Degraded() *Model {
	m := New()
	m.Modes = DegradedToTaintThrough
	return m
}

// writeInto writes value at the access path into dst unless dst is frozen by
// flag, which freezes it the same way `models.json`-provided entries do
// (spec.md §3: "Frozen bits gate further inference").
func writeInto(dst *tree.AccessPathTree[frame.Taint], frozen Frozen, flag Frozen, path accesspath.AccessPath, value frame.Taint, kind tree.WriteKind) {
	if frozen.Has(flag) {
		return
	}
	dst.Write(path, value, kind)
}

func (m *Model) AddGeneration(path accesspath.AccessPath, value frame.Taint) {
	writeInto(m.Generations, m.Frozen, FrozenGenerations, path, value, tree.Weak)
}

func (m *Model) AddParameterSource(path accesspath.AccessPath, value frame.Taint) {
	writeInto(m.ParameterSources, m.Frozen, FrozenParameterSources, path, value, tree.Weak)
}

func (m *Model) AddSink(path accesspath.AccessPath, value frame.Taint) {
	writeInto(m.Sinks, m.Frozen, FrozenSinks, path, value, tree.Weak)
}

func (m *Model) AddPropagation(path accesspath.AccessPath, value frame.Taint) {
	writeInto(m.Propagations, m.Frozen, FrozenPropagations, path, value, tree.Weak)
}

// Leq implements the componentwise partial order of spec.md §4.7.
func (m *Model) Leq(other *Model) bool {
	return m.Generations.Leq(other.Generations) &&
		m.ParameterSources.Leq(other.ParameterSources) &&
		m.Sinks.Leq(other.Sinks) &&
		m.Propagations.Leq(other.Propagations) &&
		m.CallEffectSources.Leq(other.CallEffectSources) &&
		m.CallEffectSinks.Leq(other.CallEffectSinks)
}

// Join combines two Models: componentwise join of every tree, union of modes
// and frozen bits, per spec.md §4.7.
func (m *Model) Join(other *Model) *Model {
	return &Model{
		Generations:       m.Generations.Join(other.Generations),
		ParameterSources:  m.ParameterSources.Join(other.ParameterSources),
		Sinks:             m.Sinks.Join(other.Sinks),
		Propagations:      m.Propagations.Join(other.Propagations),
		CallEffectSources: m.CallEffectSources.Join(other.CallEffectSources),
		CallEffectSinks:   m.CallEffectSinks.Join(other.CallEffectSinks),
		Modes:             m.Modes.Join(other.Modes),
		Frozen:            m.Frozen | other.Frozen,
	}
}

// Widen falls back to Join, per spec.md §4.4.5.
func (m *Model) Widen(other *Model) *Model { return m.Join(other) }

// Heuristics bounds the growing dimensions of a Model, applied by
// Approximate after each per-method fixpoint step (spec.md §4.7, §5).
type Heuristics struct {
	MaxInputPathDepth            int `json:"max_input_path_depth"`
	MaxInputPathLeaves           int `json:"max_input_path_leaves"`
	MaxOutputPathDepth           int `json:"max_output_path_depth"`
	MaxOutputPathLeaves          int `json:"max_output_path_leaves"`
	PropagationMaxCollapseDepth  int `json:"propagation_max_collapse_depth"`
	GenerationMaxPortSize        int `json:"generation_max_port_size"`
	SinkMaxPortSize              int `json:"sink_max_port_size"`
	MaxNumberIterations          int `json:"max_number_iterations"`

	// MaxSourceSinkDistance bounds how many call hops a source may travel
	// through before a rule match against a sink is no longer reported
	// (transfer.Issue.ArgIndex/Position's distance budget).
	MaxSourceSinkDistance int `json:"max_source_sink_distance"`
}

// addBroadeningFeature is passed to the tree domain's collapse operations as
// the feature-joining callback; it marks every frame in the collapsed value
// with a feature recording which bound was exceeded, so downstream readers
// know the result is approximate (spec.md §5 "joining a configured
// 'broadening' feature into the collapsed frames"), and resets the collapse
// depth to zero on propagation frames (spec.md §4.3: "on collapse, join
// features into the collapsed taint and reset collapse_depth to zero on
// propagation frames").
func addBroadeningFeature(featureName string) func(frame.Taint) frame.Taint {
	return func(t frame.Taint) frame.Taint {
		return t.Transform(func(f frame.Frame) (frame.Frame, bool) {
			f = f.WithInferredFeature(featureName)
			if f.IsPropagation() {
				f = f.UpdateMaximumCollapseDepth(0)
			}
			return f, true
		})
	}
}

// Approximate collapses/limits the generations, parameter sources, sinks and
// propagations of m according to heuristics, per spec.md §4.7; the
// call-effect trees are carried over unchanged. It operates tree by tree,
// root by root.
func (m *Model) Approximate(h Heuristics) *Model {
	collapseInput := func(apt *tree.AccessPathTree[frame.Taint]) *tree.AccessPathTree[frame.Taint] {
		out := tree.NewAccessPathTree[frame.Taint]()
		for _, root := range apt.Roots() {
			t := apt.Tree(root)
			if h.MaxInputPathDepth > 0 {
				t = t.CollapseDeeperThan(h.MaxInputPathDepth, addBroadeningFeature("broadening:input-depth"))
			}
			if h.MaxInputPathLeaves > 0 {
				t = t.LimitLeaves(h.MaxInputPathLeaves, addBroadeningFeature("broadening:input-leaves"))
			}
			out.SetTree(root, t)
		}
		return out
	}
	collapseOutput := func(apt *tree.AccessPathTree[frame.Taint]) *tree.AccessPathTree[frame.Taint] {
		out := tree.NewAccessPathTree[frame.Taint]()
		for _, root := range apt.Roots() {
			t := apt.Tree(root)
			if h.MaxOutputPathDepth > 0 {
				t = t.CollapseDeeperThan(h.MaxOutputPathDepth, addBroadeningFeature("broadening:output-depth"))
			}
			if h.MaxOutputPathLeaves > 0 {
				t = t.LimitLeaves(h.MaxOutputPathLeaves, addBroadeningFeature("broadening:output-leaves"))
			}
			out.SetTree(root, t)
		}
		return out
	}

	out := &Model{
		Generations:       collapseInput(m.Generations),
		ParameterSources:  collapseInput(m.ParameterSources),
		Sinks:             collapseInput(m.Sinks),
		Propagations:      collapseOutput(m.Propagations),
		CallEffectSources: m.CallEffectSources,
		CallEffectSinks:   m.CallEffectSinks,
		Modes:             m.Modes,
		Frozen:            m.Frozen,
	}
	return out
}

// CollapseInvalidPaths prunes access paths from the generations, parameter
// sources and sinks that are not reachable through the method's type
// information, per spec.md §4.7; propagations and the call-effect trees are
// returned unchanged.
// isValid reports, given the Go type reached so far and the next path
// element, whether that element denotes a real field/index of that type;
// the frontend adapter supplies it from the method's parameter/return types.
func (m *Model) CollapseInvalidPaths(isValid func(typ interface{}, elem accesspath.Element) (interface{}, bool), typeOf func(root accesspath.Root) interface{}) *Model {
	prune := func(apt *tree.AccessPathTree[frame.Taint]) *tree.AccessPathTree[frame.Taint] {
		out := tree.NewAccessPathTree[frame.Taint]()
		for _, root := range apt.Roots() {
			t := apt.Tree(root)
			pruned := tree.CollapseInvalidPaths[frame.Taint, interface{}](t, typeOf(root), isValid, func(v frame.Taint) frame.Taint { return v })
			out.SetTree(root, pruned)
		}
		return out
	}
	return &Model{
		Generations:       prune(m.Generations),
		ParameterSources:  prune(m.ParameterSources),
		Sinks:             prune(m.Sinks),
		Propagations:      m.Propagations,
		CallEffectSources: m.CallEffectSources,
		CallEffectSinks:   m.CallEffectSinks,
		Modes:             m.Modes,
		Frozen:            m.Frozen,
	}
}
