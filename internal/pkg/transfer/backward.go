package transfer

import (
	"golang.org/x/tools/go/ssa"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/callinfo"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/environment"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/frame"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/kind"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/model"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/tree"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/utils"
)

// BackwardTaintState is the BackwardTaintEnvironment of spec.md §4.4.3: the
// same Taint lattice, read "sink-style" — the value recorded at a location
// is what that location's value will eventually flow into, discovered by
// walking a block's instructions in reverse.
type BackwardTaintState struct {
	Taint *environment.TaintEnvironment
}

func NewBackwardTaintState() *BackwardTaintState {
	return &BackwardTaintState{Taint: environment.NewTaintEnvironment()}
}

func (s *BackwardTaintState) Leq(other *BackwardTaintState) bool { return s.Taint.Leq(other.Taint) }

func (s *BackwardTaintState) Join(other *BackwardTaintState) *BackwardTaintState {
	return &BackwardTaintState{Taint: s.Taint.Join(other.Taint)}
}

func (s *BackwardTaintState) Widen(other *BackwardTaintState) *BackwardTaintState {
	return &BackwardTaintState{Taint: s.Taint.Widen(other.Taint)}
}

// seedPropagationFrame builds the "local <port>" propagation frame of
// spec.md §4.4.3: distance 0, output_paths {ε : maxCollapseDepth}.
func seedPropagationFrame(rootName string, maxCollapseDepth int) frame.Frame {
	return frame.NewFrame(
		kind.NewPropagation(rootName),
		frame.Unbounded(),
		0,
		frame.NewStringSet(),
		frame.EmptyFeatures(),
		frame.EmptyFeatures(),
		frame.NewStringSet(),
		frame.NewStringSet(),
		frame.NewStringSet(),
		frame.SingletonOutputPath(accesspath.EmptyPath(), maxCollapseDepth),
		frame.NewStringSet(),
	)
}

// SeedBackwardEntry installs the initial propagation frames of spec.md
// §4.4.3: the receiver always, plus every object-typed argument when
// propagateAcrossArguments is enabled, unless m's Propagations component is
// frozen (a user-provided model that should not be further inferred).
func SeedBackwardEntry(state *BackwardTaintState, fn *ssa.Function, m *model.Model, propagateAcrossArguments bool, maxCollapseDepth int) {
	if m.Frozen.Has(model.FrozenPropagations) {
		return
	}
	for i, p := range fn.Params {
		isReceiver := fn.Signature.Recv() != nil && i == 0
		if !isReceiver && !propagateAcrossArguments {
			continue
		}
		rootName := accesspath.Argument(uint32(i)).String()
		if isReceiver {
			rootName = accesspath.Receiver().String()
		}
		loc := environment.Parameter(i)
		if isReceiver {
			loc = environment.This()
		}
		single := frame.SingleFrame(frame.NoCallee(), callinfo.DeclarationInfo(), 0, accesspath.Leaf(), seedPropagationFrame(rootName, maxCollapseDepth))
		state.Taint.Write(loc, single, tree.Weak)
		_ = p
	}
}

// StepBackwardTaint applies one instruction's backward rules to state,
// walking field projections and calls in reverse so that sink-consumption
// discovered downstream is attributed back to the method's own ports
// (spec.md §4.4.3's "propagate_output_path appends the traversed element to
// each frame's output_paths").
func StepBackwardTaint(alias *AliasState, state *BackwardTaintState, registry *model.Registry[string], overrides OverrideResolver, instr ssa.Instruction) {
	switch v := instr.(type) {
	case *ssa.FieldAddr:
		_, _, name := utils.DecomposeField(v.X.Type(), v.Field)
		propagateFieldBackward(alias, state, v, v.X, name)

	case *ssa.Field:
		_, _, name := utils.DecomposeField(v.X.Type(), v.Field)
		propagateFieldBackward(alias, state, v, v.X, name)

	case *ssa.Store:
		var sinkTaint frame.Taint
		for _, loc := range alias.Registers.Get(v.Addr).Locations() {
			sinkTaint = sinkTaint.Join(state.Taint.DeepRead(alias.Points, loc))
		}
		if sinkTaint.IsBottom() {
			return
		}
		for _, loc := range alias.Registers.Get(v.Val).Locations() {
			state.Taint.DeepWrite(alias.Points, loc, sinkTaint, tree.Weak)
		}

	case *ssa.Call:
		stepCallBackward(alias, state, registry, overrides, v)
	}
}

// propagateFieldBackward attributes backward taint already present on a
// field-projection register back onto the base register's location, with
// the field name appended to every output path (propagate_output_path).
func propagateFieldBackward(alias *AliasState, state *BackwardTaintState, projected ssa.Value, base ssa.Value, fieldName string) {
	var taintAtField frame.Taint
	for _, loc := range alias.Registers.Get(projected).Locations() {
		taintAtField = taintAtField.Join(state.Taint.DeepRead(alias.Points, loc))
	}
	if taintAtField.IsBottom() {
		return
	}
	withElement := taintAtField.Transform(func(f frame.Frame) (frame.Frame, bool) {
		return f.AppendToPropagationOutputPaths(accesspath.Element(fieldName)), true
	})
	for _, loc := range alias.Registers.Get(base).Locations() {
		state.Taint.DeepWrite(alias.Points, loc, withElement, tree.Weak)
	}
}

// stepCallBackward mirrors stepCall's callee resolution for the backward
// pass: a static callee looks up its own Model directly, and an invoke-mode
// call resolves CHA's override set through the same resolveVirtualModel
// helper the forward pass uses, instead of silently skipping every virtual
// call the way an unresolved-callee fallback would.
func stepCallBackward(alias *AliasState, state *BackwardTaintState, registry *model.Registry[string], overrides OverrideResolver, call *ssa.Call) {
	common := call.Common()
	callee := common.StaticCallee()

	var calleeModel *model.Model
	switch {
	case callee != nil:
		calleeModel = registry.Get(MethodID(callee))
	case common.IsInvoke():
		calleeModel = resolveVirtualModel(registry, overrides, call, common.Method.FullName())
	default:
		return
	}

	args := calleeArguments(common)
	for i, arg := range args {
		inputRoot := accesspath.Argument(uint32(i))
		sinks := calleeModel.Sinks.Tree(inputRoot).Value()
		if sinks.IsBottom() {
			continue
		}
		for _, loc := range alias.Registers.Get(arg).Locations() {
			state.Taint.DeepWrite(alias.Points, loc, sinks, tree.Weak)
		}
	}
}
