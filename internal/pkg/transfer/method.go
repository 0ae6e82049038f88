package transfer

import (
	"golang.org/x/tools/go/ssa"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/frame"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/model"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/tree"
)

// wideningThreshold is the iteration count after which block-merge joins
// widen instead of join, per spec.md §4.4.5 ("widen at back edges").
const wideningThreshold = 3

// defaultMaxIterations bounds every per-method fixpoint (Heuristics is not
// consulted here), standing in for
// maximum_method_analysis_time: exceeding it degrades the method's Model
// rather than looping forever (spec.md §4.4.5).
const defaultMaxIterations = 50

// AnalyzeFunctionResult is what one call to AnalyzeFunction contributes
// toward the method's Model: its inferred return/thrown taint, its
// discovered propagations (via the backward pass), and any issue candidates
// found at call sites.
type AnalyzeFunctionResult struct {
	ReturnTaint frame.Taint
	ThrownTaint frame.Taint
	Backward    *BackwardTaintState
	Issues      []Issue
	Degraded    bool
}

// seedForward builds the entry ForwardTaintState for fn: each parameter root
// starts with the taint previous's generations/parameter_sources project
// onto that root (spec.md §4.4.2).
func seedForward(fn *ssa.Function, previous *model.Model) *ForwardTaintState {
	state := NewForwardTaintState()
	alias := SeedParameters(fn)
	for i := range fn.Params {
		root := accesspath.Argument(uint32(i))
		loc := alias.Registers.Get(fn.Params[i]).Locations()
		taint := previous.Generations.Tree(root).Value().Join(previous.ParameterSources.Tree(root).Value())
		if taint.IsBottom() {
			continue
		}
		for _, l := range loc {
			state.Taint.Write(l, taint, tree.Strong)
		}
	}
	return state
}

// AnalyzeFunction runs the forward alias+taint fixpoint and the backward
// taint pass over fn's control-flow graph, per spec.md §4.4.5: compute
// entry/exit environments per block, join at merge points, widen at back
// edges once the iteration count passes wideningThreshold, and degrade if
// the fixpoint has not settled within maxIterations (a per-method
// instruction-budget stand-in for maximum_method_analysis_time).
func AnalyzeFunction(fn *ssa.Function, registry *model.Registry[string], previous *model.Model, maxDistance int, ctx AnalysisContext) AnalyzeFunctionResult {
	if len(fn.Blocks) == 0 {
		return AnalyzeFunctionResult{ReturnTaint: frame.EmptyTaint(), ThrownTaint: frame.EmptyTaint(), Backward: NewBackwardTaintState()}
	}

	maxIterations := defaultMaxIterations

	aliasExit := make([]*AliasState, len(fn.Blocks))
	forwardExit := make([]*ForwardTaintState, len(fn.Blocks))

	var issues []Issue
	report := func(i Issue) { issues = append(issues, i) }

	degraded := false
	changed := true
	for iteration := 1; changed; iteration++ {
		if iteration > maxIterations {
			degraded = true
			break
		}
		changed = false
		for _, b := range fn.Blocks {
			a, f := mergeForwardPredecessors(b, fn, previous, aliasExit, forwardExit, iteration)
			for _, instr := range b.Instrs {
				StepAlias(a, instr)
				StepForwardTaint(a, f, registry, report, ctx, instr, maxDistance)
			}
			if !settled(aliasExit[b.Index], forwardExit[b.Index], a, f) {
				changed = true
			}
			aliasExit[b.Index] = a
			forwardExit[b.Index] = f
		}
	}

	returnTaint := frame.EmptyTaint()
	thrownTaint := frame.EmptyTaint()
	for _, st := range forwardExit {
		if st == nil {
			continue
		}
		returnTaint = returnTaint.Join(st.ReturnTaint)
		thrownTaint = thrownTaint.Join(st.ThrownTaint)
	}

	backward := runBackward(fn, registry, previous, aliasExit, ctx.Overrides)

	return AnalyzeFunctionResult{
		ReturnTaint: returnTaint,
		ThrownTaint: thrownTaint,
		Backward:    backward,
		Issues:      issues,
		Degraded:    degraded,
	}
}

func mergeForwardPredecessors(b *ssa.BasicBlock, fn *ssa.Function, previous *model.Model, aliasExit []*AliasState, forwardExit []*ForwardTaintState, iteration int) (*AliasState, *ForwardTaintState) {
	if len(b.Preds) == 0 {
		return SeedParameters(fn), seedForward(fn, previous)
	}
	a := aliasExit[b.Preds[0].Index]
	f := forwardExit[b.Preds[0].Index]
	if a == nil {
		a = NewAliasState()
	}
	if f == nil {
		f = NewForwardTaintState()
	}
	for _, p := range b.Preds[1:] {
		pa, pf := aliasExit[p.Index], forwardExit[p.Index]
		if pa == nil {
			pa = NewAliasState()
		}
		if pf == nil {
			pf = NewForwardTaintState()
		}
		if iteration > wideningThreshold {
			a, f = a.Widen(pa), f.Widen(pf)
		} else {
			a, f = a.Join(pa), f.Join(pf)
		}
	}
	return a, f
}

func settled(prevAlias *AliasState, prevForward *ForwardTaintState, a *AliasState, f *ForwardTaintState) bool {
	if prevAlias == nil || prevForward == nil {
		return false
	}
	return a.Leq(prevAlias) && f.Leq(prevForward)
}

// runBackward walks fn's blocks in reverse index order, approximating a
// backward worklist over the (already-computed) forward alias information,
// per spec.md §4.4.3.
func runBackward(fn *ssa.Function, registry *model.Registry[string], previous *model.Model, aliasExit []*AliasState, overrides OverrideResolver) *BackwardTaintState {
	const defaultMaxCollapseDepth = 4
	state := NewBackwardTaintState()
	SeedBackwardEntry(state, fn, previous, true, defaultMaxCollapseDepth)
	for i := len(fn.Blocks) - 1; i >= 0; i-- {
		b := fn.Blocks[i]
		alias := aliasExit[b.Index]
		if alias == nil {
			alias = NewAliasState()
		}
		for j := len(b.Instrs) - 1; j >= 0; j-- {
			StepBackwardTaint(alias, state, registry, overrides, b.Instrs[j])
		}
	}
	return state
}
