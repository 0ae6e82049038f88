package frontend

import (
	"golang.org/x/tools/go/ssa"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/environment"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/frame"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/kind"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/model"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/transfer"
)

func isPropagationFrame(_ frame.CalleeRef, _ accesspath.Root, k kind.Kind) bool {
	return k.Variant() == kind.Propagation
}

func isNotPropagationFrame(callee frame.CalleeRef, port accesspath.Root, k kind.Kind) bool {
	return !isPropagationFrame(callee, port, k)
}

// buildModelDelta turns one transfer.AnalyzeFunction call's raw per-method
// result into the Model this iteration contributes for fn, the way
// fixpoint.Analyzer expects: a delta the driver then joins into the
// Registry. A degraded method (its intraprocedural fixpoint did not settle
// within the iteration budget) reports the conservative taint-through
// summary instead, per spec.md §4.4.5.
//
// fn's return taint lands at the Return() root (the thrown-value taint is
// folded in alongside it: this Model has no distinct throws component, so a
// function that only taints its panic/error path is modeled the same as
// one that taints its return value). Each parameter's backward taint is
// split by kind variant: Propagation-kind frames become that parameter's
// inferred Propagations entry, everything else becomes its inferred Sinks
// entry — mirroring how SeedBackwardEntry seeds exactly those two kinds of
// frame at method entry.
func buildModelDelta(fn *ssa.Function, result transfer.AnalyzeFunctionResult, previous *model.Model) *model.Model {
	if result.Degraded {
		return model.Degraded()
	}

	delta := model.New()

	exitTaint := result.ReturnTaint.Join(result.ThrownTaint)
	if !exitTaint.IsBottom() && !previous.Frozen.Has(model.FrozenGenerations) {
		delta.AddGeneration(accesspath.New(accesspath.Return(), accesspath.EmptyPath()), exitTaint)
	}

	for i := range fn.Params {
		isReceiver := fn.Signature.Recv() != nil && i == 0
		loc := environment.Parameter(i)
		if isReceiver {
			loc = environment.This()
		}

		raw := result.Backward.Taint.RawRead(loc)
		if raw.IsBottom() {
			continue
		}

		path := accesspath.New(accesspath.Argument(uint32(i)), accesspath.EmptyPath())
		if propagations := raw.FilterInvalidFrames(isPropagationFrame); !propagations.IsBottom() && !previous.Frozen.Has(model.FrozenPropagations) {
			delta.AddPropagation(path, propagations)
		}
		if sinks := raw.FilterInvalidFrames(isNotPropagationFrame); !sinks.IsBottom() && !previous.Frozen.Has(model.FrozenSinks) {
			delta.AddSink(path, sinks)
		}
	}

	return delta
}
