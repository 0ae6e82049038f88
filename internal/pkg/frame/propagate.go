package frame

import (
	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
)

// CallContext carries everything Propagate needs to know about the call
// site producing a new hop of taint (spec.md §4.1.1).
type CallContext struct {
	Callee                    CalleeRef
	CalleePort                accesspath.Root
	CallPosition              int
	SourceRegisterTypes       []string
	SourceConstantArguments   []string
	CallerClassInterval       ClassInterval
	MaximumSourceSinkDistance int
	// ClassIntervalModeEnabled gates step 3's interval narrowing.
	ClassIntervalModeEnabled bool
}

// Propagate produces the Taint that flows back into the caller across one
// call, implementing the five steps of spec.md §4.1.1.
func Propagate(callee Taint, ctx CallContext) Taint {
	out := EmptyTaint()
	callee.Visit(func(cf *CalleeFrames) {
		nextInfo := cf.CallInfo().Propagate()
		cf.Visit(func(_ int, ppf *CalleePortFrames) {
			ppf.VisitFrames(func(f Frame) {
				// Step 1: drop frames whose distance would exceed the cap.
				if f.Distance()+1 > ctx.MaximumSourceSinkDistance {
					return
				}

				// Step 2: bump distance, attach materialized via-features.
				next := f.WithDistance(f.Distance() + 1)
				next = next.MaterializeViaTypeOf(ctx.SourceRegisterTypes...)
				next = next.MaterializeViaValueOf(ctx.SourceConstantArguments...)

				// Step 3: interval narrowing against the caller's interval.
				if ctx.ClassIntervalModeEnabled && !ctx.CallerClassInterval.Intersects(next.Interval()) {
					return
				}

				// Step 5 (CRTEX instantiation) is applied by the crtex
				// package before frames with Anchor/Producer ports reach
				// here; Propagate itself only forwards canonical names.

				// Step 4: combine into the new (callee, call-info) group at
				// the call's position and port.
				out.Write(ctx.Callee, nextInfo, ctx.CallPosition, ctx.CalleePort, next)
			})
		})
	})
	return out
}
