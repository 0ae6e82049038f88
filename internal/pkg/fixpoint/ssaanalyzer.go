package fixpoint

import (
	"golang.org/x/tools/go/ssa"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/environment"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/frame"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/model"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/transfer"
)

// SSAAnalyzer adapts transfer.AnalyzeFunction into the Analyzer[string]
// shape Driver.Run consumes, keyed with transfer.MethodID so a Driver built
// over NewSSAGraph shares identities with the Registry transfer itself reads
// from. report receives every (source, sink) candidate StepForwardTaint
// discovers across every method in fns; the rules package turns these into
// real issues.
func SSAAnalyzer(fns map[string]*ssa.Function, registry *model.Registry[string], maxDistance int, ctx transfer.AnalysisContext, report transfer.IssueReporter) Analyzer[string] {
	return func(id string, previous *model.Model) *model.Model {
		fn, ok := fns[id]
		if !ok {
			return model.New()
		}

		result := transfer.AnalyzeFunction(fn, registry, previous, maxDistance, ctx)
		if result.Degraded {
			return model.Degraded()
		}

		delta := model.New()
		if !result.ReturnTaint.IsBottom() {
			delta.AddGeneration(accesspath.New(accesspath.Return(), accesspath.EmptyPath()), result.ReturnTaint)
		}
		if result.Backward != nil {
			for _, loc := range result.Backward.Taint.Roots() {
				root, ok := locationToRoot(loc)
				if !ok {
					continue
				}
				result.Backward.Taint.Tree(loc).Visit(func(path accesspath.Path, value frame.Taint) {
					if value.IsBottom() {
						return
					}
					delta.AddPropagation(accesspath.New(root, path), value)
				})
			}
		}

		if report != nil {
			for _, issue := range result.Issues {
				report(issue)
			}
		}
		return delta
	}
}

func locationToRoot(loc environment.MemoryLocation) (accesspath.Root, bool) {
	switch loc.Kind() {
	case environment.LocationParameter:
		return accesspath.Argument(uint32(loc.Position())), true
	case environment.LocationThis:
		return accesspath.Receiver(), true
	default:
		return accesspath.Root{}, false
	}
}
