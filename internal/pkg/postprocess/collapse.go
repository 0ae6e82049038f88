package postprocess

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/frame"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/kind"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/model"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/tree"
)

// Dependents maps a method to the methods whose Model depends on it (its
// callers, transitively through the initial call graph), the same
// dependency relation the interprocedural driver uses.
type Dependents map[string][]string

func cullTaintTree(registry *model.Registry[string], apt *tree.AccessPathTree[frame.Taint], valid func(registry *model.Registry[string], callee frame.CalleeRef, port accesspath.Root, k kind.Kind) bool) *tree.AccessPathTree[frame.Taint] {
	out := tree.NewAccessPathTree[frame.Taint]()
	apt.Visit(func(root accesspath.Root, path accesspath.Path, value frame.Taint) {
		filtered := value.FilterInvalidFrames(func(callee frame.CalleeRef, port accesspath.Root, k kind.Kind) bool {
			return valid(registry, callee, port, k)
		})
		out.Write(accesspath.New(root, path), filtered, tree.Strong)
	})
	return out
}

// cullModel rebuilds old's Generations and Sinks trees, dropping any frame
// whose (callee, port, kind) triple the callee's current Model no longer
// backs. ParameterSources, Propagations and call-effect trees are untouched:
// PostprocessTraces.cpp only ever culls generations(), sinks() and issues().
func cullModel(registry *model.Registry[string], old *model.Model) *model.Model {
	return &model.Model{
		Generations:       cullTaintTree(registry, old.Generations, isValidGeneration),
		ParameterSources:  old.ParameterSources,
		Sinks:             cullTaintTree(registry, old.Sinks, isValidSink),
		Propagations:      old.Propagations,
		CallEffectSources: old.CallEffectSources,
		CallEffectSinks:   old.CallEffectSinks,
		Modes:             old.Modes,
		Frozen:            old.Frozen,
	}
}

// RemoveCollapsedTraces implements spec.md §4.8: iteratively cull every
// method's Generations/Sinks trees against the rest of the Registry,
// re-visiting a method's dependents whenever its own Model shrank, until no
// method shrinks any further. Grounded on
// original_source/PostprocessTraces.cpp's remove_collapsed_traces, reusing
// the same errgroup-per-iteration shape as internal/pkg/fixpoint.Driver.Run
// (spec.md §4.8: "runs the same dependents-set-is-the-new-worklist loop as
// the main driver").
func RemoveCollapsedTraces(ctx context.Context, registry *model.Registry[string], methods []string, dependents Dependents, threads int) error {
	toVisit := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		toVisit[m] = struct{}{}
	}

	for len(toVisit) > 0 {
		current := make([]string, 0, len(toVisit))
		for m := range toVisit {
			current = append(current, m)
		}

		var mu sync.Mutex
		next := make(map[string]struct{})

		group, groupCtx := errgroup.WithContext(ctx)
		if threads > 0 {
			group.SetLimit(threads)
		}

		for _, m := range current {
			m := m
			group.Go(func() error {
				if err := groupCtx.Err(); err != nil {
					return err
				}

				old := registry.Get(m)
				culled := cullModel(registry, old)
				if !old.Leq(culled) {
					mu.Lock()
					for _, dep := range dependents[m] {
						next[dep] = struct{}{}
					}
					mu.Unlock()
				}
				registry.Set(m, culled)
				return nil
			})
		}

		if err := group.Wait(); err != nil {
			return err
		}
		toVisit = next
	}

	return nil
}
