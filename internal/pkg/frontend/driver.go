package frontend

import (
	"context"
	"sync"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/fixpoint"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/frame"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/model"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/postprocess"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/rules"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/transfer"
)

// Result is everything Run produces: the converged Registry and the
// rule-matched issues found along the way, ready for postprocess.CullIssues
// and postprocess.WriteShardedModels/WriteShardedIssues.
type Result struct {
	Registry *model.Registry[string]
	Issues   []postprocess.Issue
}

// matchRules collects every distinct rule a forward-reported candidate
// fulfills: a rule matches when some frame in issue's source taint and some
// frame in its sink taint compose into a kind pair the rule set indexes
// (rules.Rules.Rules, which itself accounts for any transform sequence
// attached to either kind). One postprocess.Issue is emitted per matched
// rule code, each carrying the candidate's full source/sink taint — trace
// culling downstream (postprocess.CullIssues) is what narrows a surviving
// issue's frames to the ones that are still valid, not this step.
func matchRules(ruleSet *rules.Rules, method string, candidate transfer.Issue) []postprocess.Issue {
	seen := make(map[int]bool)
	var out []postprocess.Issue

	candidate.Source.VisitFrames(func(source frame.Frame) {
		candidate.Sink.VisitFrames(func(sink frame.Frame) {
			for _, rule := range ruleSet.Rules(source.Kind(), sink.Kind()) {
				if seen[rule.Code()] {
					continue
				}
				seen[rule.Code()] = true
				out = append(out, postprocess.Issue{
					Method:   method,
					RuleCode: rule.Code(),
					Source:   candidate.Source,
					Sink:     candidate.Sink,
					Position: candidate.Position,
				})
			}
		})
	})

	return out
}

// Run drives the global fixpoint of spec.md §5 over prog's call graph,
// seeding the Registry from seeds (the models.json entries, frozen so the
// fixpoint never overwrites user-provided data — see model.Frozen) and
// analyzing every other reachable method from an empty Model. Once the
// fixpoint converges, it matches every surviving call site's issue
// candidates against ruleSet and returns the combined Result.
func Run(ctx context.Context, prog *Program, ruleSet *rules.Rules, seeds map[string]*model.Model, opts struct {
	MaxIterations int
	Threads       int
	MaxDistance   int
}) (*Result, error) {
	registry := model.NewRegistry[string]()
	methods := prog.Graph.Methods()
	for _, id := range methods {
		if seeded, ok := seeds[id]; ok {
			registry.Set(id, seeded)
		}
	}

	driver := &fixpoint.Driver[string]{
		Registry:      registry,
		Graph:         prog.Graph,
		MaxIterations: opts.MaxIterations,
		Threads:       opts.Threads,
	}

	var mu sync.Mutex
	issuesByMethod := make(map[string][]transfer.Issue)

	actx := transfer.AnalysisContext{
		Overrides: prog.Graph,
		Rules:     ruleSet,
		Fulfilled: rules.NewFulfilledPartialKindState(),
	}

	analyze := func(id string, previous *model.Model) *model.Model {
		fn, ok := prog.Graph.FunctionFor(id)
		if !ok {
			return previous
		}
		result := transfer.AnalyzeFunction(fn, registry, previous, opts.MaxDistance, actx)

		mu.Lock()
		issuesByMethod[id] = result.Issues
		mu.Unlock()

		return buildModelDelta(fn, result, previous)
	}

	if err := driver.Run(ctx, methods, analyze); err != nil {
		return nil, err
	}

	var issues []postprocess.Issue
	for id, candidates := range issuesByMethod {
		for _, candidate := range candidates {
			issues = append(issues, matchRules(ruleSet, id, candidate)...)
		}
	}

	return &Result{Registry: registry, Issues: issues}, nil
}
