// Package frontend adapts a real Go program's SSA form into the
// Method/CFG vocabulary the analysis core (environment/transfer/fixpoint)
// consumes, and drives the global fixpoint over it end to end. Grounded on
// the teacher's internal/pkg/source and internal/pkg/sourcetype analyzer
// composition: a golang.org/x/tools/go/analysis.Analyzer requiring
// buildssa.Analyzer, reporting a typed ResultType downstream passes (or, in
// this analysis, the fixpoint driver) consume.
package frontend

import (
	"reflect"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/buildssa"
	"golang.org/x/tools/go/callgraph/cha"
)

// Program is what Analyzer computes: every function class-hierarchy
// analysis found reachable in the package under analysis, plus the call
// graph frontend.Run uses to seed the interprocedural fixpoint's
// dependency tracking.
type Program struct {
	SSA   *buildssa.SSA
	Graph *CallGraph
}

// Analyzer builds a Program from a package's SSA form. It requires
// buildssa.Analyzer the same way source.Analyzer and sourcetype.Analyzer
// do, and resolves the call graph with Class Hierarchy Analysis (cha), the
// same fast-and-sound construction securego/gosec's taint analyzer uses:
// CHA has no false negatives, trading precision (virtual calls resolve to
// every override in the program) for soundness that matches this tool's
// "never miss a real flow" goal.
var Analyzer = &analysis.Analyzer{
	Name:       "trenchcheck",
	Doc:        "builds the SSA/call-graph frontend the taint analysis core runs over",
	Run:        run,
	Requires:   []*analysis.Analyzer{buildssa.Analyzer},
	ResultType: reflect.TypeOf((*Program)(nil)),
}

func run(pass *analysis.Pass) (interface{}, error) {
	ssaInput := pass.ResultOf[buildssa.Analyzer].(*buildssa.SSA)
	graph := cha.CallGraph(ssaInput.Pkg.Prog)
	return &Program{SSA: ssaInput, Graph: newCallGraph(graph)}, nil
}
