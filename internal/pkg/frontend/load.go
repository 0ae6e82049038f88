package frontend

import (
	"fmt"

	"golang.org/x/tools/go/callgraph/cha"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// Load builds a whole-program Program from the packages named by patterns
// (e.g. "./..."), the way cmd/trenchcheck needs it: unlike Analyzer, which
// go/analysis drives one package at a time, Load resolves and builds SSA for
// every package reachable from patterns in one pass, the shape the
// interprocedural fixpoint actually needs (a method's callees are not
// confined to its own package). Grounded on the pack's own
// packages.Load+ssautil.AllPackages CLI driver pattern.
func Load(patterns ...string) (*Program, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName |
			packages.NeedFiles |
			packages.NeedCompiledGoFiles |
			packages.NeedImports |
			packages.NeedDeps |
			packages.NeedTypes |
			packages.NeedSyntax |
			packages.NeedTypesInfo,
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("frontend: loading packages: %w", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		return nil, fmt.Errorf("frontend: packages %v failed to load cleanly", patterns)
	}

	prog, _ := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	prog.Build()

	graph := cha.CallGraph(prog)

	return &Program{Graph: newCallGraph(graph)}, nil
}
