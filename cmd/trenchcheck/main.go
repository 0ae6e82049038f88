// Command trenchcheck runs the whole-program interprocedural taint
// analysis over the packages named on the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/diagnostics"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/errs"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/frontend"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/graphprinter"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/model"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/options"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/postprocess"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/rules"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/wire"
)

func run() *errs.Error {
	if err := options.FlagSet.Parse(os.Args[1:]); err != nil {
		return errs.New(errs.InputValidation, "parsing flags", err)
	}
	opts, err := options.FromFlags()
	if err != nil {
		return errs.New(errs.InputValidation, "loading configuration", err)
	}

	patterns := options.FlagSet.Args()
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	log := diagnostics.Default()

	ruleEntries, err := wire.LoadRules(opts.RulesPath)
	if err != nil {
		return errs.New(errs.InputValidation, "loading rules", err)
	}
	ruleSet := rules.New()
	for _, rule := range ruleEntries {
		if err := ruleSet.Add(rule); err != nil {
			return errs.New(errs.InputValidation, "indexing rules", err)
		}
	}

	seeds, err := wire.LoadModels(opts.ModelsPath)
	if err != nil {
		return errs.New(errs.InputValidation, "loading models", err)
	}

	prog, err := frontend.Load(patterns...)
	if err != nil {
		return errs.New(errs.InputValidation, "loading program", err)
	}

	ctx := context.Background()
	result, err := frontend.Run(ctx, prog, ruleSet, seeds, struct {
		MaxIterations int
		Threads       int
		MaxDistance   int
	}{
		MaxIterations: opts.Heuristics.MaxNumberIterations,
		Threads:       opts.Threads,
		MaxDistance:   opts.Heuristics.MaxSourceSinkDistance,
	})
	if err != nil {
		log.Warning("fixpoint-unstable", err.Error(), nil)
		return errs.New(errs.GlobalResource, "running fixpoint", err)
	}

	methods := prog.Graph.Methods()
	dependents := make(postprocess.Dependents, len(methods))
	callees := make(map[string][]string, len(methods))
	for _, m := range methods {
		callees[m] = prog.Graph.Callees(m)
		for _, callee := range callees[m] {
			dependents[callee] = append(dependents[callee], m)
		}
	}
	if err := postprocess.RemoveCollapsedTraces(ctx, result.Registry, methods, dependents, opts.Threads); err != nil {
		return errs.New(errs.AnalysisResource, "culling collapsed traces", err)
	}

	if opts.DumpCallGraph {
		if err := dumpGraph(opts.OutputDirectory, "call_graph.dot", callees, result.Registry); err != nil {
			return errs.New(errs.InternalInvariant, "dumping call graph", err)
		}
	}
	if opts.DumpDependencies {
		if err := dumpGraph(opts.OutputDirectory, "dependencies.dot", dependents, result.Registry); err != nil {
			return errs.New(errs.InternalInvariant, "dumping dependencies", err)
		}
	}

	issues := postprocess.CullIssues(result.Registry, result.Issues)

	if err := postprocess.WriteShardedModels(opts.OutputDirectory, result.Registry, opts.OutputBatchSize); err != nil {
		return errs.New(errs.InternalInvariant, "writing models", err)
	}
	if err := postprocess.WriteShardedIssues(opts.OutputDirectory, issues, opts.OutputBatchSize); err != nil {
		return errs.New(errs.InternalInvariant, "writing issues", err)
	}

	log.Telemetry("analysis-complete", "wrote models and issues", map[string]int{
		"methods": len(methods),
		"issues":  len(issues),
	})
	return nil
}

// dumpGraph renders graph as DOT source, classifying each method against its
// inferred Model, and writes it to name under outputDir.
func dumpGraph(outputDir, name string, graph map[string][]string, registry *model.Registry[string]) error {
	isGeneration := func(method string) bool { return !registry.Get(method).Generations.IsBottom() }
	isSink := func(method string) bool { return !registry.Get(method).Sinks.IsBottom() }
	isDegraded := func(method string) bool { return registry.Get(method).Modes.Has(model.SkipAnalysis) }

	dot := graphprinter.Print(graph, isGeneration, isSink, isDegraded)
	return os.WriteFile(filepath.Join(outputDir, name), []byte(dot), 0o644)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(err.Kind.ExitCode())
	}
}
