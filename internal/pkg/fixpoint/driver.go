// Package fixpoint implements the parallel-worklist global fixpoint of
// spec.md §5: workers read their own method's current Model, compute a new
// Model purely locally, join it into the Registry, and re-enqueue dependents
// when the join grew the Model. Grounded on original_source's
// Interprocedural.cpp `run_analysis` (ConcurrentSet worklist, work_queue
// fan-out, "new.leq(previous)" growth check, dependents-as-new-worklist),
// reimplemented with golang.org/x/sync/errgroup in place of sparta's
// work_queue since the teacher carries no concurrency idiom of its own (its
// go/analysis driver is single-pass).
package fixpoint

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/model"
)

// defaultMaxIterations stands in for spec.md §4.7's max_number_iterations
// when a Driver does not set one explicitly.
const defaultMaxIterations = 150

// Analyzer computes a method's new Model purely from its own previous Model,
// reading any other method's Model only through the Registry the Driver
// passes it. It must not mutate the Registry itself; JoinInto does that.
type Analyzer[Method comparable] func(m Method, previous *model.Model) *model.Model

// Graph is the read-only call-graph information the driver needs to compute
// dependents once up front, per spec.md §5: "Dependencies are computed once
// from the initial Registry ... before iteration ... and treated as
// read-only."
type Graph[Method comparable] interface {
	// Callees returns every method m may call, resolved callees and virtual
	// overrides alike.
	Callees(m Method) []Method
}

// Driver runs the outer iteration loop described in spec.md §5 over a fixed
// universe of methods.
type Driver[Method comparable] struct {
	Registry *model.Registry[Method]
	Graph    Graph[Method]

	// MaxIterations bounds the outer loop (max_number_iterations); 0 uses
	// defaultMaxIterations.
	MaxIterations int

	// Threads bounds per-iteration worker concurrency; 0 means unbounded
	// (errgroup's default, one goroutine per method in the current pass).
	Threads int
}

// UnstableMethodsError is returned when the outer iteration cap is exceeded,
// carrying the methods that had not yet reached a fixpoint, mirroring
// Interprocedural.cpp's "Unstable methods are: ..." error message.
type UnstableMethodsError[Method comparable] struct {
	Methods []Method
}

func (e *UnstableMethodsError[Method]) Error() string {
	return fmt.Sprintf("too many iterations, %d unstable method(s) remain", len(e.Methods))
}

func computeDependents[Method comparable](methods []Method, graph Graph[Method]) map[Method][]Method {
	dependents := make(map[Method][]Method)
	for _, m := range methods {
		for _, callee := range graph.Callees(m) {
			dependents[callee] = append(dependents[callee], m)
		}
	}
	return dependents
}

// Run drives the global fixpoint over methods to completion, calling analyze
// once per (method, iteration) pair a worklist entry survives to. It returns
// an *UnstableMethodsError if the iteration cap is exceeded, or the first
// error any analyze call (via ctx cancellation) surfaces.
func (d *Driver[Method]) Run(ctx context.Context, methods []Method, analyze Analyzer[Method]) error {
	dependents := computeDependents(methods, d.Graph)
	maxIterations := d.MaxIterations
	if maxIterations == 0 {
		maxIterations = defaultMaxIterations
	}

	toAnalyze := make(map[Method]struct{}, len(methods))
	for _, m := range methods {
		toAnalyze[m] = struct{}{}
	}

	for iteration := 1; len(toAnalyze) > 0; iteration++ {
		if iteration > maxIterations {
			unstable := make([]Method, 0, len(toAnalyze))
			for m := range toAnalyze {
				unstable = append(unstable, m)
			}
			return &UnstableMethodsError[Method]{Methods: unstable}
		}

		current := make([]Method, 0, len(toAnalyze))
		for m := range toAnalyze {
			current = append(current, m)
		}

		var mu sync.Mutex
		next := make(map[Method]struct{})

		group, groupCtx := errgroup.WithContext(ctx)
		if d.Threads > 0 {
			group.SetLimit(d.Threads)
		}

		for _, m := range current {
			m := m
			group.Go(func() error {
				if err := groupCtx.Err(); err != nil {
					return err
				}

				previous := d.Registry.Get(m)
				if previous.Modes.Has(model.SkipAnalysis) {
					return nil
				}

				delta := analyze(m, previous)
				if !d.Registry.JoinInto(m, delta) {
					return nil
				}

				mu.Lock()
				defer mu.Unlock()
				if len(d.Graph.Callees(m)) > 0 {
					next[m] = struct{}{}
				}
				for _, dep := range dependents[m] {
					next[dep] = struct{}{}
				}
				return nil
			})
		}

		if err := group.Wait(); err != nil {
			return err
		}

		toAnalyze = next
	}

	return nil
}
