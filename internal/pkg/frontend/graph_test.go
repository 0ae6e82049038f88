package frontend

import (
	"testing"

	"golang.org/x/tools/go/analysis/analysistest"
)

func TestCallGraphMethodsIndexesEveryReachableFunction(t *testing.T) {
	results := analysistest.Run(t, analysistest.TestData(), Analyzer, "frontend_analysistest/core")
	prog := results[0].Result.(*Program)

	methods := prog.Graph.Methods()
	if len(methods) < 2 {
		t.Fatalf("expected at least 2 indexed methods, got %v", methods)
	}
}

func TestCallGraphFunctionForRoundTripsMethodID(t *testing.T) {
	results := analysistest.Run(t, analysistest.TestData(), Analyzer, "frontend_analysistest/core")
	prog := results[0].Result.(*Program)

	for _, id := range prog.Graph.Methods() {
		fn, ok := prog.Graph.FunctionFor(id)
		if !ok || fn == nil {
			t.Fatalf("FunctionFor(%q) did not resolve to a function", id)
		}
	}
}

func TestCallGraphCalleesDeduplicatesRepeatedEdges(t *testing.T) {
	results := analysistest.Run(t, analysistest.TestData(), Analyzer, "frontend_analysistest/core")
	prog := results[0].Result.(*Program)

	callerID := findMethod(t, prog.Graph, "#caller")
	callees := prog.Graph.Callees(callerID)

	seen := make(map[string]bool)
	for _, c := range callees {
		if seen[c] {
			t.Fatalf("expected Callees(%q) to be deduplicated, got %v", callerID, callees)
		}
		seen[c] = true
	}
}
