package postprocess

import (
	"testing"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/kind"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/model"
)

func TestTaintToJSONLeafFrameOmitsCalleeFields(t *testing.T) {
	records := taintToJSON(leafTaint(kind.NewNamed("Source")))
	if len(records) != 1 {
		t.Fatalf("expected exactly one flattened frame, got %v", records)
	}
	record := records[0]
	if record.Kind != "Source" {
		t.Fatalf("expected kind Source, got %q", record.Kind)
	}
	if record.Callee != "" || record.CalleePort != "" {
		t.Fatalf("expected a leaf (no-callee) frame to omit callee fields, got %+v", record)
	}
}

func TestTaintToJSONHopFrameIncludesCalleeFields(t *testing.T) {
	records := taintToJSON(hopFrame("Callee", kind.NewNamed("Source")))
	if len(records) != 1 {
		t.Fatalf("expected exactly one flattened frame, got %v", records)
	}
	record := records[0]
	if record.Callee != "Callee" {
		t.Fatalf("expected callee Callee, got %q", record.Callee)
	}
	if record.CalleePort != accesspath.Return().String() {
		t.Fatalf("expected callee port %q, got %q", accesspath.Return().String(), record.CalleePort)
	}
}

func TestTaintTreeToJSONOmitsEmptyPaths(t *testing.T) {
	m := model.New()
	m.AddGeneration(accesspath.New(accesspath.Return(), accesspath.EmptyPath()), leafTaint(kind.NewNamed("Source")))

	out := taintTreeToJSON(m.Generations)
	if len(out) != 1 {
		t.Fatalf("expected exactly one non-empty access path entry, got %v", out)
	}
	key := accesspath.New(accesspath.Return(), accesspath.EmptyPath()).String()
	if _, ok := out[key]; !ok {
		t.Fatalf("expected an entry keyed by %q, got %v", key, out)
	}
}

func TestModelToJSONPopulatesMethodAndNonEmptyTrees(t *testing.T) {
	m := model.New()
	m.AddGeneration(accesspath.New(accesspath.Return(), accesspath.EmptyPath()), leafTaint(kind.NewNamed("Source")))
	m.AddSink(accesspath.New(accesspath.Argument(0), accesspath.EmptyPath()), leafTaint(kind.NewNamed("Sensitive")))

	out := modelToJSON("Caller", m)
	if out.Method != "Caller" {
		t.Fatalf("expected method Caller, got %q", out.Method)
	}
	if len(out.Generations) != 1 {
		t.Fatalf("expected one generation entry, got %v", out.Generations)
	}
	if len(out.Sinks) != 1 {
		t.Fatalf("expected one sink entry, got %v", out.Sinks)
	}
	if len(out.ParameterSources) != 0 {
		t.Fatalf("expected no parameter sources, got %v", out.ParameterSources)
	}
}
