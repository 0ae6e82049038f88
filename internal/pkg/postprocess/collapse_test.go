package postprocess

import (
	"context"
	"testing"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/callinfo"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/frame"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/kind"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/model"
)

func hopFrame(calleeName string, k kind.Kind) frame.Taint {
	return frame.SingleFrame(frame.Callee(calleeName), callinfo.OriginInfo(), 0, accesspath.Return(), frame.Leaf(k))
}

func leafTaint(k kind.Kind) frame.Taint {
	return frame.SingleFrame(frame.NoCallee(), callinfo.DeclarationInfo(), 0, accesspath.Leaf(), frame.Leaf(k))
}

func TestIsValidGenerationAcceptsLeafFrame(t *testing.T) {
	registry := model.NewRegistry[string]()
	if !isValidGeneration(registry, frame.NoCallee(), accesspath.Return(), kind.NewNamed("Source")) {
		t.Fatalf("expected a leaf frame (no callee) to always be valid")
	}
}

func TestIsValidGenerationRejectsStaleCalleeKind(t *testing.T) {
	registry := model.NewRegistry[string]()
	registry.Set("Callee", model.New())

	valid := isValidGeneration(registry, frame.Callee("Callee"), accesspath.Return(), kind.NewNamed("Source"))
	if valid {
		t.Fatalf("expected the hop to be invalid once the callee's model no longer has a matching generation")
	}
}

func TestIsValidGenerationAcceptsMatchingCalleeKind(t *testing.T) {
	registry := model.NewRegistry[string]()
	calleeModel := model.New()
	calleeModel.AddGeneration(accesspath.New(accesspath.Return(), accesspath.EmptyPath()), leafTaint(kind.NewNamed("Source")))
	registry.Set("Callee", calleeModel)

	valid := isValidGeneration(registry, frame.Callee("Callee"), accesspath.Return(), kind.NewNamed("Source"))
	if !valid {
		t.Fatalf("expected the hop to remain valid while the callee's model still has the matching generation")
	}
}

func TestRemoveCollapsedTracesPrunesStaleHopAndPropagatesToCaller(t *testing.T) {
	registry := model.NewRegistry[string]()

	// Callee no longer has a Source generation (as if a later iteration
	// degraded or narrowed it), but Caller's own Model still references a
	// hop into Callee carrying that kind.
	registry.Set("Callee", model.New())

	caller := model.New()
	caller.AddGeneration(accesspath.New(accesspath.Return(), accesspath.EmptyPath()), hopFrame("Callee", kind.NewNamed("Source")))
	registry.Set("Caller", caller)

	dependents := Dependents{"Callee": {"Caller"}}

	if err := RemoveCollapsedTraces(context.Background(), registry, []string{"Callee", "Caller"}, dependents, 0); err != nil {
		t.Fatalf("RemoveCollapsedTraces: %v", err)
	}

	result := registry.Get("Caller")
	if !result.Generations.Tree(accesspath.Return()).IsBottom() {
		t.Fatalf("expected Caller's stale generation hop to be pruned, got %v", result.Generations)
	}
}

func TestRemoveCollapsedTracesKeepsValidHop(t *testing.T) {
	registry := model.NewRegistry[string]()

	calleeModel := model.New()
	calleeModel.AddGeneration(accesspath.New(accesspath.Return(), accesspath.EmptyPath()), leafTaint(kind.NewNamed("Source")))
	registry.Set("Callee", calleeModel)

	caller := model.New()
	caller.AddGeneration(accesspath.New(accesspath.Return(), accesspath.EmptyPath()), hopFrame("Callee", kind.NewNamed("Source")))
	registry.Set("Caller", caller)

	if err := RemoveCollapsedTraces(context.Background(), registry, []string{"Callee", "Caller"}, Dependents{}, 0); err != nil {
		t.Fatalf("RemoveCollapsedTraces: %v", err)
	}

	result := registry.Get("Caller")
	if result.Generations.Tree(accesspath.Return()).IsBottom() {
		t.Fatalf("expected Caller's still-valid generation hop to survive")
	}
}

func TestCullModelLeavesParameterSourcesAndPropagationsUntouched(t *testing.T) {
	registry := model.NewRegistry[string]()
	registry.Set("Callee", model.New())

	old := model.New()
	old.AddParameterSource(accesspath.New(accesspath.Argument(0), accesspath.EmptyPath()), hopFrame("Callee", kind.NewNamed("Source")))
	old.AddPropagation(accesspath.New(accesspath.Argument(0), accesspath.EmptyPath()), hopFrame("Callee", kind.NewPropagation("Argument(0)")))

	culled := cullModel(registry, old)
	if culled.ParameterSources != old.ParameterSources {
		t.Fatalf("expected ParameterSources tree to be passed through unchanged")
	}
	if culled.Propagations != old.Propagations {
		t.Fatalf("expected Propagations tree to be passed through unchanged")
	}
}
