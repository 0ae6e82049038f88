package transfer

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/callinfo"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/environment"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/frame"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/kind"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/model"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/rules"
)

// buildFunction compiles source (a single-package Go file) to SSA form and
// returns the named function, grounded on the teacher's
// internal/pkg/test/test.go harness for building SSA directly from a source
// string without a full go/packages load.
func buildFunction(t *testing.T, source []byte, fnName string) *ssa.Function {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "input.go", source, parser.ParseComments)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	files := []*ast.File{file}
	pkg := types.NewPackage("input", "")
	ssaPkg, _, err := ssautil.BuildPackage(&types.Config{Importer: importer.Default()}, fset, pkg, files, ssa.SanityCheckFunctions)
	if err != nil {
		t.Fatalf("build ssa: %v", err)
	}
	ssaPkg.Build()
	fn := ssaPkg.Func(fnName)
	if fn == nil {
		t.Fatalf("function %s not found", fnName)
	}
	return fn
}

func sourceFrame() frame.Frame { return frame.Leaf(kind.NewNamed("Source")) }

func sourceTaint() frame.Taint {
	return frame.SingleFrame(frame.NoCallee(), callinfo.DeclarationInfo(), 0, accesspath.Leaf(), sourceFrame())
}

func TestAnalyzeFunctionPropagatesParameterTaintToReturn(t *testing.T) {
	fn := buildFunction(t, []byte(`package input

func Identity(s string) string {
	return s
}
`), "Identity")

	previous := model.New()
	previous.AddParameterSource(accesspath.New(accesspath.Argument(0), accesspath.EmptyPath()), sourceTaint())

	registry := model.NewRegistry[string]()
	result := AnalyzeFunction(fn, registry, previous, 10, AnalysisContext{})

	if result.ReturnTaint.IsBottom() {
		t.Fatalf("expected the tainted parameter to flow to the return value")
	}
	if !result.ReturnTaint.ContainsKind(kind.NewNamed("Source")) {
		t.Fatalf("expected the Source kind to survive the identity function")
	}
}

func TestAnalyzeFunctionWithNoTaintedParametersHasEmptyReturn(t *testing.T) {
	fn := buildFunction(t, []byte(`package input

func Identity(s string) string {
	return s
}
`), "Identity")

	registry := model.NewRegistry[string]()
	result := AnalyzeFunction(fn, registry, model.New(), 10, AnalysisContext{})
	if !result.ReturnTaint.IsBottom() {
		t.Fatalf("expected no return taint when no parameter source is declared")
	}
}

func TestAnalyzeFunctionJoinsTaintAcrossBranches(t *testing.T) {
	fn := buildFunction(t, []byte(`package input

func Branch(cond bool, s string) string {
	if cond {
		return s
	}
	return "literal"
}
`), "Branch")

	previous := model.New()
	previous.AddParameterSource(accesspath.New(accesspath.Argument(1), accesspath.EmptyPath()), sourceTaint())

	registry := model.NewRegistry[string]()
	result := AnalyzeFunction(fn, registry, previous, 10, AnalysisContext{})
	if result.ReturnTaint.IsBottom() {
		t.Fatalf("expected the branch that returns the tainted parameter to contribute taint to the join")
	}
}

func TestAnalyzeFunctionReadsCalleeGenerationsIntoResult(t *testing.T) {
	fn := buildFunction(t, []byte(`package input

func Source() string {
	return "tainted"
}

func Caller() string {
	return Source()
}
`), "Caller")

	registry := model.NewRegistry[string]()
	sourceFn := fn.Pkg.Func("Source")
	sourceModel := model.New()
	sourceModel.AddGeneration(accesspath.New(accesspath.Return(), accesspath.EmptyPath()), sourceTaint())
	registry.Set(MethodID(sourceFn), sourceModel)

	result := AnalyzeFunction(fn, registry, model.New(), 10, AnalysisContext{})
	if result.ReturnTaint.IsBottom() {
		t.Fatalf("expected Caller's return to pick up Source's generation through the call")
	}
}

func TestAnalyzeFunctionDoesNotDegradeOnSimpleFunctions(t *testing.T) {
	fn := buildFunction(t, []byte(`package input

func Identity(s string) string {
	return s
}
`), "Identity")

	result := AnalyzeFunction(fn, model.NewRegistry[string](), model.New(), 10, AnalysisContext{})
	if result.Degraded {
		t.Fatalf("expected a trivial single-block function to converge without degrading")
	}
}

func TestSeedBackwardEntryInstallsArgumentPropagationUnlessFrozen(t *testing.T) {
	fn := buildFunction(t, []byte(`package input

func Identity(s string) string {
	return s
}
`), "Identity")

	state := NewBackwardTaintState()
	SeedBackwardEntry(state, fn, model.New(), true, 4)
	if state.Taint.RawRead(environment.Parameter(0)).IsBottom() {
		t.Fatalf("expected the argument to carry a seeded propagation frame")
	}

	frozen := model.New()
	frozen.Frozen = model.FrozenPropagations
	state2 := NewBackwardTaintState()
	SeedBackwardEntry(state2, fn, frozen, true, 4)
	if !state2.Taint.RawRead(environment.Parameter(0)).IsBottom() {
		t.Fatalf("expected a frozen Propagations model to skip seeding")
	}
}

// stubOverrides is a minimal OverrideResolver a test wires directly to a
// specific *ssa.Call instruction, standing in for frontend.CallGraph's
// CHA-backed implementation.
type stubOverrides struct {
	bySite map[ssa.CallInstruction][]string
}

func (s stubOverrides) Overrides(site ssa.CallInstruction) []string { return s.bySite[site] }

// findInvokeCall returns the first invoke-mode *ssa.Call in fn.
func findInvokeCall(t *testing.T, fn *ssa.Function) *ssa.Call {
	t.Helper()
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if call, ok := instr.(*ssa.Call); ok && call.Common().IsInvoke() {
				return call
			}
		}
	}
	t.Fatalf("expected an invoke-mode call in %s", fn.Name())
	return nil
}

func greeterSource() []byte {
	return []byte(`package input

type Greeter interface{ Greet() string }

type A struct{}

func (A) Greet() string { return "" }

type B struct{}

func (B) Greet() string { return "" }

func Caller(g Greeter) string {
	return g.Greet()
}
`)
}

func TestStepCallJoinsVirtualOverridesByDefault(t *testing.T) {
	fn := buildFunction(t, greeterSource(), "Caller")
	call := findInvokeCall(t, fn)

	registry := model.NewRegistry[string]()
	methodA := MethodID(findMethodWithRecv(t, fn, "A"))
	methodB := MethodID(findMethodWithRecv(t, fn, "B"))

	modelA := model.New()
	modelA.AddGeneration(accesspath.New(accesspath.Return(), accesspath.EmptyPath()), sourceTaint())
	registry.Set(methodA, modelA)

	modelB := model.New()
	modelB.AddGeneration(accesspath.New(accesspath.Return(), accesspath.EmptyPath()), frame.SingleFrame(frame.NoCallee(), callinfo.DeclarationInfo(), 0, accesspath.Leaf(), frame.Leaf(kind.NewNamed("OtherSource"))))
	registry.Set(methodB, modelB)

	overrides := stubOverrides{bySite: map[ssa.CallInstruction][]string{call: {methodA, methodB}}}
	ctx := AnalysisContext{Overrides: overrides}

	result := AnalyzeFunction(fn, registry, model.New(), 10, ctx)
	if !result.ReturnTaint.ContainsKind(kind.NewNamed("Source")) {
		t.Fatalf("expected the first override's generation to reach Caller's return")
	}
	if !result.ReturnTaint.ContainsKind(kind.NewNamed("OtherSource")) {
		t.Fatalf("expected both overrides' generations to be joined, got %v", result.ReturnTaint)
	}
}

func TestStepCallNarrowsToSingleOverrideWhenNoJoinVirtualOverridesSet(t *testing.T) {
	fn := buildFunction(t, greeterSource(), "Caller")
	call := findInvokeCall(t, fn)

	registry := model.NewRegistry[string]()
	methodA := MethodID(findMethodWithRecv(t, fn, "A"))
	methodB := MethodID(findMethodWithRecv(t, fn, "B"))

	modelA := model.New()
	modelA.AddGeneration(accesspath.New(accesspath.Return(), accesspath.EmptyPath()), sourceTaint())
	registry.Set(methodA, modelA)

	modelB := model.New()
	modelB.AddGeneration(accesspath.New(accesspath.Return(), accesspath.EmptyPath()), frame.SingleFrame(frame.NoCallee(), callinfo.DeclarationInfo(), 0, accesspath.Leaf(), frame.Leaf(kind.NewNamed("OtherSource"))))
	registry.Set(methodB, modelB)

	abstract := model.New()
	abstract.Modes = model.NoJoinVirtualOverrides
	registry.Set(call.Common().Method.FullName(), abstract)

	overrides := stubOverrides{bySite: map[ssa.CallInstruction][]string{call: {methodA, methodB}}}
	ctx := AnalysisContext{Overrides: overrides}

	result := AnalyzeFunction(fn, registry, model.New(), 10, ctx)
	if !result.ReturnTaint.ContainsKind(kind.NewNamed("Source")) {
		t.Fatalf("expected the sorted-first override's generation, got %v", result.ReturnTaint)
	}
	if result.ReturnTaint.ContainsKind(kind.NewNamed("OtherSource")) {
		t.Fatalf("expected NoJoinVirtualOverrides to narrow to one override, got %v", result.ReturnTaint)
	}
}

// findMethodWithRecv returns the *ssa.Function for the Greet method declared
// on the named receiver type, scanning fn's package members directly (method
// sets, rather than program-wide MethodValue lookups, avoid ambiguity
// between A.Greet and B.Greet sharing the Greet name).
func findMethodWithRecv(t *testing.T, fn *ssa.Function, recv string) *ssa.Function {
	t.Helper()
	for _, member := range fn.Pkg.Members {
		typ, ok := member.(*ssa.Type)
		if !ok || typ.Name() != recv {
			continue
		}
		m := fn.Pkg.Prog.LookupMethod(typ.Type(), typ.Package().Pkg, "Greet")
		if m != nil {
			return m
		}
	}
	t.Fatalf("expected to find %s.Greet", recv)
	return nil
}

// TestReportPartialFulfillmentEmitsTriggeredIssueOnceBothLabelsFulfilled
// exercises the spec.md §4.6 wiring end to end: a label's partial sink
// fulfillment alone reports nothing, but once every label of the rule has
// fulfilled, the resulting Triggered-kind sink is reported as an Issue whose
// (source kind, sink kind) pair is already indexed by the ordinary
// rules.Rules.Rules lookup frontend.matchRules uses — no separate matching
// path is needed downstream.
func TestReportPartialFulfillmentEmitsTriggeredIssueOnceBothLabelsFulfilled(t *testing.T) {
	ruleSet := rules.New()
	source := kind.NewNamed("Source")
	partialA := kind.NewPartial("Rule", "a")
	partialB := kind.NewPartial("Rule", "b")
	rule := rules.NewMultiSourceMultiSinkRule(1, "Rule",
		map[string][]kind.Kind{"a": {source}, "b": {source}},
		map[string][]kind.Kind{"a": {partialA}, "b": {partialB}},
	)
	if err := ruleSet.Add(rule); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ctx := AnalysisContext{Rules: ruleSet, Fulfilled: rules.NewFulfilledPartialKindState()}

	var issues []Issue
	report := func(i Issue) { issues = append(issues, i) }

	sourceTaintVal := frame.SingleFrame(frame.NoCallee(), callinfo.DeclarationInfo(), 0, accesspath.Leaf(), frame.Leaf(source))
	sinkA := frame.SingleFrame(frame.NoCallee(), callinfo.DeclarationInfo(), 0, accesspath.Leaf(), frame.Leaf(partialA))
	sinkB := frame.SingleFrame(frame.NoCallee(), callinfo.DeclarationInfo(), 0, accesspath.Leaf(), frame.Leaf(partialB))

	reportPartialFulfillment(ctx, sourceTaintVal, sinkA, 0, 0, report)
	if len(issues) != 0 {
		t.Fatalf("expected no issue after only one label fulfilled, got %v", issues)
	}

	reportPartialFulfillment(ctx, sourceTaintVal, sinkB, 0, 0, report)
	if len(issues) != 1 {
		t.Fatalf("expected exactly one issue once both labels fulfilled, got %d", len(issues))
	}

	var triggeredKind kind.Kind
	issues[0].Sink.VisitFrames(func(f frame.Frame) { triggeredKind = f.Kind() })
	matched := ruleSet.Rules(source, triggeredKind)
	if len(matched) != 1 || matched[0].Code() != 1 {
		t.Fatalf("expected the Triggered sink kind to resolve back to Rule via Rules.Rules, got %v", matched)
	}
}
