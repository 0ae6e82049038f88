package fixpoint

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/transfer"
)

// buildFunctions compiles source to SSA and returns every named function,
// grounded the same way transfer_test.go's buildFunction is.
func buildFunctions(t *testing.T, source string, names ...string) map[string]*ssa.Function {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "input.go", source, parser.ParseComments)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	pkg := types.NewPackage("input", "")
	ssaPkg, _, err := ssautil.BuildPackage(&types.Config{Importer: importer.Default()}, fset, pkg, []*ast.File{file}, ssa.SanityCheckFunctions)
	if err != nil {
		t.Fatalf("build ssa: %v", err)
	}
	ssaPkg.Build()

	out := make(map[string]*ssa.Function, len(names))
	for _, name := range names {
		fn := ssaPkg.Func(name)
		if fn == nil {
			t.Fatalf("function %s not found", name)
		}
		out[name] = fn
	}
	return out
}

func TestNewSSAGraphFindsStaticCallEdge(t *testing.T) {
	fns := buildFunctions(t, `package input

func Source() string {
	return "tainted"
}

func Caller() string {
	return Source()
}
`, "Source", "Caller")

	var list []*ssa.Function
	for _, fn := range fns {
		list = append(list, fn)
	}

	graph := NewSSAGraph(list)
	callerID := transfer.MethodID(fns["Caller"])
	sourceID := transfer.MethodID(fns["Source"])

	callees := graph.Callees(callerID)
	found := false
	for _, c := range callees {
		if c == sourceID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Caller's callees %v to include Source (%s)", callees, sourceID)
	}

	if callees := graph.Callees(sourceID); len(callees) != 0 {
		t.Fatalf("expected Source to have no callees, got %v", callees)
	}
}

func TestNewSSAGraphDeduplicatesRepeatedCallSites(t *testing.T) {
	fns := buildFunctions(t, `package input

func Source() string {
	return "tainted"
}

func Caller() string {
	return Source() + Source()
}
`, "Source", "Caller")

	var list []*ssa.Function
	for _, fn := range fns {
		list = append(list, fn)
	}

	graph := NewSSAGraph(list)
	callerID := transfer.MethodID(fns["Caller"])
	if callees := graph.Callees(callerID); len(callees) != 1 {
		t.Fatalf("expected exactly one deduplicated callee edge, got %v", callees)
	}
}
