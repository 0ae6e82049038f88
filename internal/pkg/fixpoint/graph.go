package fixpoint

import (
	"golang.org/x/tools/go/ssa"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/transfer"
)

// MapGraph is a Graph backed by a precomputed adjacency map, handy for tests
// and for any frontend that already has its own call-graph representation.
type MapGraph[Method comparable] map[Method][]Method

func (g MapGraph[Method]) Callees(m Method) []Method { return g[m] }

// SSAGraph derives call-graph edges directly from a set of built SSA
// functions by scanning each function's instructions for statically
// resolved call sites, keying methods the same way transfer.MethodID does
// so a Driver[string] can share identities with the transfer package.
// Virtual dispatch through interfaces is intentionally left unresolved here
// (spec.md's "resolved callees"); a frontend with real override information
// can instead build a MapGraph that includes override edges.
type SSAGraph struct {
	edges map[string][]string
}

// NewSSAGraph scans every instruction of every function in fns for
// *ssa.Call sites with a statically resolved callee.
func NewSSAGraph(fns []*ssa.Function) *SSAGraph {
	g := &SSAGraph{edges: make(map[string][]string, len(fns))}
	for _, fn := range fns {
		id := transfer.MethodID(fn)
		seen := make(map[string]bool)
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				call, ok := instr.(*ssa.Call)
				if !ok {
					continue
				}
				callee := call.Common().StaticCallee()
				if callee == nil {
					continue
				}
				calleeID := transfer.MethodID(callee)
				if seen[calleeID] {
					continue
				}
				seen[calleeID] = true
				g.edges[id] = append(g.edges[id], calleeID)
			}
		}
	}
	return g
}

func (g *SSAGraph) Callees(m string) []string { return g.edges[m] }
