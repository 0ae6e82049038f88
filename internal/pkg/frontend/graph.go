package frontend

import (
	"sort"

	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/transfer"
)

// CallGraph adapts a golang.org/x/tools/go/callgraph.Graph into
// fixpoint.Graph[string]: methods are identified the same way the transfer
// step looks callees up in the Registry (transfer.MethodID), so the
// dependency graph the driver precomputes agrees with the keys
// StepForwardTaint/StepBackwardTaint actually read and write. It also
// implements transfer.OverrideResolver: cha.CallGraph resolves, per call
// site, every concrete override an interface dispatch may reach, and Site
// is exactly that call site's identity, so CallGraph replays it for
// stepCall/stepCallBackward instead of redoing CHA's type-assignability
// work in the transfer package.
type CallGraph struct {
	functions map[string]*ssa.Function
	callees   map[string][]string
	sites     map[ssa.CallInstruction][]string
}

// newCallGraph indexes g by transfer.MethodID, deduplicating edges to the
// same callee and dropping edges whose callee has no SSA body (external
// declarations contribute nothing to the interprocedural fixpoint). It also
// indexes edges by their originating call instruction, so a single
// invoke-mode call site's full override set can be recovered later.
func newCallGraph(g *callgraph.Graph) *CallGraph {
	cg := &CallGraph{
		functions: make(map[string]*ssa.Function, len(g.Nodes)),
		callees:   make(map[string][]string, len(g.Nodes)),
		sites:     make(map[ssa.CallInstruction][]string),
	}

	siteSeen := make(map[ssa.CallInstruction]map[string]bool)
	for fn, node := range g.Nodes {
		if fn == nil {
			continue
		}
		id := transfer.MethodID(fn)
		cg.functions[id] = fn

		seen := make(map[string]bool)
		for _, edge := range node.Out {
			if edge.Callee == nil || edge.Callee.Func == nil {
				continue
			}
			calleeID := transfer.MethodID(edge.Callee.Func)
			if !seen[calleeID] {
				seen[calleeID] = true
				cg.callees[id] = append(cg.callees[id], calleeID)
			}

			if edge.Site == nil {
				continue
			}
			perSite, ok := siteSeen[edge.Site]
			if !ok {
				perSite = make(map[string]bool)
				siteSeen[edge.Site] = perSite
			}
			if !perSite[calleeID] {
				perSite[calleeID] = true
				cg.sites[edge.Site] = append(cg.sites[edge.Site], calleeID)
			}
		}
	}

	for _, callees := range cg.callees {
		sort.Strings(callees)
	}
	for _, overrides := range cg.sites {
		sort.Strings(overrides)
	}

	return cg
}

// Overrides implements transfer.OverrideResolver: it returns, in
// deterministic sorted order, the transfer.MethodID of every concrete
// method CHA resolved for site. A site CHA never visited (e.g. a
// non-invoke call, or dead code) returns nil.
func (g *CallGraph) Overrides(site ssa.CallInstruction) []string { return g.sites[site] }

// Callees implements fixpoint.Graph[string].
func (g *CallGraph) Callees(id string) []string { return g.callees[id] }

// FunctionFor returns the *ssa.Function transfer.MethodID(fn) == id, if any
// function in the program was indexed under that id.
func (g *CallGraph) FunctionFor(id string) (*ssa.Function, bool) {
	fn, ok := g.functions[id]
	return fn, ok
}

// Methods returns every indexed method id, in no particular order.
func (g *CallGraph) Methods() []string {
	out := make([]string, 0, len(g.functions))
	for id := range g.functions {
		out = append(out, id)
	}
	return out
}
