package transfer

import (
	"golang.org/x/tools/go/ssa"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/callinfo"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/environment"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/frame"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/kind"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/model"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/rules"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/tree"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/utils"
)

// OverrideResolver resolves, for an invoke-mode call site, the
// transfer.MethodID of every concrete method Class Hierarchy Analysis
// (golang.org/x/tools/go/callgraph/cha) determined the interface dispatch
// could reach. frontend.CallGraph implements this by replaying the Site
// each cha.Edge already recorded, rather than redoing CHA's
// type-assignability work in this package.
type OverrideResolver interface {
	Overrides(site ssa.CallInstruction) []string
}

// AnalysisContext bundles the inputs that are fixed for the whole
// frontend.Run invocation and shared, read-only, across every method's
// AnalyzeFunction call: the CHA override resolver virtual calls need
// (spec.md §4.4.2), and the rule set plus FulfilledPartialKindState a
// MultiSourceMultiSinkRule's partial sinks need (spec.md §4.6). Unlike the
// per-method previous *model.Model, none of these are specific to one
// method or one fixpoint iteration.
type AnalysisContext struct {
	Overrides OverrideResolver
	Rules     *rules.Rules
	Fulfilled *rules.FulfilledPartialKindState
}

// ForwardTaintState is the ForwardTaintEnvironment of spec.md §4.4.2: taint
// keyed by root memory location, plus the accumulators the per-method
// fixpoint folds into the method's inferred Model once the CFG stabilizes.
type ForwardTaintState struct {
	Taint        *environment.TaintEnvironment
	ReturnTaint  frame.Taint
	ThrownTaint  frame.Taint
}

func NewForwardTaintState() *ForwardTaintState {
	return &ForwardTaintState{
		Taint:       environment.NewTaintEnvironment(),
		ReturnTaint: frame.EmptyTaint(),
		ThrownTaint: frame.EmptyTaint(),
	}
}

func (s *ForwardTaintState) Leq(other *ForwardTaintState) bool {
	return s.Taint.Leq(other.Taint) && s.ReturnTaint.Leq(other.ReturnTaint) && s.ThrownTaint.Leq(other.ThrownTaint)
}

func (s *ForwardTaintState) Join(other *ForwardTaintState) *ForwardTaintState {
	return &ForwardTaintState{
		Taint:       s.Taint.Join(other.Taint),
		ReturnTaint: s.ReturnTaint.Join(other.ReturnTaint),
		ThrownTaint: s.ThrownTaint.Join(other.ThrownTaint),
	}
}

func (s *ForwardTaintState) Widen(other *ForwardTaintState) *ForwardTaintState {
	return &ForwardTaintState{
		Taint:       s.Taint.Widen(other.Taint),
		ReturnTaint: s.ReturnTaint.Widen(other.ReturnTaint),
		ThrownTaint: s.ThrownTaint.Widen(other.ThrownTaint),
	}
}

// MethodID returns the dotted path#recv.name identity StepForwardTaint uses
// to look a callee up in the Registry. Exported so the fixpoint driver keys
// the same Registry with the same identity.
func MethodID(fn *ssa.Function) string {
	path, recv, name := utils.DecomposeFunction(fn)
	if recv != "" {
		return path + "#" + recv + "." + name
	}
	return path + "#" + name
}

// Issue is reported whenever a sink frame and a tainted argument meet at a
// call; issue/rule matching itself is the rules package's responsibility,
// so Issue only records the raw material a rule evaluates.
type Issue struct {
	Source    frame.Taint
	Sink      frame.Taint
	ArgIndex  int
	Position  int
}

// IssueReporter receives every (source, sink) candidate pair StepForwardTaint
// discovers at a call. The rules package supplies the real implementation;
// tests may pass a slice-collecting stub.
type IssueReporter func(Issue)

// emptyModel stands in for a callee with no registry entry: callee lookup
// falls back to this empty model, which contributes nothing to taint and skips issue-reporting
// for that call, i.e. the "unresolved callee" case degrades safely.
var emptyModel = model.New()

// calleeArguments normalizes a call's receiver and explicit arguments into a
// single, Argument(0)-indexed slice, so interface (invoke-mode) and static
// calls share one indexing scheme consistent with accesspath.Receiver()
// being Argument(0).
func calleeArguments(common *ssa.CallCommon) []ssa.Value {
	if common.IsInvoke() {
		args := make([]ssa.Value, 0, len(common.Args)+1)
		args = append(args, common.Value)
		args = append(args, common.Args...)
		return args
	}
	return common.Args
}

// StepForwardTaint applies one instruction's forward taint rules, per
// spec.md §4.4.2. alias supplies the already-computed alias state for this
// instruction; registry is read (never written) for callee models.
func StepForwardTaint(alias *AliasState, state *ForwardTaintState, registry *model.Registry[string], report IssueReporter, ctx AnalysisContext, instr ssa.Instruction, maxDistance int) {
	switch v := instr.(type) {
	case *ssa.Call:
		stepCall(alias, state, registry, report, ctx, v, maxDistance)

	case *ssa.Store:
		stepStore(alias, state, v)

	case *ssa.Return:
		for _, r := range v.Results {
			for _, loc := range alias.Registers.Get(r).Locations() {
				state.ReturnTaint = state.ReturnTaint.Join(state.Taint.DeepRead(alias.Points, loc))
			}
		}

	case *ssa.Panic:
		for _, loc := range alias.Registers.Get(v.X).Locations() {
			state.ThrownTaint = state.ThrownTaint.Join(state.Taint.DeepRead(alias.Points, loc))
		}
	}
}

// stepStore propagates taint through a field write: the stored value's
// taint (read at its own location) is deep-written into the field location
// the store's address register denotes, keeping field-sensitive propagation
// in step with the alias rules' struct/array field modeling.
func stepStore(alias *AliasState, state *ForwardTaintState, v *ssa.Store) {
	var valueTaint frame.Taint
	for _, loc := range alias.Registers.Get(v.Val).Locations() {
		valueTaint = valueTaint.Join(state.Taint.DeepRead(alias.Points, loc))
	}
	targets := alias.Registers.Get(v.Addr).Locations()
	writeKind := tree.Weak
	if len(targets) == 1 {
		writeKind = tree.Strong
	}
	for _, loc := range targets {
		state.Taint.DeepWrite(alias.Points, loc, valueTaint, writeKind)
	}
}

// resolveVirtualModel looks up the Model for an invoke-mode call, joined
// over every concrete override CHA resolved for this call site (spec.md
// §4.4.2: "for virtual calls, joined over overrides unless
// NoJoinVirtualOverrides"). abstractID is the interface method's own
// identity (common.Method.FullName()) — never a valid Registry key for a
// concrete implementation, but the only identity a models.json seed can
// attach directly to an abstract method, so it is where
// NoJoinVirtualOverrides itself is read from. When set, the call
// deterministically narrows to a single override (CHA's resolved set,
// sorted) rather than joining all of them, standing in for the full
// per-receiver class-interval narrowing spec.md's scenario S5 describes.
func resolveVirtualModel(registry *model.Registry[string], overrides OverrideResolver, site ssa.CallInstruction, abstractID string) *model.Model {
	if overrides == nil {
		return emptyModel
	}
	candidates := overrides.Overrides(site)
	if len(candidates) == 0 {
		return emptyModel
	}

	if registry.Get(abstractID).Modes.Has(model.NoJoinVirtualOverrides) {
		return registry.Get(candidates[0])
	}

	joined := model.New()
	for _, id := range candidates {
		joined = joined.Join(registry.Get(id))
	}
	return joined
}

func stepCall(alias *AliasState, state *ForwardTaintState, registry *model.Registry[string], report IssueReporter, ctx AnalysisContext, call *ssa.Call, maxDistance int) {
	common := call.Common()
	callee := common.StaticCallee()

	var calleeModel *model.Model
	var calleeID string
	if callee != nil {
		calleeID = MethodID(callee)
		calleeModel = registry.Get(calleeID)
	} else if common.IsInvoke() {
		calleeID = common.Method.FullName()
		calleeModel = resolveVirtualModel(registry, ctx.Overrides, call, calleeID)
	} else {
		calleeModel = emptyModel
	}

	args := calleeArguments(common)
	position := instrID(call)
	resultLoc := environment.Instruction(instrID(call))

	ctxFor := func(calleePort accesspath.Root) frame.CallContext {
		return frame.CallContext{
			Callee:                    frame.Callee(calleeID),
			CalleePort:                calleePort,
			CallPosition:              position,
			CallerClassInterval:       frame.Unbounded(),
			MaximumSourceSinkDistance: maxDistance,
		}
	}

	// Step 2 of spec.md §4.4.2: propagate generations into the return
	// register, strongly (a fresh call result has exactly one location).
	generations := calleeModel.Generations.Tree(accesspath.Return()).Value()
	if !generations.IsBottom() {
		propagated := frame.Propagate(generations, ctxFor(accesspath.Return()))
		state.Taint.DeepWrite(alias.Points, resultLoc, propagated, tree.Strong)
	}

	// Step 3: propagations from each input argument to whichever output
	// port (argument or return) its propagation frames name.
	for i, arg := range args {
		inputRoot := accesspath.Argument(uint32(i))
		propagationFrames := calleeModel.Propagations.Tree(inputRoot).Value()
		if propagationFrames.IsBottom() {
			continue
		}
		var inputTaint frame.Taint
		for _, loc := range alias.Registers.Get(arg).Locations() {
			inputTaint = inputTaint.Join(state.Taint.DeepRead(alias.Points, loc))
		}
		if inputTaint.IsBottom() {
			continue
		}
		propagationFrames.VisitFrames(func(f frame.Frame) {
			if f.Kind().Variant() != kind.Propagation {
				return
			}
			outputRoot, err := accesspath.ParseRoot(f.Kind().PropagationRoot())
			if err != nil {
				return
			}
			applyPropagation(alias, state, args, resultLoc, inputTaint, outputRoot, f, ctxFor(inputRoot))
		})

		// Step 4: issue detection against the callee's declared sinks at
		// this argument's port — ordinary (source, sink) rule matches
		// (left to frontend.matchRules's Rules.Rules lookup) plus, for any
		// partial multi-source sink, the fulfillment bookkeeping of
		// spec.md §4.6.
		sinks := calleeModel.Sinks.Tree(inputRoot).Value()
		if !sinks.IsBottom() {
			if report != nil {
				report(Issue{Source: inputTaint, Sink: sinks, ArgIndex: i, Position: position})
			}
			reportPartialFulfillment(ctx, inputTaint, sinks, i, position, report)
		}
	}
}

// filterByKind keeps only the frames of t whose kind equals k, preserving
// their callee/position/port coordinates.
func filterByKind(t frame.Taint, k kind.Kind) frame.Taint {
	return t.Transform(func(f frame.Frame) (frame.Frame, bool) { return f, f.Kind().Equal(k) })
}

// labelForPartialSink scans rule's labels for the one whose partial sink
// kinds contain sinkKind (PartialRules reports candidate rules but not
// which label matched, since a rule's labels can share source kinds).
func labelForPartialSink(rule *rules.MultiSourceMultiSinkRule, sinkKind kind.Kind) (string, bool) {
	for _, label := range rule.Labels() {
		for _, k := range rule.PartialSinkKinds(label) {
			if k.Equal(sinkKind) {
				return label, true
			}
		}
	}
	return "", false
}

// reportPartialFulfillment drives spec.md §4.6's multi-source/multi-sink
// rule matching: for every (source frame, partial sink frame) pair reaching
// this call's sink, it finds the label that partial sink belongs to and
// records its fulfillment. Once every other label of that rule has already
// fulfilled, FulfillKind hands back a Triggered-kind sink Taint, which is
// reported as an ordinary Issue — frontend.matchRules's existing
// ruleSet.Rules(source.Kind(), sink.Kind()) lookup already indexes that
// Triggered kind (rules.addMultiSourceRule), so no separate matching path
// is needed downstream.
func reportPartialFulfillment(ctx AnalysisContext, source, sink frame.Taint, argIndex, position int, report IssueReporter) {
	if ctx.Rules == nil || ctx.Fulfilled == nil || report == nil {
		return
	}
	source.VisitFrames(func(sourceFrame frame.Frame) {
		sink.VisitFrames(func(sinkFrame frame.Frame) {
			if sinkFrame.Kind().Variant() != kind.Partial {
				return
			}
			for _, rule := range ctx.Rules.PartialRules(sourceFrame.Kind(), sinkFrame.Kind()) {
				label, ok := labelForPartialSink(rule, sinkFrame.Kind())
				if !ok {
					continue
				}
				features := sinkFrame.InferredFeatures().Join(sinkFrame.UserFeatures())
				thisSink := filterByKind(sink, sinkFrame.Kind())
				result, complete := ctx.Fulfilled.FulfillKind(sinkFrame.Kind(), label, rule, features, thisSink)
				if !complete {
					continue
				}
				report(Issue{Source: source, Sink: result, ArgIndex: argIndex, Position: position})
			}
		})
	})
}

// applyPropagation writes the propagated taint to every access path f's
// output_paths names, weakly for argument destinations (which may alias
// other state) and strongly for the return register (spec.md §4.4.2 step 3).
func applyPropagation(alias *AliasState, state *ForwardTaintState, args []ssa.Value, resultLoc environment.MemoryLocation, inputTaint frame.Taint, outputRoot accesspath.Root, f frame.Frame, ctx frame.CallContext) {
	single := frame.SingleFrame(frame.NoCallee(), callinfo.OriginInfo(), 0, accesspath.Leaf(), f)
	propagated := frame.Propagate(inputTaint.Join(single), ctx)

	destinations, writeKind := destinationLocations(alias, args, resultLoc, outputRoot)
	for range f.OutputPaths().Entries() {
		// Each tracked output path names a destination sub-location within
		// the port; since our locations are already field-sensitive via
		// Field(), the port-level destination below is where the value
		// lands, and finer per-path fan-out is a refinement left to a
		// richer frontend that builds per-field args/result locations.
		for _, dest := range destinations {
			state.Taint.DeepWrite(alias.Points, dest, propagated, writeKind)
		}
	}
}

func destinationLocations(alias *AliasState, args []ssa.Value, resultLoc environment.MemoryLocation, root accesspath.Root) ([]environment.MemoryLocation, tree.WriteKind) {
	if root.Kind() == accesspath.RootReturn {
		return []environment.MemoryLocation{resultLoc}, tree.Strong
	}
	if root.IsArgument() {
		idx := int(root.Parameter())
		if idx < 0 || idx >= len(args) {
			return nil, tree.Weak
		}
		return alias.Registers.Get(args[idx]).Locations(), tree.Weak
	}
	return nil, tree.Weak
}
