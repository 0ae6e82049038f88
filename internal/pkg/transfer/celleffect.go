package transfer

import (
	"golang.org/x/tools/go/ssa"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/callinfo"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/frame"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/kind"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/model"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/tree"
)

// CallChainKind is the one call-effect kind spec.md §4.4.4 names, used for
// via-dependency-graph reasoning: a frame of this kind records that a call
// occurred, independent of any data-flow through registers.
var CallChainKind = kind.NewNamed("CallChain")

// ApplyCallEffects installs CallChain call-effect frames on both sides of a
// call: a source-style frame into the caller's CallEffectSources (so its own
// callers can, in turn, observe that this call chain was exercised) and a
// sink-style frame into the callee's CallEffectSinks, both keyed by the
// dedicated CallEffect root rather than a register (spec.md §4.4.4: "keyed
// by a distinct CallEffect rather than a register").
func ApplyCallEffects(callerModel *model.Model, calleeModel *model.Model, call *ssa.Call) {
	f := frame.Leaf(CallChainKind)
	path := accesspath.New(accesspath.CallEffect(), accesspath.EmptyPath())
	taint := frame.SingleFrame(frame.NoCallee(), callinfo.OriginInfo(), 0, accesspath.Leaf(), f)
	callerModel.CallEffectSources.Write(path, taint, tree.Weak)
	calleeModel.CallEffectSinks.Write(path, taint, tree.Weak)
	_ = call
}
