// Package postprocess implements the end-of-fixpoint cleanup of spec.md
// §4.8: removing trace hops that refer to a (callee, port, kind) triple the
// callee's own Model no longer advertises, culling issues whose source or
// sink traces became invalid as a result, and serializing the final
// Registry as sharded JSON-lines. Grounded on
// original_source/PostprocessTraces.cpp.
package postprocess

import (
	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/frame"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/kind"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/model"
)

// checkCalleeKinds reports whether calleeTaint contains a frame matching k,
// treating a Transform kind specially: when it has no global transforms, a
// plain occurrence of its base kind suffices (the transform is purely
// local, applied by the caller itself); otherwise some frame must carry the
// exact same base kind with the same concatenated local+global transform
// sequence. Grounded on PostprocessTraces.cpp's check_callee_kinds.
func checkCalleeKinds(calleeTaint frame.Taint, k kind.Kind) bool {
	if k.Variant() != kind.Transform {
		return calleeTaint.ContainsKind(k)
	}

	base := k.DiscardTransforms()
	if k.Global().Empty() {
		return calleeTaint.ContainsKind(base)
	}

	found := false
	calleeTaint.VisitFrames(func(f frame.Frame) {
		if found {
			return
		}
		fk := f.Kind()
		if fk.Variant() != kind.Transform {
			return
		}
		if !fk.DiscardTransforms().Equal(base) {
			return
		}
		if fk.Local().Concat(fk.Global()).Equal(k.Global()) {
			found = true
		}
	})
	return found
}

// isValidGeneration reports whether a generation/parameter-source frame
// whose trace hops into callee at port with kind k is still backed by a
// matching entry in callee's own Model (PostprocessTraces.cpp's
// is_valid_generation).
func isValidGeneration(registry *model.Registry[string], callee frame.CalleeRef, port accesspath.Root, k kind.Kind) bool {
	if !callee.HasCallee {
		// Leaf frame: nothing further to validate.
		return true
	}
	if port.Kind() == accesspath.RootAnchor {
		// Crtex frames whose canonical name was instantiated during
		// propagation are terminal even though they still carry a callee.
		return true
	}
	calleeModel := registry.Get(callee.Name)
	return checkCalleeKinds(calleeModel.Generations.Tree(port).Value(), k)
}

// isValidSink is the sink-side equivalent of isValidGeneration, with the
// additional PartialKind/TriggeredPartialKind fallback: a triggered sink
// kind remains valid as long as its underlying partial kind is still a sink
// of the callee (transforms are not supported on partial kinds). Grounded
// on PostprocessTraces.cpp's is_valid_sink.
func isValidSink(registry *model.Registry[string], callee frame.CalleeRef, port accesspath.Root, k kind.Kind) bool {
	if !callee.HasCallee {
		return true
	}
	if port.Kind() == accesspath.RootAnchor || port.Kind() == accesspath.RootCallEffect {
		return true
	}
	calleeModel := registry.Get(callee.Name)
	sinks := calleeModel.Sinks.Tree(port).Value()
	if checkCalleeKinds(sinks, k) {
		return true
	}

	discarded := k.DiscardTransforms()
	if discarded.Variant() != kind.Triggered {
		return false
	}
	return sinks.ContainsKind(discarded.Partial())
}
