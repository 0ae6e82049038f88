package postprocess

import (
	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/frame"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/model"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/tree"
)

// FrameJSON is the inverse of spec.md §6's TaintConfig schema: one emitted
// taint frame, flattened out of the Frame/CalleeFrames/CalleePortFrames
// nesting into a single flat object.
type FrameJSON struct {
	Kind           string   `json:"kind"`
	Callee         string   `json:"callee,omitempty"`
	CallPosition   int      `json:"call_position,omitempty"`
	CalleePort     string   `json:"callee_port,omitempty"`
	Distance       int      `json:"distance,omitempty"`
	Origins        []string `json:"origins,omitempty"`
	MayFeatures    []string `json:"may_features,omitempty"`
	AlwaysFeatures []string `json:"always_features,omitempty"`
	ViaTypeOf      []string `json:"via_type_of,omitempty"`
	ViaValueOf     []string `json:"via_value_of,omitempty"`
	CanonicalNames []string `json:"canonical_names,omitempty"`
}

func frameToJSON(callee frame.CalleeRef, position int, port accesspath.Root, f frame.Frame) FrameJSON {
	out := FrameJSON{
		Kind:           f.Kind().String(),
		Distance:       f.Distance(),
		Origins:        f.Origins().Sorted(),
		MayFeatures:    f.InferredFeatures().May().Sorted(),
		AlwaysFeatures: f.InferredFeatures().Always().Sorted(),
		ViaTypeOf:      f.ViaTypeOf().Sorted(),
		ViaValueOf:     f.ViaValueOf().Sorted(),
		CanonicalNames: f.CanonicalNames().Sorted(),
	}
	if callee.HasCallee {
		out.Callee = callee.Name
		out.CallPosition = position
		out.CalleePort = port.String()
	}
	return out
}

// taintToJSON flattens every (callee, position, port, kind, frame)
// combination held in t into a flat list of FrameJSON records.
func taintToJSON(t frame.Taint) []FrameJSON {
	var out []FrameJSON
	t.Visit(func(cf *frame.CalleeFrames) {
		cf.Visit(func(position int, ppf *frame.CalleePortFrames) {
			ppf.VisitFrames(func(f frame.Frame) {
				out = append(out, frameToJSON(cf.Callee(), position, ppf.Port(), f))
			})
		})
	})
	return out
}

// taintTreeToJSON flattens an access-path tree's frames into a map from
// the stringified access path to its frame list, the way models.json's
// generations/parameter_sources/sinks/propagations fields are laid out.
func taintTreeToJSON(apt *tree.AccessPathTree[frame.Taint]) map[string][]FrameJSON {
	out := map[string][]FrameJSON{}
	apt.Visit(func(root accesspath.Root, path accesspath.Path, value frame.Taint) {
		frames := taintToJSON(value)
		if len(frames) == 0 {
			return
		}
		out[accesspath.New(root, path).String()] = frames
	})
	return out
}

// ModelJSON is the inverse of models.json's per-method model object
// (spec.md §6).
type ModelJSON struct {
	Method           string               `json:"method"`
	Generations      map[string][]FrameJSON `json:"generations,omitempty"`
	ParameterSources map[string][]FrameJSON `json:"parameter_sources,omitempty"`
	Sinks            map[string][]FrameJSON `json:"sinks,omitempty"`
	Propagations     map[string][]FrameJSON `json:"propagations,omitempty"`
}

func modelToJSON(method string, m *model.Model) ModelJSON {
	return ModelJSON{
		Method:           method,
		Generations:      taintTreeToJSON(m.Generations),
		ParameterSources: taintTreeToJSON(m.ParameterSources),
		Sinks:            taintTreeToJSON(m.Sinks),
		Propagations:     taintTreeToJSON(m.Propagations),
	}
}

// IssueJSON is the serialized form of an Issue, tagged with a stable id so
// the same issue keeps the same identifier across reruns of the analysis.
type IssueJSON struct {
	ID       string      `json:"issue_id"`
	Method   string      `json:"method"`
	RuleCode int         `json:"rule_code"`
	Position int         `json:"position"`
	Sources  []FrameJSON `json:"sources"`
	Sinks    []FrameJSON `json:"sinks"`
}
