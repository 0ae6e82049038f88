// Package wire implements the JSON (de)serialization of spec.md §6's
// external interfaces: the TaintConfig schema taint entries are written
// and read in, and the rules.json/models.json input file shapes built on
// top of it. Grounded on original_source/TaintConfig.h/.cpp and
// JsonReaderWriter.cpp.
package wire

import (
	"fmt"
	"strings"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/callinfo"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/frame"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/kind"
)

// FeaturesJSON is the "features" object of the TaintConfig schema: the
// may/always inferred-feature pair (spec.md §4.1).
type FeaturesJSON struct {
	May    []string `json:"may,omitempty"`
	Always []string `json:"always,omitempty"`
}

// TaintConfigJSON is spec.md §6's TaintConfig schema:
// {kind, callee_port?, callee?, call_position?, distance?, features?,
// via_type_of?, via_value_of?, canonical_names?, partial_label?}.
type TaintConfigJSON struct {
	Kind           string        `json:"kind"`
	CalleePort     string        `json:"callee_port,omitempty"`
	Callee         string        `json:"callee,omitempty"`
	CallPosition   int           `json:"call_position,omitempty"`
	Distance       int           `json:"distance,omitempty"`
	Features       *FeaturesJSON `json:"features,omitempty"`
	ViaTypeOf      []string      `json:"via_type_of,omitempty"`
	ViaValueOf     []string      `json:"via_value_of,omitempty"`
	CanonicalNames []string      `json:"canonical_names,omitempty"`
	PartialLabel   string        `json:"partial_label,omitempty"`
}

// decodeKind builds a kind.Kind from a TaintConfigJSON's kind/partial_label
// fields. Input model seeds only ever name Named, Propagation, or Partial
// kinds directly — Triggered and Transform kinds are products the analyzer
// itself derives during fixpoint iteration and are never present in
// model-generator input, so this intentionally does not attempt to invert
// their (recursive, canonicalizing) String() forms.
func decodeKind(name, partialLabel string) (kind.Kind, error) {
	if partialLabel != "" {
		return kind.NewPartial(name, partialLabel), nil
	}
	if strings.HasPrefix(name, "Propagation(") && strings.HasSuffix(name, ")") {
		root := name[len("Propagation(") : len(name)-1]
		return kind.NewPropagation(root), nil
	}
	if name == "" {
		return kind.Kind{}, fmt.Errorf("wire: taint config is missing a kind")
	}
	return kind.NewNamed(name), nil
}

// toFrame builds the Frame metadata t describes (everything except the
// callee hop itself, which ToTaint attaches separately).
func (t TaintConfigJSON) toFrame() (frame.Frame, error) {
	k, err := decodeKind(t.Kind, t.PartialLabel)
	if err != nil {
		return frame.Frame{}, err
	}

	var inferred frame.FeatureSet
	if t.Features != nil {
		inferred = frame.NewFeatures(t.Features.May, t.Features.Always)
	}

	return frame.NewFrame(
		k,
		frame.Unbounded(),
		t.Distance,
		frame.NewStringSet(),
		inferred,
		frame.EmptyFeatures(),
		frame.NewStringSet(t.ViaTypeOf...),
		frame.NewStringSet(t.ViaValueOf...),
		frame.NewStringSet(t.CanonicalNames...),
		frame.EmptyOutputPaths(),
		frame.NewStringSet(),
	), nil
}

// ToTaint builds the single-frame Taint t describes, reconstructing its
// CallInfo from whether a callee is present (Origin for a hop into a
// callee, Declaration for a leaf frame) and its callee port from
// callee_port, defaulting to Leaf for frames with no callee.
func (t TaintConfigJSON) ToTaint() (frame.Taint, error) {
	f, err := t.toFrame()
	if err != nil {
		return frame.Taint{}, err
	}

	callee := frame.NoCallee()
	info := callinfo.DeclarationInfo()
	if t.Callee != "" {
		callee = frame.Callee(t.Callee)
		info = callinfo.OriginInfo()
	}

	port := accesspath.Leaf()
	if t.CalleePort != "" {
		port, err = accesspath.ParseRoot(t.CalleePort)
		if err != nil {
			return frame.Taint{}, fmt.Errorf("wire: taint config callee_port: %w", err)
		}
	}

	return frame.SingleFrame(callee, info, t.CallPosition, port, f), nil
}

// DecodeTaintList unions every entry's single-frame Taint into one Taint,
// the way a models.json access-path entry's array of TaintConfig objects
// is joined into the corresponding tree node.
func DecodeTaintList(entries []TaintConfigJSON) (frame.Taint, error) {
	out := frame.EmptyTaint()
	for i, entry := range entries {
		t, err := entry.ToTaint()
		if err != nil {
			return frame.Taint{}, fmt.Errorf("wire: taint config entry %d: %w", i, err)
		}
		out = out.Join(t)
	}
	return out, nil
}
