// Copyright 2019 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package kind implements the named/partial/triggered/propagation/transform
// Kind variants and the composable TransformList, per spec.md §4.1/§4.2.
package kind

import (
	"fmt"
	"sort"
	"strings"
)

// Variant discriminates the Kind union.
type Variant int

const (
	Named Variant = iota
	Partial
	Triggered
	Propagation
	Transform
)

// Kind is a named, partial, triggered, propagation, or transform label on
// taint. Kinds are immutable values; the analysis interns them via
// internal/pkg/intern so equality reduces to pointer equality in practice,
// but Kind itself remains a plain comparable value for ease of testing.
type Kind struct {
	variant Variant

	// Named / Partial
	name  string
	label string // Partial only

	// Triggered
	partial *Kind
	rule    int

	// Propagation
	root string

	// Transform
	base   *Kind
	local  TransformList
	global TransformList
}

// NewNamed builds a Named(name) kind.
func NewNamed(name string) Kind {
	return Kind{variant: Named, name: name}
}

// NewPartial builds a Partial(name, label) kind, used for one side of a
// multi-source/multi-sink rule.
func NewPartial(name, label string) Kind {
	return Kind{variant: Partial, name: name, label: label}
}

// NewTriggered builds a Triggered(partial, rule) kind: the kind a partial
// sink is upgraded to once one label of a multi-source rule is fulfilled.
func NewTriggered(partial Kind, rule int) Kind {
	return Kind{variant: Triggered, partial: &partial, rule: rule}
}

// NewPropagation builds a Propagation(root) kind.
func NewPropagation(root string) Kind {
	return Kind{variant: Propagation, root: root}
}

// NewTransform builds a Transform(base, local, global) kind.
func NewTransform(base Kind, local, global TransformList) Kind {
	return Kind{variant: Transform, base: &base, local: local, global: global}
}

// Variant returns the discriminant.
func (k Kind) Variant() Variant { return k.variant }

// Name returns the name for Named/Partial kinds.
func (k Kind) Name() string { return k.name }

// Label returns the partial label for Partial kinds.
func (k Kind) Label() string { return k.label }

// Partial returns the wrapped partial kind for Triggered kinds.
func (k Kind) Partial() Kind { return *k.partial }

// Rule returns the rule id for Triggered kinds.
func (k Kind) Rule() int { return k.rule }

// PropagationRoot returns the access-path root name for Propagation kinds.
func (k Kind) PropagationRoot() string { return k.root }

// Local returns the local-side transform list for Transform kinds.
func (k Kind) Local() TransformList { return k.local }

// Global returns the global-side transform list for Transform kinds.
func (k Kind) Global() TransformList { return k.global }

// DiscardTransforms returns the base kind, stripping any Transform wrapper.
// Non-Transform kinds are their own base.
func (k Kind) DiscardTransforms() Kind {
	if k.variant != Transform {
		return k
	}
	return k.base.DiscardTransforms()
}

// WithKind is the identity transform used by Frame.WithKind: it simply
// returns the replacement, kept here so callers have one obvious place to
// look for "how do I change just the kind" semantics.
func WithKind(replacement Kind) Kind { return replacement }

// Equal performs a structural equality check across all variants.
func (k Kind) Equal(other Kind) bool {
	if k.variant != other.variant {
		return false
	}
	switch k.variant {
	case Named:
		return k.name == other.name
	case Partial:
		return k.name == other.name && k.label == other.label
	case Triggered:
		return k.rule == other.rule && k.partial.Equal(*other.partial)
	case Propagation:
		return k.root == other.root
	case Transform:
		return k.base.Equal(*other.base) && k.local.Equal(other.local) && k.global.Equal(other.global)
	default:
		return false
	}
}

// String renders a debug-friendly representation of the kind.
func (k Kind) String() string {
	switch k.variant {
	case Named:
		return k.name
	case Partial:
		return fmt.Sprintf("Partial(%s, %s)", k.name, k.label)
	case Triggered:
		return fmt.Sprintf("Triggered(%s, rule=%d)", k.partial.String(), k.rule)
	case Propagation:
		return fmt.Sprintf("Propagation(%s)", k.root)
	case Transform:
		parts := []string{}
		if !k.local.Empty() {
			parts = append(parts, "local="+k.local.String())
		}
		if !k.global.Empty() {
			parts = append(parts, "global="+k.global.String())
		}
		return fmt.Sprintf("Transform(%s%s)", k.base.String(), joinSuffix(parts))
	default:
		return "<invalid-kind>"
	}
}

func joinSuffix(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return ", " + strings.Join(parts, ", ")
}

// sanitizerKey is used to canonicalize adjacent sanitizer-set transforms: two
// sanitizer sets with the same sanitized-kind membership merge into one,
// keyed by the sorted set of kind names they sanitize.
func sanitizerKey(kinds []string) string {
	cp := append([]string(nil), kinds...)
	sort.Strings(cp)
	return strings.Join(cp, ",")
}
