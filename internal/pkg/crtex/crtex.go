// Package crtex implements cross-repo-taint-exchange canonical names: the
// templated names CRTEX frames carry on their Anchor port, instantiated
// into concrete names on their Producer port once a method signature and
// any via-type-of features are known. Grounded on
// original_source/CanonicalName.cpp.
package crtex

import (
	"fmt"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
)

// Marker placeholders a template canonical name may contain.
const (
	LeafNameMarker    = "%LEAF_NAME%"
	BloksMarker       = "%BLOKS%"
	GraphQLRootMarker = "%GRAPHQL_ROOT%"
	ViaTypeOfMarker   = "%VIA_TYPE_OF%"
)

// CanonicalName is either a template (uninstantiated, carried on an Anchor
// port) or an instantiated value (carried on a Producer port). Exactly one
// of the two is ever set; the zero value is neither and is never produced
// by NewTemplate/NewInstantiated.
type CanonicalName struct {
	template     string
	instantiated string
	isTemplate   bool
}

// NewTemplate wraps an uninstantiated canonical name template.
func NewTemplate(value string) CanonicalName {
	return CanonicalName{template: value, isTemplate: true}
}

// NewInstantiated wraps an already-instantiated canonical name.
func NewInstantiated(value string) CanonicalName {
	return CanonicalName{instantiated: value}
}

func (c CanonicalName) IsTemplate() bool { return c.isTemplate }

// TemplateValue returns the template string and true, or "", false if c is
// not a template.
func (c CanonicalName) TemplateValue() (string, bool) {
	if !c.isTemplate {
		return "", false
	}
	return c.template, true
}

// InstantiatedValue returns the instantiated string and true, or "", false
// if c is not instantiated.
func (c CanonicalName) InstantiatedValue() (string, bool) {
	if c.isTemplate {
		return "", false
	}
	return c.instantiated, true
}

func (c CanonicalName) String() string {
	if c.isTemplate {
		return "template=" + c.template
	}
	return "instantiated=" + c.instantiated
}

// IsViaTypeOfTemplate reports whether c is a template referencing
// %VIA_TYPE_OF%.
func (c CanonicalName) IsViaTypeOfTemplate() bool {
	value, ok := c.TemplateValue()
	return ok && contains(value, ViaTypeOfMarker)
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// ValidatePort enforces spec.md §4.5's parse-time shape invariant: template
// canonical names pair with the Anchor port, instantiated ones with the
// Producer port. Mixing either way fails validation.
func (c CanonicalName) ValidatePort(port accesspath.Root) error {
	switch port.Kind() {
	case accesspath.RootAnchor:
		if !c.isTemplate {
			return fmt.Errorf("crtex: instantiated canonical name %q must not be carried on an Anchor port", c.instantiated)
		}
	case accesspath.RootProducer:
		if c.isTemplate {
			return fmt.Errorf("crtex: template canonical name %q must not be carried on a Producer port", c.template)
		}
	default:
		return fmt.Errorf("crtex: canonical name %v requires an Anchor or Producer port, got %v", c, port)
	}
	return nil
}

// PropagateOrigins turns each instantiated canonical name in names into an
// origin string recorded on the frames that flow through callee_port,
// mirroring CanonicalName::propagate's construction of a crtex_origin per
// instantiated name.
func PropagateOrigins(names []CanonicalName, calleePort accesspath.Root) []string {
	origins := make([]string, 0, len(names))
	for _, name := range names {
		value, ok := name.InstantiatedValue()
		if !ok {
			continue
		}
		origins = append(origins, fmt.Sprintf("crtex:%s@%s", value, calleePort.String()))
	}
	return origins
}
