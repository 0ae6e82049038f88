package crtex

import (
	"fmt"
	"regexp"
	"strings"
)

// MarkerResolver supplies the domain-specific naming heuristics a
// %BLOKS%/%GRAPHQL_ROOT% marker expands to. Kept injectable rather than
// hardcoded, per spec.md §9's note that these heuristics "belong in a
// configuration file / plug-in converter" rather than in the core.
type MarkerResolver interface {
	// Bloks returns the "<action>:<method>" replacement for %BLOKS% given
	// the callee's class signature and method name, or false if the class
	// does not match a Bloks action/screen naming convention.
	Bloks(classSignature, methodName string) (string, bool)
	// GraphQLRoot returns the "<type>:<field>" replacement for
	// %GRAPHQL_ROOT% given the callee's class and method name, or false if
	// the class does not match a GraphQL mutation-data naming convention.
	GraphQLRoot(classSignature, methodName string) (string, bool)
}

var addUnderscoreRegex = regexp.MustCompile(`([a-z])([A-Z])`)

// toLowerUnderscore converts CamelCase to lower_underscore, mirroring
// CanonicalName.cpp's convert_to_lower_underscore.
func toLowerUnderscore(input string) string {
	return strings.ToLower(addUnderscoreRegex.ReplaceAllString(input, "${1}_${2}"))
}

// classNameFromSignature extracts the simple class name out of a JVM class
// signature such as "Lcom/example/FooAction;", dropping the package prefix
// and the leading 'L'/trailing ';'.
func classNameFromSignature(classSignature string) (string, bool) {
	idx := strings.LastIndex(classSignature, "/")
	if idx < 0 || len(classSignature) <= idx+2 {
		return "", false
	}
	return classSignature[idx+1 : len(classSignature)-1], true
}

// DefaultMarkerResolver implements the naming conventions
// CanonicalName.cpp's instantiate hardcodes: Bloks actions/screens named
// "FooAction"/"FooScreen", and GraphQL mutation classes named "FooData".
type DefaultMarkerResolver struct{}

func (DefaultMarkerResolver) Bloks(classSignature, methodName string) (string, bool) {
	className, ok := classNameFromSignature(classSignature)
	if !ok {
		return "", false
	}
	var trimmed string
	switch {
	case strings.HasSuffix(className, "Action"):
		trimmed = strings.TrimSuffix(className, "Action")
	case strings.HasSuffix(className, "Screen"):
		trimmed = strings.TrimSuffix(className, "Screen")
	default:
		return "", false
	}
	return trimmed + ":" + toLowerUnderscore(methodName), true
}

func (DefaultMarkerResolver) GraphQLRoot(classSignature, methodName string) (string, bool) {
	className, ok := classNameFromSignature(classSignature)
	if !ok {
		return "", false
	}
	className = strings.TrimSuffix(className, "Data")
	methodName = strings.TrimPrefix(methodName, "set")
	return toLowerUnderscore(className) + ":" + toLowerUnderscore(methodName), true
}

// Instantiate expands every marker present in c's template into a concrete
// value, returning an instantiated CanonicalName. Grounded on
// CanonicalName::instantiate: %LEAF_NAME% expands to the callee's
// signature, %BLOKS%/%GRAPHQL_ROOT% expand via resolver (silently left
// untouched if the naming convention does not match, matching the
// original's "if a '/' is found and heuristic matches" guard), and
// %VIA_TYPE_OF% requires exactly one via-type-of name: zero is reported as
// an error (the original downgrades this to a warning and returns
// std::nullopt; the Go port surfaces it to the caller instead so a
// model-validation pass can decide), more than one is always an error.
func Instantiate(c CanonicalName, methodSignature, classSignature, methodName string, viaTypeOfs []string, resolver MarkerResolver) (CanonicalName, error) {
	template, ok := c.TemplateValue()
	if !ok {
		return CanonicalName{}, fmt.Errorf("crtex: Instantiate requires a template canonical name, got %v", c)
	}

	result := template

	if contains(result, LeafNameMarker) {
		result = strings.ReplaceAll(result, LeafNameMarker, methodSignature)
	}

	if contains(result, BloksMarker) {
		if replacement, ok := resolver.Bloks(classSignature, methodName); ok {
			result = strings.ReplaceAll(result, BloksMarker, replacement)
		}
	}

	if contains(result, GraphQLRootMarker) {
		if replacement, ok := resolver.GraphQLRoot(classSignature, methodName); ok {
			result = strings.ReplaceAll(result, GraphQLRootMarker, replacement)
		}
	}

	if contains(result, ViaTypeOfMarker) {
		switch len(viaTypeOfs) {
		case 0:
			return CanonicalName{}, fmt.Errorf("crtex: could not instantiate canonical name template %q: no via-type-of feature available", template)
		case 1:
			result = strings.ReplaceAll(result, ViaTypeOfMarker, viaTypeOfs[0])
		default:
			return CanonicalName{}, fmt.Errorf("crtex: could not instantiate canonical name template %q: %d via-type-of features are ambiguous", template, len(viaTypeOfs))
		}
	}

	return NewInstantiated(result), nil
}
