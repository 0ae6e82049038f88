// Package callinfo implements the CallInfo tag of spec.md §4.2: a three (or,
// per our resolved open question, four) state marker on how a Frame was
// produced, and its propagation transition table.
package callinfo

// State discriminates how a Frame came to exist.
type State int

const (
	// Declaration: the frame came directly from an input Model.
	Declaration State = iota
	// Origin: a leaf created during analysis, e.g. via attach_position.
	Origin
	// Callsite: the result of one or more Propagate hops.
	Callsite
	// PropagationWithTrace: a propagation frame that must also carry a
	// trace, used when inferring sinks through propagations. Resolved open
	// question (see DESIGN.md): this is an explicit fourth state rather
	// than a flag folded onto Callsite, and it is sticky across further
	// Propagate hops.
	PropagationWithTrace
)

// CallInfo wraps a State; it exists as a distinct type (rather than a bare
// State) so call sites read as domain vocabulary and so we have one place to
// hang the transition table below.
type CallInfo struct {
	state State
}

// New wraps a State.
func New(s State) CallInfo { return CallInfo{state: s} }

// DeclarationInfo is shorthand for New(Declaration).
func DeclarationInfo() CallInfo { return New(Declaration) }

// OriginInfo is shorthand for New(Origin).
func OriginInfo() CallInfo { return New(Origin) }

// State returns the underlying state.
func (c CallInfo) State() State { return c.state }

// Propagate advances the state across one call-site hop:
//
//	declaration.propagate() == origin
//	origin.propagate()      == callsite
//	callsite.propagate()    == callsite
//	propagation_with_trace.propagate() == propagation_with_trace (sticky)
func (c CallInfo) Propagate() CallInfo {
	switch c.state {
	case Declaration:
		return New(Origin)
	case Origin:
		return New(Callsite)
	case Callsite:
		return New(Callsite)
	case PropagationWithTrace:
		return New(PropagationWithTrace)
	default:
		return c
	}
}

// WithTrace marks a callsite-propagation frame as also requiring a trace.
// It is a no-op on Declaration/Origin frames, which do not carry call-site
// propagation history to trace.
func (c CallInfo) WithTrace() CallInfo {
	if c.state == Callsite || c.state == PropagationWithTrace {
		return New(PropagationWithTrace)
	}
	return c
}

// IsDeclaration reports whether the frame came straight from an input Model;
// this gates local-position insertion and similar "don't touch frozen
// declarations" policies.
func (c CallInfo) IsDeclaration() bool { return c.state == Declaration }

// IsPropagation reports whether the frame's distance was produced by one or
// more Propagate hops, i.e. not added to propagation frames directly.
func (c CallInfo) IsPropagation() bool {
	return c.state == Callsite || c.state == PropagationWithTrace
}

// RequiresTrace reports whether this frame must carry a trace record.
func (c CallInfo) RequiresTrace() bool { return c.state == PropagationWithTrace }

func (s State) String() string {
	switch s {
	case Declaration:
		return "declaration"
	case Origin:
		return "origin"
	case Callsite:
		return "callsite"
	case PropagationWithTrace:
		return "propagation_with_trace"
	default:
		return "<invalid-call-info>"
	}
}

func (c CallInfo) String() string { return c.state.String() }
