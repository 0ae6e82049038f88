// Package transfer implements the per-instruction transfer functions of
// spec.md §4.4: forward alias analysis, forward taint analysis, backward
// taint analysis, and call effects, plus the per-method monotonic fixpoint
// that drives them over a function's control-flow graph. Grounded on the
// teacher's internal/pkg/levee DFSTools.visit per-ssa.Node switch (the Go
// idiom for dispatching on concrete SSA instruction types) and its
// internal/pkg/earpointer analysis for the shape of a per-block abstract
// interpretation loop.
package transfer

import (
	"go/token"

	"golang.org/x/tools/go/ssa"

	"github.com/facebook/mariana-trench-sub003/internal/pkg/environment"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/utils"
)

// AliasState is the ForwardAliasEnvironment of spec.md §4.4.1: a register ->
// memory-location map plus the points-to relation between locations.
type AliasState struct {
	Registers         *environment.MemoryLocationEnvironment[ssa.Value]
	Points            *environment.PointsToEnvironment
	LastParameterLoad int
}

// NewAliasState builds an empty alias state, the entry state of a method
// before load-param rules run.
func NewAliasState() *AliasState {
	return &AliasState{
		Registers: environment.NewMemoryLocationEnvironment[ssa.Value](),
		Points:    environment.NewPointsToEnvironment(),
	}
}

// SeedParameters binds every formal parameter to Parameter(i) and the
// receiver, when present, to This() (spec.md §4.4.1's load-param rule,
// applied once at function entry since go/ssa hoists parameter bindings out
// of the instruction stream).
func SeedParameters(fn *ssa.Function) *AliasState {
	state := NewAliasState()
	for i, p := range fn.Params {
		if fn.Signature.Recv() != nil && i == 0 {
			state.Registers.Bind(p, environment.This())
			state.LastParameterLoad = i
			continue
		}
		state.Registers.Bind(p, environment.Parameter(i))
		state.LastParameterLoad = i
	}
	return state
}

func (s *AliasState) Leq(other *AliasState) bool {
	return s.Registers.Leq(other.Registers) && s.Points.Leq(other.Points)
}

func (s *AliasState) Join(other *AliasState) *AliasState {
	return &AliasState{
		Registers:         s.Registers.Join(other.Registers),
		Points:            s.Points.Join(other.Points),
		LastParameterLoad: maxInt(s.LastParameterLoad, other.LastParameterLoad),
	}
}

// Widen falls back to Join; the register and points-to vocabularies are
// bounded by the method's static instruction count so they stabilize
// without a distinct widening operator (spec.md §4.4.5).
func (s *AliasState) Widen(other *AliasState) *AliasState {
	return &AliasState{
		Registers:         s.Registers.Widen(other.Registers),
		Points:            s.Points.Widen(other.Points),
		LastParameterLoad: maxInt(s.LastParameterLoad, other.LastParameterLoad),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// pointeeField is the synthetic field name PointsToEnvironment uses to
// record what a pointer-typed location points to, as distinct from the
// named struct-field edges FieldAddr produces.
const pointeeField = "*"

// StepAlias applies one instruction's alias rules to state in place,
// implementing the representative rules of spec.md §4.4.1.
func StepAlias(state *AliasState, instr ssa.Instruction) {
	switch v := instr.(type) {
	case *ssa.Alloc:
		state.Registers.Bind(v, environment.Instruction(instrID(v)))

	case *ssa.MakeSlice:
		state.Registers.Bind(v, environment.Instruction(instrID(v)))

	case *ssa.MakeMap:
		state.Registers.Bind(v, environment.Instruction(instrID(v)))

	case *ssa.MakeChan:
		state.Registers.Bind(v, environment.Instruction(instrID(v)))

	case *ssa.MakeClosure:
		state.Registers.Bind(v, environment.Instruction(instrID(v)))

	case *ssa.FieldAddr:
		_, _, name := utils.DecomposeField(v.X.Type(), v.Field)
		bindField(state, v, v.X, name)

	case *ssa.Field:
		_, _, name := utils.DecomposeField(v.X.Type(), v.Field)
		bindField(state, v, v.X, name)

	case *ssa.IndexAddr:
		bindField(state, v, v.X, "[]")

	case *ssa.Index:
		bindField(state, v, v.X, "[]")

	case *ssa.Store:
		bases := state.Registers.Get(v.Addr).Locations()
		targets := state.Registers.Get(v.Val).Locations()
		strong := len(bases) == 1
		for _, base := range bases {
			for _, target := range targets {
				state.Points.Write(base, pointeeField, target, strong && len(targets) == 1)
			}
		}

	case *ssa.UnOp:
		if v.Op == token.MUL {
			for _, base := range state.Registers.Get(v.X).Locations() {
				for _, alias := range state.Points.ResolveChain(base).Locations() {
					state.Registers.Merge(v, alias)
				}
			}
		}
	}

	// Calls, including invoke-* forms, flow their own result through the
	// normal ssa.Value identity (*ssa.Call is both instruction and value);
	// the fresh heap location it denotes is bound here so later reads of
	// the call's result register resolve to a concrete, callsite-specific
	// location rather than colliding across call sites.
	if call, ok := instr.(*ssa.Call); ok {
		state.Registers.Bind(call, environment.Instruction(instrID(call)))
	}
}

// bindField binds dst to Field(base, name) for every location base may
// currently denote, implementing "result register points to
// Field(src_location, name_or_index)" (spec.md §4.4.1's iget/aget rule).
func bindField(state *AliasState, dst ssa.Value, src ssa.Value, name string) {
	bases := state.Registers.Get(src).Locations()
	if len(bases) == 0 {
		state.Registers.Bind(dst, environment.Field(environment.Instruction(instrID(dst.(ssa.Instruction))), name))
		return
	}
	first := true
	for _, base := range bases {
		loc := environment.Field(base, name)
		if first {
			state.Registers.Bind(dst, loc)
			first = false
			continue
		}
		state.Registers.Merge(dst, loc)
	}
}

// instrID derives a small per-function-unique identifier for an
// instruction-keyed heap location from the instruction's position in its
// parent function's DomPreorder block list and its index within its block;
// stable across repeated fixpoint iterations within one analysis of fn.
func instrID(instr ssa.Instruction) int {
	block := instr.Block()
	if block == nil {
		return -1
	}
	for i, in := range block.Instrs {
		if in == instr {
			return block.Index*100000 + i
		}
	}
	return -1
}
