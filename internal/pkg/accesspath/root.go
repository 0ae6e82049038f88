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

// Package accesspath implements Root, Path, and AccessPath: the lingua
// franca every domain in the analyzer (frames, trees, environments) is
// keyed by.
package accesspath

import (
	"fmt"
	"strconv"
	"strings"
)

// RootKind discriminates the tagged Root variants of spec.md §3.
type RootKind int

const (
	RootArgument RootKind = iota
	RootReturn
	RootLeaf
	RootAnchor
	RootProducer
	RootCanonicalThis
	RootCallEffect
)

// Argument(0) conventionally denotes the receiver for instance methods.
const ReceiverArgument = 0

// Root is the tagged discriminant at the base of an AccessPath.
type Root struct {
	kind     RootKind
	argument uint32
}

func Argument(position uint32) Root { return Root{kind: RootArgument, argument: position} }
func Return() Root                  { return Root{kind: RootReturn} }
func Leaf() Root                    { return Root{kind: RootLeaf} }
func Anchor() Root                  { return Root{kind: RootAnchor} }
func Producer() Root                { return Root{kind: RootProducer} }
func CanonicalThis() Root           { return Root{kind: RootCanonicalThis} }
func CallEffect() Root              { return Root{kind: RootCallEffect} }

// Receiver is shorthand for Argument(0), the receiver of an instance method.
func Receiver() Root { return Argument(ReceiverArgument) }

// Kind returns the Root's discriminant.
func (r Root) Kind() RootKind { return r.kind }

// Parameter returns the argument position for an Argument root. Only valid
// when Kind() == RootArgument.
func (r Root) Parameter() uint32 { return r.argument }

// IsArgument reports whether r is an Argument root.
func (r Root) IsArgument() bool { return r.kind == RootArgument }

// String renders the access-path root grammar of spec.md §6:
// "Return | Leaf | Anchor | Producer | Argument(<int>)". "Argument(-1)"
// aliases CanonicalThis on read but is never emitted by this analyzer.
func (r Root) String() string {
	switch r.kind {
	case RootArgument:
		return fmt.Sprintf("Argument(%d)", r.argument)
	case RootReturn:
		return "Return"
	case RootLeaf:
		return "Leaf"
	case RootAnchor:
		return "Anchor"
	case RootProducer:
		return "Producer"
	case RootCanonicalThis:
		return "Argument(-1)"
	case RootCallEffect:
		return "CallEffect"
	default:
		return "<invalid-root>"
	}
}

// ParseRoot parses the grammar produced by String, including the
// "Argument(-1)" alias for CanonicalThis.
func ParseRoot(s string) (Root, error) {
	switch s {
	case "Return":
		return Return(), nil
	case "Leaf":
		return Leaf(), nil
	case "Anchor":
		return Anchor(), nil
	case "Producer":
		return Producer(), nil
	case "CallEffect":
		return CallEffect(), nil
	}
	if strings.HasPrefix(s, "Argument(") && strings.HasSuffix(s, ")") {
		inner := s[len("Argument(") : len(s)-1]
		n, err := strconv.Atoi(inner)
		if err != nil {
			return Root{}, fmt.Errorf("accesspath: invalid argument root %q: %w", s, err)
		}
		if n == -1 {
			return CanonicalThis(), nil
		}
		if n < 0 {
			return Root{}, fmt.Errorf("accesspath: negative argument position %d", n)
		}
		return Argument(uint32(n)), nil
	}
	return Root{}, fmt.Errorf("accesspath: unrecognized root %q", s)
}

// Equal reports whether two roots denote the same discriminant.
func (r Root) Equal(other Root) bool {
	return r.kind == other.kind && r.argument == other.argument
}
