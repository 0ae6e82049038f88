// Copyright 2020 Google LLC
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

// Package graphprinter renders a method call graph as DOT source, for
// spec.md §6's dump_call_graph and dump_dependencies artifacts.
package graphprinter

import (
	"bytes"
	"fmt"
	"sort"
)

// Print renders graph (a method -> its callees, or a method -> its
// dependents) as DOT source, coloring a node red when isGeneration reports
// its Model has an inferred Generations entry, blue when isSink reports it
// has an inferred Sinks entry, and green when isDegraded reports its Model
// was abandoned to the conservative taint-through summary. This reuses the
// original red/blue/green source/sink/sanitizer scheme at the per-method
// Model level instead of the per-value level.
func Print(graph map[string][]string, isGeneration, isSink, isDegraded func(method string) bool) string {
	var b bytes.Buffer
	b.WriteString("digraph {\n")

	methods := make([]string, 0, len(graph))
	for m := range graph {
		methods = append(methods, m)
	}
	sort.Strings(methods)

	for _, src := range methods {
		writeNode(&b, src, isGeneration, isSink, isDegraded)
		callees := append([]string(nil), graph[src]...)
		sort.Strings(callees)
		for _, dst := range callees {
			writeNode(&b, dst, isGeneration, isSink, isDegraded)
			b.WriteString(fmt.Sprintf("%q -> %q;\n", src, dst))
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func writeNode(b *bytes.Buffer, method string, isGeneration, isSink, isDegraded func(string) bool) {
	switch {
	case isGeneration(method):
		b.WriteString(fmt.Sprintf("%q [style=filled fillcolor=red];\n", method))
	case isSink(method):
		b.WriteString(fmt.Sprintf("%q [style=filled fillcolor=blue];\n", method))
	case isDegraded(method):
		b.WriteString(fmt.Sprintf("%q [style=filled fillcolor=green];\n", method))
	}
}
