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

// Package intern provides concurrent hash-consing tables. Every entity the
// analysis manipulates (kinds, access paths, transform lists, method and
// field handles) is deduplicated through a Table so that equality reduces to
// pointer equality and hashing reduces to pointer hashing, the way the
// teacher analyzer relies on *ssa.Function/*types.Named pointer identity
// throughout internal/pkg/config and internal/pkg/matcher.
package intern

import "sync"

// Handle is a stable, cheaply-copied reference to an interned value of type T.
// Two handles compare equal iff the values they were built from compare
// equal under the table's key function.
type Handle[T any] struct {
	value *T
}

// Value returns the interned value.
func (h Handle[T]) Value() T {
	return *h.value
}

// Valid reports whether the handle refers to an interned value.
func (h Handle[T]) Valid() bool {
	return h.value != nil
}

// Equal reports whether two handles refer to the same interned value.
func (h Handle[T]) Equal(other Handle[T]) bool {
	return h.value == other.value
}

// Table is a concurrent get-or-insert hash-consing table keyed by K,
// producing stable Handle[T] values. The zero Table is not usable; use New.
type Table[K comparable, T any] struct {
	mu      sync.RWMutex
	entries map[K]*T
}

// New constructs an empty interning table.
func New[K comparable, T any]() *Table[K, T] {
	return &Table[K, T]{entries: make(map[K]*T)}
}

// Intern returns the handle for key, constructing it via build if this is
// the first time key has been seen. Concurrent calls with the same key are
// guaranteed to observe the same handle.
func (t *Table[K, T]) Intern(key K, build func() T) Handle[T] {
	t.mu.RLock()
	if v, ok := t.entries[key]; ok {
		t.mu.RUnlock()
		return Handle[T]{value: v}
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.entries[key]; ok {
		return Handle[T]{value: v}
	}
	v := build()
	t.entries[key] = &v
	return Handle[T]{value: &v}
}

// Len returns the number of distinct interned values. Used by tests and by
// diagnostics to report interning-table growth.
func (t *Table[K, T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Strings is the common case of interning plain strings, used for field
// names, method names, and kind names throughout the analysis.
type Strings struct {
	table *Table[string, string]
}

// NewStrings constructs a string interning table.
func NewStrings() *Strings {
	return &Strings{table: New[string, string]()}
}

// Intern returns the canonical handle for s.
func (s *Strings) Intern(str string) Handle[string] {
	return s.table.Intern(str, func() string { return str })
}
