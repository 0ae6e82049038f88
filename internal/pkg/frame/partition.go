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

// Package frame implements the five-layer taint lattice of spec.md §4.1:
// Frame -> KindFrames -> CalleePortFrames -> CalleeFrames -> Taint. Per
// spec.md §9 ("Abstract-domain polymorphism"), the generic "key -> lattice
// value" partition is implemented once here and instantiated by each layer.
package frame

// Lattice is the minimal interface a partition's value type must satisfy.
type Lattice[V any] interface {
	Leq(other V) bool
	Join(other V) V
}

// Partition is a finite map from a domain key K (which need not itself be
// Go-comparable, e.g. Kind) to a lattice value V, keyed internally by a
// string projection supplied at construction time. Joining two partitions
// unions their keys, joining values present in both; leq requires every key
// present in the receiver to be present and dominated in other (a key
// missing from other is treated as bottom there, so a pair (k, v) with v not
// itself bottom makes leq fail -- callers should omit bottom-valued entries).
type Partition[K any, V Lattice[V]] struct {
	keyFn   func(K) string
	entries map[string]entry[K, V]
}

type entry[K any, V any] struct {
	key   K
	value V
}

// NewPartition constructs an empty partition, projecting keys via keyFn.
func NewPartition[K any, V Lattice[V]](keyFn func(K) string) *Partition[K, V] {
	return &Partition[K, V]{keyFn: keyFn, entries: map[string]entry[K, V]{}}
}

// Get returns the value at key, if present.
func (p *Partition[K, V]) Get(key K) (V, bool) {
	e, ok := p.entries[p.keyFn(key)]
	return e.value, ok
}

// Set performs a strong write: it replaces whatever was at key.
func (p *Partition[K, V]) Set(key K, value V) {
	p.entries[p.keyFn(key)] = entry[K, V]{key: key, value: value}
}

// Update performs a weak write: it joins value into whatever was at key.
func (p *Partition[K, V]) Update(key K, value V) {
	k := p.keyFn(key)
	if e, ok := p.entries[k]; ok {
		p.entries[k] = entry[K, V]{key: key, value: e.value.Join(value)}
		return
	}
	p.entries[k] = entry[K, V]{key: key, value: value}
}

// Len returns the number of distinct keys.
func (p *Partition[K, V]) Len() int { return len(p.entries) }

// IsBottom reports whether the partition has no entries.
func (p *Partition[K, V]) IsBottom() bool { return len(p.entries) == 0 }

// Keys returns the domain keys present in the partition, in unspecified order.
func (p *Partition[K, V]) Keys() []K {
	out := make([]K, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e.key)
	}
	return out
}

// Visit calls f for every (key, value) pair, in unspecified order.
func (p *Partition[K, V]) Visit(f func(K, V)) {
	for _, e := range p.entries {
		f(e.key, e.value)
	}
}

// VisitUntil calls f for every (key, value) pair until f returns false,
// implementing the early-exit visitor contract of spec.md §9 ("Exceptions
// as control flow" -> "an explicit early-exit visitor API returning a
// continue/stop signal").
func (p *Partition[K, V]) VisitUntil(f func(K, V) (cont bool)) {
	for _, e := range p.entries {
		if !f(e.key, e.value) {
			return
		}
	}
}

// Filter returns a new partition containing only entries for which pred
// returns true.
func (p *Partition[K, V]) Filter(pred func(K, V) bool) *Partition[K, V] {
	out := NewPartition[K, V](p.keyFn)
	for k, e := range p.entries {
		if pred(e.key, e.value) {
			out.entries[k] = e
		}
	}
	return out
}

// Transform applies f to every value, dropping entries for which keep
// returns false (e.g. the result became bottom). Transform must not change
// the grouping key at this level; it is intended for whole-partition
// rewrites of the contained values, such as wrapping every frame's kind in a
// transform.
func (p *Partition[K, V]) Transform(f func(K, V) (V, bool)) *Partition[K, V] {
	out := NewPartition[K, V](p.keyFn)
	for k, e := range p.entries {
		if nv, keep := f(e.key, e.value); keep {
			out.entries[k] = entry[K, V]{key: e.key, value: nv}
		}
	}
	return out
}

// Leq implements the partition order: every key in p must be present in
// other with a dominated value.
func (p *Partition[K, V]) Leq(other *Partition[K, V]) bool {
	for k, e := range p.entries {
		oe, ok := other.entries[k]
		if !ok || !e.value.Leq(oe.value) {
			return false
		}
	}
	return true
}

// Join returns the union of p and other, joining values present in both.
func (p *Partition[K, V]) Join(other *Partition[K, V]) *Partition[K, V] {
	out := NewPartition[K, V](p.keyFn)
	for k, e := range p.entries {
		out.entries[k] = e
	}
	for k, e := range other.entries {
		if ex, ok := out.entries[k]; ok {
			out.entries[k] = entry[K, V]{key: ex.key, value: ex.value.Join(e.value)}
		} else {
			out.entries[k] = e
		}
	}
	return out
}

// Widen is the default widening operator: it falls back to Join, per
// spec.md §4.4.5 ("widen_with ... falls back to join_with"). Layers whose
// value type needs a non-trivial widening (e.g. distance-bounded frames)
// override by calling the value-level Widen directly before combining.
func (p *Partition[K, V]) Widen(other *Partition[K, V]) *Partition[K, V] {
	return p.Join(other)
}

// Clone returns a shallow copy of the partition.
func (p *Partition[K, V]) Clone() *Partition[K, V] {
	out := NewPartition[K, V](p.keyFn)
	for k, e := range p.entries {
		out.entries[k] = e
	}
	return out
}
