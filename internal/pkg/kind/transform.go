package kind

import "strings"

// TransformKind discriminates an entry in a TransformList: either a pure
// (ordered) transform, or a sanitizer set (an unordered set of sanitized
// kind names, canonicalized by merging adjacent sets).
type TransformKind int

const (
	PureTransform TransformKind = iota
	SanitizerSetTransform
)

// TransformEntry is one element of a TransformList.
type TransformEntry struct {
	kind TransformKind
	name string   // PureTransform
	set  []string // SanitizerSetTransform, sorted+deduplicated
}

// NewPureTransform builds a named, ordered transform entry.
func NewPureTransform(name string) TransformEntry {
	return TransformEntry{kind: PureTransform, name: name}
}

// NewSanitizerSet builds a sanitizer-set transform entry over the given
// sanitized kind names.
func NewSanitizerSet(kinds ...string) TransformEntry {
	return TransformEntry{kind: SanitizerSetTransform, set: dedupSorted(kinds)}
}

func dedupSorted(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sortStrings(out)
	return out
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func (e TransformEntry) equal(other TransformEntry) bool {
	if e.kind != other.kind {
		return false
	}
	if e.kind == PureTransform {
		return e.name == other.name
	}
	if len(e.set) != len(other.set) {
		return false
	}
	for i, s := range e.set {
		if other.set[i] != s {
			return false
		}
	}
	return true
}

func (e TransformEntry) String() string {
	if e.kind == PureTransform {
		return e.name
	}
	return "Sanitize[" + strings.Join(e.set, ",") + "]"
}

// TransformList is a sequence of TransformEntry values decorating a Kind.
// Canonicalization merges adjacent sanitizer-set entries into a single set
// keyed by the union of sanitized kinds; pure transforms remain ordered and
// are never merged with each other or with sanitizer sets.
type TransformList struct {
	entries []TransformEntry
}

// Empty is the identity TransformList.
func Empty() TransformList { return TransformList{} }

// Of builds a TransformList from literal entries, canonicalizing the result.
func Of(entries ...TransformEntry) TransformList {
	return TransformList{entries: entries}.Canonicalize()
}

// Entries returns the list's entries. Must not be mutated by the caller.
func (t TransformList) Entries() []TransformEntry { return t.entries }

// Empty reports whether the list has no entries.
func (t TransformList) Empty() bool { return len(t.entries) == 0 }

// Len returns the number of entries after canonicalization.
func (t TransformList) Len() int { return len(t.entries) }

// Canonicalize merges adjacent sanitizer-set entries into one, keeping pure
// transforms in their original relative order. It is idempotent:
// Canonicalize(Canonicalize(ts)) == Canonicalize(ts).
func (t TransformList) Canonicalize() TransformList {
	if len(t.entries) == 0 {
		return t
	}
	var out []TransformEntry
	for _, e := range t.entries {
		if e.kind == SanitizerSetTransform && len(out) > 0 && out[len(out)-1].kind == SanitizerSetTransform {
			merged := append(append([]string(nil), out[len(out)-1].set...), e.set...)
			out[len(out)-1] = NewSanitizerSet(merged...)
			continue
		}
		// Drop empty sanitizer sets; they are the identity element.
		if e.kind == SanitizerSetTransform && len(e.set) == 0 {
			continue
		}
		out = append(out, e)
	}
	return TransformList{entries: out}
}

// Reverse returns the list with its entries in reverse order. Sanitizer-set
// entries are order-independent so reversing them is semantically a no-op
// beyond position; pure transforms reverse their traversal order, matching
// the "source-side reversed" half of rule composition in spec.md §4.6.
func (t TransformList) Reverse() TransformList {
	n := len(t.entries)
	out := make([]TransformEntry, n)
	for i, e := range t.entries {
		out[n-1-i] = e
	}
	return TransformList{entries: out}.Canonicalize()
}

// Concat appends other after t and re-canonicalizes, so adjacent sanitizer
// sets straddling the join point still merge.
func (t TransformList) Concat(other TransformList) TransformList {
	combined := append(append([]TransformEntry(nil), t.entries...), other.entries...)
	return TransformList{entries: combined}.Canonicalize()
}

// Equal reports whether two (assumed-canonical) lists have identical entries.
func (t TransformList) Equal(other TransformList) bool {
	a, b := t.Canonicalize(), other.Canonicalize()
	if len(a.entries) != len(b.entries) {
		return false
	}
	for i, e := range a.entries {
		if !e.equal(b.entries[i]) {
			return false
		}
	}
	return true
}

// String renders entries separated by "->".
func (t TransformList) String() string {
	parts := make([]string, len(t.entries))
	for i, e := range t.entries {
		parts[i] = e.String()
	}
	return strings.Join(parts, "->")
}
