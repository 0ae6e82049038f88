package frame

import "github.com/facebook/mariana-trench-sub003/internal/pkg/kind"

// KindFrames partitions the frames of one Kind by class-interval context
// (spec.md §4.1). Merging at this level is by interval subsumption: writing
// a frame whose interval is already subsumed by an existing entry joins
// into that entry; otherwise a new interval bucket is added.
type KindFrames struct {
	kind kind.Kind
	byInterval *Partition[ClassInterval, Frame]
}

func intervalKey(c ClassInterval) string { return c.Key() }

// NewKindFrames builds an empty KindFrames for the given kind.
func NewKindFrames(k kind.Kind) *KindFrames {
	return &KindFrames{kind: k, byInterval: NewPartition[ClassInterval, Frame](intervalKey)}
}

// Kind returns the kind all frames in this partition share.
func (kf *KindFrames) Kind() kind.Kind { return kf.kind }

// Add writes f (whose Kind() must equal kf.Kind()) into the partition,
// joining it with an existing frame when one interval subsumes the other.
func (kf *KindFrames) Add(f Frame) {
	if existing, ok := kf.findSubsuming(f.Interval()); ok {
		merged := existing.Join(f)
		kf.byInterval.Set(merged.Interval(), merged)
		return
	}
	kf.byInterval.Update(f.Interval(), f)
}

func (kf *KindFrames) findSubsuming(interval ClassInterval) (Frame, bool) {
	var found Frame
	var ok bool
	kf.byInterval.Visit(func(key ClassInterval, value Frame) {
		if ok {
			return
		}
		if key.Subsumes(interval) || interval.Subsumes(key) {
			found, ok = value, true
		}
	})
	return found, ok
}

// IsBottom reports whether the partition holds no frames.
func (kf *KindFrames) IsBottom() bool { return kf.byInterval.IsBottom() }

// Visit calls f for every (interval, Frame) pair.
func (kf *KindFrames) Visit(f func(ClassInterval, Frame)) { kf.byInterval.Visit(f) }

// Filter returns a new KindFrames retaining only frames matching pred.
func (kf *KindFrames) Filter(pred func(Frame) bool) *KindFrames {
	out := NewKindFrames(kf.kind)
	out.byInterval = kf.byInterval.Filter(func(_ ClassInterval, v Frame) bool { return pred(v) })
	return out
}

// Transform applies f to every frame, dropping frames for which keep is false.
func (kf *KindFrames) Transform(f func(Frame) (Frame, bool)) *KindFrames {
	out := NewKindFrames(kf.kind)
	out.byInterval = kf.byInterval.Transform(func(_ ClassInterval, v Frame) (Frame, bool) { return f(v) })
	return out
}

// ContainsKind reports whether this partition holds frames of kind k
// (trivially true/false, since a KindFrames holds exactly one kind; exposed
// for symmetry with CalleePortFrames/CalleeFrames/Taint's ContainsKind).
func (kf *KindFrames) ContainsKind(k kind.Kind) bool {
	return !kf.IsBottom() && kf.kind.Equal(k)
}

// Leq implements the partition order, requiring equal kinds.
func (kf *KindFrames) Leq(other *KindFrames) bool {
	if kf.IsBottom() {
		return true
	}
	if other.IsBottom() || !kf.kind.Equal(other.kind) {
		return false
	}
	return kf.byInterval.Leq(other.byInterval)
}

// Join merges two KindFrames of the same kind.
func (kf *KindFrames) Join(other *KindFrames) *KindFrames {
	if kf.IsBottom() {
		return other
	}
	if other.IsBottom() {
		return kf
	}
	out := NewKindFrames(kf.kind)
	out.byInterval = kf.byInterval.Join(other.byInterval)
	return out
}
