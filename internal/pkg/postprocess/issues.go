package postprocess

import (
	"github.com/facebook/mariana-trench-sub003/internal/pkg/accesspath"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/frame"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/kind"
	"github.com/facebook/mariana-trench-sub003/internal/pkg/model"
)

// Issue is a fulfilled rule match surviving into the final Registry: a
// source taint and a sink taint that met at a call, already matched against
// a rule code by the rules package. Grounded on original_source's IssueSet
// (the post-rule-matching, pre-serialization representation PostprocessTraces
// culls in place).
type Issue struct {
	Method   string
	RuleCode int
	Source   frame.Taint
	Sink     frame.Taint
	Position int
}

// CullIssues drops any issue whose source or sink trace became entirely
// invalid once RemoveCollapsedTraces pruned the Registry, and prunes the
// surviving issues' individual frames the same way (PostprocessTraces.cpp's
// cull_collapsed_issues: filter_sources uses the generation validity check,
// filter_sinks uses the sink validity check).
func CullIssues(registry *model.Registry[string], issues []Issue) []Issue {
	out := make([]Issue, 0, len(issues))
	for _, issue := range issues {
		source := issue.Source.FilterInvalidFrames(func(callee frame.CalleeRef, port accesspath.Root, k kind.Kind) bool {
			return isValidGeneration(registry, callee, port, k)
		})
		sink := issue.Sink.FilterInvalidFrames(func(callee frame.CalleeRef, port accesspath.Root, k kind.Kind) bool {
			return isValidSink(registry, callee, port, k)
		})
		if source.IsBottom() || sink.IsBottom() {
			continue
		}
		issue.Source = source
		issue.Sink = sink
		out = append(out, issue)
	}
	return out
}
