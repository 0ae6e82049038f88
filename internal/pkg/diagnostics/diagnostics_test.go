package diagnostics

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogEmitsEventWithinVerbosityThreshold(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, 1)
	logger.Log(Event{Name: "degraded-method", Message: "timed out", Value: "Foo.bar", Verbosity: 1})

	out := buf.String()
	for _, want := range []string{"degraded-method", "timed out", "Foo.bar"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected log output %q to contain %q", out, want)
		}
	}
}

func TestLogSuppressesEventAboveVerbosityThreshold(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, 0)
	logger.Telemetry("degraded-method", "timed out", "Foo.bar")

	if buf.Len() != 0 {
		t.Fatalf("expected a verbosity-1 telemetry event to be suppressed at threshold 0, got %q", buf.String())
	}
}

func TestWarningAlwaysEmitsAtDefaultThreshold(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, 0)
	logger.Warning("dropped-model", "multiple origins on a leaf port", "Field.x")

	if buf.Len() == 0 {
		t.Fatalf("expected a warning event to be emitted at the default threshold")
	}
}

func TestReportInternalInvariantMentionsReportingPhrase(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, 0)
	logger.ReportInternalInvariant("KindFrames.add", 42)

	out := buf.String()
	if !strings.Contains(out, "please report this issue") {
		t.Fatalf("expected the teacher's reporting phrase in output, got %q", out)
	}
	if !strings.Contains(out, "KindFrames.add") || !strings.Contains(out, "42") {
		t.Fatalf("expected context and value in output, got %q", out)
	}
}

func TestEventStringOmitsValueWhenNil(t *testing.T) {
	event := Event{Name: "n", Message: "m"}
	if strings.Contains(event.String(), "value=") {
		t.Fatalf("expected no value= suffix when Value is nil, got %q", event.String())
	}
}
