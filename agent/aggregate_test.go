package agent

import (
	"errors"
	"strings"
	"testing"

	"github.com/richinex/delphi/llm"
)

func TestAggregationLastNonToolTurnWins(t *testing.T) {
	agg := newAggregation()
	agg.observe(TurnEvent{Text: "thinking", ToolCalls: []llm.ToolCall{{ID: "1", Name: "get_time"}}})
	agg.observe(ToolResultEvent{Tool: "get_time", Preview: "12:00"})
	agg.observe(TurnEvent{Text: "It is noon."})

	got, err := agg.finalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "It is noon." {
		t.Errorf("expected final turn text, got %q", got)
	}

	trace := agg.trace()
	if len(trace) != 1 {
		t.Fatalf("expected 1 trace entry, got %d", len(trace))
	}
	if trace[0].Tool != "get_time" || trace[0].Result != "12:00" {
		t.Errorf("unexpected trace entry: %+v", trace[0])
	}
}

func TestAggregationFallsBackToLastEvent(t *testing.T) {
	agg := newAggregation()
	agg.observe(TurnEvent{Text: "", ToolCalls: []llm.ToolCall{{ID: "1", Name: "calculate"}}})
	agg.observe(ToolResultEvent{Tool: "calculate", Preview: "42"})

	got, err := agg.finalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The raw tool preview is surfaced when no turn produced text.
	if got != "42" {
		t.Errorf("expected raw preview fallback, got %q", got)
	}
}

func TestAggregationEmptyStream(t *testing.T) {
	agg := newAggregation()
	_, err := agg.finalize()
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestAggregationAllEmptyText(t *testing.T) {
	agg := newAggregation()
	agg.observe(TurnEvent{Text: ""})

	_, err := agg.finalize()
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestAggregationErrorTaggedEntry(t *testing.T) {
	agg := newAggregation()
	agg.observe(ToolResultEvent{
		Tool:    "web_search",
		Preview: "Error: tool 'web_search' not found",
		Err:     &ToolInvocationError{Tool: "web_search", Cause: errors.New("tool not found")},
	})

	trace := agg.trace()
	if len(trace) != 1 {
		t.Fatalf("expected 1 trace entry, got %d", len(trace))
	}
	if !strings.Contains(trace[0].Result, "not found") {
		t.Errorf("expected error text in trace, got %q", trace[0].Result)
	}
}

func TestPreviewTruncation(t *testing.T) {
	long := strings.Repeat("x", previewLimit+100)
	got := previewOf(long)

	if !strings.HasSuffix(got, truncationMarker) {
		t.Errorf("expected truncation marker suffix, got %q", got[len(got)-30:])
	}
	if len([]rune(got)) != previewLimit+len([]rune(truncationMarker)) {
		t.Errorf("unexpected preview length %d", len([]rune(got)))
	}

	short := "short output"
	if previewOf(short) != short {
		t.Errorf("short output should be untouched")
	}
}
