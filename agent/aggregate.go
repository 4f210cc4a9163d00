// Step aggregation - rebuilds the user-facing answer from the event stream.
//
// The rules, in order:
//  1. the last turn without tool calls wins;
//  2. otherwise the last event of any kind is stringified, even if that
//     surfaces a raw tool preview;
//  3. an empty stream (or all-empty text) escalates to ErrEmptyResponse.

package agent

import (
	"github.com/richinex/delphi/model"
)

// previewLimit bounds tool result previews in traces and events.
const previewLimit = 500

// truncationMarker is appended to previews that were cut off.
const truncationMarker = "... [truncated]"

// previewOf bounds s to previewLimit characters, marking truncation.
func previewOf(s string) string {
	runes := []rune(s)
	if len(runes) <= previewLimit {
		return s
	}
	return string(runes[:previewLimit]) + truncationMarker
}

// aggregation accumulates events from one stream and derives the final
// answer and the step trace.
type aggregation struct {
	finalText string
	lastEvent StepEvent
	steps     []model.TraceEntry
}

func newAggregation() *aggregation {
	return &aggregation{steps: []model.TraceEntry{}}
}

// observe folds one event into the aggregate.
func (a *aggregation) observe(ev StepEvent) {
	a.lastEvent = ev

	switch e := ev.(type) {
	case TurnEvent:
		if !e.IsToolTurn() && e.Text != "" {
			a.finalText = e.Text
		}
	case ToolResultEvent:
		preview := e.Preview
		if e.Err != nil && preview == "" {
			preview = "Error: " + e.Err.Error()
		}
		a.steps = append(a.steps, model.TraceEntry{
			Tool:   e.Tool,
			Result: preview,
		})
	}
}

// trace returns the accumulated tool invocation records.
func (a *aggregation) trace() []model.TraceEntry {
	return a.steps
}

// finalize derives the answer text from everything observed.
func (a *aggregation) finalize() (string, error) {
	if a.finalText != "" {
		return a.finalText, nil
	}

	// Fall back to the last event of any kind, preserved verbatim.
	switch e := a.lastEvent.(type) {
	case TurnEvent:
		if e.Text != "" {
			return e.Text, nil
		}
	case ToolResultEvent:
		if e.Preview != "" {
			return e.Preview, nil
		}
	}

	return "", ErrEmptyResponse
}
