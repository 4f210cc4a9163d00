// Step events and observers.
//
// Every intermediate product of the reasoning loop is one of a closed
// set of event types, so consumers can type-switch exhaustively instead
// of inspecting stringly-typed payloads.

package agent

import (
	"log/slog"

	"github.com/richinex/delphi/llm"
)

// StepEvent is one observable step of the reasoning loop.
// The set of implementations is closed: TurnEvent and ToolResultEvent.
type StepEvent interface {
	isStepEvent()
}

// TurnEvent is a model turn: assistant text plus any tool calls the
// model requested. A turn with no tool calls is a candidate final answer.
type TurnEvent struct {
	Text      string
	ToolCalls []llm.ToolCall
}

func (TurnEvent) isStepEvent() {}

// IsToolTurn reports whether the model requested tool calls this turn.
func (e TurnEvent) IsToolTurn() bool {
	return len(e.ToolCalls) > 0
}

// ToolResultEvent is the outcome of a single tool invocation. Preview is
// bounded; Err is set when the invocation failed (including unknown tools)
// without aborting the loop.
type ToolResultEvent struct {
	Tool    string
	Preview string
	Err     error
}

func (ToolResultEvent) isStepEvent() {}

// Observer receives streaming notifications as the loop progresses.
// Implementations must be safe for calls from the driver goroutine.
type Observer interface {
	OnTurn(event TurnEvent)
	OnToolResult(event ToolResultEvent)
	OnError(err error)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) OnTurn(TurnEvent)             {}
func (NopObserver) OnToolResult(ToolResultEvent) {}
func (NopObserver) OnError(error)                {}

// LogObserver logs loop progress through slog. Routine steps log at
// debug so the default logger stays quiet; failures log at warn/error.
type LogObserver struct {
	Logger *slog.Logger
}

// NewLogObserver creates a LogObserver. A nil logger uses slog.Default().
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{Logger: logger}
}

func (o *LogObserver) OnTurn(event TurnEvent) {
	names := make([]string, 0, len(event.ToolCalls))
	for _, tc := range event.ToolCalls {
		names = append(names, tc.Name)
	}
	o.Logger.Debug("model turn",
		"tool_calls", names,
		"text_len", len(event.Text))
}

func (o *LogObserver) OnToolResult(event ToolResultEvent) {
	if event.Err != nil {
		o.Logger.Warn("tool failed", "tool", event.Tool, "error", event.Err)
		return
	}
	o.Logger.Debug("tool result", "tool", event.Tool, "preview_len", len(event.Preview))
}

func (o *LogObserver) OnError(err error) {
	o.Logger.Error("reasoning loop failed", "error", err)
}

var (
	_ Observer = NopObserver{}
	_ Observer = (*LogObserver)(nil)
)
