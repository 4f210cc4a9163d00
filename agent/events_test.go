package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/richinex/delphi/llm"
)

func TestLogObserverRecordsLoopProgress(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	observer := NewLogObserver(logger)

	provider := &scriptedProvider{responses: []llm.LLMResponse{
		toolTurn(llm.ToolCall{ID: "c1", Name: "echo", Arguments: json.RawMessage(`{}`)},
			llm.ToolCall{ID: "c2", Name: "missing", Arguments: json.RawMessage(`{}`)}),
		finalTurn("done"),
	}}
	registry := registryOf(t, echoTool{name: "echo", output: "ok"})

	driver := NewDriver(provider, registry, 6, observer)
	if _, err := collect(t, driver.Run(context.Background(), []llm.ChatMessage{llm.UserMessage("go")})); err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "model turn") {
		t.Errorf("expected model turn log, got:\n%s", out)
	}
	if !strings.Contains(out, `tool=echo`) {
		t.Errorf("expected echo tool result log, got:\n%s", out)
	}
	if !strings.Contains(out, "tool failed") || !strings.Contains(out, `tool=missing`) {
		t.Errorf("expected warning for failed tool, got:\n%s", out)
	}
}

func TestLogObserverDefaultLoggerStaysQuiet(t *testing.T) {
	// Routine steps log at debug, so an info-level logger records nothing
	// for a successful tool result.
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	observer := NewLogObserver(logger)

	observer.OnTurn(TurnEvent{Text: "hello"})
	observer.OnToolResult(ToolResultEvent{Tool: "echo", Preview: "ok"})
	if buf.Len() != 0 {
		t.Errorf("expected no info-level output for routine steps, got:\n%s", buf.String())
	}

	observer.OnError(context.DeadlineExceeded)
	if !strings.Contains(buf.String(), "reasoning loop failed") {
		t.Errorf("expected error log, got:\n%s", buf.String())
	}
}

func TestNewLogObserverNilLogger(t *testing.T) {
	observer := NewLogObserver(nil)
	if observer.Logger == nil {
		t.Fatal("expected default logger for nil argument")
	}
}
