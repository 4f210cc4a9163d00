package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/richinex/delphi/llm"
	"github.com/richinex/delphi/tools"
)

// scriptedProvider replays a fixed sequence of responses. When the
// script runs out the last response repeats.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []llm.LLMResponse
	err       error
	delay     time.Duration
	requests  [][]llm.ChatMessage
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "test-model" }

func (p *scriptedProvider) Chat(ctx context.Context, messages []llm.ChatMessage) (llm.LLMResponse, error) {
	return p.ChatWithTools(ctx, messages, nil)
}

func (p *scriptedProvider) ChatWithTools(ctx context.Context, messages []llm.ChatMessage, defs []llm.ToolDefinition) (llm.LLMResponse, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return llm.LLMResponse{}, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := make([]llm.ChatMessage, len(messages))
	copy(snapshot, messages)
	p.requests = append(p.requests, snapshot)

	if p.err != nil {
		return llm.LLMResponse{}, p.err
	}

	idx := len(p.requests) - 1
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	return p.responses[idx], nil
}

func (p *scriptedProvider) StreamChat(ctx context.Context, messages []llm.ChatMessage, chunks chan<- string) (*llm.TokenUsage, error) {
	return nil, errors.New("not implemented")
}

// echoTool returns a fixed output, optionally after a delay.
type echoTool struct {
	tools.BaseTool
	name   string
	output string
	fail   error
	delay  time.Duration
}

func (e echoTool) Metadata() tools.ToolMetadata {
	return tools.ToolMetadata{Name: e.name, Description: "test tool"}
}

func (e echoTool) Execute(ctx context.Context, args json.RawMessage) (tools.ToolResult, error) {
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return tools.ToolResult{}, ctx.Err()
		}
	}
	if e.fail != nil {
		return tools.FailureResult(e.fail), nil
	}
	return tools.SuccessResult(e.output), nil
}

func registryOf(t *testing.T, toolList ...tools.Tool) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	for _, tool := range toolList {
		if err := r.Register(tool); err != nil {
			t.Fatalf("failed to register tool: %v", err)
		}
	}
	return r
}

func collect(t *testing.T, s *Stream) ([]StepEvent, error) {
	t.Helper()
	var events []StepEvent
	for ev := range s.Events() {
		events = append(events, ev)
	}
	return events, s.Err()
}

func toolTurn(calls ...llm.ToolCall) llm.LLMResponse {
	return llm.LLMResponse{ToolCalls: calls}
}

func finalTurn(text string) llm.LLMResponse {
	return llm.LLMResponse{Content: text}
}

func TestDriverMultiIteration(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.LLMResponse{
		toolTurn(llm.ToolCall{ID: "c1", Name: "slow", Arguments: json.RawMessage(`{}`)},
			llm.ToolCall{ID: "c2", Name: "fast", Arguments: json.RawMessage(`{}`)}),
		finalTurn("all done"),
	}}
	registry := registryOf(t,
		echoTool{name: "slow", output: "slow result", delay: 50 * time.Millisecond},
		echoTool{name: "fast", output: "fast result"},
	)

	driver := NewDriver(provider, registry, 6, nil)
	events, err := collect(t, driver.Run(context.Background(), []llm.ChatMessage{llm.UserMessage("go")}))
	if err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}

	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}

	// Results re-join in request order even though "slow" finishes last.
	first, ok := events[1].(ToolResultEvent)
	if !ok || first.Tool != "slow" {
		t.Errorf("expected slow result first, got %+v", events[1])
	}
	second, ok := events[2].(ToolResultEvent)
	if !ok || second.Tool != "fast" {
		t.Errorf("expected fast result second, got %+v", events[2])
	}

	final, ok := events[3].(TurnEvent)
	if !ok || final.Text != "all done" || final.IsToolTurn() {
		t.Errorf("expected final turn, got %+v", events[3])
	}

	// The second engine request carries the assistant turn and both tool messages.
	if len(provider.requests) != 2 {
		t.Fatalf("expected 2 engine calls, got %d", len(provider.requests))
	}
	last := provider.requests[1]
	var toolMsgs int
	for _, msg := range last {
		if msg.Role == "tool" {
			toolMsgs++
		}
	}
	if toolMsgs != 2 {
		t.Errorf("expected 2 tool messages fed back, got %d", toolMsgs)
	}
}

func TestDriverUnknownToolDoesNotAbort(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.LLMResponse{
		toolTurn(llm.ToolCall{ID: "c1", Name: "missing", Arguments: json.RawMessage(`{}`)}),
		finalTurn("recovered"),
	}}
	registry := registryOf(t)

	driver := NewDriver(provider, registry, 6, nil)
	events, err := collect(t, driver.Run(context.Background(), []llm.ChatMessage{llm.UserMessage("go")}))
	if err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}

	result, ok := events[1].(ToolResultEvent)
	if !ok {
		t.Fatalf("expected tool result event, got %+v", events[1])
	}
	if result.Err == nil {
		t.Error("expected error on unknown tool result")
	}
	if !strings.Contains(result.Preview, "not found") {
		t.Errorf("expected not-found preview, got %q", result.Preview)
	}

	var invErr *ToolInvocationError
	if !errors.As(result.Err, &invErr) || invErr.Tool != "missing" {
		t.Errorf("expected ToolInvocationError for 'missing', got %v", result.Err)
	}

	final, ok := events[len(events)-1].(TurnEvent)
	if !ok || final.Text != "recovered" {
		t.Errorf("expected loop to continue to final turn, got %+v", events[len(events)-1])
	}
}

func TestDriverIterationCap(t *testing.T) {
	// The model keeps asking for tools forever.
	provider := &scriptedProvider{responses: []llm.LLMResponse{
		toolTurn(llm.ToolCall{ID: "c1", Name: "echo", Arguments: json.RawMessage(`{}`)}),
	}}
	registry := registryOf(t, echoTool{name: "echo", output: "ok"})

	driver := NewDriver(provider, registry, 2, nil)
	events, err := collect(t, driver.Run(context.Background(), []llm.ChatMessage{llm.UserMessage("go")}))
	if err != nil {
		t.Fatalf("cap exhaustion must not be a stream error, got %v", err)
	}

	// Two iterations, each one turn plus one tool result.
	if len(events) != 4 {
		t.Errorf("expected 4 events at cap 2, got %d", len(events))
	}
	if len(provider.requests) != 2 {
		t.Errorf("expected 2 engine calls at cap 2, got %d", len(provider.requests))
	}
}

func TestDriverEngineError(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("boom")}
	registry := registryOf(t)

	driver := NewDriver(provider, registry, 6, nil)
	events, err := collect(t, driver.Run(context.Background(), []llm.ChatMessage{llm.UserMessage("go")}))

	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected engine error, got %v", err)
	}
}

func TestDriverContextCancellation(t *testing.T) {
	provider := &scriptedProvider{
		delay:     time.Second,
		responses: []llm.LLMResponse{finalTurn("late")},
	}
	registry := registryOf(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	driver := NewDriver(provider, registry, 6, nil)
	_, err := collect(t, driver.Run(ctx, []llm.ChatMessage{llm.UserMessage("go")}))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}
