package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// flakyTool fails a fixed number of times before succeeding.
type flakyTool struct {
	BaseTool
	failures    int
	calls       int
	validateErr error
}

func (f *flakyTool) Metadata() ToolMetadata {
	return ToolMetadata{Name: "flaky", Description: "fails then succeeds"}
}

func (f *flakyTool) Validate(args json.RawMessage) error {
	return f.validateErr
}

func (f *flakyTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return FailureResult(errors.New("connection reset")), nil
	}
	return SuccessResult("ok"), nil
}

func TestExecutorRetriesTransientFailures(t *testing.T) {
	tool := &flakyTool{failures: 2}
	exec := NewExecutor(ToolConfig{MaxRetries: 3})

	result, err := exec.Execute(context.Background(), tool, json.RawMessage("{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success() {
		t.Fatalf("expected success after retries, got %v", result.Error)
	}
	if tool.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", tool.calls)
	}
}

func TestExecutorExhaustsRetries(t *testing.T) {
	tool := &flakyTool{failures: 10}
	exec := NewExecutor(ToolConfig{MaxRetries: 2})

	result, err := exec.Execute(context.Background(), tool, json.RawMessage("{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success() {
		t.Fatal("expected failure after exhausting retries")
	}
	if !strings.Contains(result.Error.Error(), "after 2 attempts") {
		t.Errorf("expected exhaustion message, got %q", result.Error)
	}
	if tool.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", tool.calls)
	}
}

func TestExecutorValidationIsTerminal(t *testing.T) {
	tool := &flakyTool{validateErr: errors.New("missing expression")}
	exec := NewExecutor(ToolConfig{MaxRetries: 3})

	result, err := exec.Execute(context.Background(), tool, json.RawMessage("{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success() {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(result.Error.Error(), "validation failed for 'flaky'") {
		t.Errorf("unexpected error message %q", result.Error)
	}
	if tool.calls != 0 {
		t.Errorf("tool must not run when validation fails, got %d calls", tool.calls)
	}
}

func TestExecutorDoesNotRetryDeterministicFailures(t *testing.T) {
	calls := 0
	tool := &funcTool{
		meta: ToolMetadata{Name: "calc"},
		fn: func(ctx context.Context, args json.RawMessage) (ToolResult, error) {
			calls++
			return FailureResult(errors.New("division by zero")), nil
		},
	}
	exec := NewExecutor(ToolConfig{MaxRetries: 3})

	result, err := exec.Execute(context.Background(), tool, json.RawMessage("{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success() {
		t.Fatal("expected failure")
	}
	if calls != 1 {
		t.Errorf("deterministic failure must not retry, got %d calls", calls)
	}
}

// funcTool adapts a function into a Tool for tests.
type funcTool struct {
	BaseTool
	meta ToolMetadata
	fn   func(ctx context.Context, args json.RawMessage) (ToolResult, error)
}

func (f *funcTool) Metadata() ToolMetadata { return f.meta }

func (f *funcTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	return f.fn(ctx, args)
}
