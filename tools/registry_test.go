package tools

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
)

// stubTool is a minimal tool for registry tests.
type stubTool struct {
	BaseTool
	name string
}

func (s stubTool) Metadata() ToolMetadata {
	return ToolMetadata{Name: s.name, Description: "stub"}
}

func (s stubTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	return SuccessResult("ok"), nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(stubTool{name: "alpha"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tool, ok := r.Get("alpha")
	if !ok {
		t.Fatal("expected tool to be registered")
	}
	if tool.Metadata().Name != "alpha" {
		t.Errorf("expected 'alpha', got %q", tool.Metadata().Name)
	}
	if !r.Has("alpha") {
		t.Error("Has should report registered tool")
	}
	if r.Has("missing") {
		t.Error("Has should not report unregistered tool")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(stubTool{name: "alpha"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Register(stubTool{name: "alpha"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(stubTool{name: name}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	want := []string{"alpha", "mid", "zeta"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if r.Len() != 3 {
		t.Errorf("expected 3 tools, got %d", r.Len())
	}
}

func TestWithDefaults(t *testing.T) {
	r, err := WithDefaults()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"get_time", "calculate", "web_search"} {
		if !r.Has(name) {
			t.Errorf("expected built-in tool %q", name)
		}
	}
}

func TestMetadataSchema(t *testing.T) {
	meta := NewWebSearchTool(5).Metadata()
	schema := meta.Schema()

	if schema["type"] != "object" {
		t.Errorf("expected object schema, got %v", schema["type"])
	}
	props, ok := schema["properties"].(map[string]interface{})
	if !ok {
		t.Fatal("expected properties map")
	}
	if _, ok := props["query"]; !ok {
		t.Error("expected 'query' property")
	}
	required, ok := schema["required"].([]string)
	if !ok || len(required) != 1 || required[0] != "query" {
		t.Errorf("expected required=[query], got %v", schema["required"])
	}
}
