// MCP Tool Wrapper - Makes MCP tools usable in the agent system.
//
// Information Hiding:
// - MCP client lifecycle hidden
// - Schema parsing hidden
// - Tool execution coordination hidden

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/richinex/delphi/tools"
)

// ToolManager manages a set of MCP tools sharing a single client.
// The caller must call Close() when done to release resources.
type ToolManager struct {
	client *Client
	tools  []tools.Tool
}

// Tools returns the discovered tools.
func (m *ToolManager) Tools() []tools.Tool {
	return m.tools
}

// Close closes the MCP client and releases resources.
func (m *ToolManager) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// remoteTool wraps an MCP tool with a shared client.
type remoteTool struct {
	client      *Client
	toolName    string
	description string
	inputSchema json.RawMessage
}

// Metadata returns the tool metadata extracted from the MCP schema.
func (w *remoteTool) Metadata() tools.ToolMetadata {
	return tools.ToolMetadata{
		Name:        w.toolName,
		Description: w.description,
		Parameters:  parseParameters(w.inputSchema),
	}
}

// Execute calls the MCP tool using the shared client.
func (w *remoteTool) Execute(ctx context.Context, args json.RawMessage) (tools.ToolResult, error) {
	result, err := w.client.CallTool(ctx, w.toolName, args)
	if err != nil {
		return tools.ToolResult{}, fmt.Errorf("tool call failed: %w", err)
	}

	return formatResult(result), nil
}

// Validate validates that arguments are valid JSON.
// Note: Schema validation is performed by the MCP server.
func (w *remoteTool) Validate(args json.RawMessage) error {
	var v interface{}
	if err := json.Unmarshal(args, &v); err != nil {
		return fmt.Errorf("invalid JSON arguments: %w", err)
	}
	return nil
}

// parseParameters extracts tool parameters from the JSON schema.
// Returns parameters in sorted order for deterministic output.
func parseParameters(inputSchema json.RawMessage) []tools.ToolParameter {
	var schema struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}

	if err := json.Unmarshal(inputSchema, &schema); err != nil {
		return nil
	}

	requiredSet := make(map[string]bool)
	for _, r := range schema.Required {
		requiredSet[r] = true
	}

	// Extract and sort parameter names for deterministic output
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]tools.ToolParameter, 0, len(names))
	for _, name := range names {
		prop := schema.Properties[name]
		paramType := prop.Type
		if paramType == "" {
			paramType = "string"
		}

		params = append(params, tools.ToolParameter{
			Name:        name,
			Description: prop.Description,
			ParamType:   paramType,
			Required:    requiredSet[name],
		})
	}

	return params
}

// formatResult formats the result as pretty JSON if possible.
func formatResult(result json.RawMessage) tools.ToolResult {
	var v interface{}
	if err := json.Unmarshal(result, &v); err != nil {
		// Not valid JSON, return as-is
		return tools.SuccessResult(string(result))
	}

	// If unmarshal succeeded, marshal should never fail
	pretty, _ := json.MarshalIndent(v, "", "  ")
	return tools.SuccessResult(string(pretty))
}

// DiscoverTools discovers all tools from an MCP server and returns a ToolManager.
// The ToolManager shares a single client across all tools for efficiency.
// The caller MUST call ToolManager.Close() when done to release resources.
//
// Example:
//
//	manager, err := mcp.DiscoverTools(ctx, "delphi", "serve")
//	if err != nil {
//	    return err
//	}
//	defer manager.Close()
//
//	for _, tool := range manager.Tools() {
//	    // Use tool
//	}
func DiscoverTools(ctx context.Context, serverCommand string, serverArgs ...string) (*ToolManager, error) {
	client, err := NewClient(ctx, serverCommand, serverArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MCP server: %w", err)
	}

	return discoverFromClient(ctx, client)
}

// discoverFromClient lists tools over an already-initialized client.
func discoverFromClient(ctx context.Context, client *Client) (*ToolManager, error) {
	toolInfos, err := client.ListTools(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}

	result := make([]tools.Tool, len(toolInfos))
	for i, info := range toolInfos {
		result[i] = &remoteTool{
			client:      client,
			toolName:    info.Name,
			description: stringValue(info.Description),
			inputSchema: info.InputSchema,
		}
	}

	return &ToolManager{
		client: client,
		tools:  result,
	}, nil
}

// stringValue returns empty string for nil pointers.
func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Loader connects to an MCP server and loads its tools, bounding the
// whole connect-and-discover handshake with a timeout. It satisfies the
// agent's ToolLoader interface.
type Loader struct {
	Command string
	Args    []string
	Timeout time.Duration

	manager *ToolManager
}

// NewLoader creates a loader for the given server command.
func NewLoader(command string, args []string, timeout time.Duration) *Loader {
	return &Loader{Command: command, Args: args, Timeout: timeout}
}

// LoadTools starts the server, performs the handshake and returns the
// discovered tools. The timeout covers process start, initialize and
// tools/list together.
func (l *Loader) LoadTools(ctx context.Context) ([]tools.Tool, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	manager, err := DiscoverTools(ctx, l.Command, l.Args...)
	if err != nil {
		return nil, err
	}
	l.manager = manager
	return manager.Tools(), nil
}

// Close releases the underlying MCP client, if connected.
func (l *Loader) Close() error {
	if l.manager != nil {
		return l.manager.Close()
	}
	return nil
}
