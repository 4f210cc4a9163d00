// MCP stdio server - exposes a tool registry over JSON-RPC.
//
// This is the mirror image of the client in this package: line-delimited
// JSON-RPC 2.0 over a reader/writer pair, supporting the initialize,
// tools/list and tools/call methods. It lets the CLI act as its own
// tool-provider ("delphi serve").

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/richinex/delphi/tools"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// Server serves a tool registry over line-delimited JSON-RPC.
type Server struct {
	registry *tools.Registry
	executor *tools.Executor
	name     string
	version  string
}

// NewServer creates a server exposing the given registry.
func NewServer(registry *tools.Registry) *Server {
	return &Server{
		registry: registry,
		executor: tools.NewDefaultExecutor(),
		name:     "delphi",
		version:  "0.1.0",
	}
}

// ServeStdio serves requests on stdin/stdout until EOF or context cancellation.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads one request per line from r and writes one response per line to w.
// Returns nil on clean EOF.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	out := bufio.NewWriter(w)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp := s.handle(ctx, line)
		respJSON, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		if _, err := out.Write(append(respJSON, '\n')); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
		if err := out.Flush(); err != nil {
			return fmt.Errorf("failed to flush response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}
	return nil
}

// handle dispatches a single request line to the right method handler.
func (s *Server) handle(ctx context.Context, line []byte) mcpResponse {
	var req mcpRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return errorResponse(0, codeParseError, fmt.Sprintf("invalid request: %v", err))
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return errorResponse(req.ID, codeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (s *Server) handleInitialize(req mcpRequest) mcpResponse {
	result := map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    s.name,
			"version": s.version,
		},
	}
	return resultResponse(req.ID, result)
}

func (s *Server) handleToolsList(req mcpRequest) mcpResponse {
	infos := make([]map[string]interface{}, 0, s.registry.Len())
	for _, meta := range s.registry.List() {
		infos = append(infos, map[string]interface{}{
			"name":        meta.Name,
			"description": meta.Description,
			"inputSchema": meta.Schema(),
		})
	}
	return resultResponse(req.ID, map[string]interface{}{"tools": infos})
}

func (s *Server) handleToolsCall(ctx context.Context, req mcpRequest) mcpResponse {
	// Params arrive as interface{} from the request decode; re-marshal to
	// pull out the typed call parameters.
	paramsJSON, err := json.Marshal(req.Params)
	if err != nil {
		return errorResponse(req.ID, codeInvalidParams, "invalid params")
	}

	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(paramsJSON, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, fmt.Sprintf("invalid params: %v", err))
	}
	if params.Name == "" {
		return errorResponse(req.ID, codeInvalidParams, "missing tool name")
	}

	tool, ok := s.registry.Get(params.Name)
	if !ok {
		return errorResponse(req.ID, codeInvalidParams, fmt.Sprintf("unknown tool: %s", params.Name))
	}

	args := params.Arguments
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	result, err := s.executor.Execute(ctx, tool, args)
	if err != nil {
		return errorResponse(req.ID, codeInternalError, fmt.Sprintf("tool execution failed: %v", err))
	}

	return resultResponse(req.ID, result)
}

func resultResponse(id uint64, result interface{}) mcpResponse {
	raw, err := json.Marshal(result)
	if err != nil {
		return errorResponse(id, codeInternalError, fmt.Sprintf("failed to encode result: %v", err))
	}
	return mcpResponse{JSONRPC: "2.0", ID: id, Result: raw}
}

func errorResponse(id uint64, code int, message string) mcpResponse {
	return mcpResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &mcpError{Code: code, Message: message},
	}
}
