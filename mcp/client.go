// Package mcp provides Model Context Protocol (MCP) client implementation.
//
// MCP is a protocol for communication between AI models and tool providers.
// This package provides a client that can connect to MCP servers and execute
// tools through JSON-RPC over stdin/stdout.
//
// Information Hiding:
// - Process management hidden
// - JSON-RPC protocol details hidden
// - Request ID tracking hidden

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// protocolVersion is the MCP protocol revision this client speaks.
const protocolVersion = "2024-11-05"

// Client communicates with an MCP server via JSON-RPC over stdin/stdout.
type Client struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	stdoutC   io.Closer // read side of the transport, closed on teardown
	requestID uint64
	mu        sync.Mutex
}

// mcpRequest is a JSON-RPC request to an MCP server.
type mcpRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// mcpResponse is a JSON-RPC response from an MCP server.
type mcpResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *mcpError       `json:"error,omitempty"`
}

// mcpError is a JSON-RPC error.
type mcpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ToolInfo describes a tool available on the MCP server.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// toolsListResult is the result of tools/list method.
type toolsListResult struct {
	Tools []ToolInfo `json:"tools"`
}

// NewClient creates a new MCP client by starting the given command.
// The command is expected to be an MCP server that communicates via stdin/stdout.
// The context bounds the initialize handshake: a server that does not
// answer in time is killed, but once the handshake succeeds the process
// lives until Close, so a connect deadline cannot kill an established
// session.
func NewClient(ctx context.Context, command string, args ...string) (*Client, error) {
	cmd := exec.Command(command, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("failed to start MCP server: %w", err)
	}

	client := &Client{
		cmd:       cmd,
		stdin:     stdin,
		stdout:    bufio.NewReader(stdout),
		stdoutC:   stdout,
		requestID: 0,
	}

	if err := client.initialize(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize MCP client: %w", err)
	}

	return client, nil
}

// newPipeClient creates a client over an existing reader/writer pair.
// Used in tests to talk to an in-process server without spawning a process.
func newPipeClient(ctx context.Context, r io.Reader, w io.WriteCloser) (*Client, error) {
	client := &Client{
		stdin:  w,
		stdout: bufio.NewReader(r),
	}
	if rc, ok := r.(io.Closer); ok {
		client.stdoutC = rc
	}
	if err := client.initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize MCP client: %w", err)
	}
	return client, nil
}

// initialize sends the initialize request to the MCP server.
func (c *Client) initialize(ctx context.Context) error {
	params := map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]interface{}{},
		"clientInfo": map[string]interface{}{
			"name":    "delphi",
			"version": "0.1.0",
		},
	}

	_, err := c.call(ctx, "initialize", params)
	return err
}

// ListTools returns all tools available on the MCP server.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	result, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}

	var toolsResult toolsListResult
	if err := json.Unmarshal(result, &toolsResult); err != nil {
		return nil, fmt.Errorf("failed to parse tools list: %w", err)
	}

	return toolsResult.Tools, nil
}

// CallTool calls a tool on the MCP server with the given arguments.
func (c *Client) CallTool(ctx context.Context, name string, arguments json.RawMessage) (json.RawMessage, error) {
	params := map[string]interface{}{
		"name":      name,
		"arguments": json.RawMessage(arguments),
	}

	return c.call(ctx, "tools/call", params)
}

// call sends a JSON-RPC request and returns the result.
// An expired context tears the transport down: a late response could no
// longer be matched to its request, so the session is not reusable.
func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if c.stdin == nil {
		return nil, fmt.Errorf("MCP client is closed")
	}

	c.requestID++
	request := mcpRequest{
		JSONRPC: "2.0",
		ID:      c.requestID,
		Method:  method,
		Params:  params,
	}

	// Send request
	reqJSON, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if _, err := c.stdin.Write(append(reqJSON, '\n')); err != nil {
		return nil, fmt.Errorf("failed to write request: %w", err)
	}

	// Read the response in a goroutine so a hung server cannot block
	// past the caller's deadline.
	type readResult struct {
		line []byte
		err  error
	}
	read := make(chan readResult, 1)
	go func() {
		line, err := c.stdout.ReadBytes('\n')
		read <- readResult{line: line, err: err}
	}()

	var line []byte
	select {
	case res := <-read:
		if res.err != nil {
			return nil, fmt.Errorf("failed to read response: %w", res.err)
		}
		line = res.line
	case <-ctx.Done():
		// Unblocks the reader goroutine by closing the pipe (and
		// killing the server process when we own one).
		c.teardown()
		return nil, ctx.Err()
	}

	var response mcpResponse
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if response.Error != nil {
		return nil, fmt.Errorf("MCP error %d: %s", response.Error.Code, response.Error.Message)
	}

	return response.Result, nil
}

// teardown releases the transport and the server process. Callers must
// hold c.mu. Safe to call more than once.
func (c *Client) teardown() {
	if c.stdin != nil {
		c.stdin.Close()
		c.stdin = nil
	}
	if c.stdoutC != nil {
		c.stdoutC.Close()
		c.stdoutC = nil
	}
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill() // Intentionally ignore - cleanup
		_ = c.cmd.Wait()         // Intentionally ignore - cleanup
		c.cmd = nil
	}
}

// Close stops the MCP server process and releases resources.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.teardown()
	return nil
}
