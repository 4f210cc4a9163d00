package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"
)

// startSilentServer drains client requests but never answers. Returns
// the client-side pipe ends.
func startSilentServer(t *testing.T) (*io.PipeReader, *io.PipeWriter) {
	t.Helper()

	clientReader, serverWriter := io.Pipe()
	serverReader, clientWriter := io.Pipe()

	go func() {
		_, _ = io.Copy(io.Discard, serverReader)
	}()

	t.Cleanup(func() {
		clientWriter.Close()
		serverWriter.Close()
	})
	return clientReader, clientWriter
}

func TestHandshakeTimeoutOnSilentServer(t *testing.T) {
	clientReader, clientWriter := startSilentServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newPipeClient(ctx, clientReader, clientWriter)
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if elapsed > time.Second {
		t.Errorf("handshake blocked %s past a 100ms deadline", elapsed)
	}
}

// startStallingServer answers the initialize handshake, then goes silent
// while still draining input.
func startStallingServer(t *testing.T) *Client {
	t.Helper()

	clientReader, serverWriter := io.Pipe()
	serverReader, clientWriter := io.Pipe()

	go func() {
		in := bufio.NewReader(serverReader)
		line, err := in.ReadBytes('\n')
		if err != nil {
			return
		}
		var req mcpRequest
		if err := json.Unmarshal(line, &req); err != nil {
			return
		}
		resp, _ := json.Marshal(mcpResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  json.RawMessage(`{}`),
		})
		if _, err := serverWriter.Write(append(resp, '\n')); err != nil {
			return
		}
		_, _ = io.Copy(io.Discard, in)
	}()

	t.Cleanup(func() {
		clientWriter.Close()
		serverWriter.Close()
	})

	client, err := newPipeClient(context.Background(), clientReader, clientWriter)
	if err != nil {
		t.Fatalf("handshake failed: %v", err)
	}
	return client
}

func TestCallTimeoutOnStalledServer(t *testing.T) {
	client := startStallingServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.CallTool(ctx, "calculate", json.RawMessage(`{}`))
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if elapsed > time.Second {
		t.Errorf("call blocked %s past a 100ms deadline", elapsed)
	}

	// The session is torn down; later calls fail fast instead of hanging.
	if _, err := client.CallTool(context.Background(), "calculate", json.RawMessage(`{}`)); err == nil {
		t.Error("expected error on a torn-down client")
	}
}

func TestLoadToolsTimeoutOnHungServer(t *testing.T) {
	// A server that starts but never speaks the protocol.
	loader := NewLoader("sleep", []string{"60"}, 200*time.Millisecond)
	defer loader.Close()

	start := time.Now()
	_, err := loader.LoadTools(context.Background())
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected error from a hung server")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("LoadTools blocked %s past a 200ms timeout", elapsed)
	}
}
