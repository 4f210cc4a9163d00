// Query orchestrator.
//
// Client is the conversation-facing surface: Connect loads the tool
// catalog, Query runs one question through the reasoning loop and
// returns a structured result. All failures after Connect come back as
// error-status results, never as panics or raw errors.

package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/richinex/delphi/config"
	"github.com/richinex/delphi/llm"
	"github.com/richinex/delphi/model"
	"github.com/richinex/delphi/tools"
)

// ToolLoader supplies the tool catalog during Connect.
type ToolLoader interface {
	LoadTools(ctx context.Context) ([]tools.Tool, error)
}

// StaticTools is a ToolLoader over a fixed, in-process set of tools.
type StaticTools []tools.Tool

// LoadTools returns the static tool set.
func (s StaticTools) LoadTools(ctx context.Context) ([]tools.Tool, error) {
	return s, nil
}

// greetings are answered directly without an engine call.
var greetings = map[string]bool{
	"hi":       true,
	"hello":    true,
	"hey":      true,
	"hi there": true,
}

// Client orchestrates conversations against a connected tool catalog.
// A mutex serializes queries so concurrent callers cannot interleave
// the shared conversation history.
type Client struct {
	provider     llm.Provider
	loader       ToolLoader
	cfg          config.ClientConfig
	observer     Observer
	requireTools bool
	now          func() time.Time

	mu        sync.Mutex
	connected bool
	registry  *tools.Registry
	driver    *Driver
	memory    *ConversationMemory
	system    string
}

// Option customizes a Client.
type Option func(*Client)

// WithObserver sets the step observer.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithRequireTools makes Connect fail when the loaded catalog is empty.
func WithRequireTools() Option {
	return func(c *Client) { c.requireTools = true }
}

// NewClient creates a client. Connect must be called before Query.
func NewClient(provider llm.Provider, loader ToolLoader, cfg config.ClientConfig, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		loader:   loader,
		cfg:      cfg,
		observer: NopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect validates configuration and loads the tool catalog. It is
// idempotent: calling it on a connected client is a no-op and does not
// refresh the catalog.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	if c.provider == nil {
		return &ConfigurationError{Item: "llm provider is required"}
	}
	if c.loader == nil {
		return &ConfigurationError{Item: "tool loader is required"}
	}

	if c.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()
	}

	loaded, err := c.loader.LoadTools(ctx)
	if err != nil {
		return &ConnectionError{Cause: err}
	}

	registry := tools.NewRegistry()
	for _, tool := range loaded {
		if err := registry.Register(tool); err != nil {
			return &ConnectionError{Cause: err}
		}
	}

	if c.requireTools && registry.Len() == 0 {
		return &ConfigurationError{Item: "tool catalog is empty"}
	}

	c.registry = registry
	c.system = buildSystemPrompt(registry, c.now())
	c.driver = NewDriver(c.provider, registry, c.cfg.MaxIterations, c.observer)
	c.memory = NewConversationMemory(c.cfg.MemoryWindow)
	c.connected = true
	return nil
}

// Connected reports whether Connect has completed successfully.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Tools returns the metadata of the connected tool catalog.
func (c *Client) Tools() []tools.ToolMetadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registry == nil {
		return nil
	}
	return c.registry.List()
}

// Close releases the tool loader if it holds resources.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if closer, ok := c.loader.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Query runs one question through the reasoning loop.
// Every failure is converted into an error-status result.
func (c *Client) Query(ctx context.Context, question string) model.QueryResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return model.ErrorResult(ErrNotConnected.Error(), nil)
	}

	q := strings.TrimSpace(question)
	if q == "" {
		return model.ErrorResult("query cannot be empty", nil)
	}

	// Greetings skip the engine entirely and never enter history.
	if greetings[strings.ToLower(q)] {
		return model.SuccessResult(c.greetingResponse(), nil)
	}

	messages := c.buildMessages(q)

	if c.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.QueryTimeout)
		defer cancel()
	}

	stream := c.driver.Run(ctx, messages)
	agg := newAggregation()
	for ev := range stream.Events() {
		agg.observe(ev)
	}

	if err := stream.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return model.ErrorResult(
				fmt.Sprintf("query timed out after %s", c.cfg.QueryTimeout),
				agg.trace(),
			)
		}
		return model.ErrorResult(err.Error(), agg.trace())
	}

	response, err := agg.finalize()
	if err != nil {
		return model.ErrorResult(err.Error(), agg.trace())
	}

	// Memory only moves on success.
	c.memory.Append(q, response)
	return model.SuccessResult(response, agg.trace())
}

// buildMessages assembles the prompt: system, recent history, question.
func (c *Client) buildMessages(question string) []llm.ChatMessage {
	history := c.memory.RecentContext(c.cfg.MemoryWindow)

	messages := make([]llm.ChatMessage, 0, len(history)+2)
	messages = append(messages, llm.SystemMessage(c.system))
	for _, exchange := range history {
		messages = append(messages, llm.ChatMessage{
			Role:    string(exchange.Role),
			Content: exchange.Content,
		})
	}
	messages = append(messages, llm.UserMessage(question))
	return messages
}

// greetingResponse is the canned introduction for greeting inputs.
func (c *Client) greetingResponse() string {
	names := c.registry.Names()
	if len(names) == 0 {
		return "Hello! I'm an assistant ready to help you. Ask me anything!"
	}
	return fmt.Sprintf(
		"Hello! I'm an assistant with access to these tools: %s. Ask me anything!",
		strings.Join(names, ", "),
	)
}

// buildSystemPrompt describes the assistant, its tools and today's date.
func buildSystemPrompt(registry *tools.Registry, now time.Time) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant that can use tools to answer questions.\n")
	fmt.Fprintf(&b, "Today's date is %s.\n", now.Format("2006-01-02"))

	metas := registry.List()
	if len(metas) > 0 {
		b.WriteString("\nAvailable tools:\n")
		for _, meta := range metas {
			fmt.Fprintf(&b, "- %s: %s\n", meta.Name, meta.Description)
		}
		b.WriteString("\nUse tools when they help answer the question. Answer directly when no tool is needed.")
	}
	return b.String()
}
