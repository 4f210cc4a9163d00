// Reasoning loop driver.
//
// The driver owns one pass of the reason/act loop: it alternates model
// turns with tool execution until the model answers without requesting
// tools, the iteration cap is reached, or the context expires. Progress
// is exposed as a lazy, non-restartable stream of step events.

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/richinex/delphi/llm"
	"github.com/richinex/delphi/tools"
)

// Driver runs queries through the reasoning loop.
type Driver struct {
	provider      llm.Provider
	registry      *tools.Registry
	executor      *tools.Executor
	maxIterations int
	observer      Observer
}

// NewDriver creates a driver over the given provider and tool catalog.
func NewDriver(provider llm.Provider, registry *tools.Registry, maxIterations int, observer Observer) *Driver {
	if maxIterations < 1 {
		maxIterations = 1
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Driver{
		provider:      provider,
		registry:      registry,
		executor:      tools.NewDefaultExecutor(),
		maxIterations: maxIterations,
		observer:      observer,
	}
}

// Stream is a lazy sequence of step events produced by one Run.
// Events are produced on demand as the consumer reads them; the stream
// cannot be restarted. After the event channel closes, Err reports the
// terminal error, if any (the bufio.Scanner idiom).
type Stream struct {
	events chan StepEvent
	done   chan struct{}
	err    error
}

// Events returns the event channel. It is closed when the loop ends.
func (s *Stream) Events() <-chan StepEvent {
	return s.events
}

// Err returns the terminal error of the run. It blocks until the loop
// has finished, so call it after draining Events. A nil error means the
// loop ended normally, including by exhausting the iteration cap.
func (s *Stream) Err() error {
	<-s.done
	return s.err
}

// Run starts the reasoning loop for the given prompt messages.
// The returned stream must be drained exactly once.
func (d *Driver) Run(ctx context.Context, messages []llm.ChatMessage) *Stream {
	s := &Stream{
		events: make(chan StepEvent),
		done:   make(chan struct{}),
	}
	go d.run(ctx, messages, s)
	return s
}

func (d *Driver) run(ctx context.Context, messages []llm.ChatMessage, s *Stream) {
	defer close(s.done)
	defer close(s.events)

	msgs := make([]llm.ChatMessage, len(messages))
	copy(msgs, messages)

	defs := d.definitions()

	for i := 0; i < d.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			s.err = err
			d.observer.OnError(err)
			return
		}

		resp, err := d.provider.ChatWithTools(ctx, msgs, defs)
		if err != nil {
			s.err = fmt.Errorf("engine turn failed: %w", err)
			d.observer.OnError(s.err)
			return
		}

		turn := TurnEvent{Text: resp.Content, ToolCalls: resp.ToolCalls}
		d.observer.OnTurn(turn)
		if !d.emit(ctx, s, turn) {
			return
		}

		// A turn without tool calls is the final answer.
		if !turn.IsToolTurn() {
			return
		}

		msgs = append(msgs, llm.ChatMessage{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		// Sibling calls run concurrently but results re-join in the
		// order the model requested them.
		outcomes := d.dispatch(ctx, resp.ToolCalls)
		for idx, outcome := range outcomes {
			d.observer.OnToolResult(outcome.event)
			if !d.emit(ctx, s, outcome.event) {
				return
			}
			msgs = append(msgs, llm.ToolMessage(resp.ToolCalls[idx].ID, outcome.content))
		}
	}

	// Iteration cap reached: the stream ends without a terminal error
	// and the aggregator falls back to the best text seen so far.
}

// emit delivers one event, bailing out if the context expires first.
func (d *Driver) emit(ctx context.Context, s *Stream, ev StepEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		s.err = ctx.Err()
		d.observer.OnError(s.err)
		return false
	}
}

// toolOutcome pairs the observable event with the full text handed back
// to the model. The event preview is bounded; the model sees everything.
type toolOutcome struct {
	event   ToolResultEvent
	content string
}

// dispatch executes sibling tool calls concurrently and returns their
// outcomes indexed by request order.
func (d *Driver) dispatch(ctx context.Context, calls []llm.ToolCall) []toolOutcome {
	outcomes := make([]toolOutcome, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			outcomes[i] = d.invoke(ctx, call)
		}(i, call)
	}
	wg.Wait()

	return outcomes
}

// invoke runs a single tool call. Failures, including unknown tools,
// become error-carrying outcomes rather than loop aborts.
func (d *Driver) invoke(ctx context.Context, call llm.ToolCall) toolOutcome {
	tool, ok := d.registry.Get(call.Name)
	if !ok {
		content := fmt.Sprintf("Error: tool '%s' not found", call.Name)
		return toolOutcome{
			event: ToolResultEvent{
				Tool:    call.Name,
				Preview: previewOf(content),
				Err:     &ToolInvocationError{Tool: call.Name, Cause: fmt.Errorf("tool not found")},
			},
			content: content,
		}
	}

	args := call.Arguments
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	result, err := d.executor.Execute(ctx, tool, args)
	if err == nil && !result.Success() {
		err = result.Error
	}
	if err != nil {
		content := "Error: " + err.Error()
		return toolOutcome{
			event: ToolResultEvent{
				Tool:    call.Name,
				Preview: previewOf(content),
				Err:     &ToolInvocationError{Tool: call.Name, Cause: err},
			},
			content: content,
		}
	}

	return toolOutcome{
		event: ToolResultEvent{
			Tool:    call.Name,
			Preview: previewOf(result.Output),
		},
		content: result.Output,
	}
}

// definitions converts the tool catalog to LLM tool definitions.
func (d *Driver) definitions() []llm.ToolDefinition {
	metas := d.registry.List()
	defs := make([]llm.ToolDefinition, len(metas))
	for i, meta := range metas {
		defs[i] = llm.ToolDefinition{
			Name:        meta.Name,
			Description: meta.Description,
			Parameters:  meta.Schema(),
		}
	}
	return defs
}
