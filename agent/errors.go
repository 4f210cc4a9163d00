// Error types for the agent package.

package agent

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when Query is called before Connect.
var ErrNotConnected = errors.New("agent: not connected, call Connect first")

// ErrEmptyResponse is returned when the reasoning loop produced no
// usable output at all.
var ErrEmptyResponse = errors.New("agent: engine produced an empty response")

// ConfigurationError indicates the client was assembled with a missing
// or invalid piece of configuration.
type ConfigurationError struct {
	Item string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("agent: invalid configuration: %s", e.Item)
}

// ConnectionError indicates the tool provider could not be reached or
// the tool catalog could not be loaded.
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("agent: connection failed: %v", e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// ToolInvocationError indicates a single tool call failed. It is carried
// inside the step stream and never aborts the reasoning loop on its own.
type ToolInvocationError struct {
	Tool  string
	Cause error
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("agent: tool %q failed: %v", e.Tool, e.Cause)
}

func (e *ToolInvocationError) Unwrap() error {
	return e.Cause
}
