// Package model provides domain types shared across packages.
package model

// Role identifies the author of an exchange.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Exchange is a single human-visible message in the conversation.
// Intermediate reasoning and tool traffic never becomes an Exchange;
// only completed user/assistant pairs are committed to memory.
type Exchange struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TraceEntry records one tool invocation with a bounded result preview.
// The trace documents how a single answer was produced and is not
// retained in conversation memory.
type TraceEntry struct {
	Tool   string `json:"tool"`
	Result string `json:"result"`
}

// Status indicates whether a query resolved to an answer or an error.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// QueryResult is the structured outcome of one query.
// Response is set when Status is success; Message when Status is error.
// Steps is present in both cases and may be empty.
type QueryResult struct {
	Status   Status       `json:"status"`
	Response string       `json:"response,omitempty"`
	Message  string       `json:"message,omitempty"`
	Steps    []TraceEntry `json:"steps"`
}

// IsSuccess reports whether the query resolved successfully.
func (r QueryResult) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// SuccessResult creates a successful query result.
func SuccessResult(response string, steps []TraceEntry) QueryResult {
	if steps == nil {
		steps = []TraceEntry{}
	}
	return QueryResult{Status: StatusSuccess, Response: response, Steps: steps}
}

// ErrorResult creates a failed query result with a human-readable cause.
func ErrorResult(message string, steps []TraceEntry) QueryResult {
	if steps == nil {
		steps = []TraceEntry{}
	}
	return QueryResult{Status: StatusError, Message: message, Steps: steps}
}
