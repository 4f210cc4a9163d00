// Conversation memory - a fixed-capacity sliding window of exchanges.

package agent

import (
	"sync"

	"github.com/richinex/delphi/model"
)

// ConversationMemory keeps the last W completed user/assistant pairs.
// When the window is full the oldest pair is evicted first. The buffer
// never holds more than 2*W exchanges and only whole pairs are stored.
type ConversationMemory struct {
	mu     sync.Mutex
	window int
	buf    []model.Exchange
}

// NewConversationMemory creates a memory holding up to window pairs.
// A non-positive window defaults to 1.
func NewConversationMemory(window int) *ConversationMemory {
	if window < 1 {
		window = 1
	}
	return &ConversationMemory{window: window}
}

// Append commits one completed exchange pair, evicting the oldest pair
// if the window is full.
func (m *ConversationMemory) Append(user, assistant string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buf = append(m.buf,
		model.Exchange{Role: model.RoleUser, Content: user},
		model.Exchange{Role: model.RoleAssistant, Content: assistant},
	)
	if max := 2 * m.window; len(m.buf) > max {
		m.buf = m.buf[len(m.buf)-max:]
	}
}

// RecentContext returns up to maxPairs of the most recent pairs,
// oldest first. The returned slice is a copy.
func (m *ConversationMemory) RecentContext(maxPairs int) []model.Exchange {
	m.mu.Lock()
	defer m.mu.Unlock()

	if maxPairs < 0 {
		maxPairs = 0
	}
	n := 2 * maxPairs
	if n > len(m.buf) {
		n = len(m.buf)
	}

	out := make([]model.Exchange, n)
	copy(out, m.buf[len(m.buf)-n:])
	return out
}

// Len returns the number of stored exchanges (2 per pair).
func (m *ConversationMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.buf)
}

// Clear removes all stored exchanges.
func (m *ConversationMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buf = nil
}
