package agent

import (
	"fmt"
	"testing"

	"github.com/richinex/delphi/model"
)

func TestMemoryAppendAndRecall(t *testing.T) {
	m := NewConversationMemory(4)
	m.Append("q1", "a1")
	m.Append("q2", "a2")

	got := m.RecentContext(4)
	if len(got) != 4 {
		t.Fatalf("expected 4 exchanges, got %d", len(got))
	}
	if got[0].Role != model.RoleUser || got[0].Content != "q1" {
		t.Errorf("expected oldest exchange first, got %+v", got[0])
	}
	if got[3].Role != model.RoleAssistant || got[3].Content != "a2" {
		t.Errorf("expected newest exchange last, got %+v", got[3])
	}
}

func TestMemoryEvictsOldestPair(t *testing.T) {
	m := NewConversationMemory(2)
	for i := 1; i <= 3; i++ {
		m.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	if m.Len() != 4 {
		t.Fatalf("expected 4 exchanges after eviction, got %d", m.Len())
	}

	got := m.RecentContext(2)
	if got[0].Content != "q2" {
		t.Errorf("expected oldest surviving exchange to be q2, got %q", got[0].Content)
	}
	if got[3].Content != "a3" {
		t.Errorf("expected newest exchange to be a3, got %q", got[3].Content)
	}
}

func TestMemoryRecentContextSubset(t *testing.T) {
	m := NewConversationMemory(4)
	m.Append("q1", "a1")
	m.Append("q2", "a2")
	m.Append("q3", "a3")

	got := m.RecentContext(1)
	if len(got) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(got))
	}
	if got[0].Content != "q3" || got[1].Content != "a3" {
		t.Errorf("expected last pair, got %+v", got)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewConversationMemory(4)
	m.Append("q1", "a1")

	got := m.RecentContext(4)
	got[0].Content = "mutated"

	again := m.RecentContext(4)
	if again[0].Content != "q1" {
		t.Errorf("internal buffer mutated through returned slice: %q", again[0].Content)
	}
}

func TestMemoryClear(t *testing.T) {
	m := NewConversationMemory(4)
	m.Append("q1", "a1")
	m.Clear()

	if m.Len() != 0 {
		t.Errorf("expected empty memory after Clear, got %d", m.Len())
	}
}
