package llm

import (
	"fmt"
	"testing"
)

func TestHistoryPreservesSystemPrompt(t *testing.T) {
	h := NewHistory(4)
	h.SetSystemPrompt("be concise")
	h.Add(RoleUser, "q1")
	h.Add(RoleAssistant, "a1")

	msgs := h.Messages()
	if len(msgs) != 3 {
		t.Fatalf("len(Messages()) = %d, want 3", len(msgs))
	}
	if msgs[0].Role != RoleSystem || msgs[0].Content != "be concise" {
		t.Errorf("first message = %+v, want the system prompt", msgs[0])
	}

	h.Clear()
	msgs = h.Messages()
	if len(msgs) != 1 || msgs[0].Role != RoleSystem {
		t.Errorf("Messages() after Clear = %+v, want only the system prompt", msgs)
	}
}

func TestHistoryTrimsToPairedRecentMessages(t *testing.T) {
	h := NewHistory(10)
	h.SetSystemPrompt("system")

	// 11 non-system messages: one over the cap of 10.
	for i := 1; i <= 11; i++ {
		role := RoleUser
		if i%2 == 0 {
			role = RoleAssistant
		}
		h.Add(role, fmt.Sprintf("m%d", i))
	}

	if got := h.Len(); got != 10 {
		t.Fatalf("Len() = %d, want 10 (floor(10/2)*2 most recent)", got)
	}
	msgs := h.Messages()
	if msgs[0].Role != RoleSystem {
		t.Fatal("system prompt lost by trimming")
	}
	if got := msgs[1].Content; got != "m2" {
		t.Errorf("oldest retained message = %q, want m2", got)
	}
	if got := msgs[len(msgs)-1].Content; got != "m11" {
		t.Errorf("newest retained message = %q, want m11", got)
	}
}

func TestHistoryOddCapKeepsEvenCount(t *testing.T) {
	h := NewHistory(5)
	for i := 1; i <= 6; i++ {
		h.Add(RoleUser, fmt.Sprintf("m%d", i))
	}
	// floor(5/2)*2 = 4: the cut never leaves a dangling unpaired message.
	if got := h.Len(); got != 4 {
		t.Errorf("Len() = %d, want 4", got)
	}
	if got := h.Messages()[0].Content; got != "m3" {
		t.Errorf("oldest retained = %q, want m3", got)
	}
}

func TestHistoryDropLast(t *testing.T) {
	h := NewHistory(10)
	h.Add(RoleUser, "q1")
	h.Add(RoleAssistant, "a1")
	h.Add(RoleUser, "q2")

	h.DropLast(1)
	msgs := h.Messages()
	if len(msgs) != 2 || msgs[len(msgs)-1].Content != "a1" {
		t.Errorf("Messages() after DropLast(1) = %+v, want q1, a1", msgs)
	}

	h.DropLast(5)
	if got := h.Len(); got != 0 {
		t.Errorf("Len() after oversized DropLast = %d, want 0", got)
	}
}

func TestHistorySetSystemPromptReplacesAndRemoves(t *testing.T) {
	h := NewHistory(10)
	h.SetSystemPrompt("first")
	h.SetSystemPrompt("second")

	msgs := h.Messages()
	if len(msgs) != 1 || msgs[0].Content != "second" {
		t.Fatalf("Messages() = %+v, want a single replaced system prompt", msgs)
	}

	h.SetSystemPrompt("")
	if got := len(h.Messages()); got != 0 {
		t.Errorf("len(Messages()) after removing prompt = %d, want 0", got)
	}
}

func TestHistoryMessagesReturnsCopy(t *testing.T) {
	h := NewHistory(10)
	h.Add(RoleUser, "original")

	msgs := h.Messages()
	msgs[0].Content = "mutated"

	if got := h.Messages()[0].Content; got != "original" {
		t.Errorf("history mutated through returned slice: %q", got)
	}
}
