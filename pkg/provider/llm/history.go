package llm

import (
	"sync"
	"time"
)

// Message roles. These match the wire-level role names used by every backend
// the adapters support.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation entry.
type Message struct {
	Role      string
	Content   string
	Timestamp time.Time
}

// DefaultMaxHistory is the default non-system message cap for [History].
const DefaultMaxHistory = 20

// History is the shared conversation-history implementation used by the
// Generator adapters. It enforces the trimming contract:
//
//   - leading system messages are always retained untouched;
//   - when the non-system message count exceeds the configured maximum, only
//     the most recent floor(max/2)*2 non-system messages are kept, trimming
//     whole user/assistant pairs from the oldest end so no dangling unpaired
//     message is left at the cut boundary.
//
// All methods are safe for concurrent use.
type History struct {
	mu     sync.Mutex
	system []Message
	rest   []Message
	max    int
}

// NewHistory creates a History capped at max non-system messages.
// Non-positive max falls back to [DefaultMaxHistory].
func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	return &History{max: max}
}

// SetSystemPrompt replaces the system instruction. An empty text removes it.
func (h *History) SetSystemPrompt(text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if text == "" {
		h.system = nil
		return
	}
	h.system = []Message{{Role: RoleSystem, Content: text, Timestamp: time.Now()}}
}

// Add appends a non-system message and trims if the cap is exceeded.
func (h *History) Add(role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rest = append(h.rest, Message{Role: role, Content: content, Timestamp: time.Now()})
	h.trim()
}

// trim applies the pairing-preserving cut. Must be called with h.mu held.
func (h *History) trim() {
	if len(h.rest) <= h.max {
		return
	}
	keep := (h.max / 2) * 2
	fresh := make([]Message, keep)
	copy(fresh, h.rest[len(h.rest)-keep:])
	h.rest = fresh
}

// Messages returns the full history — leading system messages followed by
// the retained user/assistant messages, oldest first. The returned slice is
// a copy.
func (h *History) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, 0, len(h.system)+len(h.rest))
	out = append(out, h.system...)
	out = append(out, h.rest...)
	return out
}

// Clear discards all user/assistant messages, preserving the system prompt.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rest = nil
}

// DropLast removes the most recent n non-system messages. Generator adapters
// use it to roll back a user message when the backend call fails, keeping
// the history consistent with the "history unchanged on error" contract.
func (h *History) DropLast(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n >= len(h.rest) {
		h.rest = nil
		return
	}
	h.rest = h.rest[:len(h.rest)-n]
}

// Len returns the number of retained non-system messages.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rest)
}
