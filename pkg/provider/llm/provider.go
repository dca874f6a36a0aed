// Package llm defines the Generator interface for response-generation
// backends and the conversation-history contract they share.
//
// A Generator wraps a language model (remote API or local runtime) behind a
// single-call interface: user text in, assistant text out. The generator owns
// the conversation history, including the trimming rules implemented by
// [History] — the controller only issues pass-through configuration calls
// (SetSystemPrompt, ClearHistory).
//
// Implementations must be safe for concurrent use and should enforce their
// own request timeouts rather than hanging the caller indefinitely.
package llm

import "context"

// Generator is the abstraction over any response-generation backend.
type Generator interface {
	// Generate produces the assistant response to userText, appending both
	// the user message and the response to the generator's owned history.
	//
	// Returns an error if the backend fails or ctx is cancelled; on error the
	// history is left as it was before the call.
	Generate(ctx context.Context, userText string) (string, error)

	// SetSystemPrompt replaces the system instruction for subsequent
	// generations. Fire-and-forget.
	SetSystemPrompt(text string)

	// ClearHistory discards all user/assistant history while preserving any
	// leading system message. Fire-and-forget.
	ClearHistory()
}

// NullGenerator is the speech-only null object: it echoes the user text back
// unchanged and never fails. Select it at construction time for deployments
// that repeat what was heard without a language model.
type NullGenerator struct{}

// Generate returns userText unchanged.
func (NullGenerator) Generate(_ context.Context, userText string) (string, error) {
	return userText, nil
}

// SetSystemPrompt is a no-op.
func (NullGenerator) SetSystemPrompt(string) {}

// ClearHistory is a no-op.
func (NullGenerator) ClearHistory() {}

// Compile-time assertion that NullGenerator implements Generator.
var _ Generator = NullGenerator{}
