// Package mock provides a test double for the llm package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/voxloop/voxloop/pkg/provider/llm"
)

// Generator is a mock implementation of [llm.Generator].
type Generator struct {
	mu sync.Mutex

	// Result is returned by every Generate call.
	Result string

	// Err, if non-nil, is returned by every Generate call.
	Err error

	// GenerateCalls records the userText of every Generate invocation in order.
	GenerateCalls []string

	// SystemPrompts records every SetSystemPrompt argument in order.
	SystemPrompts []string

	// ClearHistoryCallCount is the number of times ClearHistory was called.
	ClearHistoryCallCount int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// Generate records the call and returns Result, Err.
func (g *Generator) Generate(_ context.Context, userText string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.GenerateCalls = append(g.GenerateCalls, userText)
	return g.Result, g.Err
}

// SetSystemPrompt records the call.
func (g *Generator) SetSystemPrompt(text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.SystemPrompts = append(g.SystemPrompts, text)
}

// ClearHistory records the call.
func (g *Generator) ClearHistory() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ClearHistoryCallCount++
}

// Close records the call. Lets tests verify disposal reaches the collaborator.
func (g *Generator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.CloseCallCount++
	return nil
}

// CallCount returns the number of recorded Generate calls. Thread-safe.
func (g *Generator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.GenerateCalls)
}

// Compile-time assertion that Generator implements llm.Generator.
var _ llm.Generator = (*Generator)(nil)
