// Package anyllm provides a [llm.Generator] backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and
// more.
//
// Usage:
//
//	g, err := anyllm.New("anthropic", "claude-3-5-sonnet-latest",
//	    anyllm.WithAPIKey("sk-ant-..."))
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/voxloop/voxloop/pkg/provider/llm"
)

// Ensure Generator implements the llm.Generator interface.
var _ llm.Generator = (*Generator)(nil)

// Generator implements llm.Generator by wrapping an any-llm-go backend. It
// owns its conversation history via [llm.History].
type Generator struct {
	backend anyllmlib.Provider
	model   string
	history *llm.History

	temperature float64
	maxTokens   int
}

// config holds optional configuration for the generator.
type config struct {
	backendOpts []anyllmlib.Option
	maxHistory  int
	temperature float64
	maxTokens   int
}

// Option is a functional option for Generator.
type Option func(*config)

// WithAPIKey sets the backend API key. Without it, the backend falls back to
// its environment variable (OPENAI_API_KEY, ANTHROPIC_API_KEY, …).
func WithAPIKey(key string) Option {
	return func(c *config) {
		c.backendOpts = append(c.backendOpts, anyllmlib.WithAPIKey(key))
	}
}

// WithBaseURL overrides the backend base URL (e.g., a local Ollama host).
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.backendOpts = append(c.backendOpts, anyllmlib.WithBaseURL(url))
	}
}

// WithMaxHistory caps the number of retained non-system messages.
// Non-positive values fall back to [llm.DefaultMaxHistory].
func WithMaxHistory(n int) Option {
	return func(c *config) {
		c.maxHistory = n
	}
}

// WithTemperature sets the sampling temperature. Zero leaves the model
// default in place.
func WithTemperature(t float64) Option {
	return func(c *config) {
		c.temperature = t
	}
}

// WithMaxTokens caps the completion length in tokens.
func WithMaxTokens(n int) Option {
	return func(c *config) {
		c.maxTokens = n
	}
}

// New creates a new Generator backed by the given LLM provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq". model is the specific model to use (e.g.,
// "gpt-4o", "claude-3-5-sonnet-latest").
func New(providerName string, model string, opts ...Option) (*Generator, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	backend, err := createBackend(providerName, cfg.backendOpts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}

	return &Generator{
		backend:     backend,
		model:       model,
		history:     llm.NewHistory(cfg.maxHistory),
		temperature: cfg.temperature,
		maxTokens:   cfg.maxTokens,
	}, nil
}

// createBackend creates the underlying any-llm-go provider for the given
// provider name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq", providerName)
	}
}

// Generate implements llm.Generator. The user message is rolled back from
// the history when the backend call fails.
func (g *Generator) Generate(ctx context.Context, userText string) (string, error) {
	g.history.Add(llm.RoleUser, userText)

	resp, err := g.backend.Completion(ctx, g.buildParams())
	if err != nil {
		g.history.DropLast(1)
		return "", fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		g.history.DropLast(1)
		return "", fmt.Errorf("anyllm: empty choices in response")
	}

	content := resp.Choices[0].Message.ContentString()
	g.history.Add(llm.RoleAssistant, content)
	return content, nil
}

// SetSystemPrompt implements llm.Generator.
func (g *Generator) SetSystemPrompt(text string) {
	g.history.SetSystemPrompt(text)
}

// ClearHistory implements llm.Generator.
func (g *Generator) ClearHistory() {
	g.history.Clear()
}

// buildParams converts the owned history into anyllm CompletionParams.
func (g *Generator) buildParams() anyllmlib.CompletionParams {
	msgs := g.history.Messages()
	messages := make([]anyllmlib.Message, 0, len(msgs))
	for _, m := range msgs {
		messages = append(messages, anyllmlib.Message{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	params := anyllmlib.CompletionParams{
		Model:    g.model,
		Messages: messages,
	}
	if g.temperature != 0 {
		t := g.temperature
		params.Temperature = &t
	}
	if g.maxTokens > 0 {
		mt := g.maxTokens
		params.MaxTokens = &mt
	}
	return params
}
