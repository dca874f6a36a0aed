// Package openai provides a [llm.Generator] backed by the OpenAI chat
// completions API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/voxloop/voxloop/pkg/provider/llm"
)

// Ensure Generator implements the llm.Generator interface.
var _ llm.Generator = (*Generator)(nil)

// Generator implements llm.Generator using the OpenAI API. It owns its
// conversation history via [llm.History].
type Generator struct {
	client  oai.Client
	model   string
	history *llm.History

	temperature float64
	maxTokens   int
}

// config holds optional configuration for the generator.
type config struct {
	baseURL     string
	timeout     time.Duration
	maxHistory  int
	temperature float64
	maxTokens   int
}

// Option is a functional option for Generator.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
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

// New constructs a new OpenAI Generator.
func New(apiKey string, model string, opts ...Option) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai llm: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openai llm: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Generator{
		client:      oai.NewClient(reqOpts...),
		model:       model,
		history:     llm.NewHistory(cfg.maxHistory),
		temperature: cfg.temperature,
		maxTokens:   cfg.maxTokens,
	}, nil
}

// Generate implements llm.Generator. The user message is rolled back from
// the history when the backend call fails.
func (g *Generator) Generate(ctx context.Context, userText string) (string, error) {
	g.history.Add(llm.RoleUser, userText)

	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(g.model),
		Messages: buildMessages(g.history.Messages()),
	}
	if g.temperature != 0 {
		params.Temperature = param.NewOpt(g.temperature)
	}
	if g.maxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(g.maxTokens))
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		g.history.DropLast(1)
		return "", fmt.Errorf("openai llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		g.history.DropLast(1)
		return "", fmt.Errorf("openai llm: empty choices in response")
	}

	content := resp.Choices[0].Message.Content
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

// buildMessages converts history messages into OpenAI SDK message params.
func buildMessages(msgs []llm.Message) []oai.ChatCompletionMessageParamUnion {
	out := make([]oai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleSystem:
			out = append(out, oai.SystemMessage(m.Content))
		case llm.RoleAssistant:
			out = append(out, oai.AssistantMessage(m.Content))
		default:
			out = append(out, oai.UserMessage(m.Content))
		}
	}
	return out
}
