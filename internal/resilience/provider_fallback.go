package resilience

import (
	"context"

	"github.com/voxloop/voxloop/pkg/provider/llm"
	"github.com/voxloop/voxloop/pkg/provider/stt"
	"github.com/voxloop/voxloop/pkg/provider/tts"
)

// TranscriberFallback implements [stt.Transcriber] with automatic failover
// across multiple backends, each behind its own circuit breaker.
type TranscriberFallback struct {
	group *FallbackGroup[stt.Transcriber]
}

// Compile-time interface assertion.
var _ stt.Transcriber = (*TranscriberFallback)(nil)

// NewTranscriberFallback creates a [TranscriberFallback] with primary as the
// preferred backend.
func NewTranscriberFallback(primary stt.Transcriber, primaryName string, cfg FallbackConfig) *TranscriberFallback {
	return &TranscriberFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional transcriber as a fallback.
func (f *TranscriberFallback) AddFallback(name string, t stt.Transcriber) {
	f.group.AddFallback(name, t)
}

// Transcribe runs the transcription against the first healthy backend.
func (f *TranscriberFallback) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	return ExecuteWithResult(f.group, func(t stt.Transcriber) (string, error) {
		return t.Transcribe(ctx, samples, sampleRate)
	})
}

// GeneratorFallback implements [llm.Generator] with automatic failover across
// multiple backends. Configuration calls fan out to every backend so that
// whichever one serves the next turn carries the same system prompt and a
// consistently cleared history.
type GeneratorFallback struct {
	group    *FallbackGroup[llm.Generator]
	backends []llm.Generator
}

// Compile-time interface assertion.
var _ llm.Generator = (*GeneratorFallback)(nil)

// NewGeneratorFallback creates a [GeneratorFallback] with primary as the
// preferred backend.
func NewGeneratorFallback(primary llm.Generator, primaryName string, cfg FallbackConfig) *GeneratorFallback {
	return &GeneratorFallback{
		group:    NewFallbackGroup(primary, primaryName, cfg),
		backends: []llm.Generator{primary},
	}
}

// AddFallback registers an additional generator as a fallback.
func (f *GeneratorFallback) AddFallback(name string, g llm.Generator) {
	f.group.AddFallback(name, g)
	f.backends = append(f.backends, g)
}

// Generate produces a response from the first healthy backend.
func (f *GeneratorFallback) Generate(ctx context.Context, userText string) (string, error) {
	return ExecuteWithResult(f.group, func(g llm.Generator) (string, error) {
		return g.Generate(ctx, userText)
	})
}

// SetSystemPrompt fans the prompt out to all backends.
func (f *GeneratorFallback) SetSystemPrompt(text string) {
	for _, g := range f.backends {
		g.SetSystemPrompt(text)
	}
}

// ClearHistory fans the clear out to all backends.
func (f *GeneratorFallback) ClearHistory() {
	for _, g := range f.backends {
		g.ClearHistory()
	}
}

// SpeakerFallback implements [tts.Speaker] with automatic failover across
// multiple backends.
type SpeakerFallback struct {
	group    *FallbackGroup[tts.Speaker]
	backends []tts.Speaker
}

// Compile-time interface assertion.
var _ tts.Speaker = (*SpeakerFallback)(nil)

// NewSpeakerFallback creates a [SpeakerFallback] with primary as the
// preferred backend.
func NewSpeakerFallback(primary tts.Speaker, primaryName string, cfg FallbackConfig) *SpeakerFallback {
	return &SpeakerFallback{
		group:    NewFallbackGroup(primary, primaryName, cfg),
		backends: []tts.Speaker{primary},
	}
}

// AddFallback registers an additional speaker as a fallback.
func (f *SpeakerFallback) AddFallback(name string, s tts.Speaker) {
	f.group.AddFallback(name, s)
	f.backends = append(f.backends, s)
}

// Speak plays text through the first healthy backend.
func (f *SpeakerFallback) Speak(ctx context.Context, text string) error {
	return f.group.Execute(func(s tts.Speaker) error {
		return s.Speak(ctx, text)
	})
}

// Stop fans out to all backends; whichever one is mid-playback stops.
// Stop on an idle speaker is a no-op by contract, so fanning out is safe.
func (f *SpeakerFallback) Stop() error {
	var firstErr error
	for _, s := range f.backends {
		if err := s.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
