// Package whisper provides a local [stt.Transcriber] backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a) and
// headers (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH environment variables.
//
// The model is loaded once at construction and shared across all calls; each
// transcription runs in its own whisper context, so concurrent calls do not
// interfere. Inference is entirely local — no network access is required.
//
// Usage:
//
//	t, err := whisper.New("/models/ggml-base.en.bin", whisper.WithLanguage("en"))
//	defer t.Close()
//	text, err := t.Transcribe(ctx, samples, audio.DefaultSampleRate)
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/voxloop/voxloop/pkg/audio"
	"github.com/voxloop/voxloop/pkg/provider/stt"
)

const defaultLanguage = "en"

// Compile-time assertion that Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Option is a functional option for configuring a Transcriber.
type Option func(*Transcriber)

// WithLanguage sets the language code for transcription (e.g., "en", "de").
// Defaults to "en".
func WithLanguage(lang string) Option {
	return func(t *Transcriber) { t.language = lang }
}

// WithThreads sets the number of CPU threads used per inference. Zero leaves
// the whisper.cpp default in place.
func WithThreads(n int) Option {
	return func(t *Transcriber) { t.threads = n }
}

// Transcriber implements stt.Transcriber using the whisper.cpp Go bindings.
// The loaded model is shared; individual whisper contexts are created per
// call because they are not thread-safe.
type Transcriber struct {
	model    whisperlib.Model
	language string
	threads  int

	closeOnce sync.Once
	closeErr  error
}

// New creates a Transcriber that loads the whisper.cpp model from the given
// file path. The caller must call Close when the transcriber is no longer
// needed.
func New(modelPath string, opts ...Option) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	t := &Transcriber{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Close releases the whisper model. Safe to call more than once.
func (t *Transcriber) Close() error {
	t.closeOnce.Do(func() {
		if t.model != nil {
			t.closeErr = t.model.Close()
		}
	})
	return t.closeErr
}

// Transcribe implements stt.Transcriber. whisper.cpp expects 16 kHz mono
// input; other sample rates are resampled before inference.
func (t *Transcriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}
	if len(samples) == 0 {
		return "", nil
	}
	if sampleRate > 0 && sampleRate != audio.DefaultSampleRate {
		samples = audio.ResampleMono(samples, sampleRate, audio.DefaultSampleRate)
	}

	// Each context is NOT thread-safe, but the model can be shared across
	// goroutines.
	wctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(t.language); err != nil {
		slog.Warn("whisper: failed to set language, using default",
			"language", t.language, "error", err)
	}
	if t.threads > 0 {
		wctx.SetThreads(uint(t.threads))
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}
