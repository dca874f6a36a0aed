// Package mock provides a test double for the stt package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/voxloop/voxloop/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcriber.Transcribe.
type TranscribeCall struct {
	// Samples is a copy of the audio passed to Transcribe.
	Samples []float32

	// SampleRate is the rate passed to Transcribe.
	SampleRate int
}

// Transcriber is a mock implementation of [stt.Transcriber].
type Transcriber struct {
	mu sync.Mutex

	// Result is returned by every Transcribe call.
	Result string

	// Err, if non-nil, is returned by every Transcribe call.
	Err error

	// Calls records every Transcribe invocation in order.
	Calls []TranscribeCall

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// Transcribe records the call and returns Result, Err.
func (t *Transcriber) Transcribe(_ context.Context, samples []float32, sampleRate int) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make([]float32, len(samples))
	copy(cp, samples)
	t.Calls = append(t.Calls, TranscribeCall{Samples: cp, SampleRate: sampleRate})
	return t.Result, t.Err
}

// Close records the call. Lets tests verify disposal reaches the collaborator.
func (t *Transcriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CloseCallCount++
	return nil
}

// CallCount returns the number of recorded Transcribe calls. Thread-safe.
func (t *Transcriber) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}

// Compile-time assertion that Transcriber implements stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)
