// Package mock provides a test double for the tts package interfaces.
//
// Speaker supports blocking playback simulation: set Block to true and a
// Speak call will not return until Stop is called (or Release), which is how
// barge-in behaviour is exercised in controller tests.
package mock

import (
	"context"
	"sync"

	"github.com/voxloop/voxloop/pkg/provider/tts"
)

// Speaker is a mock implementation of [tts.Speaker].
type Speaker struct {
	mu sync.Mutex

	// Err, if non-nil, is returned by every Speak call.
	Err error

	// Block makes Speak wait until Stop or Release is called, simulating
	// long-running playback.
	Block bool

	// SpeakCalls records the text of every Speak invocation in order.
	SpeakCalls []string

	// StopCallCount is the number of times Stop was called.
	StopCallCount int

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int

	release chan struct{}
}

// Speak records the call and returns Err. When Block is set it waits for
// Stop/Release or ctx cancellation first, returning ctx.Err() on the latter.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	s.SpeakCalls = append(s.SpeakCalls, text)
	err := s.Err
	var release chan struct{}
	if s.Block && err == nil {
		release = make(chan struct{})
		s.release = release
	}
	s.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Stop records the call and unblocks any blocked Speak.
func (s *Speaker) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StopCallCount++
	s.releaseLocked()
	return nil
}

// Release unblocks a blocked Speak without counting as a Stop, simulating
// natural playback completion.
func (s *Speaker) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked()
}

// releaseLocked closes the release channel if one is armed.
// Must be called with s.mu held.
func (s *Speaker) releaseLocked() {
	if s.release != nil {
		close(s.release)
		s.release = nil
	}
}

// Close records the call. Lets tests verify disposal reaches the collaborator.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return nil
}

// CallCount returns the number of recorded Speak calls. Thread-safe.
func (s *Speaker) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.SpeakCalls)
}

// Compile-time assertion that Speaker implements tts.Speaker.
var _ tts.Speaker = (*Speaker)(nil)
