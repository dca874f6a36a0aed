// Package mock provides a test double for the audio package interfaces.
//
// Use Source to script capture behaviour in controller tests: queue Start
// failures to exercise the retry loop, push frames through Emit to simulate a
// live microphone, and set StopSamples to control what the capture flush
// returns.
package mock

import (
	"context"
	"sync"

	"github.com/voxloop/voxloop/pkg/audio"
)

// Source is a mock implementation of [audio.Source] and [audio.Reinitializer].
type Source struct {
	mu sync.Mutex

	// StartErrs is a queue of errors returned by successive Start calls.
	// Once exhausted, Start succeeds. Use this to script the retry loop.
	StartErrs []error

	// StopSamples is returned by Stop while capturing.
	StopSamples []float32

	// StopErr, if non-nil, is returned by Stop.
	StopErr error

	// ReinitializeErr, if non-nil, is returned by Reinitialize.
	ReinitializeErr error

	// --- Call records ---

	// StartCallCount is the number of times Start was called.
	StartCallCount int

	// StopCallCount is the number of times Stop was called.
	StopCallCount int

	// ReinitializeCallCount is the number of times Reinitialize was called.
	ReinitializeCallCount int

	capturing bool
	cb        audio.FrameCallback
}

// Start records the call, pops the next queued error, and on success stores
// cb for later Emit calls.
func (s *Source) Start(_ context.Context, cb audio.FrameCallback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StartCallCount++
	if len(s.StartErrs) > 0 {
		err := s.StartErrs[0]
		s.StartErrs = s.StartErrs[1:]
		if err != nil {
			return err
		}
	}
	s.capturing = true
	s.cb = cb
	return nil
}

// Stop records the call and returns StopSamples, StopErr. When the source is
// not capturing it returns nil samples, matching the [audio.Source] contract.
func (s *Source) Stop(_ context.Context) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StopCallCount++
	if !s.capturing {
		return nil, nil
	}
	s.capturing = false
	s.cb = nil
	return s.StopSamples, s.StopErr
}

// Reinitialize records the call and returns ReinitializeErr.
func (s *Source) Reinitialize(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReinitializeCallCount++
	return s.ReinitializeErr
}

// Emit invokes the callback registered by the last successful Start with the
// given frame. It is a no-op when the source is not capturing.
func (s *Source) Emit(f audio.Frame) {
	s.mu.Lock()
	cb := s.cb
	s.mu.Unlock()
	if cb != nil {
		cb(f)
	}
}

// Capturing reports whether the source is between a successful Start and a
// Stop. Intended for test assertions.
func (s *Source) Capturing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capturing
}

// Compile-time assertions.
var (
	_ audio.Source        = (*Source)(nil)
	_ audio.Reinitializer = (*Source)(nil)
)
