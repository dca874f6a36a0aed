// Package stt defines the Transcriber interface for speech-to-text backends.
//
// A Transcriber wraps a transcription service (e.g., the OpenAI audio API, a
// local whisper.cpp model, or Deepgram) behind a single batch call: the
// conversation controller hands it the full captured utterance and receives
// the transcript text. Streaming partials are deliberately out of scope — the
// pipeline transcribes once per turn, after capture has stopped.
//
// Implementations must be safe for concurrent use and must respect context
// cancellation: a transcription result arriving after the caller has moved on
// is discarded by the controller, so providers should stop work promptly when
// ctx is done.
package stt

import "context"

// Transcriber is the abstraction over any speech-to-text backend.
type Transcriber interface {
	// Transcribe converts the given normalized mono PCM samples to text.
	// sampleRate is the rate of the samples in Hz. An empty or silence-only
	// input should produce an empty transcript, not an error.
	//
	// Returns an error if the backend fails or ctx is cancelled.
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error)
}
