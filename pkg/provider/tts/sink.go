package tts

import "context"

// Sink is the playback destination for synthesized audio. Speech adapters
// synthesise text into PCM and hand it to a Sink; the sink owns the actual
// output path (speaker device, network stream, file).
//
// Implementations must be safe for concurrent use.
type Sink interface {
	// Play renders the samples at the given rate, returning once playback
	// has completed. It must honour ctx cancellation promptly — cancelling
	// ctx is how a Speaker implements barge-in.
	Play(ctx context.Context, samples []float32, sampleRate int) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, samples []float32, sampleRate int) error

// Play calls f.
func (f SinkFunc) Play(ctx context.Context, samples []float32, sampleRate int) error {
	return f(ctx, samples, sampleRate)
}
