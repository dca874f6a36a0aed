// Package audio defines the audio types shared across the voxloop pipeline:
// the [Frame] unit of transport, the memory-bounded [Buffer] that accumulates
// captured frames for transcription, and the [Source] contract implemented by
// capture backends.
//
// All pipeline audio is normalized float32 PCM in the range [-1, 1], mono, at
// [DefaultSampleRate] unless a component states otherwise. Conversion helpers
// for the int16 wire formats used by capture hardware and speech APIs live in
// convert.go.
//
// This package lives under pkg/ because external code (host applications,
// third-party capture adapters) is expected to implement [Source].
package audio

import "time"

// DefaultSampleRate is the pipeline-wide sample rate in Hz. Capture adapters
// are expected to resample to this rate before delivering frames.
const DefaultSampleRate = 16000

// Frame is a single frame of captured audio. Frames are immutable once
// produced by a capture source; components that need to retain frame data
// past the callback must copy it ([Buffer.Append] does).
type Frame struct {
	// Samples is normalized mono PCM in [-1, 1].
	Samples []float32

	// SampleRate in Hz. The pipeline default is 16000.
	SampleRate int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Duration returns the playback duration of the frame.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(f.Samples)) / float64(f.SampleRate) * float64(time.Second))
}
