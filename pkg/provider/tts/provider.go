// Package tts defines the Speaker interface for text-to-speech backends.
//
// A Speaker wraps a synthesis engine plus an audio output path. Speak blocks
// until playback completes (or fails), giving the conversation controller a
// real completion signal rather than a duration heuristic. Stop cancels any
// in-flight synthesis or playback and must be safe to call when nothing is
// speaking — it is the barge-in primitive.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Speaker is the abstraction over any text-to-speech backend.
type Speaker interface {
	// Speak synthesises text and plays it, returning once playback has
	// completed. Returns an error if synthesis or playback fails, or if
	// interrupted via Stop / ctx cancellation before completion.
	Speak(ctx context.Context, text string) error

	// Stop cancels ongoing synthesis and playback. It is always safe to
	// call; when no speech is active it is a no-op returning nil.
	Stop() error
}

// NullSpeaker is a no-op Speaker for text-only deployments: Speak returns
// immediately and Stop does nothing.
type NullSpeaker struct{}

// Speak returns nil immediately without producing audio.
func (NullSpeaker) Speak(context.Context, string) error { return nil }

// Stop is a no-op.
func (NullSpeaker) Stop() error { return nil }

// Compile-time assertion that NullSpeaker implements Speaker.
var _ Speaker = NullSpeaker{}
