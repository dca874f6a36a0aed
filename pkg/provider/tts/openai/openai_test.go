package openai

import (
	"context"
	"testing"

	"github.com/voxloop/voxloop/pkg/provider/tts"
)

func nopSink() tts.Sink {
	return tts.SinkFunc(func(context.Context, []float32, int) error { return nil })
}

// TestNew_RequiresAPIKey verifies that an empty API key is rejected.
func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New("", "tts-1", nopSink()); err == nil {
		t.Fatal("New with empty apiKey: expected error, got nil")
	}
}

// TestNew_RequiresSink verifies that a nil sink is rejected.
func TestNew_RequiresSink(t *testing.T) {
	if _, err := New("sk-test", "tts-1", nil); err == nil {
		t.Fatal("New with nil sink: expected error, got nil")
	}
}

// TestNew_Defaults verifies model and voice fall back to defaults.
func TestNew_Defaults(t *testing.T) {
	s, err := New("sk-test", "", nopSink())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.model != DefaultModel {
		t.Errorf("model = %q, want %q", s.model, DefaultModel)
	}
	if s.voice != DefaultVoice {
		t.Errorf("voice = %q, want %q", s.voice, DefaultVoice)
	}
}

// TestSpeak_EmptyTextIsNoOp verifies no request is made for empty text.
func TestSpeak_EmptyTextIsNoOp(t *testing.T) {
	s, err := New("sk-test", "", nopSink())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Speak(context.Background(), ""); err != nil {
		t.Errorf("Speak(empty) = %v, want nil", err)
	}
}

// TestStop_WhenIdleIsNoOp verifies Stop is safe with no speech in flight.
func TestStop_WhenIdleIsNoOp(t *testing.T) {
	s, err := New("sk-test", "", nopSink())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() = %v, want nil", err)
	}
}
