package openai

import (
	"context"
	"encoding/binary"
	"testing"
)

// TestNew_RequiresAPIKey verifies that an empty API key is rejected.
func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New("", "whisper-1"); err == nil {
		t.Fatal("New with empty apiKey: expected error, got nil")
	}
}

// TestNew_DefaultsModel verifies that an empty model falls back to DefaultModel.
func TestNew_DefaultsModel(t *testing.T) {
	tr, err := New("sk-test", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tr.model != DefaultModel {
		t.Errorf("model = %q, want %q", tr.model, DefaultModel)
	}
}

// TestTranscribe_EmptyInputShortCircuits verifies that no request is made for
// empty audio.
func TestTranscribe_EmptyInputShortCircuits(t *testing.T) {
	tr, err := New("sk-test", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := tr.Transcribe(context.Background(), nil, 16000)
	if err != nil {
		t.Fatalf("Transcribe(empty): %v", err)
	}
	if got != "" {
		t.Errorf("Transcribe(empty) = %q, want empty transcript", got)
	}
}

// TestEncodeWAV_Header verifies the RIFF header fields for 16 kHz mono.
func TestEncodeWAV_Header(t *testing.T) {
	pcm := make([]byte, 320) // 10 ms at 16 kHz mono 16-bit
	wav := encodeWAV(pcm, 16000, 1)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("wav length = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Errorf("sample rate = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 1 {
		t.Errorf("channels = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Errorf("data size = %d, want %d", got, len(pcm))
	}
}
