package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/voxloop/voxloop/internal/config"
)

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
  log_level: debug
pipeline:
  system_prompt: "You are a helpful voice assistant."
  max_history: 30
  max_listen: 15s
  start_attempts: 5
  start_backoff: 250ms
  auto:
    enabled: true
    settle_delay: 500ms
vad:
  energy_threshold: 0.002
  silence_threshold: 0.001
  min_speech_duration: 300ms
  max_silence_duration: 1s
buffer:
  max_frames: 500
  max_samples: 240000
providers:
  stt:
    name: deepgram
    api_key: dg-key
    model: nova-2
  llm:
    name: openai
    api_key: sk-key
    model: gpt-4o-mini
  tts:
    name: openai
    api_key: sk-key
  embeddings:
    name: openai
    api_key: sk-key
  capture:
    name: websocket
    options:
      listen_addr: ":9090"
memory:
  postgres_dsn: "postgres://localhost:5432/voxloop"
  embedding_dimensions: 1536
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log_level = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Pipeline.MaxListen != 15*time.Second {
		t.Errorf("max_listen = %v, want 15s", cfg.Pipeline.MaxListen)
	}
	if !cfg.Pipeline.Auto.Enabled || cfg.Pipeline.Auto.SettleDelay != 500*time.Millisecond {
		t.Errorf("auto = %+v, want enabled with 500ms settle delay", cfg.Pipeline.Auto)
	}
	if cfg.VAD.EnergyThreshold != 0.002 {
		t.Errorf("energy_threshold = %v, want 0.002", cfg.VAD.EnergyThreshold)
	}
	if cfg.Providers.STT.Name != "deepgram" || cfg.Providers.STT.Model != "nova-2" {
		t.Errorf("stt provider = %+v, want deepgram/nova-2", cfg.Providers.STT)
	}
	if cfg.Memory.EmbeddingDimensions != 1536 {
		t.Errorf("embedding_dimensions = %d, want 1536", cfg.Memory.EmbeddingDimensions)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
  not_a_field: true
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: verbose
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_InvertedVADThresholds(t *testing.T) {
	t.Parallel()
	yaml := `
vad:
  energy_threshold: 0.001
  silence_threshold: 0.01
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for silence threshold above energy threshold, got nil")
	}
	if !strings.Contains(err.Error(), "silence_threshold") {
		t.Errorf("error should mention silence_threshold, got: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: verbose
pipeline:
  max_history: -1
buffer:
  max_frames: -5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	for _, want := range []string{"log_level", "max_history", "max_frames"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidate_FallbacksRequirePrimary(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  stt_fallbacks:
    - name: whisper
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for fallbacks without a primary, got nil")
	}
	if !strings.Contains(err.Error(), "stt_fallbacks") {
		t.Errorf("error should mention stt_fallbacks, got: %v", err)
	}
}

func TestValidate_UnnamedFallbackEntry(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: openai
  llm_fallbacks:
    - model: claude-haiku-4-5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unnamed fallback entry, got nil")
	}
	if !strings.Contains(err.Error(), "llm_fallbacks[0]") {
		t.Errorf("error should mention llm_fallbacks[0], got: %v", err)
	}
}

func TestValidate_EmptyConfigIsValid(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	if err := config.Validate(cfg); err != nil {
		t.Errorf("Validate(empty) error = %v, want nil (all fields default)", err)
	}
}
