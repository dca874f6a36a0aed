package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":        {"openai", "whisper", "deepgram"},
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq"},
	"tts":        {"openai"},
	"embeddings": {"openai"},
	"capture":    {"websocket"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Pipeline
	if cfg.Pipeline.MaxHistory < 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_history %d is negative", cfg.Pipeline.MaxHistory))
	}
	if cfg.Pipeline.MaxListen < 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_listen %v is negative", cfg.Pipeline.MaxListen))
	}
	if cfg.Pipeline.StartAttempts < 0 {
		errs = append(errs, fmt.Errorf("pipeline.start_attempts %d is negative", cfg.Pipeline.StartAttempts))
	}
	if cfg.Pipeline.StartBackoff < 0 {
		errs = append(errs, fmt.Errorf("pipeline.start_backoff %v is negative", cfg.Pipeline.StartBackoff))
	}
	if cfg.Pipeline.Auto.SettleDelay < 0 {
		errs = append(errs, fmt.Errorf("pipeline.auto.settle_delay %v is negative", cfg.Pipeline.Auto.SettleDelay))
	}

	// VAD
	if cfg.VAD.EnergyThreshold < 0 {
		errs = append(errs, fmt.Errorf("vad.energy_threshold %v is negative", cfg.VAD.EnergyThreshold))
	}
	if cfg.VAD.SilenceThreshold < 0 {
		errs = append(errs, fmt.Errorf("vad.silence_threshold %v is negative", cfg.VAD.SilenceThreshold))
	}
	if cfg.VAD.EnergyThreshold > 0 && cfg.VAD.SilenceThreshold > cfg.VAD.EnergyThreshold {
		errs = append(errs, fmt.Errorf("vad.silence_threshold %v exceeds vad.energy_threshold %v; the hysteresis dead zone would be inverted",
			cfg.VAD.SilenceThreshold, cfg.VAD.EnergyThreshold))
	}
	if cfg.VAD.MinSpeechDuration < 0 {
		errs = append(errs, fmt.Errorf("vad.min_speech_duration %v is negative", cfg.VAD.MinSpeechDuration))
	}
	if cfg.VAD.MaxSilenceDuration < 0 {
		errs = append(errs, fmt.Errorf("vad.max_silence_duration %v is negative", cfg.VAD.MaxSilenceDuration))
	}

	// Buffer
	if cfg.Buffer.MaxFrames < 0 {
		errs = append(errs, fmt.Errorf("buffer.max_frames %d is negative", cfg.Buffer.MaxFrames))
	}
	if cfg.Buffer.MaxSamples < 0 {
		errs = append(errs, fmt.Errorf("buffer.max_samples %d is negative", cfg.Buffer.MaxSamples))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)
	validateProviderName("capture", cfg.Providers.Capture.Name)

	// Fallback lists need a primary to fall back from, and every entry needs
	// a name to look up in the registry.
	errs = append(errs, validateFallbacks("stt", cfg.Providers.STT.Name, cfg.Providers.STTFallbacks)...)
	errs = append(errs, validateFallbacks("llm", cfg.Providers.LLM.Name, cfg.Providers.LLMFallbacks)...)
	errs = append(errs, validateFallbacks("tts", cfg.Providers.TTS.Name, cfg.Providers.TTSFallbacks)...)

	// Embeddings ↔ memory dimensions
	if cfg.Providers.Embeddings.Name != "" && cfg.Memory.EmbeddingDimensions <= 0 {
		slog.Warn("providers.embeddings is configured but memory.embedding_dimensions is not set; defaulting to 1536")
	}
	if cfg.Memory.PostgresDSN != "" && cfg.Providers.Embeddings.Name == "" {
		slog.Warn("memory.postgres_dsn is set without providers.embeddings; turns will be stored without semantic search vectors")
	}

	return errors.Join(errs...)
}

// validateFallbacks checks a provider fallback list: fallbacks without a
// configured primary are an error, as are unnamed entries. Known-name
// checking reuses the same warn-only policy as the primaries.
func validateFallbacks(kind, primaryName string, fallbacks []ProviderEntry) []error {
	if len(fallbacks) == 0 {
		return nil
	}
	var errs []error
	if primaryName == "" {
		errs = append(errs, fmt.Errorf("providers.%s_fallbacks configured without a providers.%s primary", kind, kind))
	}
	for i, entry := range fallbacks {
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("providers.%s_fallbacks[%d] has no name", kind, i))
			continue
		}
		validateProviderName(kind, entry.Name)
	}
	return errs
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
