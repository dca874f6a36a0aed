package main

import (
	"context"
	"errors"
	"testing"

	"github.com/voxloop/voxloop/internal/config"
	"github.com/voxloop/voxloop/internal/resilience"
	"github.com/voxloop/voxloop/pkg/provider/llm"
	llmmock "github.com/voxloop/voxloop/pkg/provider/llm/mock"
	"github.com/voxloop/voxloop/pkg/provider/stt"
	sttmock "github.com/voxloop/voxloop/pkg/provider/stt/mock"
	"github.com/voxloop/voxloop/pkg/provider/tts"
	ttsmock "github.com/voxloop/voxloop/pkg/provider/tts/mock"
)

// registerMocks registers fixed mock instances under the given names so
// buildProviders can be exercised without real provider credentials.
func registerMocks(t *testing.T, reg *config.Registry, stts map[string]*sttmock.Transcriber, llms map[string]*llmmock.Generator, ttss map[string]*ttsmock.Speaker) {
	t.Helper()
	for name, m := range stts {
		reg.RegisterSTT(name, func(config.ProviderEntry) (stt.Transcriber, error) { return m, nil })
	}
	for name, m := range llms {
		reg.RegisterLLM(name, func(config.ProviderEntry) (llm.Generator, error) { return m, nil })
	}
	for name, m := range ttss {
		reg.RegisterTTS(name, func(config.ProviderEntry) (tts.Speaker, error) { return m, nil })
	}
}

func TestBuildProviders_WrapsConfiguredFallbacks(t *testing.T) {
	reg := config.NewRegistry()
	registerMocks(t, reg,
		map[string]*sttmock.Transcriber{"primary-stt": {}, "backup-stt": {}},
		map[string]*llmmock.Generator{"primary-llm": {}, "backup-llm": {}},
		map[string]*ttsmock.Speaker{"primary-tts": {}, "backup-tts": {}},
	)

	cfg := &config.Config{}
	cfg.Providers.STT = config.ProviderEntry{Name: "primary-stt"}
	cfg.Providers.STTFallbacks = []config.ProviderEntry{{Name: "backup-stt"}}
	cfg.Providers.LLM = config.ProviderEntry{Name: "primary-llm"}
	cfg.Providers.LLMFallbacks = []config.ProviderEntry{{Name: "backup-llm"}}
	cfg.Providers.TTS = config.ProviderEntry{Name: "primary-tts"}
	cfg.Providers.TTSFallbacks = []config.ProviderEntry{{Name: "backup-tts"}}

	ps, err := buildProviders(cfg, reg)
	if err != nil {
		t.Fatalf("buildProviders: %v", err)
	}
	if _, ok := ps.Transcriber.(*resilience.TranscriberFallback); !ok {
		t.Errorf("Transcriber is %T, want *resilience.TranscriberFallback", ps.Transcriber)
	}
	if _, ok := ps.Generator.(*resilience.GeneratorFallback); !ok {
		t.Errorf("Generator is %T, want *resilience.GeneratorFallback", ps.Generator)
	}
	if _, ok := ps.Speaker.(*resilience.SpeakerFallback); !ok {
		t.Errorf("Speaker is %T, want *resilience.SpeakerFallback", ps.Speaker)
	}
}

func TestBuildProviders_NoFallbacksLeavesProvidersUnwrapped(t *testing.T) {
	primary := &sttmock.Transcriber{Result: "hello"}
	reg := config.NewRegistry()
	registerMocks(t, reg, map[string]*sttmock.Transcriber{"primary-stt": primary}, nil, nil)

	cfg := &config.Config{}
	cfg.Providers.STT = config.ProviderEntry{Name: "primary-stt"}

	ps, err := buildProviders(cfg, reg)
	if err != nil {
		t.Fatalf("buildProviders: %v", err)
	}
	if ps.Transcriber != stt.Transcriber(primary) {
		t.Errorf("Transcriber is %T, want the bare primary mock", ps.Transcriber)
	}
}

func TestBuildProviders_FallbackTranscriberTakesOver(t *testing.T) {
	primary := &sttmock.Transcriber{Err: errors.New("upstream 503")}
	backup := &sttmock.Transcriber{Result: "fallback heard you"}
	reg := config.NewRegistry()
	registerMocks(t, reg, map[string]*sttmock.Transcriber{"primary-stt": primary, "backup-stt": backup}, nil, nil)

	cfg := &config.Config{}
	cfg.Providers.STT = config.ProviderEntry{Name: "primary-stt"}
	cfg.Providers.STTFallbacks = []config.ProviderEntry{{Name: "backup-stt"}}

	ps, err := buildProviders(cfg, reg)
	if err != nil {
		t.Fatalf("buildProviders: %v", err)
	}

	text, err := ps.Transcriber.Transcribe(context.Background(), make([]float32, 160), 16000)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "fallback heard you" {
		t.Errorf("transcript = %q, want the fallback's result", text)
	}
	if primary.CallCount() != 1 {
		t.Errorf("primary called %d times, want 1", primary.CallCount())
	}
	if backup.CallCount() != 1 {
		t.Errorf("backup called %d times, want 1", backup.CallCount())
	}
}

func TestBuildProviders_UnregisteredFallbackFails(t *testing.T) {
	reg := config.NewRegistry()
	registerMocks(t, reg, map[string]*sttmock.Transcriber{"primary-stt": {}}, nil, nil)

	cfg := &config.Config{}
	cfg.Providers.STT = config.ProviderEntry{Name: "primary-stt"}
	cfg.Providers.STTFallbacks = []config.ProviderEntry{{Name: "no-such-provider"}}

	_, err := buildProviders(cfg, reg)
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Fatalf("buildProviders error = %v, want ErrProviderNotRegistered", err)
	}
}
