package config_test

import (
	"testing"
	"time"

	"github.com/voxloop/voxloop/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		Pipeline: config.PipelineConfig{
			SystemPrompt: "be helpful",
			Auto:         config.AutoConfig{Enabled: false},
		},
		VAD: config.VADConfig{
			EnergyThreshold:  0.001,
			SilenceThreshold: 0.0005,
		},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()

	d := config.Diff(old, new)
	if d.Any() {
		t.Errorf("Diff() of identical configs = %+v, want no changes", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("Diff() = %+v, want LogLevelChanged with debug", d)
	}
}

func TestDiff_VADThresholds(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.VAD.EnergyThreshold = 0.005
	new.VAD.MinSpeechDuration = 200 * time.Millisecond

	d := config.Diff(old, new)
	if !d.VADChanged {
		t.Fatalf("Diff() = %+v, want VADChanged", d)
	}
	if d.NewVAD.EnergyThreshold != 0.005 {
		t.Errorf("NewVAD.EnergyThreshold = %v, want 0.005", d.NewVAD.EnergyThreshold)
	}
}

func TestDiff_SystemPromptAndAuto(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Pipeline.SystemPrompt = "be brief"
	new.Pipeline.Auto = config.AutoConfig{Enabled: true, SettleDelay: time.Second}

	d := config.Diff(old, new)
	if !d.SystemPromptChanged || d.NewSystemPrompt != "be brief" {
		t.Errorf("Diff() = %+v, want SystemPromptChanged", d)
	}
	if !d.AutoChanged || !d.NewAuto.Enabled {
		t.Errorf("Diff() = %+v, want AutoChanged with enabled auto", d)
	}
}
