package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; provider and
// buffer changes require a restart and are deliberately absent.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	VADChanged bool
	NewVAD     VADConfig

	SystemPromptChanged bool
	NewSystemPrompt     string

	AutoChanged bool
	NewAuto     AutoConfig
}

// Any reports whether the diff carries at least one change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.VADChanged || d.SystemPromptChanged || d.AutoChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.VAD != new.VAD {
		d.VADChanged = true
		d.NewVAD = new.VAD
	}

	if old.Pipeline.SystemPrompt != new.Pipeline.SystemPrompt {
		d.SystemPromptChanged = true
		d.NewSystemPrompt = new.Pipeline.SystemPrompt
	}

	if old.Pipeline.Auto != new.Pipeline.Auto {
		d.AutoChanged = true
		d.NewAuto = new.Pipeline.Auto
	}

	return d
}
