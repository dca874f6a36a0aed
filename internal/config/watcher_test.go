package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/voxloop/voxloop/internal/config"
)

const watcherValidYAML = `
server:
  log_level: info
vad:
  energy_threshold: 0.002
  silence_threshold: 0.001
providers:
  stt:
    name: deepgram
  llm:
    name: openai
`

const watcherUpdatedYAML = `
server:
  log_level: debug
vad:
  energy_threshold: 0.004
  silence_threshold: 0.002
providers:
  stt:
    name: deepgram
  llm:
    name: openai
`

const watcherInvalidYAML = `
server:
  log_level: bananas
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file %q: %v", path, err)
	}
}

// touch bumps the file's mtime far enough that the watcher's quick check
// notices it even on coarse-grained filesystems.
func touch(t *testing.T, path string) {
	t.Helper()
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("failed to touch %q: %v", path, err)
	}
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	w, err := config.NewWatcher(cfgPath, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	cfg := w.Current()
	if cfg == nil {
		t.Fatal("Current() = nil after successful initial load")
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level = %q, want info", cfg.Server.LogLevel)
	}
}

func TestWatcher_InitialLoadFailure(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, watcherInvalidYAML)

	if _, err := config.NewWatcher(cfgPath, nil); err == nil {
		t.Fatal("NewWatcher() error = nil for invalid config, want error")
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	var mu sync.Mutex
	var gotOld, gotNew *config.Config
	onChange := func(old, new *config.Config) {
		mu.Lock()
		defer mu.Unlock()
		gotOld, gotNew = old, new
	}

	w, err := config.NewWatcher(cfgPath, onChange, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	writeFile(t, cfgPath, watcherUpdatedYAML)
	touch(t, cfgPath)

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		done := gotNew != nil
		mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("onChange was never called after the file changed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotOld.Server.LogLevel != config.LogInfo {
		t.Errorf("old log_level = %q, want info", gotOld.Server.LogLevel)
	}
	if gotNew.Server.LogLevel != config.LogDebug {
		t.Errorf("new log_level = %q, want debug", gotNew.Server.LogLevel)
	}
	if w.Current().VAD.EnergyThreshold != 0.004 {
		t.Errorf("Current() energy_threshold = %v, want the updated 0.004", w.Current().VAD.EnergyThreshold)
	}
}

func TestWatcher_KeepsPreviousOnInvalidUpdate(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	called := false
	w, err := config.NewWatcher(cfgPath, func(_, _ *config.Config) { called = true },
		config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	writeFile(t, cfgPath, watcherInvalidYAML)
	touch(t, cfgPath)
	time.Sleep(100 * time.Millisecond)

	if called {
		t.Error("onChange was called for an invalid config")
	}
	if got := w.Current().Server.LogLevel; got != config.LogInfo {
		t.Errorf("Current() log_level = %q, want the previous valid value", got)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	w, err := config.NewWatcher(cfgPath, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.Stop()
	w.Stop()
}
