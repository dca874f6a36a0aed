// Command voxloop is the main entry point for the voxloop voice
// conversation service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/voxloop/voxloop/internal/app"
	"github.com/voxloop/voxloop/internal/config"
	"github.com/voxloop/voxloop/internal/observe"
	"github.com/voxloop/voxloop/internal/resilience"
	"github.com/voxloop/voxloop/internal/transcript"
	"github.com/voxloop/voxloop/internal/transcript/phonetic"
	"github.com/voxloop/voxloop/pkg/audio"
	"github.com/voxloop/voxloop/pkg/audio/wscapture"
	"github.com/voxloop/voxloop/pkg/provider/embeddings"
	embopenai "github.com/voxloop/voxloop/pkg/provider/embeddings/openai"
	"github.com/voxloop/voxloop/pkg/provider/llm"
	"github.com/voxloop/voxloop/pkg/provider/llm/anyllm"
	llmopenai "github.com/voxloop/voxloop/pkg/provider/llm/openai"
	"github.com/voxloop/voxloop/pkg/provider/stt"
	"github.com/voxloop/voxloop/pkg/provider/stt/deepgram"
	sttopenai "github.com/voxloop/voxloop/pkg/provider/stt/openai"
	"github.com/voxloop/voxloop/pkg/provider/stt/whisper"
	"github.com/voxloop/voxloop/pkg/provider/tts"
	ttsopenai "github.com/voxloop/voxloop/pkg/provider/tts/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "voxloop.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxloop: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxloop: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger, levelVar := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voxloop starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	sink := &playbackSink{}
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, sink)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	// The websocket capture client plays responses over the same connection
	// it records from.
	if s, ok := providers.Source.(tts.Sink); ok {
		sink.set(s)
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	appOpts := []app.Option{
		app.WithHotReload(*configPath),
		app.WithLogLevelVar(levelVar),
	}
	if len(cfg.Pipeline.Vocabulary) > 0 {
		corrector := transcript.New(phonetic.New(), cfg.Pipeline.Vocabulary)
		appOpts = append(appOpts, app.WithCorrector(corrector))
		slog.Info("transcript correction enabled", "terms", len(cfg.Pipeline.Vocabulary))
	}

	application, err := app.New(ctx, cfg, *providers, appOpts...)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("service ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages. The TTS factories play
// through sink, which is bound to the capture client after provider
// construction.
func registerBuiltinProviders(reg *config.Registry, sink *playbackSink) {
	// ── LLM ───────────────────────────────────────────────────────────────────

	// The native OpenAI client; everything else goes through any-llm.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Generator, error) {
		opts := []llmopenai.Option{}
		if entry.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(entry.BaseURL))
		}
		opts = append(opts, llmTuning(entry, llmopenai.WithTemperature, llmopenai.WithMaxTokens)...)
		g, err := llmopenai.New(entry.APIKey, entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return g, nil
	})

	// anthropic, gemini, deepseek, mistral, groq share the same pattern:
	// optional APIKey + optional BaseURL.
	for _, providerName := range []string{"anthropic", "gemini", "deepseek", "mistral", "groq"} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Generator, error) {
			var opts []anyllm.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllm.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllm.WithBaseURL(entry.BaseURL))
			}
			opts = append(opts, llmTuning(entry, anyllm.WithTemperature, anyllm.WithMaxTokens)...)
			g, err := anyllm.New(providerName, entry.Model, opts...)
			if err != nil {
				return nil, err
			}
			return g, nil
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Generator, error) {
		var opts []anyllm.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllm.WithBaseURL(entry.BaseURL))
		}
		opts = append(opts, llmTuning(entry, anyllm.WithTemperature, anyllm.WithMaxTokens)...)
		g, err := anyllm.New("ollama", entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return g, nil
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []sttopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, sttopenai.WithBaseURL(entry.BaseURL))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, sttopenai.WithLanguage(lang))
		}
		t, err := sttopenai.New(entry.APIKey, entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return t, nil
	})

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithEndpoint(entry.BaseURL))
		}
		t, err := deepgram.New(entry.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		return t, nil
	})

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		if threads := optInt(entry.Options, "threads"); threads > 0 {
			opts = append(opts, whisper.WithThreads(threads))
		}
		t, err := whisper.New(modelPath, opts...)
		if err != nil {
			return nil, err
		}
		return t, nil
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("openai", func(entry config.ProviderEntry) (tts.Speaker, error) {
		var opts []ttsopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, ttsopenai.WithBaseURL(entry.BaseURL))
		}
		if voice := optString(entry.Options, "voice"); voice != "" {
			opts = append(opts, ttsopenai.WithVoice(voice))
		}
		s, err := ttsopenai.New(entry.APIKey, entry.Model, sink, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	})

	// ── Embeddings ────────────────────────────────────────────────────────────

	reg.RegisterEmbeddings("openai", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		var opts []embopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, embopenai.WithBaseURL(entry.BaseURL))
		}
		p, err := embopenai.New(entry.APIKey, entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	// ── Capture ───────────────────────────────────────────────────────────────

	reg.RegisterCapture("websocket", func(entry config.ProviderEntry) (audio.Source, error) {
		url := entry.BaseURL
		if url == "" {
			url = optString(entry.Options, "url")
		}
		var opts []wscapture.Option
		if d := optDuration(entry.Options, "dial_timeout"); d > 0 {
			opts = append(opts, wscapture.WithDialTimeout(d))
		}
		c, err := wscapture.New(url, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

// llmTuning maps the shared temperature / max_tokens options onto a
// provider's option constructors.
func llmTuning[T any](entry config.ProviderEntry, temp func(float64) T, maxTokens func(int) T) []T {
	var opts []T
	if t, ok := optFloat(entry.Options, "temperature"); ok {
		opts = append(opts, temp(t))
	}
	if n := optInt(entry.Options, "max_tokens"); n > 0 {
		opts = append(opts, maxTokens(n))
	}
	return opts
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to consume.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.Capture.Name; name != "" {
		p, err := reg.CreateCapture(cfg.Providers.Capture)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not registered — skipping", "kind", "capture", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create capture provider %q: %w", name, err)
		} else {
			ps.Source = p
			slog.Info("provider created", "kind", "capture", "name", name)
		}
	}

	if name := cfg.Providers.STT.Name; name != "" {
		p, err := reg.CreateSTT(cfg.Providers.STT)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not registered — skipping", "kind", "stt", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create stt provider %q: %w", name, err)
		} else {
			ps.Transcriber = p
			slog.Info("provider created", "kind", "stt", "name", name)
		}
	}

	if name := cfg.Providers.LLM.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.LLM)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not registered — skipping", "kind", "llm", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create llm provider %q: %w", name, err)
		} else {
			ps.Generator = p
			slog.Info("provider created", "kind", "llm", "name", name)
		}
	}

	if name := cfg.Providers.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.Providers.TTS)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not registered — skipping", "kind", "tts", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create tts provider %q: %w", name, err)
		} else {
			ps.Speaker = p
			slog.Info("provider created", "kind", "tts", "name", name)
		}
	}

	if name := cfg.Providers.Embeddings.Name; name != "" {
		p, err := reg.CreateEmbeddings(cfg.Providers.Embeddings)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Debug("provider not registered — skipping", "kind", "embeddings", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create embeddings provider %q: %w", name, err)
		} else {
			ps.Embeddings = p
			slog.Info("provider created", "kind", "embeddings", "name", name)
		}
	}

	// Failover wrapping. Each backend gets its own circuit breaker; the
	// primary is always tried first, fallbacks in configuration order.
	if len(cfg.Providers.STTFallbacks) > 0 && ps.Transcriber != nil {
		fb := resilience.NewTranscriberFallback(ps.Transcriber, cfg.Providers.STT.Name, resilience.FallbackConfig{})
		for _, entry := range cfg.Providers.STTFallbacks {
			p, err := reg.CreateSTT(entry)
			if err != nil {
				return nil, fmt.Errorf("create stt fallback %q: %w", entry.Name, err)
			}
			fb.AddFallback(entry.Name, p)
			slog.Info("provider fallback registered", "kind", "stt", "name", entry.Name)
		}
		ps.Transcriber = fb
	}

	if len(cfg.Providers.LLMFallbacks) > 0 && ps.Generator != nil {
		fb := resilience.NewGeneratorFallback(ps.Generator, cfg.Providers.LLM.Name, resilience.FallbackConfig{})
		for _, entry := range cfg.Providers.LLMFallbacks {
			p, err := reg.CreateLLM(entry)
			if err != nil {
				return nil, fmt.Errorf("create llm fallback %q: %w", entry.Name, err)
			}
			fb.AddFallback(entry.Name, p)
			slog.Info("provider fallback registered", "kind", "llm", "name", entry.Name)
		}
		ps.Generator = fb
	}

	if len(cfg.Providers.TTSFallbacks) > 0 && ps.Speaker != nil {
		fb := resilience.NewSpeakerFallback(ps.Speaker, cfg.Providers.TTS.Name, resilience.FallbackConfig{})
		for _, entry := range cfg.Providers.TTSFallbacks {
			p, err := reg.CreateTTS(entry)
			if err != nil {
				return nil, fmt.Errorf("create tts fallback %q: %w", entry.Name, err)
			}
			fb.AddFallback(entry.Name, p)
			slog.Info("provider fallback registered", "kind", "tts", "name", entry.Name)
		}
		ps.Speaker = fb
	}

	return ps, nil
}

// playbackSink is a late-bound [tts.Sink]. The TTS provider is constructed
// before the capture client it plays through, so the sink starts empty and
// is bound once the capture client exists.
type playbackSink struct {
	mu    sync.Mutex
	inner tts.Sink
}

func (s *playbackSink) set(inner tts.Sink) {
	s.mu.Lock()
	s.inner = inner
	s.mu.Unlock()
}

func (s *playbackSink) Play(ctx context.Context, samples []float32, sampleRate int) error {
	s.mu.Lock()
	inner := s.inner
	s.mu.Unlock()
	if inner == nil {
		return errors.New("no playback sink configured — capture provider missing or not a sink")
	}
	return inner.Play(ctx, samples, sampleRate)
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         voxloop — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("Capture", cfg.Providers.Capture.Name, "")
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printProvider("Embeddings", cfg.Providers.Embeddings.Name, cfg.Providers.Embeddings.Model)
	if cfg.Memory.PostgresDSN != "" {
		fmt.Printf("║  Memory          : %-19s ║\n", "postgres")
	} else {
		fmt.Printf("║  Memory          : %-19s ║\n", "(disabled)")
	}
	if cfg.Pipeline.Auto.Enabled {
		fmt.Printf("║  Hands-free      : %-19s ║\n", "enabled")
	} else {
		fmt.Printf("║  Hands-free      : %-19s ║\n", "(disabled)")
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

// newLogger builds the process logger. The returned level var backs the
// handler so the config watcher can change verbosity live.
func newLogger(level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	lvl := new(slog.LevelVar)
	switch level {
	case config.LogDebug:
		lvl.Set(slog.LevelDebug)
	case config.LogWarn:
		lvl.Set(slog.LevelWarn)
	case config.LogError:
		lvl.Set(slog.LevelError)
	default:
		lvl.Set(slog.LevelInfo)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), lvl
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// optInt extracts an integer value, tolerating the int and float64 forms the
// YAML decoder produces.
func optInt(opts map[string]any, key string) int {
	if opts == nil {
		return 0
	}
	switch v := opts[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// optFloat extracts a float value. The second return reports presence, so a
// configured zero is distinguishable from an absent key.
func optFloat(opts map[string]any, key string) (float64, bool) {
	if opts == nil {
		return 0, false
	}
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// optDuration extracts a duration value given as a string ("250ms", "5s").
func optDuration(opts map[string]any, key string) time.Duration {
	s := optString(opts, key)
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
