// Package app wires configuration, providers, the conversation controller,
// long-term memory, and the HTTP observation surface into one runnable
// voxloop service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/voxloop/voxloop/internal/config"
	"github.com/voxloop/voxloop/internal/conversation"
	"github.com/voxloop/voxloop/internal/observe"
	"github.com/voxloop/voxloop/pkg/audio"
	"github.com/voxloop/voxloop/pkg/memory"
	"github.com/voxloop/voxloop/pkg/memory/postgres"
	"github.com/voxloop/voxloop/pkg/provider/embeddings"
	"github.com/voxloop/voxloop/pkg/provider/llm"
	"github.com/voxloop/voxloop/pkg/provider/stt"
	"github.com/voxloop/voxloop/pkg/provider/tts"
	"github.com/voxloop/voxloop/pkg/vad"
)

const (
	// defaultEmbeddingDimensions is used when neither the config nor the
	// embedding provider specifies a vector dimension.
	defaultEmbeddingDimensions = 1536

	// httpShutdownTimeout bounds the HTTP server drain during Run teardown.
	httpShutdownTimeout = 5 * time.Second
)

// Providers holds the pipeline collaborators the service runs with.
// Source, Transcriber, Generator, and Speaker drive the conversation;
// Embeddings and Turns are optional and enable long-term memory.
type Providers struct {
	Source      audio.Source
	Transcriber stt.Transcriber
	Generator   llm.Generator
	Speaker     tts.Speaker

	// Embeddings, when set, attaches a semantic vector to every recorded
	// turn.
	Embeddings embeddings.Provider

	// Turns overrides the store built from [config.MemoryConfig]. Mainly for
	// tests.
	Turns memory.TurnStore
}

// App is the assembled voxloop service. Create it with [New], drive it with
// [App.Run], and tear it down with [App.Shutdown].
type App struct {
	cfg        *config.Config
	controller *conversation.Controller
	recorder   *turnRecorder
	auto       *autoLoop
	watcher    *config.Watcher
	server     *http.Server
	store      *postgres.Store
	metrics    *observe.Metrics
	logLevel   *slog.LevelVar
	corrector  conversation.Corrector
	sessionID  string
	configPath string

	closers  []func() error
	stopOnce sync.Once
	stopErr  error
}

// Option configures [New].
type Option func(*App)

// WithSessionID sets the session identifier recorded with every turn.
// Default: a timestamp-derived identifier.
func WithSessionID(id string) Option {
	return func(a *App) { a.sessionID = id }
}

// WithHotReload watches the config file at path and applies the safe subset
// of changes (log level, VAD thresholds, system prompt, auto mode) without a
// restart.
func WithHotReload(path string) Option {
	return func(a *App) { a.configPath = path }
}

// WithLogLevelVar wires the level var backing the process logger so that
// log-level changes in the config file take effect live.
func WithLogLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = v }
}

// WithCorrector inserts a transcript corrector between transcription and
// generation.
func WithCorrector(c conversation.Corrector) Option {
	return func(a *App) { a.corrector = c }
}

// New assembles the service from cfg and providers. Collaborators left nil
// in providers stay nil in the controller, which then rejects turn
// operations with [conversation.ErrNotInitialized].
func New(ctx context.Context, cfg *config.Config, providers Providers, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	a := &App{
		cfg:       cfg,
		sessionID: defaultSessionID(),
	}
	for _, opt := range opts {
		opt(a)
	}

	// 1. Pipeline metrics.
	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return nil, fmt.Errorf("app: init metrics: %w", err)
	}
	a.metrics = metrics

	// 2. Long-term memory. The config dimension wins; otherwise the
	// embedding provider knows its own output width.
	turns := providers.Turns
	if turns == nil && cfg.Memory.PostgresDSN != "" {
		dims := cfg.Memory.EmbeddingDimensions
		if dims <= 0 && providers.Embeddings != nil {
			dims = providers.Embeddings.Dimensions()
		}
		if dims <= 0 {
			dims = defaultEmbeddingDimensions
		}
		store, err := postgres.NewStore(ctx, cfg.Memory.PostgresDSN, dims)
		if err != nil {
			return nil, fmt.Errorf("app: init turn store: %w", err)
		}
		a.store = store
		a.closers = append(a.closers, func() error { store.Close(); return nil })
		turns = store
		slog.Info("turn store connected", "dimensions", dims)
	}

	// 3. Transcript correction, wrapped so the raw transcript stays
	// available for the turn record.
	var raw *recordingCorrector
	if a.corrector != nil {
		raw = &recordingCorrector{inner: a.corrector}
	}

	// 4. Conversation controller.
	ctrlOpts := []conversation.Option{conversation.WithMetrics(metrics)}
	if raw != nil {
		ctrlOpts = append(ctrlOpts, conversation.WithCorrector(raw))
	}
	ctrl := conversation.New(conversation.Config{
		Source:      providers.Source,
		Transcriber: providers.Transcriber,
		Generator:   providers.Generator,
		Speaker:     providers.Speaker,
		VAD: vad.Config{
			EnergyThreshold:    cfg.VAD.EnergyThreshold,
			SilenceThreshold:   cfg.VAD.SilenceThreshold,
			MinSpeechDuration:  cfg.VAD.MinSpeechDuration,
			MaxSilenceDuration: cfg.VAD.MaxSilenceDuration,
		},
		MaxBufferFrames:  cfg.Buffer.MaxFrames,
		MaxBufferSamples: cfg.Buffer.MaxSamples,
		MaxListen:        cfg.Pipeline.MaxListen,
		StartAttempts:    cfg.Pipeline.StartAttempts,
		StartBackoff:     cfg.Pipeline.StartBackoff,
	}, ctrlOpts...)
	a.controller = ctrl
	if cfg.Pipeline.SystemPrompt != "" && providers.Generator != nil {
		ctrl.SetSystemPrompt(cfg.Pipeline.SystemPrompt)
	}
	metrics.ActiveSessions.Add(ctx, 1)

	// 5. Turn recording.
	if turns != nil {
		a.recorder = newTurnRecorder(ctrl, turns, providers.Embeddings, raw, a.sessionID)
	}

	// 6. Hands-free loop. Always constructed; a config reload can enable it
	// at runtime.
	a.auto = newAutoLoop(ctrl, cfg.Pipeline.Auto)

	// 7. Config hot reload.
	if a.configPath != "" {
		w, err := config.NewWatcher(a.configPath, a.applyReload)
		if err != nil {
			return nil, fmt.Errorf("app: config watcher: %w", err)
		}
		a.watcher = w
	}

	// 8. HTTP observation surface.
	if cfg.Server.ListenAddr != "" {
		a.server = newHTTPServer(cfg.Server.ListenAddr, a)
	}

	return a, nil
}

// Controller exposes the conversation controller for hosts that drive turns
// directly (push-to-talk clients, tests).
func (a *App) Controller() *conversation.Controller { return a.controller }

// Run starts the HTTP server and the hands-free loop, then blocks until ctx
// is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	slog.Info("voxloop service started",
		"session", a.sessionID,
		"auto", a.cfg.Pipeline.Auto.Enabled,
	)
	a.auto.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	if a.server != nil {
		g.Go(func() error {
			slog.Info("http server listening", "addr", a.server.Addr)
			if err := a.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
			defer cancel()
			return a.server.Shutdown(sctx)
		})
	} else {
		g.Go(func() error {
			<-gctx.Done()
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Shutdown tears the service down in dependency order: stop reacting to
// config and state changes, dispose the controller, drain pending turn
// records, then release external resources. Failures are collected, not
// short-circuited. Shutdown is idempotent.
func (a *App) Shutdown(ctx context.Context) error {
	a.stopOnce.Do(func() {
		var errs []error
		if a.watcher != nil {
			a.watcher.Stop()
		}
		a.auto.Stop()
		if err := a.controller.Dispose(ctx); err != nil {
			errs = append(errs, err)
		}
		if a.recorder != nil {
			a.recorder.Stop()
		}
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		a.metrics.ActiveSessions.Add(context.Background(), -1)
		a.stopErr = errors.Join(errs...)
		slog.Info("voxloop service stopped", "session", a.sessionID)
	})
	return a.stopErr
}

// applyReload is the config watcher callback. Only the hot-reloadable subset
// tracked by [config.Diff] is applied; everything else needs a restart.
func (a *App) applyReload(old, new *config.Config) {
	d := config.Diff(old, new)
	if !d.Any() {
		return
	}

	if d.LogLevelChanged {
		if a.logLevel != nil {
			a.logLevel.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		} else {
			slog.Warn("log level change ignored: logger has no level var wired")
		}
	}
	if d.VADChanged {
		det := a.controller.Detector()
		det.SetThresholds(d.NewVAD.EnergyThreshold, d.NewVAD.SilenceThreshold)
		det.SetTimings(d.NewVAD.MinSpeechDuration, d.NewVAD.MaxSilenceDuration)
		slog.Info("vad settings reloaded",
			"energy", d.NewVAD.EnergyThreshold,
			"silence", d.NewVAD.SilenceThreshold,
		)
	}
	if d.SystemPromptChanged {
		a.controller.SetSystemPrompt(d.NewSystemPrompt)
		slog.Info("system prompt reloaded")
	}
	if d.AutoChanged {
		a.auto.SetConfig(d.NewAuto)
		slog.Info("auto mode reloaded", "enabled", d.NewAuto.Enabled)
	}
}

// slogLevel maps a config log level onto its slog equivalent.
func slogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// defaultSessionID derives a session identifier from the start time. One
// process run is one session.
func defaultSessionID() string {
	return "session-" + time.Now().UTC().Format("20060102-150405")
}
