// Package conversation implements the turn-level state machine that drives a
// voice conversation: listening → thinking → speaking, with barge-in,
// capture retries, a hard listening ceiling, and deterministic teardown.
//
// The [Controller] owns one VAD detector, one audio buffer, and references to
// the three external collaborators (transcriber, generator, speaker). All
// state transitions are serialized through the controller; exactly one turn
// runs at a time. Hosts observe progress exclusively through the snapshot
// subscription — collaborator failures during a turn are surfaced through
// the snapshot error field, never raised to the caller.
package conversation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/voxloop/voxloop/internal/observe"
	"github.com/voxloop/voxloop/internal/resilience"
	"github.com/voxloop/voxloop/pkg/audio"
	"github.com/voxloop/voxloop/pkg/provider/llm"
	"github.com/voxloop/voxloop/pkg/provider/stt"
	"github.com/voxloop/voxloop/pkg/provider/tts"
	"github.com/voxloop/voxloop/pkg/vad"
)

// Defaults for the controller's timing knobs.
const (
	// DefaultMaxListen is the hard ceiling on a single listening phase. It
	// bounds worst-case latency even if the VAD never detects an
	// end-of-speech.
	DefaultMaxListen = 10 * time.Second

	// DefaultStartAttempts is how many times capture start is tried before
	// the failure is surfaced.
	DefaultStartAttempts = 3

	// DefaultStartBackoff is the delay between capture start attempts.
	DefaultStartBackoff = 500 * time.Millisecond
)

// Corrector post-processes a transcript before it reaches the generator.
// Implementations live in internal/transcript; a correction failure is
// logged and the uncorrected transcript is used.
type Corrector interface {
	Correct(ctx context.Context, text string) (string, error)
}

// Config wires a [Controller]. Source, Transcriber, Generator, and Speaker
// are required; operations on a controller missing any of them fail with
// [ErrNotInitialized].
type Config struct {
	Source      audio.Source
	Transcriber stt.Transcriber
	Generator   llm.Generator
	Speaker     tts.Speaker

	// VAD configures the detector; zero-value fields use vad defaults.
	VAD vad.Config

	// MaxBufferFrames / MaxBufferSamples cap the audio buffer; zero values
	// use the audio package defaults (30 s at 16 kHz).
	MaxBufferFrames  int
	MaxBufferSamples int

	// MaxListen is the hard ceiling timer. Default: 10 s.
	MaxListen time.Duration

	// StartAttempts / StartBackoff tune the capture start retry loop.
	// Defaults: 3 attempts, 500 ms apart.
	StartAttempts int
	StartBackoff  time.Duration
}

// Option is a functional option for [New].
type Option func(*Controller)

// WithCorrector attaches a transcript corrector between transcription and
// generation. Nil (the default) skips the stage.
func WithCorrector(c Corrector) Option {
	return func(ctrl *Controller) { ctrl.corrector = c }
}

// WithMetrics attaches pipeline metrics. Nil (the default) records nothing.
func WithMetrics(m *observe.Metrics) Option {
	return func(ctrl *Controller) { ctrl.metrics = m }
}

// Controller sequences one conversational turn at a time for one session.
//
// All exported methods are safe for concurrent use. Snapshot notifications
// are delivered synchronously in mutation order; a subscriber added mid-turn
// sees only transitions from that point forward.
type Controller struct {
	source      audio.Source
	transcriber stt.Transcriber
	generator   llm.Generator
	speaker     tts.Speaker

	detector  *vad.Detector
	buffer    *audio.Buffer
	corrector Corrector
	metrics   *observe.Metrics

	maxListen     time.Duration
	startAttempts int
	startBackoff  time.Duration

	// ctx is the controller lifetime; Dispose cancels it, which cancels any
	// in-flight collaborator call cooperatively.
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	phase     Phase
	snap      Snapshot // Transcript, Response, Err fields are authoritative
	disposed  bool
	turnSeq   uint64
	ceiling   *time.Timer
	listenAt  time.Time
	speakStop context.CancelFunc

	observers  map[int]func(Snapshot)
	nextObsID  int
	pending    []Snapshot
	notifying  bool
}

// New creates a Controller from cfg. Zero-value timing fields fall back to
// the package defaults. The controller starts in PhaseIdle.
func New(cfg Config, opts ...Option) *Controller {
	if cfg.MaxListen <= 0 {
		cfg.MaxListen = DefaultMaxListen
	}
	if cfg.StartAttempts <= 0 {
		cfg.StartAttempts = DefaultStartAttempts
	}
	if cfg.StartBackoff <= 0 {
		cfg.StartBackoff = DefaultStartBackoff
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		source:        cfg.Source,
		transcriber:   cfg.Transcriber,
		generator:     cfg.Generator,
		speaker:       cfg.Speaker,
		detector:      vad.New(cfg.VAD),
		buffer:        audio.NewBuffer(cfg.MaxBufferFrames, cfg.MaxBufferSamples),
		maxListen:     cfg.MaxListen,
		startAttempts: cfg.StartAttempts,
		startBackoff:  cfg.StartBackoff,
		ctx:           ctx,
		cancel:        cancel,
		observers:     map[int]func(Snapshot){},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Detector exposes the controller's VAD detector for live threshold
// reconfiguration (config watcher).
func (c *Controller) Detector() *vad.Detector { return c.detector }

// ─── Observation ─────────────────────────────────────────────────────────────

// State returns the current snapshot.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers cb for synchronous notification on every state
// mutation, in mutation order, and returns the matching unsubscribe
// function. There is no replay: the subscriber sees only transitions that
// happen after registration.
func (c *Controller) Subscribe(cb func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = cb
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// snapshotLocked builds the current snapshot. Must be called with c.mu held.
func (c *Controller) snapshotLocked() Snapshot {
	s := c.snap
	s.Phase = c.phase
	s.Listening = c.phase == PhaseListening
	s.Thinking = c.phase == PhaseThinking
	s.Speaking = c.phase == PhaseSpeaking
	s.Initialized = c.initializedLocked()
	return s
}

// initializedLocked reports whether all collaborators are wired and the
// controller has not been disposed. Must be called with c.mu held.
func (c *Controller) initializedLocked() bool {
	return !c.disposed &&
		c.source != nil && c.transcriber != nil &&
		c.generator != nil && c.speaker != nil
}

// setPhaseLocked records a phase transition and queues a notification.
// Must be called with c.mu held; callers must invoke flush after unlocking.
func (c *Controller) setPhaseLocked(p Phase) {
	c.phase = p
	c.pending = append(c.pending, c.snapshotLocked())
}

// noteMutationLocked queues a notification for a non-phase mutation
// (transcript/response updates). Must be called with c.mu held.
func (c *Controller) noteMutationLocked() {
	c.pending = append(c.pending, c.snapshotLocked())
}

// flush drains queued snapshot notifications. A single goroutine drains at a
// time; re-entrant mutations from inside a callback are queued and picked up
// by the active drainer, preserving mutation order without deadlocking.
func (c *Controller) flush() {
	c.mu.Lock()
	if c.notifying {
		c.mu.Unlock()
		return
	}
	c.notifying = true
	for len(c.pending) > 0 {
		snap := c.pending[0]
		c.pending = c.pending[1:]
		obs := make([]func(Snapshot), 0, len(c.observers))
		for _, cb := range c.observers {
			obs = append(obs, cb)
		}
		c.mu.Unlock()
		for _, cb := range obs {
			cb(snap)
		}
		c.mu.Lock()
	}
	c.notifying = false
	c.mu.Unlock()
}

// ─── Listening ───────────────────────────────────────────────────────────────

// StartListening begins a new listening turn.
//
// It is a no-op while already listening and returns [ErrBusy] while the turn
// pipeline is running. From PhaseSpeaking it is the barge-in path: playback
// is cancelled and capture starts immediately.
//
// Capture start failures are not returned: they are retried with backoff
// (reinitialising the capture subsystem between attempts) and, if all
// attempts fail, surfaced through the snapshot error field. The only
// synchronous errors are the preconditions [ErrNotInitialized],
// [ErrDisposed], and [ErrBusy].
func (c *Controller) StartListening(ctx context.Context) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if !c.initializedLocked() {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	switch c.phase {
	case PhaseListening:
		c.mu.Unlock()
		return nil
	case PhaseThinking:
		c.mu.Unlock()
		return ErrBusy
	}
	wasSpeaking := c.phase == PhaseSpeaking
	speakStop := c.speakStop

	// New turn: stale results from any prior turn are dropped from here on.
	c.turnSeq++
	turn := c.turnSeq

	c.snap.Err = nil
	c.snap.Transcript = ""
	c.snap.Response = ""
	c.buffer.Clear()
	c.detector.Reset()
	c.listenAt = time.Now()
	c.setPhaseLocked(PhaseListening)
	c.mu.Unlock()
	c.flush()

	if wasSpeaking {
		if speakStop != nil {
			speakStop()
		}
		if err := c.speaker.Stop(); err != nil {
			slog.Warn("stopping playback for barge-in failed", "error", err)
		}
	}

	err := resilience.Retry(ctx, resilience.RetryConfig{
		Name:     "capture start",
		Attempts: c.startAttempts,
		Backoff:  c.startBackoff,
		OnRetry: func(ctx context.Context, attempt int, _ error) error {
			if c.metrics != nil {
				c.metrics.CaptureRetries.Add(ctx, 1)
			}
			if r, ok := c.source.(audio.Reinitializer); ok {
				if err := r.Reinitialize(ctx); err != nil {
					slog.Warn("capture reinitialize failed", "attempt", attempt, "error", err)
				}
			}
			return nil
		},
	}, func(ctx context.Context) error {
		return c.source.Start(ctx, c.frameCallback(turn))
	})
	if err != nil {
		c.failTurn(turn, captureError(err))
		return nil
	}

	// Arm the hard ceiling. It races with the VAD auto-stop; whichever fires
	// first wins and the loser is a no-op.
	c.mu.Lock()
	if !c.disposed && c.turnSeq == turn && c.phase == PhaseListening {
		c.ceiling = time.AfterFunc(c.maxListen, func() {
			c.stopListeningTurn(turn)
		})
	}
	c.mu.Unlock()
	return nil
}

// frameCallback returns the per-frame real-time path for the given turn:
// buffer the frame, run the VAD, and auto-stop on end of speech.
func (c *Controller) frameCallback(turn uint64) audio.FrameCallback {
	return func(f audio.Frame) {
		// The liveness check and the buffer/detector writes stay under one
		// lock so a frame from a stale capture goroutine cannot slip into a
		// newer turn's freshly cleared buffer between check and append.
		c.mu.Lock()
		if c.disposed || c.turnSeq != turn || c.phase != PhaseListening {
			c.mu.Unlock()
			return
		}
		c.buffer.Append(f)
		res := c.detector.Process(f.Samples, f.Timestamp)
		c.mu.Unlock()

		if res.SpeechEnd {
			// Hands-free end of utterance. Run off the capture goroutine so
			// the callback stays non-blocking and the source's Stop can join
			// its own read loop.
			go c.stopListeningTurn(turn)
		}
	}
}

// StopListening ends the current listening turn and hands the captured audio
// to the turn pipeline. It is idempotent: a no-op when not listening.
func (c *Controller) StopListening(ctx context.Context) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	turn := c.turnSeq
	c.mu.Unlock()
	c.stopListeningTurn(turn)
	return nil
}

// stopListeningTurn is the idempotent core of StopListening, pinned to a
// turn so a stale ceiling timer or VAD trigger from a previous turn cannot
// stop a newer one.
func (c *Controller) stopListeningTurn(turn uint64) {
	c.mu.Lock()
	if c.disposed || c.turnSeq != turn || c.phase != PhaseListening {
		c.mu.Unlock()
		return
	}
	if c.ceiling != nil {
		c.ceiling.Stop()
		c.ceiling = nil
	}
	if c.metrics != nil {
		c.metrics.CaptureDuration.Record(c.ctx, time.Since(c.listenAt).Seconds())
	}

	// The observable state reflects "processing" immediately; capture
	// teardown resolves asynchronously in the turn pipeline.
	c.setPhaseLocked(PhaseThinking)
	c.mu.Unlock()
	c.flush()

	go c.runTurn(turn)
}

// ─── Turn pipeline ───────────────────────────────────────────────────────────

// runTurn drives transcribe → correct → generate → speak for one turn.
// Every step re-checks that the turn is still current so results arriving
// after a barge-in, an error, or disposal are dropped, not applied.
func (c *Controller) runTurn(turn uint64) {
	ctx, span := observe.Tracer().Start(c.ctx, "conversation.turn")
	defer span.End()

	finals, err := c.source.Stop(ctx)
	if err != nil {
		c.failTurn(turn, captureError(err))
		return
	}
	c.ingestFinalSamples(finals)

	samples := c.buffer.Concatenated()
	if len(samples) == 0 {
		// Empty-turn short-circuit: no collaborator round trips.
		c.endTurn(turn, "empty")
		return
	}

	start := time.Now()
	transcript, err := c.transcriber.Transcribe(ctx, samples, audio.DefaultSampleRate)
	if c.metrics != nil {
		c.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		c.failTurn(turn, transcriptionError(err))
		return
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		// Silence or noise-only capture is not an error.
		c.endTurn(turn, "empty")
		return
	}

	if c.corrector != nil {
		corrected, err := c.corrector.Correct(ctx, transcript)
		if err != nil {
			slog.Warn("transcript correction failed, using raw transcript", "error", err)
		} else {
			transcript = corrected
		}
	}

	c.mu.Lock()
	if c.disposed || c.turnSeq != turn {
		c.mu.Unlock()
		return
	}
	c.snap.Transcript = transcript
	c.noteMutationLocked()
	c.mu.Unlock()
	c.flush()

	start = time.Now()
	response, err := c.generator.Generate(ctx, transcript)
	if c.metrics != nil {
		c.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		c.failTurn(turn, generationError(err))
		return
	}
	response = strings.TrimSpace(response)
	if response == "" {
		c.endTurn(turn, "empty")
		return
	}

	c.speakTurn(turn, response)
}

// ingestFinalSamples reconciles the capture flush with the frames delivered
// through the callback. Platforms that buffer internally can return more
// audio from Stop than the callback ever saw; in that case the flush is the
// authoritative recording and replaces the buffer contents.
func (c *Controller) ingestFinalSamples(finals []float32) {
	if len(finals) <= c.buffer.SampleCount() {
		return
	}
	c.buffer.Clear()
	c.buffer.Append(audio.Frame{Samples: finals, SampleRate: audio.DefaultSampleRate})
}

// ─── Speaking ────────────────────────────────────────────────────────────────

// Speak plays text through the speaker collaborator, blocking until playback
// completes, is interrupted, or fails. It is directly invocable by the host
// from any non-listening state.
//
// Speaker failures are surfaced through the snapshot error field; the only
// synchronous errors are the preconditions.
func (c *Controller) Speak(ctx context.Context, text string) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if !c.initializedLocked() {
		c.mu.Unlock()
		return ErrNotInitialized
	}
	if c.phase == PhaseListening {
		c.mu.Unlock()
		return ErrBusy
	}
	c.turnSeq++
	turn := c.turnSeq
	c.snap.Err = nil
	c.mu.Unlock()
	c.flush()

	c.speakTurn(turn, text)
	return nil
}

// speakTurn transitions to PhaseSpeaking, plays text, and returns the
// controller to PhaseIdle on completion. Interruption (barge-in, dispose) is
// not an error: the interrupting operation owns the next transition and the
// playback result is dropped.
func (c *Controller) speakTurn(turn uint64, text string) {
	c.mu.Lock()
	if c.disposed || c.turnSeq != turn {
		c.mu.Unlock()
		return
	}
	c.snap.Response = text
	c.setPhaseLocked(PhaseSpeaking)
	sctx, cancel := context.WithCancel(c.ctx)
	c.speakStop = cancel
	c.mu.Unlock()
	c.flush()

	start := time.Now()
	err := c.speaker.Speak(sctx, text)
	interrupted := sctx.Err() != nil
	cancel()

	c.mu.Lock()
	if c.speakStop != nil && c.turnSeq == turn {
		c.speakStop = nil
	}
	if c.disposed || c.turnSeq != turn || interrupted {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.TTSDuration.Record(c.ctx, time.Since(start).Seconds())
	}
	if err != nil {
		c.failTurn(turn, speechError(err))
		return
	}
	c.endTurn(turn, "ok")
}

// InterruptSpeech cancels ongoing playback. It is the barge-in primitive and
// is always safe to call: a no-op when nothing is speaking.
func (c *Controller) InterruptSpeech(ctx context.Context) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	if c.phase != PhaseSpeaking {
		c.mu.Unlock()
		return nil
	}
	stop := c.speakStop
	c.speakStop = nil
	c.setPhaseLocked(PhaseIdle)
	c.mu.Unlock()
	c.flush()

	if stop != nil {
		stop()
	}
	if err := c.speaker.Stop(); err != nil {
		slog.Warn("speaker stop failed during interrupt", "error", err)
	}
	if c.metrics != nil {
		c.metrics.Interruptions.Add(ctx, 1)
	}
	return nil
}

// ─── Configuration pass-throughs ─────────────────────────────────────────────

// SetSystemPrompt forwards the system instruction to the generator.
func (c *Controller) SetSystemPrompt(text string) {
	c.mu.Lock()
	disposed := c.disposed
	c.mu.Unlock()
	if disposed {
		return
	}
	c.generator.SetSystemPrompt(text)
}

// ClearHistory discards the generator's user/assistant history (preserving
// any leading system message) and clears the controller's own transcript and
// response snapshot fields.
func (c *Controller) ClearHistory() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.snap.Transcript = ""
	c.snap.Response = ""
	c.noteMutationLocked()
	c.mu.Unlock()
	c.flush()

	c.generator.ClearHistory()
}

// ─── Turn completion helpers ─────────────────────────────────────────────────

// endTurn returns the controller to PhaseIdle if the turn is still current.
func (c *Controller) endTurn(turn uint64, status string) {
	c.mu.Lock()
	if c.disposed || c.turnSeq != turn {
		c.mu.Unlock()
		return
	}
	c.setPhaseLocked(PhaseIdle)
	c.mu.Unlock()
	c.flush()

	if c.metrics != nil {
		c.metrics.Turns.Add(c.ctx, 1, metricStatus(status))
	}
}

// failTurn records err in the snapshot, passes through PhaseError, and
// recovers to PhaseIdle so the machine is never left stuck. The error stays
// visible until the next StartListening or Speak call clears it.
func (c *Controller) failTurn(turn uint64, serr *StageError) {
	c.mu.Lock()
	if c.disposed || c.turnSeq != turn {
		c.mu.Unlock()
		return
	}
	c.snap.Err = serr
	c.setPhaseLocked(PhaseError)
	c.setPhaseLocked(PhaseIdle)
	c.mu.Unlock()
	c.flush()

	slog.Error("turn failed", "stage", serr.Stage, "error", serr.Err)
	if c.metrics != nil {
		c.metrics.StageErrors.Add(c.ctx, 1, metricStage(string(serr.Stage)))
		c.metrics.Turns.Add(c.ctx, 1, metricStatus("error"))
	}
}

// ─── Disposal ────────────────────────────────────────────────────────────────

// Dispose is the terminal operation: it stops any active listening or
// speaking, cancels pending timers and in-flight collaborator calls,
// releases the audio buffer, and shuts down every collaborator that
// implements [io.Closer].
//
// Shutdown is collect-and-continue: a failure in one collaborator never
// prevents attempting the others; all failures are joined into the returned
// error. After Dispose every operation returns [ErrDisposed]. Dispose itself
// is idempotent.
func (c *Controller) Dispose(ctx context.Context) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.disposed = true
	c.turnSeq++
	wasListening := c.phase == PhaseListening
	if c.ceiling != nil {
		c.ceiling.Stop()
		c.ceiling = nil
	}
	speakStop := c.speakStop
	c.speakStop = nil
	c.setPhaseLocked(PhaseIdle)
	c.mu.Unlock()

	// Cancel in-flight collaborator calls cooperatively. A collaborator that
	// ignores the signal may still complete; its result is dropped by the
	// turn checks above.
	c.cancel()
	if speakStop != nil {
		speakStop()
	}

	var errs []error
	if wasListening {
		if _, err := c.source.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.speaker != nil {
		if err := c.speaker.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	c.buffer.Clear()

	for _, col := range []any{c.transcriber, c.generator, c.speaker, c.source} {
		closer, ok := col.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			slog.Warn("collaborator shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	c.flush()
	return errors.Join(errs...)
}
