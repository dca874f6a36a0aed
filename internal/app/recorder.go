package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/voxloop/voxloop/internal/conversation"
	"github.com/voxloop/voxloop/pkg/memory"
	"github.com/voxloop/voxloop/pkg/provider/embeddings"
)

// recordTimeout bounds the embed-and-insert of a single turn record.
const recordTimeout = 10 * time.Second

// turnRecorder watches the controller's state stream and persists every
// completed turn to the long-term store. Persistence runs off the
// notification path so a slow database never blocks the next turn.
type turnRecorder struct {
	store   memory.TurnStore
	embed   embeddings.Provider
	raw     *recordingCorrector
	session string

	unsub func()
	wg    sync.WaitGroup

	mu          sync.Mutex
	prevPhase   conversation.Phase
	listenAt    time.Time
	listenDur   time.Duration
	sawThinking bool
	stopped     bool
}

func newTurnRecorder(ctrl *conversation.Controller, store memory.TurnStore, embed embeddings.Provider, raw *recordingCorrector, session string) *turnRecorder {
	r := &turnRecorder{
		store:   store,
		embed:   embed,
		raw:     raw,
		session: session,
	}
	r.unsub = ctrl.Subscribe(r.observe)
	return r
}

// observe inspects each state transition. A turn is complete when the
// controller returns to idle without an error and both transcript and
// response are populated. The thinking-phase gate keeps host-initiated
// playback, whose snapshot reuses the previous turn's transcript, out of the
// record.
func (r *turnRecorder) observe(s conversation.Snapshot) {
	now := time.Now()

	r.mu.Lock()
	prev := r.prevPhase
	r.prevPhase = s.Phase
	if s.Phase == conversation.PhaseListening && prev != conversation.PhaseListening {
		r.listenAt = now
	}
	if prev == conversation.PhaseListening && s.Phase != conversation.PhaseListening && !r.listenAt.IsZero() {
		r.listenDur = now.Sub(r.listenAt)
	}
	if s.Phase == conversation.PhaseThinking {
		r.sawThinking = true
	}
	record := !r.stopped &&
		r.sawThinking &&
		s.Phase == conversation.PhaseIdle &&
		s.Err == nil &&
		s.Transcript != "" && s.Response != ""
	if s.Phase == conversation.PhaseIdle {
		// Any return to idle consumes the gate, including failed turns.
		r.sawThinking = false
	}
	listen := r.listenDur
	r.mu.Unlock()

	if !record {
		return
	}

	turn := memory.Turn{
		SessionID:      r.session,
		Transcript:     s.Transcript,
		Response:       s.Response,
		Timestamp:      now,
		ListenDuration: listen,
	}
	if r.raw != nil {
		if rawText, ok := r.raw.rawFor(s.Transcript); ok {
			turn.RawTranscript = rawText
		}
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.persist(turn)
	}()
}

func (r *turnRecorder) persist(turn memory.Turn) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if r.embed != nil {
		vecs, err := r.embed.Embed(ctx, []string{turn.Transcript + "\n" + turn.Response})
		if err != nil {
			slog.Warn("turn embedding failed, recording without vector", "error", err)
		} else if len(vecs) == 1 {
			turn.Embedding = vecs[0]
		}
	}
	if err := r.store.Record(ctx, turn); err != nil {
		slog.Error("turn record failed", "session", turn.SessionID, "error", err)
	}
}

// Stop detaches from the controller and waits for in-flight writes to
// finish.
func (r *turnRecorder) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.unsub()
	r.wg.Wait()
}

// recordingCorrector wraps a corrector and remembers the raw → corrected
// pair of the most recent successful correction, so the turn record can keep
// the uncorrected transcript alongside the corrected one.
type recordingCorrector struct {
	inner conversation.Corrector

	mu        sync.Mutex
	raw       string
	corrected string
}

var _ conversation.Corrector = (*recordingCorrector)(nil)

func (c *recordingCorrector) Correct(ctx context.Context, text string) (string, error) {
	out, err := c.inner.Correct(ctx, text)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.raw, c.corrected = text, out
	c.mu.Unlock()
	return out, nil
}

// rawFor returns the uncorrected form of corrected, if it matches the last
// correction and the correction actually changed something.
func (c *recordingCorrector) rawFor(corrected string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if corrected != "" && corrected == c.corrected && c.raw != c.corrected {
		return c.raw, true
	}
	return "", false
}
