package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/voxloop/voxloop/internal/config"
	"github.com/voxloop/voxloop/internal/conversation"
)

// defaultSettleDelay is the pause between a finished turn and the next
// listening turn, giving the playback device time to drain.
const defaultSettleDelay = 300 * time.Millisecond

// autoLoop implements hands-free operation: whenever a turn finishes and the
// controller is back to idle, it opens the next listening turn after a short
// settle delay. A turn that failed stops the loop until the host intervenes,
// so a broken provider cannot spin it.
type autoLoop struct {
	ctrl *conversation.Controller

	mu        sync.Mutex
	cfg       config.AutoConfig
	ctx       context.Context
	timer     *time.Timer
	prevPhase conversation.Phase
	unsub     func()
	stopped   bool
}

func newAutoLoop(ctrl *conversation.Controller, cfg config.AutoConfig) *autoLoop {
	return &autoLoop{ctrl: ctrl, cfg: cfg}
}

// Start subscribes to the controller's state stream and, when the loop is
// enabled, opens the first listening turn immediately.
func (l *autoLoop) Start(ctx context.Context) {
	l.mu.Lock()
	l.ctx = ctx
	enabled := l.cfg.Enabled
	l.mu.Unlock()

	l.unsub = l.ctrl.Subscribe(l.observe)
	if enabled {
		l.kick(0)
	}
}

func (l *autoLoop) observe(s conversation.Snapshot) {
	l.mu.Lock()
	prev := l.prevPhase
	l.prevPhase = s.Phase
	enabled := l.cfg.Enabled && !l.stopped
	delay := l.settleDelayLocked()
	l.mu.Unlock()

	if !enabled || s.Phase != conversation.PhaseIdle || !s.Initialized || s.Err != nil {
		return
	}
	// A turn just wrapped up: empty, spoken to completion, or barged in.
	// Idle snapshots from other sources (history clears, subscribes) have a
	// different previous phase and are ignored.
	if prev == conversation.PhaseThinking || prev == conversation.PhaseSpeaking {
		l.kick(delay)
	}
}

// kick schedules the next listening turn. Losing the race against a host
// that starts listening first is fine; the busy error is swallowed.
func (l *autoLoop) kick(delay time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped || l.ctx == nil {
		return
	}
	if l.timer != nil {
		l.timer.Stop()
	}
	ctx := l.ctx
	l.timer = time.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			return
		}
		l.mu.Lock()
		ok := l.cfg.Enabled && !l.stopped
		l.mu.Unlock()
		if !ok {
			return
		}
		err := l.ctrl.StartListening(ctx)
		switch {
		case err == nil:
		case errors.Is(err, conversation.ErrBusy), errors.Is(err, conversation.ErrDisposed):
		default:
			slog.Warn("hands-free listen failed", "error", err)
		}
	})
}

// SetConfig applies a hot-reloaded auto configuration. Newly enabling the
// loop on an idle controller opens a turn right away.
func (l *autoLoop) SetConfig(cfg config.AutoConfig) {
	l.mu.Lock()
	was := l.cfg.Enabled
	l.cfg = cfg
	started := l.ctx != nil
	l.mu.Unlock()

	if cfg.Enabled && !was && started && l.ctrl.State().Phase == conversation.PhaseIdle {
		l.kick(0)
	}
}

// Stop disables the loop, cancels any pending turn, and detaches from the
// controller.
func (l *autoLoop) Stop() {
	l.mu.Lock()
	l.stopped = true
	t := l.timer
	l.mu.Unlock()

	if t != nil {
		t.Stop()
	}
	if l.unsub != nil {
		l.unsub()
	}
}

// Must be called with l.mu held.
func (l *autoLoop) settleDelayLocked() time.Duration {
	if l.cfg.SettleDelay > 0 {
		return l.cfg.SettleDelay
	}
	return defaultSettleDelay
}
