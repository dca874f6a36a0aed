package audio

import (
	"log/slog"
	"sync"
	"time"
)

// Default capacity limits for [Buffer]. MaxSamples corresponds to 30 seconds
// of audio at the pipeline sample rate.
const (
	DefaultMaxFrames  = 1000
	DefaultMaxSamples = 30 * DefaultSampleRate
)

// Buffer accumulates captured audio frames under a hard memory ceiling and
// exposes a contiguous view of the retained samples for transcription.
//
// The buffer enforces both a maximum frame count and a maximum total sample
// count. When either cap is exceeded the oldest frames are evicted first, so
// after any sequence of operations the invariants
//
//	SampleCount() <= maxSamples
//	FrameCount()  <= maxFrames
//
// hold. Frames are copied on append — the caller may reuse its sample slice
// immediately after [Buffer.Append] returns.
//
// All methods are safe for concurrent use: frames arrive on the capture
// callback goroutine while the controller reads and clears from its own.
type Buffer struct {
	mu         sync.Mutex
	frames     [][]float32
	total      int
	maxFrames  int
	maxSamples int
	sampleRate int
	truncated  bool
}

// NewBuffer creates a buffer that retains at most maxFrames frames and
// maxSamples total samples. Non-positive arguments fall back to
// [DefaultMaxFrames] and [DefaultMaxSamples].
func NewBuffer(maxFrames, maxSamples int) *Buffer {
	if maxFrames <= 0 {
		maxFrames = DefaultMaxFrames
	}
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Buffer{
		maxFrames:  maxFrames,
		maxSamples: maxSamples,
		sampleRate: DefaultSampleRate,
	}
}

// Append copies the frame's samples into the buffer and evicts the oldest
// frames while either capacity cap is exceeded. Zero-length frames are
// accepted and contribute nothing.
func (b *Buffer) Append(f Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if f.SampleRate > 0 {
		b.sampleRate = f.SampleRate
	}

	cp := make([]float32, len(f.Samples))
	copy(cp, f.Samples)
	b.frames = append(b.frames, cp)
	b.total += len(cp)

	b.evict()
}

// evict drops oldest-first frames until both caps are satisfied.
// Must be called with b.mu held.
//
// Survivors are copied to a fresh backing array so evicted frames do not pin
// memory for the lifetime of the session.
func (b *Buffer) evict() {
	start := 0
	for start < len(b.frames) &&
		(len(b.frames)-start > b.maxFrames || b.total > b.maxSamples) {
		b.total -= len(b.frames[start])
		start++
	}
	if start == 0 {
		return
	}
	fresh := make([][]float32, len(b.frames)-start)
	copy(fresh, b.frames[start:])
	b.frames = fresh
}

// Concatenated returns a newly allocated contiguous slice containing all
// retained samples in chronological order, oldest first.
//
// Eviction on append keeps the total within the cap, but the tail is checked
// defensively: should the total ever exceed maxSamples, only the most recent
// maxSamples samples are returned and the truncation is flagged as a
// diagnostic, not an error.
func (b *Buffer) Concatenated() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]float32, 0, b.total)
	for _, f := range b.frames {
		out = append(out, f...)
	}

	if len(out) > b.maxSamples {
		slog.Warn("audio buffer exceeded sample cap, truncating to most recent samples",
			"samples", len(out), "max", b.maxSamples)
		out = out[len(out)-b.maxSamples:]
		b.truncated = true
	}
	return out
}

// Clear releases all retained frames. It is idempotent and safe to call
// repeatedly.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = nil
	b.total = 0
	b.truncated = false
}

// Duration returns the total retained audio duration.
func (b *Buffer) Duration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.total) / float64(b.sampleRate) * float64(time.Second))
}

// FrameCount returns the number of retained frames.
func (b *Buffer) FrameCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

// SampleCount returns the number of retained samples across all frames.
func (b *Buffer) SampleCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// Truncated reports whether a defensive tail truncation occurred on a prior
// [Buffer.Concatenated] call. The flag resets on [Buffer.Clear].
func (b *Buffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
