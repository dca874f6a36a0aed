// Package vad implements energy-based voice activity detection with
// hysteresis.
//
// The [Detector] classifies streaming audio frames as speech or silence using
// short-term mean-squared energy and two thresholds. The gap between the
// speech threshold and the (lower) silence threshold is a dead zone in which
// no state change occurs, which prevents chattering at the boundary. Two
// timers complete the hysteresis: a speech segment must exceed a minimum
// duration before its end is reported, and silence must persist beyond a
// maximum duration before the segment is considered over.
//
// Detection is a pure function of the input frames — Process never fails and
// allocates nothing, making it safe to run on the capture callback without
// falling behind real-time input.
package vad

import (
	"sync"
	"time"
)

// Default detection parameters. The energy thresholds are empirically chosen
// for normalized [-1, 1] samples and must remain configurable per deployment:
// room noise varies.
const (
	DefaultEnergyThreshold    = 0.001
	DefaultSilenceThreshold   = 0.0005
	DefaultMinSpeechDuration  = 500 * time.Millisecond
	DefaultMaxSilenceDuration = 2 * time.Second
)

// Config holds the tunable parameters for a [Detector].
type Config struct {
	// EnergyThreshold is the mean-squared energy above which a frame counts
	// as speech. Default: 0.001.
	EnergyThreshold float64

	// SilenceThreshold is the mean-squared energy below which a frame counts
	// as silence. Must be <= EnergyThreshold; frames between the two
	// thresholds cause no state change. Default: 0.0005.
	SilenceThreshold float64

	// MinSpeechDuration is the minimum speech-segment length required before
	// a speech end is reported. Shorter blips end silently. Default: 500 ms.
	MinSpeechDuration time.Duration

	// MaxSilenceDuration is how long silence must persist before an active
	// speech segment is considered ended. Default: 2 s.
	MaxSilenceDuration time.Duration
}

// withDefaults returns cfg with zero-value fields replaced by the package
// defaults.
func (c Config) withDefaults() Config {
	if c.EnergyThreshold <= 0 {
		c.EnergyThreshold = DefaultEnergyThreshold
	}
	if c.SilenceThreshold <= 0 {
		c.SilenceThreshold = DefaultSilenceThreshold
	}
	if c.MinSpeechDuration <= 0 {
		c.MinSpeechDuration = DefaultMinSpeechDuration
	}
	if c.MaxSilenceDuration <= 0 {
		c.MaxSilenceDuration = DefaultMaxSilenceDuration
	}
	return c
}

// Result is the classification outcome for a single frame.
type Result struct {
	// Speaking reports whether the detector considers a speech segment active
	// after processing the frame.
	Speaking bool

	// SpeechStart is true on the exact frame where a new segment began.
	SpeechStart bool

	// SpeechEnd is true on the frame where a segment longer than
	// MinSpeechDuration ended after MaxSilenceDuration of silence.
	SpeechEnd bool
}

// Detector is a stateful per-stream voice activity detector.
//
// Process is intended for a single goroutine (the capture callback);
// SetThresholds and Reset may be called concurrently from others.
type Detector struct {
	mu  sync.Mutex
	cfg Config

	speaking       bool
	speechStart    time.Duration
	silenceStart   time.Duration
	hasSilenceMark bool
}

// New creates a Detector. Zero-value config fields fall back to the package
// defaults.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg.withDefaults()}
}

// Process classifies one frame captured at timestamp ts (relative to stream
// start) and returns the resulting segment events.
func (d *Detector) Process(samples []float32, ts time.Duration) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	energy := meanSquaredEnergy(samples)
	res := Result{Speaking: d.speaking}

	switch {
	case energy > d.cfg.EnergyThreshold:
		if !d.speaking {
			d.speaking = true
			d.speechStart = ts
			res.SpeechStart = true
		}
		d.hasSilenceMark = false
		res.Speaking = true

	case energy < d.cfg.SilenceThreshold && d.speaking:
		if !d.hasSilenceMark {
			d.silenceStart = ts
			d.hasSilenceMark = true
			break
		}
		if ts-d.silenceStart > d.cfg.MaxSilenceDuration {
			if ts-d.speechStart > d.cfg.MinSpeechDuration {
				res.SpeechEnd = true
			}
			// The segment is over either way; short blips end silently.
			d.speaking = false
			d.hasSilenceMark = false
			res.Speaking = false
		}

		// Energy in the dead zone between the thresholds: no state change.
	}

	return res
}

// Reset clears the speaking flag and both timers. Call it at the start of
// every new listening turn so stale state never carries over.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speaking = false
	d.hasSilenceMark = false
	d.speechStart = 0
	d.silenceStart = 0
}

// SetThresholds reconfigures the energy thresholds live. The change takes
// effect on the next processed frame.
func (d *Detector) SetThresholds(energy, silence float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if energy > 0 {
		d.cfg.EnergyThreshold = energy
	}
	if silence > 0 {
		d.cfg.SilenceThreshold = silence
	}
}

// SetTimings reconfigures the segment duration bounds live. Non-positive
// values leave the current setting unchanged.
func (d *Detector) SetTimings(minSpeech, maxSilence time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if minSpeech > 0 {
		d.cfg.MinSpeechDuration = minSpeech
	}
	if maxSilence > 0 {
		d.cfg.MaxSilenceDuration = maxSilence
	}
}

// Thresholds returns the current energy and silence thresholds.
func (d *Detector) Thresholds() (energy, silence float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.EnergyThreshold, d.cfg.SilenceThreshold
}

// Speaking reports whether a speech segment is currently active.
func (d *Detector) Speaking() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.speaking
}

// meanSquaredEnergy computes the average of the squared samples. An empty
// frame has zero energy.
func meanSquaredEnergy(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return sum / float64(len(samples))
}
