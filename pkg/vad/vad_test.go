package vad

import (
	"testing"
	"time"
)

// frame returns n samples of constant amplitude amp.
func frame(amp float32, n int) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = amp
	}
	return s
}

var (
	speech   = frame(0.1, 160)   // energy 0.01, well above the speech threshold
	silence  = frame(0, 160)     // energy 0
	deadZone = frame(0.028, 160) // energy ~0.00078, between the two thresholds
)

func testConfig() Config {
	return Config{
		MinSpeechDuration:  100 * time.Millisecond,
		MaxSilenceDuration: 200 * time.Millisecond,
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	d := New(Config{})
	energy, sil := d.Thresholds()
	if energy != DefaultEnergyThreshold {
		t.Errorf("energy threshold = %v, want %v", energy, DefaultEnergyThreshold)
	}
	if sil != DefaultSilenceThreshold {
		t.Errorf("silence threshold = %v, want %v", sil, DefaultSilenceThreshold)
	}
}

func TestSpeechStartReportedOnce(t *testing.T) {
	d := New(testConfig())

	res := d.Process(speech, 0)
	if !res.SpeechStart || !res.Speaking {
		t.Fatalf("first speech frame: %+v, want SpeechStart and Speaking", res)
	}
	res = d.Process(speech, 10*time.Millisecond)
	if res.SpeechStart {
		t.Errorf("second speech frame reported SpeechStart again")
	}
	if !res.Speaking {
		t.Errorf("second speech frame: Speaking = false")
	}
}

func TestSilenceBeforeAnySpeechIsIgnored(t *testing.T) {
	d := New(testConfig())
	for ts := time.Duration(0); ts < time.Second; ts += 50 * time.Millisecond {
		res := d.Process(silence, ts)
		if res.Speaking || res.SpeechStart || res.SpeechEnd {
			t.Fatalf("silence at %v produced events: %+v", ts, res)
		}
	}
}

func TestSpeechEndAfterSustainedSilence(t *testing.T) {
	d := New(testConfig())

	d.Process(speech, 0)
	d.Process(speech, 150*time.Millisecond) // segment now exceeds MinSpeechDuration

	// First silence frame only marks where silence began.
	res := d.Process(silence, 200*time.Millisecond)
	if res.SpeechEnd {
		t.Fatal("SpeechEnd on the first silent frame")
	}
	if !res.Speaking {
		t.Fatal("Speaking dropped before MaxSilenceDuration elapsed")
	}

	// Silence persists past MaxSilenceDuration.
	res = d.Process(silence, 450*time.Millisecond)
	if !res.SpeechEnd {
		t.Fatal("no SpeechEnd after sustained silence")
	}
	if res.Speaking {
		t.Error("Speaking still true after the segment ended")
	}

	// The event fires exactly once.
	res = d.Process(silence, 700*time.Millisecond)
	if res.SpeechEnd {
		t.Error("SpeechEnd reported twice for one segment")
	}
}

func TestShortBlipEndsWithoutEvent(t *testing.T) {
	d := New(testConfig())

	d.Process(speech, 0) // only a 50 ms blip, below MinSpeechDuration
	d.Process(silence, 50*time.Millisecond)
	res := d.Process(silence, 300*time.Millisecond)

	if res.SpeechEnd {
		t.Error("SpeechEnd for a segment shorter than MinSpeechDuration")
	}
	if res.Speaking || d.Speaking() {
		t.Error("Speaking still true after a blip ended")
	}
}

func TestResumedSpeechClearsSilenceMark(t *testing.T) {
	d := New(testConfig())

	d.Process(speech, 0)
	d.Process(silence, 150*time.Millisecond) // silence mark set
	d.Process(speech, 250*time.Millisecond)  // speech resumes, mark cleared

	// Silence restarts; the old mark at 150 ms must not count.
	res := d.Process(silence, 300*time.Millisecond)
	if res.SpeechEnd {
		t.Fatal("SpeechEnd measured from a stale silence mark")
	}
	res = d.Process(silence, 550*time.Millisecond)
	if !res.SpeechEnd {
		t.Fatal("no SpeechEnd after silence persisted from the new mark")
	}
}

func TestDeadZoneCausesNoStateChange(t *testing.T) {
	d := New(testConfig())

	res := d.Process(deadZone, 0)
	if res.Speaking || res.SpeechStart {
		t.Errorf("dead-zone frame while idle produced events: %+v", res)
	}

	d.Process(speech, 50*time.Millisecond)
	res = d.Process(deadZone, 500*time.Millisecond)
	if !res.Speaking || res.SpeechEnd {
		t.Errorf("dead-zone frame while speaking produced events: %+v", res)
	}
	if !d.Speaking() {
		t.Error("Speaking dropped in the dead zone")
	}
}

func TestResetClearsSegmentState(t *testing.T) {
	d := New(testConfig())

	d.Process(speech, 0)
	d.Process(silence, 150*time.Millisecond)
	d.Reset()

	if d.Speaking() {
		t.Fatal("Speaking still true after Reset")
	}
	res := d.Process(speech, time.Second)
	if !res.SpeechStart {
		t.Error("no SpeechStart for the first speech frame after Reset")
	}
}

func TestSetThresholdsTakesEffectImmediately(t *testing.T) {
	d := New(testConfig())

	// Raise the speech threshold above the test signal's energy.
	d.SetThresholds(0.05, 0.02)
	res := d.Process(speech, 0)
	if res.Speaking {
		t.Error("frame classified as speech after the threshold was raised above it")
	}

	energy, sil := d.Thresholds()
	if energy != 0.05 || sil != 0.02 {
		t.Errorf("Thresholds() = %v, %v, want 0.05, 0.02", energy, sil)
	}

	// Non-positive values leave the current thresholds untouched.
	d.SetThresholds(0, -1)
	energy, sil = d.Thresholds()
	if energy != 0.05 || sil != 0.02 {
		t.Errorf("Thresholds() after no-op set = %v, %v, want 0.05, 0.02", energy, sil)
	}
}

func TestEmptyFrameIsSilence(t *testing.T) {
	d := New(testConfig())
	d.Process(speech, 0)
	res := d.Process(nil, 150*time.Millisecond)
	if !res.Speaking {
		t.Error("empty frame ended the segment immediately")
	}
	res = d.Process(nil, 400*time.Millisecond)
	if !res.SpeechEnd {
		t.Error("empty frames did not count as sustained silence")
	}
}

func TestSetTimingsChangesSegmentBounds(t *testing.T) {
	d := New(testConfig())
	d.SetTimings(50*time.Millisecond, 100*time.Millisecond)

	// A 60 ms segment now exceeds the minimum, and 110 ms of silence now
	// exceeds the maximum.
	d.Process(speech, 0)
	d.Process(speech, 60*time.Millisecond)
	d.Process(silence, 70*time.Millisecond)
	res := d.Process(silence, 185*time.Millisecond)
	if !res.SpeechEnd {
		t.Error("expected SpeechEnd under the reconfigured timings")
	}

	// Non-positive values leave the current timings untouched.
	d.Reset()
	d.SetTimings(0, -1)
	d.Process(speech, 0)
	d.Process(speech, 60*time.Millisecond)
	d.Process(silence, 70*time.Millisecond)
	res = d.Process(silence, 185*time.Millisecond)
	if !res.SpeechEnd {
		t.Error("no-op SetTimings changed the configured timings")
	}
}
