// Package observe provides observability primitives for voxloop:
// OpenTelemetry metrics, tracing, and the Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. Tests should use [NewMetrics]
// with a private [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxloop metrics.
const meterName = "github.com/voxloop/voxloop"

// Attribute keys used with the instruments below.
var (
	// AttrStage labels a pipeline stage: capture, transcription, generation,
	// speech.
	AttrStage = attribute.Key("stage")

	// AttrStatus labels an outcome: ok, error, empty, interrupted.
	AttrStatus = attribute.Key("status")
)

// Metrics holds all OpenTelemetry metric instruments for the voice pipeline.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// CaptureDuration tracks how long each listening phase ran.
	CaptureDuration metric.Float64Histogram

	// STTDuration tracks transcription latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks response-generation latency.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks synthesis-plus-playback latency.
	TTSDuration metric.Float64Histogram

	// --- Counters ---

	// Turns counts completed turns. Use with [AttrStatus].
	Turns metric.Int64Counter

	// StageErrors counts collaborator failures. Use with [AttrStage].
	StageErrors metric.Int64Counter

	// CaptureRetries counts capture start attempts beyond the first.
	CaptureRetries metric.Int64Counter

	// Interruptions counts barge-in events (playback cancelled by the user).
	Interruptions metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks live conversation controllers.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.CaptureDuration, err = m.Float64Histogram("voxloop.capture.duration",
		metric.WithDescription("Duration of each listening phase."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.STTDuration, err = m.Float64Histogram("voxloop.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("voxloop.llm.duration",
		metric.WithDescription("Latency of response generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("voxloop.tts.duration",
		metric.WithDescription("Latency of speech synthesis and playback."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Turns, err = m.Int64Counter("voxloop.turns",
		metric.WithDescription("Completed conversation turns by status."),
	); err != nil {
		return nil, err
	}
	if met.StageErrors, err = m.Int64Counter("voxloop.stage.errors",
		metric.WithDescription("Collaborator failures by pipeline stage."),
	); err != nil {
		return nil, err
	}
	if met.CaptureRetries, err = m.Int64Counter("voxloop.capture.retries",
		metric.WithDescription("Capture start attempts beyond the first."),
	); err != nil {
		return nil, err
	}
	if met.Interruptions, err = m.Int64Counter("voxloop.interruptions",
		metric.WithDescription("Barge-in events cancelling active playback."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("voxloop.sessions.active",
		metric.WithDescription("Live conversation controllers."),
	); err != nil {
		return nil, err
	}

	return met, nil
}
