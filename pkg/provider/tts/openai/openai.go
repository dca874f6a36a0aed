// Package openai provides a [tts.Speaker] backed by the OpenAI speech
// synthesis API. Synthesis requests raw PCM (24 kHz, 16-bit mono) and hands
// the decoded samples to a [tts.Sink] for playback.
package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/voxloop/voxloop/pkg/audio"
	"github.com/voxloop/voxloop/pkg/provider/tts"
)

// pcmSampleRate is the sample rate of the OpenAI "pcm" response format.
const pcmSampleRate = 24000

// Defaults applied when New is called with empty model or voice.
const (
	DefaultModel = oai.SpeechModelTTS1
	DefaultVoice = "alloy"
)

// Ensure Speaker implements the tts.Speaker interface.
var _ tts.Speaker = (*Speaker)(nil)

// Speaker implements tts.Speaker using the OpenAI API.
type Speaker struct {
	client oai.Client
	model  string
	voice  string
	sink   tts.Sink

	mu     sync.Mutex
	cancel context.CancelFunc
}

// config holds optional configuration for the speaker.
type config struct {
	baseURL string
	voice   string
	timeout time.Duration
}

// Option is a functional option for Speaker.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithVoice sets the synthesis voice (e.g., "alloy", "nova", "shimmer").
func WithVoice(voice string) Option {
	return func(c *config) {
		c.voice = voice
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI Speaker that plays through sink.
// If model is empty, DefaultModel (tts-1) is used.
func New(apiKey string, model string, sink tts.Sink, opts ...Option) (*Speaker, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai tts: apiKey must not be empty")
	}
	if sink == nil {
		return nil, fmt.Errorf("openai tts: sink must not be nil")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{voice: DefaultVoice}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Speaker{
		client: oai.NewClient(reqOpts...),
		model:  model,
		voice:  cfg.voice,
		sink:   sink,
	}, nil
}

// Speak implements tts.Speaker. It blocks until the sink has finished
// playing the synthesized audio.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel = nil
		}
		s.mu.Unlock()
	}()

	resp, err := s.client.Audio.Speech.New(sctx, oai.AudioSpeechNewParams{
		Model:          s.model,
		Voice:          oai.AudioSpeechNewParamsVoice(s.voice),
		Input:          text,
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatPCM,
	})
	if err != nil {
		return fmt.Errorf("openai tts: synthesize: %w", err)
	}
	defer resp.Body.Close()

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("openai tts: read audio: %w", err)
	}

	samples := audio.BytesToFloat32(pcm)
	if err := s.sink.Play(sctx, samples, pcmSampleRate); err != nil {
		return fmt.Errorf("openai tts: playback: %w", err)
	}
	return nil
}

// Stop implements tts.Speaker. It cancels any in-flight synthesis or
// playback; when nothing is speaking it is a no-op.
func (s *Speaker) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}
