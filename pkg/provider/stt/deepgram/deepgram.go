// Package deepgram provides a [stt.Transcriber] backed by the Deepgram
// streaming WebSocket API. Each Transcribe call opens a short-lived session,
// streams the captured PCM, closes the stream, and concatenates the final
// transcripts Deepgram returns.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/coder/websocket"

	"github.com/voxloop/voxloop/pkg/audio"
	"github.com/voxloop/voxloop/pkg/provider/stt"
)

const (
	deepgramEndpoint = "wss://api.deepgram.com/v1/listen"
	defaultModel     = "nova-3"
	defaultLanguage  = "en"

	// chunkSamples is the number of samples written per websocket message.
	// 3200 samples is 200 ms at 16 kHz, small enough to keep Deepgram's
	// interim pipeline fed without fragmenting into tiny frames.
	chunkSamples = 3200
)

// Ensure Transcriber implements the stt.Transcriber interface.
var _ stt.Transcriber = (*Transcriber)(nil)

// Option is a functional option for configuring the Deepgram Transcriber.
type Option func(*Transcriber)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(t *Transcriber) {
		t.model = model
	}
}

// WithLanguage sets the BCP-47 language code for recognition (e.g., "en", "de-DE").
func WithLanguage(language string) Option {
	return func(t *Transcriber) {
		t.language = language
	}
}

// WithEndpoint overrides the Deepgram streaming endpoint URL. Intended for
// tests and on-prem deployments.
func WithEndpoint(endpoint string) Option {
	return func(t *Transcriber) {
		t.endpoint = endpoint
	}
}

// Transcriber implements stt.Transcriber backed by the Deepgram streaming API.
type Transcriber struct {
	apiKey   string
	model    string
	language string
	endpoint string
}

// New creates a new Deepgram Transcriber. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Transcriber, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	t := &Transcriber{
		apiKey:   apiKey,
		model:    defaultModel,
		language: defaultLanguage,
		endpoint: deepgramEndpoint,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Transcribe implements stt.Transcriber. Empty input short-circuits to an
// empty transcript without opening a connection.
func (t *Transcriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}

	wsURL, err := t.buildURL(sampleRate)
	if err != nil {
		return "", fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+t.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return "", fmt.Errorf("deepgram: dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "transcription complete")

	// Collect finals concurrently while audio is still being written;
	// Deepgram emits results as the stream progresses.
	type readResult struct {
		text string
		err  error
	}
	results := make(chan readResult, 1)
	go func() {
		text, err := readFinals(ctx, conn)
		results <- readResult{text: text, err: err}
	}()

	pcm := audio.Float32ToBytes(samples)
	chunkBytes := chunkSamples * 2
	for off := 0; off < len(pcm); off += chunkBytes {
		end := off + chunkBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		if err := conn.Write(ctx, websocket.MessageBinary, pcm[off:end]); err != nil {
			return "", fmt.Errorf("deepgram: write audio: %w", err)
		}
	}

	// CloseStream tells Deepgram to flush pending audio and finish the
	// results stream.
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`)); err != nil {
		return "", fmt.Errorf("deepgram: close stream: %w", err)
	}

	select {
	case r := <-results:
		if r.err != nil {
			return "", r.err
		}
		return r.text, nil
	case <-ctx.Done():
		return "", fmt.Errorf("deepgram: %w", ctx.Err())
	}
}

// buildURL constructs the Deepgram streaming endpoint URL.
func (t *Transcriber) buildURL(sampleRate int) (string, error) {
	u, err := url.Parse(t.endpoint)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("model", t.model)
	q.Set("language", t.language)
	q.Set("punctuate", "true")
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(sampleRate))
	q.Set("channels", "1")

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// deepgramResponse is the JSON structure returned by Deepgram for a Results
// event. Metadata events carry a different Type and are skipped.
type deepgramResponse struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// readFinals reads Results events until the server closes the connection and
// returns the concatenated final transcript segments.
func readFinals(ctx context.Context, conn *websocket.Conn) (string, error) {
	var parts []string
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			// Normal closure after CloseStream ends the results stream.
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
				return strings.Join(parts, " "), nil
			}
			if len(parts) > 0 {
				return strings.Join(parts, " "), nil
			}
			return "", fmt.Errorf("deepgram: read results: %w", err)
		}

		var resp deepgramResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			continue
		}
		if resp.Type != "Results" || !resp.IsFinal {
			continue
		}
		if len(resp.Channel.Alternatives) == 0 {
			continue
		}
		if text := strings.TrimSpace(resp.Channel.Alternatives[0].Transcript); text != "" {
			parts = append(parts, text)
		}
	}
}
