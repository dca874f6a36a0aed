// Package wscapture implements [audio.Source] over a WebSocket connection to
// a capture gateway (typically a browser or embedded device streaming
// microphone audio).
//
// The wire protocol is deliberately small:
//
//   - binary messages from the gateway carry 20 ms Opus packets of 48 kHz
//     mono microphone audio; the client decodes them with gopus and
//     resamples to the pipeline rate before delivering frames;
//   - binary messages to the gateway carry 20 ms Opus packets of synthesized
//     speech for playback, so the same connection serves as the [tts.Sink];
//   - text messages are JSON control frames: {"type":"start"},
//     {"type":"stop"} from the client, {"type":"flushed"} from the gateway
//     acknowledging that all buffered capture audio has been delivered.
//
// A Client is reusable across listening turns and satisfies
// [audio.Reinitializer], so the conversation controller can tear down and
// redial the connection between failed capture starts.
package wscapture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"layeh.com/gopus"

	"github.com/voxloop/voxloop/pkg/audio"
	"github.com/voxloop/voxloop/pkg/provider/tts"
)

// Gateway audio is 48 kHz mono Opus at 20 ms frame size.
const (
	opusSampleRate  = 48000
	opusChannels    = 1
	opusFrameSizeMs = 20
	// opusFrameSize is the number of samples per 20 ms frame.
	opusFrameSize = opusSampleRate * opusFrameSizeMs / 1000 // 960
)

var (
	_ audio.Source        = (*Client)(nil)
	_ audio.Reinitializer = (*Client)(nil)
	_ tts.Sink            = (*Client)(nil)
)

// controlMessage is the JSON text frame exchanged with the gateway.
type controlMessage struct {
	Type string `json:"type"`
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithDialTimeout bounds the WebSocket dial. Default: 10 s.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) { c.dialTimeout = d }
}

// Client is a WebSocket capture connection. It implements [audio.Source]
// for microphone input, [audio.Reinitializer] for connection recovery, and
// [tts.Sink] for speech playback on the same connection.
type Client struct {
	url         string
	dialTimeout time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	capturing bool
	cb        audio.FrameCallback
	recorded  []float32
	elapsed   time.Duration
	readDone  chan struct{}

	encoder *gopus.Encoder
}

// New creates a Client for the gateway at url (e.g., "ws://host:9090/audio").
// No connection is established until the first Start or Play call.
func New(url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, errors.New("wscapture: url must not be empty")
	}
	c := &Client{
		url:         url,
		dialTimeout: 10 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ensureConnLocked dials the gateway if no connection is open.
// Must be called with c.mu held.
func (c *Client) ensureConnLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	dctx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("wscapture: dial %s: %w", c.url, err)
	}
	c.conn = conn
	return nil
}

// Start implements [audio.Source]. It connects to the gateway if needed,
// sends the start control frame, and begins delivering decoded frames to cb.
func (c *Client) Start(ctx context.Context, cb audio.FrameCallback) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capturing {
		return errors.New("wscapture: already capturing")
	}
	if err := c.ensureConnLocked(ctx); err != nil {
		return err
	}
	if err := c.writeControlLocked(ctx, "start"); err != nil {
		// A dead connection surfaces here; drop it so Reinitialize or the
		// next Start dials fresh.
		c.closeConnLocked()
		return fmt.Errorf("wscapture: start capture: %w", err)
	}

	c.capturing = true
	c.cb = cb
	c.recorded = nil
	c.elapsed = 0
	c.readDone = make(chan struct{})
	go c.readLoop(c.conn, c.readDone)
	return nil
}

// Stop implements [audio.Source]. It tells the gateway to stop capturing,
// waits for the read loop to drain, and returns everything recorded since
// Start. When not capturing it returns nil samples.
func (c *Client) Stop(ctx context.Context) ([]float32, error) {
	c.mu.Lock()
	if !c.capturing {
		c.mu.Unlock()
		return nil, nil
	}
	conn := c.conn
	done := c.readDone
	c.capturing = false
	err := c.writeControlLocked(ctx, "stop")
	c.mu.Unlock()

	if err != nil {
		c.mu.Lock()
		c.closeConnLocked()
		recorded := c.takeRecordedLocked()
		c.mu.Unlock()
		return recorded, fmt.Errorf("wscapture: stop capture: %w", err)
	}

	// The gateway answers "stop" with a flushed acknowledgement after its
	// last audio packet; the read loop exits on it.
	select {
	case <-done:
	case <-ctx.Done():
		// Force the read loop out.
		conn.Close(websocket.StatusNormalClosure, "stop timed out")
		<-done
	}

	c.mu.Lock()
	recorded := c.takeRecordedLocked()
	c.mu.Unlock()
	return recorded, nil
}

// Reinitialize implements [audio.Reinitializer]. It drops the current
// connection and dials a fresh one.
func (c *Client) Reinitialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeConnLocked()
	c.capturing = false
	return c.ensureConnLocked(ctx)
}

// Play implements [tts.Sink]. It resamples the synthesized audio to the
// gateway rate, encodes it as 20 ms Opus packets, and paces delivery in real
// time so cancellation cuts playback off promptly.
func (c *Client) Play(ctx context.Context, samples []float32, sampleRate int) error {
	if len(samples) == 0 {
		return nil
	}

	c.mu.Lock()
	if err := c.ensureConnLocked(ctx); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.encoder == nil {
		enc, err := gopus.NewEncoder(opusSampleRate, opusChannels, gopus.Audio)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("wscapture: create opus encoder: %w", err)
		}
		c.encoder = enc
	}
	conn := c.conn
	enc := c.encoder
	c.mu.Unlock()

	if sampleRate != opusSampleRate {
		samples = audio.ResampleMono(samples, sampleRate, opusSampleRate)
	}

	ticker := time.NewTicker(opusFrameSizeMs * time.Millisecond)
	defer ticker.Stop()

	for off := 0; off < len(samples); off += opusFrameSize {
		end := off + opusFrameSize
		frame := make([]float32, opusFrameSize)
		if end > len(samples) {
			copy(frame, samples[off:])
		} else {
			copy(frame, samples[off:end])
		}

		packet, err := enc.Encode(pcm16(frame), opusFrameSize, opusFrameSize*2)
		if err != nil {
			return fmt.Errorf("wscapture: opus encode: %w", err)
		}
		if err := conn.Write(ctx, websocket.MessageBinary, packet); err != nil {
			return fmt.Errorf("wscapture: write playback: %w", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return fmt.Errorf("wscapture: playback interrupted: %w", ctx.Err())
		}
	}
	return nil
}

// Close shuts the connection down. The client can be restarted afterwards;
// the next Start dials again.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeConnLocked()
	c.capturing = false
	return nil
}

// readLoop decodes incoming packets into frames until the gateway
// acknowledges a stop, the connection drops, or capture is aborted.
func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	dec, err := gopus.NewDecoder(opusSampleRate, opusChannels)
	if err != nil {
		return
	}

	for {
		typ, msg, err := conn.Read(context.Background())
		if err != nil {
			return
		}

		if typ == websocket.MessageText {
			var ctl controlMessage
			if json.Unmarshal(msg, &ctl) == nil && ctl.Type == "flushed" {
				return
			}
			continue
		}

		pcm, err := dec.Decode(msg, opusFrameSize, false)
		if err != nil {
			continue
		}
		samples := audio.ResampleMono(audio.Int16ToFloat32(pcm), opusSampleRate, audio.DefaultSampleRate)

		c.mu.Lock()
		if !c.capturing || c.conn != conn {
			c.mu.Unlock()
			return
		}
		frame := audio.Frame{
			Samples:    samples,
			SampleRate: audio.DefaultSampleRate,
			Timestamp:  c.elapsed,
		}
		c.elapsed += frame.Duration()
		c.recorded = append(c.recorded, samples...)
		cb := c.cb
		c.mu.Unlock()

		if cb != nil {
			cb(frame)
		}
	}
}

// writeControlLocked sends a JSON control frame. Must be called with c.mu
// held and a live connection.
func (c *Client) writeControlLocked(ctx context.Context, msgType string) error {
	payload, err := json.Marshal(controlMessage{Type: msgType})
	if err != nil {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, payload)
}

// closeConnLocked closes and clears the connection. Must be called with
// c.mu held.
func (c *Client) closeConnLocked() {
	if c.conn != nil {
		c.conn.Close(websocket.StatusNormalClosure, "closing")
		c.conn = nil
	}
}

// takeRecordedLocked returns and resets the recorded sample buffer.
// Must be called with c.mu held.
func (c *Client) takeRecordedLocked() []float32 {
	recorded := c.recorded
	c.recorded = nil
	return recorded
}

// pcm16 converts normalized samples to int16 PCM for the opus encoder.
func pcm16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, v := range samples {
		out[i] = audio.Float32ToInt16(v)
	}
	return out
}
