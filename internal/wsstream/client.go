// Package wsstream implements the websocket_stream_audio PipelineConfiguration
// flag (spec.md §4.9/§6.5): a bot-side WebSocket client that streams mixed
// meeting audio out and receives audio to play back in, against the
// wss://-only endpoint configured in a bot's websocket_settings. Grounded on
// the teacher's `internal/agent/executor/llm/internal/websocket` WebSocket
// executor (dial, typed send/receive envelope, write-mutex-guarded send,
// read-loop-with-ping/pong), the closest teacher analogue to a bidirectional
// streaming client.
package wsstream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/meetbot/core/internal/logging"
)

const (
	handshakeTimeout = 30 * time.Second
	maxMessageBytes  = 10 * 1024 * 1024
)

// MessageType identifies the envelope's payload shape, mirroring the
// teacher's WSMessageType pattern.
type MessageType string

const (
	// TypeMixedAudio carries outbound mixed meeting audio (bot -> endpoint).
	TypeMixedAudio MessageType = "realtime_audio.mixed"
	// TypeBotOutputAudio carries inbound audio for the bot to play back
	// (endpoint -> bot).
	TypeBotOutputAudio MessageType = "realtime_audio.bot_output"
)

// AudioData is the payload shape for both audio message types: base64-coded
// PCM at a fixed sample rate, matching the audio.sample_rate enum
// {8000,16000,24000} from the websocket_settings schema.
type AudioData struct {
	Chunk      string `json:"chunk"`
	SampleRate int    `json:"sample_rate"`
}

// Envelope is the JSON shape sent and received over the socket.
type Envelope struct {
	Trigger string          `json:"trigger"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// AudioReceivedFunc is invoked with decoded PCM bytes for each inbound
// TypeBotOutputAudio message.
type AudioReceivedFunc func(pcm []byte, sampleRate int)

// Client streams mixed audio to a wss:// endpoint and delivers audio sent
// back by that endpoint to AudioReceivedFunc.
type Client struct {
	url        string
	logger     logging.Logger
	onAudio    AudioReceivedFunc
	sampleRate int

	writeMu sync.Mutex
	conn    *websocket.Conn
	done    chan struct{}
}

// New builds a Client targeting url, sending at sampleRate and invoking
// onAudio for inbound audio. The url is dialed as given; its scheme is not
// checked here.
func New(url string, sampleRate int, onAudio AudioReceivedFunc, logger logging.Logger) *Client {
	return &Client{url: url, sampleRate: sampleRate, onAudio: onAudio, logger: logger, done: make(chan struct{})}
}

// Connect dials the endpoint and starts the read loop in a background
// goroutine.
func (c *Client) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, http.Header{})
	if err != nil {
		return fmt.Errorf("wsstream: dial: %w", err)
	}
	conn.SetReadLimit(maxMessageBytes)
	c.conn = conn

	go c.readLoop(ctx)
	return nil
}

// SendMixedAudio sends one chunk of mixed PCM audio, base64-encoded per the
// wire envelope.
func (c *Client) SendMixedAudio(pcm []byte) error {
	return c.send(Envelope{
		Trigger: string(TypeMixedAudio),
	}, AudioData{Chunk: base64.StdEncoding.EncodeToString(pcm), SampleRate: c.sampleRate})
}

func (c *Client) send(env Envelope, data AudioData) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("wsstream: not connected")
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("wsstream: marshal data: %w", err)
	}
	env.Data = raw

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("wsstream: marshal envelope: %w", err)
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("wsstream: write: %w", err)
	}
	return nil
}

func (c *Client) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Infow("wsstream: connection closed normally")
				return
			}
			c.logger.Infow("wsstream: read error", "error", err)
			return
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.logger.Infow("wsstream: malformed envelope", "error", err)
			continue
		}

		if env.Trigger != string(TypeBotOutputAudio) {
			continue
		}

		var data AudioData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			c.logger.Infow("wsstream: malformed audio data", "error", err)
			continue
		}

		pcm, err := base64.StdEncoding.DecodeString(data.Chunk)
		if err != nil {
			c.logger.Infow("wsstream: malformed base64 chunk", "error", err)
			continue
		}

		if c.onAudio != nil {
			c.onAudio(pcm, data.SampleRate)
		}
	}
}

// Close gracefully closes the connection.
func (c *Client) Close() error {
	close(c.done)
	if c.conn == nil {
		return nil
	}

	c.writeMu.Lock()
	writeErr := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	if writeErr != nil {
		c.logger.Infow("wsstream: error sending close message", "error", writeErr)
	}

	return c.conn.Close()
}
