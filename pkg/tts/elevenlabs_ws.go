package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const defaultElevenLabsWSURL = "wss://api.elevenlabs.io/v1/text-to-speech"

// ElevenLabsWS synthesizes through the ElevenLabs stream-input WebSocket.
// Each Synthesize call opens one socket, streams the text, and assembles the
// audio chunks as they arrive, which cuts time-to-first-byte for long
// sentences compared to the HTTP endpoint.
type ElevenLabsWS struct {
	cfg    Config
	wsURL  string
	logger *slog.Logger
}

// NewElevenLabsWS creates a WebSocket-based ElevenLabs provider.
func NewElevenLabsWS(opts ...Option) (*ElevenLabsWS, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	wsURL := defaultElevenLabsWSURL
	if cfg.BaseURL != "" {
		wsURL = cfg.BaseURL
	}

	return &ElevenLabsWS{
		cfg:    cfg,
		wsURL:  wsURL,
		logger: slog.Default().With("component", "tts.elevenlabs_ws"),
	}, nil
}

type wsMessage struct {
	Text string `json:"text"`
}

type wsChunk struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Error   string `json:"error"`
}

// Synthesize streams one sentence through a fresh socket.
func (e *ElevenLabsWS) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	start := time.Now()

	url := fmt.Sprintf("%s/%s/stream-input?model_id=%s&output_format=%s",
		e.wsURL, e.cfg.VoiceID, e.cfg.ModelID, e.cfg.OutputFormat)
	headers := http.Header{}
	headers.Set("xi-api-key", e.cfg.APIKey)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil {
			return nil, WrapError(providerElevenLabs,
				fmt.Errorf("websocket dial (status %d): %w", resp.StatusCode, err))
		}
		return nil, WrapError(providerElevenLabs, fmt.Errorf("websocket dial: %w", err))
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	} else {
		conn.SetReadDeadline(time.Now().Add(e.cfg.Timeout))
		conn.SetWriteDeadline(time.Now().Add(e.cfg.Timeout))
	}

	// BOS, the text, then EOS.
	for _, msg := range []wsMessage{{Text: " "}, {Text: text + " "}, {Text: ""}} {
		if err := conn.WriteJSON(msg); err != nil {
			return nil, WrapError(providerElevenLabs, fmt.Errorf("send text: %w", err))
		}
	}

	var audio []byte
	var firstByteMs int64
	for {
		var chunk wsChunk
		if err := conn.ReadJSON(&chunk); err != nil {
			return nil, WrapError(providerElevenLabs, fmt.Errorf("read chunk: %w", err))
		}
		if chunk.Error != "" {
			return nil, WrapError(providerElevenLabs, fmt.Errorf("server error: %s", chunk.Error))
		}
		if chunk.Audio != "" {
			data, err := base64.StdEncoding.DecodeString(chunk.Audio)
			if err != nil {
				return nil, WrapError(providerElevenLabs, fmt.Errorf("decode audio: %w", err))
			}
			if audio == nil {
				firstByteMs = time.Since(start).Milliseconds()
			}
			audio = append(audio, data...)
		}
		if chunk.IsFinal {
			break
		}
	}

	e.logger.Debug("stream synthesis complete",
		"chars", len(text),
		"bytes", len(audio),
		"first_byte_ms", firstByteMs,
	)

	return &AudioResult{
		Audio: audio,
		Format: AudioFormat{
			Encoding:   e.cfg.OutputFormat,
			SampleRate: SampleRateFromEncoding(e.cfg.OutputFormat),
			Channels:   1,
		},
		CharCount: len(text),
		LatencyMs: firstByteMs,
	}, nil
}

// Health dials the socket endpoint and closes it immediately.
func (e *ElevenLabsWS) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/%s/stream-input?model_id=%s",
		e.wsURL, e.cfg.VoiceID, e.cfg.ModelID)
	headers := http.Header{}
	headers.Set("xi-api-key", e.cfg.APIKey)

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		return WrapError(providerElevenLabs, err)
	}
	return conn.Close()
}

// Close releases resources; sockets are per-call.
func (e *ElevenLabsWS) Close() error {
	return nil
}

// Verify ElevenLabsWS implements Provider at compile time.
var _ Provider = (*ElevenLabsWS)(nil)
