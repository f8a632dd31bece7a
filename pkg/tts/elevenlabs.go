package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aria-voice/go-aria/internal/httpc"
)

const (
	providerElevenLabs   = "elevenlabs"
	defaultElevenLabsURL = "https://api.elevenlabs.io/v1"
)

// ElevenLabs synthesizes speech through the ElevenLabs HTTP API.
type ElevenLabs struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// NewElevenLabs creates an ElevenLabs provider.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultElevenLabsURL
	}

	return &ElevenLabs{
		cfg:    cfg,
		client: httpc.NewClient(cfg.Timeout),
		logger: slog.Default().With("component", "tts.elevenlabs"),
	}, nil
}

type synthesisRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

// Synthesize converts text to audio in the configured output format.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	start := time.Now()

	body, err := json.Marshal(synthesisRequest{Text: text, ModelID: e.cfg.ModelID})
	if err != nil {
		return nil, WrapError(providerElevenLabs, err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s",
		e.cfg.BaseURL, e.cfg.VoiceID, e.cfg.OutputFormat)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("synthesis request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, e.parseError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("read audio: %w", err))
	}

	latency := time.Since(start)
	e.logger.Debug("synthesis complete",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", latency.Milliseconds(),
	)

	return &AudioResult{
		Audio: audio,
		Format: AudioFormat{
			Encoding:   e.cfg.OutputFormat,
			SampleRate: SampleRateFromEncoding(e.cfg.OutputFormat),
			Channels:   1,
		},
		CharCount: len(text),
		LatencyMs: latency.Milliseconds(),
	}, nil
}

// Health verifies the API key against the voices endpoint.
func (e *ElevenLabs) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", e.cfg.BaseURL+"/voices", nil)
	if err != nil {
		return WrapError(providerElevenLabs, err)
	}
	req.Header.Set("xi-api-key", e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return WrapError(providerElevenLabs, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return e.parseError(resp)
	}
	return nil
}

// Close releases resources. The shared HTTP client needs no teardown.
func (e *ElevenLabs) Close() error {
	return nil
}

func (e *ElevenLabs) parseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var parsed struct {
		Detail struct {
			Message string `json:"message"`
		} `json:"detail"`
	}
	msg := string(data)
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Detail.Message != "" {
		msg = parsed.Detail.Message
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    msg,
		Provider:   providerElevenLabs,
	}
}

// Verify ElevenLabs implements Provider at compile time.
var _ Provider = (*ElevenLabs)(nil)
