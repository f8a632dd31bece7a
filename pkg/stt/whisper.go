package stt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/aria-voice/go-aria/internal/httpc"
)

const (
	providerWhisper   = "whisper"
	defaultWhisperURL = "https://api.openai.com/v1"
)

// Whisper transcribes audio through an OpenAI-compatible
// /audio/transcriptions endpoint.
type Whisper struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// NewWhisper creates a Whisper provider.
func NewWhisper(opts ...Option) (*Whisper, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultWhisperURL
	}

	return &Whisper{
		cfg:    cfg,
		client: httpc.NewClient(cfg.Timeout),
		logger: slog.Default().With("component", "stt.whisper"),
	}, nil
}

// Transcribe sends one utterance and returns the transcript.
func (w *Whisper) Transcribe(ctx context.Context, audio []byte) (*Result, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	start := time.Now()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return nil, WrapError(providerWhisper, err)
	}
	if _, err := part.Write(wavHeader(len(audio), w.cfg.SampleRate)); err != nil {
		return nil, WrapError(providerWhisper, err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, WrapError(providerWhisper, err)
	}
	mw.WriteField("model", w.cfg.Model)
	if w.cfg.Language != "" {
		mw.WriteField("language", w.cfg.Language)
	}
	if err := mw.Close(); err != nil {
		return nil, WrapError(providerWhisper, err)
	}

	url := w.cfg.BaseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, &body)
	if err != nil {
		return nil, WrapError(providerWhisper, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+w.cfg.APIKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, WrapError(providerWhisper, fmt.Errorf("transcribe request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, w.parseError(resp)
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, WrapError(providerWhisper, fmt.Errorf("decode response: %w", err))
	}

	latency := time.Since(start)
	w.logger.Debug("transcription complete",
		"bytes", len(audio),
		"chars", len(parsed.Text),
		"latency_ms", latency.Milliseconds(),
	)

	return &Result{
		Text:      parsed.Text,
		Duration:  pcmDuration(len(audio), w.cfg.SampleRate),
		LatencyMs: latency.Milliseconds(),
	}, nil
}

// Health checks connectivity with a minimal models request.
func (w *Whisper) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", w.cfg.BaseURL+"/models", nil)
	if err != nil {
		return WrapError(providerWhisper, err)
	}
	req.Header.Set("Authorization", "Bearer "+w.cfg.APIKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return WrapError(providerWhisper, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return w.parseError(resp)
	}
	return nil
}

// Close releases resources. The shared HTTP client needs no teardown.
func (w *Whisper) Close() error {
	return nil
}

func (w *Whisper) parseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := string(data)
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Error.Message != "" {
		msg = parsed.Error.Message
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    msg,
		Provider:   providerWhisper,
	}
}

// wavHeader builds a 44-byte RIFF header for PCM16 mono data.
func wavHeader(dataLen, sampleRate int) []byte {
	buf := make([]byte, 44)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))
	return buf
}

// pcmDuration returns the playback duration of PCM16 mono bytes.
func pcmDuration(byteLen, sampleRate int) time.Duration {
	if sampleRate == 0 {
		return 0
	}
	samples := byteLen / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// Verify Whisper implements Provider at compile time.
var _ Provider = (*Whisper)(nil)
