// Package tts provides a unified interface for text-to-speech providers.
//
// All providers implement the Provider interface, enabling seamless switching
// without changing caller code. The orchestrator synthesizes one sentence at
// a time, so Synthesize returns a complete buffer; providers that stream
// internally still present the assembled result.
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains raw audio data in the configured format.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the time to first byte in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	// Encoding specifies the audio codec (e.g. pcm_16000).
	Encoding Encoding

	// SampleRate in Hz.
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int
}

// Encoding represents audio encoding types.
type Encoding string

const (
	// PCM formats (raw audio, lowest latency)
	EncodingPCM16 Encoding = "pcm_16000" // 16kHz mono PCM16
	EncodingPCM24 Encoding = "pcm_24000" // 24kHz mono PCM16

	// Compressed formats
	EncodingMP3 Encoding = "mp3_44100_128" // MP3 128kbps
)

// SampleRateFromEncoding extracts the sample rate from an encoding type.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingPCM16:
		return 16000
	case EncodingPCM24:
		return 24000
	case EncodingMP3:
		return 44100
	default:
		return 16000
	}
}

// Config holds configuration for TTS providers.
type Config struct {
	// APIKey is the authentication key for the provider.
	APIKey string

	// VoiceID is the voice to synthesize with.
	VoiceID string

	// ModelID is the synthesis model.
	ModelID string

	// BaseURL overrides the default API endpoint.
	BaseURL string

	// OutputFormat is the requested audio encoding.
	OutputFormat Encoding

	// Timeout is the per-request timeout enforced by the caller.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ModelID:      "eleven_flash_v2_5",
		OutputFormat: EncodingPCM16,
		Timeout:      10 * time.Second,
	}
}

// Option is a functional option for configuring providers.
type Option func(*Config)

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	if c.VoiceID == "" {
		return ErrNoVoiceID
	}
	return nil
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithVoice sets the voice ID.
func WithVoice(id string) Option {
	return func(c *Config) { c.VoiceID = id }
}

// WithModel sets the synthesis model.
func WithModel(id string) Option {
	return func(c *Config) { c.ModelID = id }
}

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithOutputFormat sets the requested audio encoding.
func WithOutputFormat(enc Encoding) Option {
	return func(c *Config) { c.OutputFormat = enc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}
