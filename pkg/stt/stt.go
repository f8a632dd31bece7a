// Package stt provides a unified interface for speech-to-text providers.
//
// All providers implement the Provider interface, enabling seamless switching
// without changing caller code. Audio is PCM16 mono at the configured sample
// rate unless a provider states otherwise.
package stt

import (
	"context"
	"time"
)

// Provider defines the STT provider interface.
type Provider interface {
	// Transcribe converts an utterance of audio to text.
	// An empty transcript with a nil error means no speech was recognized.
	Transcribe(ctx context.Context, audio []byte) (*Result, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Result is one completed transcription.
type Result struct {
	// Text is the recognized transcript. May be empty.
	Text string

	// Confidence is the provider's confidence (0.0-1.0), if reported.
	Confidence float64

	// Duration is the audio duration as measured by the provider.
	Duration time.Duration

	// LatencyMs is the request round-trip time in milliseconds.
	LatencyMs int64
}

// Config holds configuration for STT providers.
type Config struct {
	// APIKey is the authentication key for the provider.
	APIKey string

	// BaseURL overrides the default API endpoint.
	BaseURL string

	// Model is the transcription model name.
	Model string

	// Language is a language hint (e.g. "en").
	Language string

	// SampleRate is the PCM input sample rate in Hz.
	SampleRate int

	// Timeout is the per-request timeout enforced by the caller.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Model:      "whisper-1",
		Language:   "en",
		SampleRate: 16000,
		Timeout:    15 * time.Second,
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
	return nil
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithModel sets the transcription model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithLanguage sets the language hint.
func WithLanguage(lang string) Option {
	return func(c *Config) { c.Language = lang }
}

// WithSampleRate sets the PCM input sample rate.
func WithSampleRate(rate int) Option {
	return func(c *Config) { c.SampleRate = rate }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}
