package llm

import (
	"time"
)

// Default endpoints and models.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
)

// Config holds configuration for the chat client.
type Config struct {
	// APIKey is the bearer token. Optional for local servers.
	APIKey string

	// BaseURL is the OpenAI-compatible API root.
	BaseURL string

	// Model is the default chat model.
	Model string

	// Temperature controls response randomness (0.0-2.0).
	Temperature float64

	// MaxTokens limits response length.
	MaxTokens int

	// Timeout is the non-streaming request timeout.
	Timeout time.Duration

	// StreamTimeout bounds an entire streaming response.
	StreamTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:       DefaultBaseURL,
		Model:         DefaultModel,
		Temperature:   0.8,
		MaxTokens:     1024,
		Timeout:       30 * time.Second,
		StreamTimeout: 2 * time.Minute,
	}
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithModel sets the default chat model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithTemperature sets the response temperature.
func WithTemperature(temp float64) Option {
	return func(c *Config) { c.Temperature = temp }
}

// WithMaxTokens sets the maximum response tokens.
func WithMaxTokens(tokens int) Option {
	return func(c *Config) { c.MaxTokens = tokens }
}

// WithTimeout sets the non-streaming request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithStreamTimeout bounds an entire streaming response.
func WithStreamTimeout(d time.Duration) Option {
	return func(c *Config) { c.StreamTimeout = d }
}
