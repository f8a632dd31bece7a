package tts

import (
	"context"
	"sync"
	"time"
)

// Mock is an in-memory Provider for testing. It returns deterministic PCM
// sized from the input text and records calls.
type Mock struct {
	mu    sync.Mutex
	calls []string
	texts []string
	err   error
}

// NewMock creates a mock provider.
func NewMock() *Mock {
	return &Mock{}
}

// WithError creates a mock provider whose calls all fail with err.
func WithError(err error) *Mock {
	return &Mock{err: err}
}

// Synthesize records the call and returns synthetic PCM.
// Each character becomes 10ms of audio so durations are predictable.
func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	m.record("Synthesize")
	if err := m.failure(); err != nil {
		return nil, WrapError("mock", err)
	}
	if text == "" {
		return nil, ErrEmptyText
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	samplesPerChar := 160 // 10ms at 16kHz
	audio := make([]byte, len(text)*samplesPerChar*2)

	return &AudioResult{
		Audio: audio,
		Format: AudioFormat{
			Encoding:   EncodingPCM16,
			SampleRate: 16000,
			Channels:   1,
		},
		CharCount: len(text),
	}, nil
}

// Health records the call and returns the configured error.
func (m *Mock) Health(ctx context.Context) error {
	m.record("Health")
	return m.failure()
}

// Close records the call.
func (m *Mock) Close() error {
	m.record("Close")
	return nil
}

// Texts returns every synthesized text in order.
func (m *Mock) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.texts))
	copy(out, m.texts)
	return out
}

// Calls returns the recorded call names in order.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times the named method was called.
func (m *Mock) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == name {
			n++
		}
	}
	return n
}

// Reset clears recorded calls and texts.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.texts = nil
}

func (m *Mock) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *Mock) failure() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Slow wraps a provider with artificial latency, for cancellation tests.
type Slow struct {
	Provider
	Delay time.Duration
}

// Synthesize waits for the delay or context cancellation, then delegates.
func (s *Slow) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	select {
	case <-time.After(s.Delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.Provider.Synthesize(ctx, text)
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
