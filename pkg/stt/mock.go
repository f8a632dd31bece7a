package stt

import (
	"context"
	"sync"
	"time"
)

// Mock is an in-memory Provider for testing. It records calls and returns a
// configurable transcript.
type Mock struct {
	mu         sync.Mutex
	calls      []string
	transcript string
	err        error
}

// NewMock creates a mock provider that transcribes everything as a fixed
// phrase.
func NewMock() *Mock {
	return &Mock{transcript: "turn on the lights"}
}

// WithError creates a mock provider whose calls all fail with err.
func WithError(err error) *Mock {
	return &Mock{err: err}
}

// SetTranscript sets the transcript returned by Transcribe.
func (m *Mock) SetTranscript(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcript = text
}

// Transcribe records the call and returns the configured transcript.
func (m *Mock) Transcribe(ctx context.Context, audio []byte) (*Result, error) {
	m.record("Transcribe")
	if err := m.failure(); err != nil {
		return nil, WrapError("mock", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	m.mu.Lock()
	text := m.transcript
	m.mu.Unlock()

	return &Result{
		Text:       text,
		Confidence: 0.97,
		Duration:   time.Duration(len(audio)/2) * time.Second / 16000,
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

// Reset clears recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
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

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
