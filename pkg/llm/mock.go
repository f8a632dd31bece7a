package llm

import (
	"context"
	"strings"
	"sync"
)

// Mock is an in-memory Provider for testing. It streams a scripted reply
// split into word tokens, or fails with a configured error.
type Mock struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []string
}

// NewMock creates a mock provider with a default reply.
func NewMock() *Mock {
	return &Mock{reply: "Sure, turning them on now."}
}

// WithError creates a mock provider whose calls all fail with err.
func WithError(err error) *Mock {
	return &Mock{err: err}
}

// SetReply sets the scripted assistant reply.
func (m *Mock) SetReply(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reply = text
}

// Chat returns the scripted reply in one piece.
func (m *Mock) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.record("Chat")
	if err := m.failure(); err != nil {
		return nil, err
	}
	if len(req.Messages) == 0 {
		return nil, ErrNoMessages
	}
	return &ChatResponse{
		Message:      Message{Role: RoleAssistant, Content: m.replyText()},
		FinishReason: "stop",
	}, nil
}

// Stream returns the scripted reply as one token per word.
func (m *Mock) Stream(ctx context.Context, req *ChatRequest) (Stream, error) {
	m.record("Stream")
	if err := m.failure(); err != nil {
		return nil, err
	}
	if len(req.Messages) == 0 {
		return nil, ErrNoMessages
	}

	words := strings.SplitAfter(m.replyText(), " ")
	return &mockStream{tokens: words}, nil
}

// Health returns the configured error.
func (m *Mock) Health(ctx context.Context) error {
	m.record("Health")
	return m.failure()
}

// Close records the call.
func (m *Mock) Close() error {
	m.record("Close")
	return nil
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

func (m *Mock) replyText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reply
}

type mockStream struct {
	tokens []string
	pos    int
	closed bool
}

func (s *mockStream) Recv() (*StreamChunk, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}
	if s.pos >= len(s.tokens) {
		return &StreamChunk{Done: true, FinishReason: "stop"}, nil
	}
	tok := s.tokens[s.pos]
	s.pos++
	return &StreamChunk{Delta: tok}, nil
}

func (s *mockStream) Close() error {
	s.closed = true
	return nil
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
