// Package llm provides a unified interface for chat completion providers.
//
// The package abstracts chat completions behind a single Provider interface,
// enabling seamless switching between providers like OpenAI, Ollama, vLLM and
// others that implement the OpenAI-compatible API. The orchestrator consumes
// the streaming variant token by token; Chat is the non-streaming fallback.
//
// Example usage:
//
//	client, _ := llm.NewClient(
//	    llm.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    llm.WithModel("gpt-4o-mini"),
//	)
//	defer client.Close()
//
//	stream, _ := client.Stream(ctx, &llm.ChatRequest{
//	    Messages: []llm.Message{{Role: llm.RoleUser, Content: "Hello!"}},
//	})
package llm

import "context"

// Provider is the chat completion interface.
type Provider interface {
	// Chat generates a complete response from a sequence of messages.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Stream generates a streaming response for real-time output.
	Stream(ctx context.Context, req *ChatRequest) (Stream, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Stream is a streaming response for real-time output.
type Stream interface {
	// Recv returns the next chunk. The final chunk has Done set.
	Recv() (*StreamChunk, error)

	// Close stops the stream and releases resources.
	Close() error
}

// StreamChunk is a piece of a streaming response.
type StreamChunk struct {
	// Delta is the incremental text content.
	Delta string

	// FinishReason indicates why generation stopped (stop, length).
	FinishReason string

	// Done is true when the stream is complete.
	Done bool
}

// Role identifies a message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest for chat completions.
type ChatRequest struct {
	// Messages is the conversation history, oldest first.
	Messages []Message

	// Model overrides the default model.
	Model string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness (0.0-2.0).
	Temperature float64

	// Stop sequences that halt generation.
	Stop []string
}

// ChatResponse from a chat completion.
type ChatResponse struct {
	// Message is the assistant's response.
	Message Message

	// FinishReason indicates why generation stopped.
	FinishReason string

	// Usage tracks token consumption.
	Usage Usage

	// Model used for generation.
	Model string

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// Usage tracks token consumption for billing and limits.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// History is a bounded conversation history. Appending past the limit drops
// the oldest non-system turns.
type History struct {
	limit    int
	messages []Message
}

// NewHistory creates a history keeping at most limit messages.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 32
	}
	return &History{limit: limit}
}

// Add appends a message, evicting the oldest non-system turn if full.
func (h *History) Add(role Role, content string) {
	h.messages = append(h.messages, Message{Role: role, Content: content})
	if len(h.messages) <= h.limit {
		return
	}
	for i, m := range h.messages {
		if m.Role != RoleSystem {
			h.messages = append(h.messages[:i], h.messages[i+1:]...)
			return
		}
	}
}

// Messages returns the history as a slice usable in a ChatRequest.
func (h *History) Messages() []Message {
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of stored messages.
func (h *History) Len() int {
	return len(h.messages)
}
