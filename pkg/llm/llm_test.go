package llm_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aria-voice/go-aria/pkg/llm"
)

func TestMock(t *testing.T) {
	ctx := context.Background()

	t.Run("Stream yields word tokens then done", func(t *testing.T) {
		mock := llm.NewMock()
		mock.SetReply("Hello there friend.")

		stream, err := mock.Stream(ctx, &llm.ChatRequest{
			Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer stream.Close()

		var got strings.Builder
		for {
			chunk, err := stream.Recv()
			if err != nil {
				t.Fatalf("recv error: %v", err)
			}
			if chunk.Done {
				break
			}
			got.WriteString(chunk.Delta)
		}
		if got.String() != "Hello there friend." {
			t.Errorf("unexpected assembled reply: %q", got.String())
		}
	})

	t.Run("Empty request is rejected", func(t *testing.T) {
		mock := llm.NewMock()
		if _, err := mock.Stream(ctx, &llm.ChatRequest{}); !errors.Is(err, llm.ErrNoMessages) {
			t.Errorf("expected ErrNoMessages, got %v", err)
		}
	})

	t.Run("WithError fails all calls", func(t *testing.T) {
		boom := errors.New("llm down")
		mock := llm.WithError(boom)
		_, err := mock.Chat(ctx, &llm.ChatRequest{
			Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		})
		if !errors.Is(err, boom) {
			t.Errorf("expected configured error, got %v", err)
		}
	})
}

func TestConfigOptions(t *testing.T) {
	cfg := llm.DefaultConfig()
	cfg.Apply(
		llm.WithAPIKey("key"),
		llm.WithBaseURL("http://localhost:11434/v1"),
		llm.WithModel("llama3"),
		llm.WithTemperature(0.2),
		llm.WithMaxTokens(256),
		llm.WithTimeout(5*time.Second),
		llm.WithStreamTimeout(time.Minute),
	)
	if cfg.APIKey != "key" || cfg.BaseURL != "http://localhost:11434/v1" || cfg.Model != "llama3" {
		t.Errorf("options not applied: %+v", cfg)
	}
	if cfg.Temperature != 0.2 || cfg.MaxTokens != 256 {
		t.Errorf("options not applied: %+v", cfg)
	}
	if cfg.Timeout != 5*time.Second || cfg.StreamTimeout != time.Minute {
		t.Errorf("options not applied: %+v", cfg)
	}
}

func TestHistory(t *testing.T) {
	t.Run("Evicts oldest non-system turn", func(t *testing.T) {
		h := llm.NewHistory(3)
		h.Add(llm.RoleSystem, "be brief")
		h.Add(llm.RoleUser, "one")
		h.Add(llm.RoleAssistant, "two")
		h.Add(llm.RoleUser, "three")

		msgs := h.Messages()
		if len(msgs) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(msgs))
		}
		if msgs[0].Role != llm.RoleSystem {
			t.Error("expected system message retained")
		}
		if msgs[1].Content != "two" || msgs[2].Content != "three" {
			t.Errorf("unexpected history: %+v", msgs)
		}
	})
}

func TestClientStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		rw.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range []string{"Sure, ", "done."} {
			fmt.Fprintf(rw, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", delta)
		}
		fmt.Fprint(rw, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client, err := llm.NewClient(llm.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stream, err := client.Stream(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	var got strings.Builder
	for {
		chunk, err := stream.Recv()
		if err != nil {
			t.Fatalf("recv error: %v", err)
		}
		if chunk.Done {
			break
		}
		got.WriteString(chunk.Delta)
	}
	if got.String() != "Sure, done." {
		t.Errorf("unexpected assembled reply: %q", got.String())
	}
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusInternalServerError)
		rw.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
	}))
	defer srv.Close()

	client, err := llm.NewClient(llm.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = client.Chat(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !apiErr.IsRetryable() {
		t.Error("expected 500 to be retryable")
	}
	if apiErr.Message != "overloaded" {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
}
