package tts_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aria-voice/go-aria/pkg/tts"
)

func TestMockProvider(t *testing.T) {
	mock := tts.NewMock()
	ctx := context.Background()

	t.Run("Synthesize returns audio", func(t *testing.T) {
		result, err := mock.Synthesize(ctx, "Hello world")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Audio) == 0 {
			t.Error("expected audio data")
		}
		if result.CharCount != 11 {
			t.Errorf("expected 11 chars, got %d", result.CharCount)
		}
		if result.Format.SampleRate != 16000 {
			t.Errorf("expected 16000 sample rate, got %d", result.Format.SampleRate)
		}
	})

	t.Run("Empty text is rejected", func(t *testing.T) {
		if _, err := mock.Synthesize(ctx, ""); !errors.Is(err, tts.ErrEmptyText) {
			t.Errorf("expected ErrEmptyText, got %v", err)
		}
	})

	t.Run("Texts are recorded", func(t *testing.T) {
		texts := mock.Texts()
		if len(texts) != 1 || texts[0] != "Hello world" {
			t.Errorf("unexpected recorded texts: %v", texts)
		}
	})

	t.Run("Reset clears calls", func(t *testing.T) {
		mock.Reset()
		if len(mock.Calls()) != 0 {
			t.Error("expected calls cleared")
		}
	})
}

func TestSlowProviderCancellation(t *testing.T) {
	slow := &tts.Slow{Provider: tts.NewMock(), Delay: time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := slow.Synthesize(ctx, "Hello")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	t.Run("Requires API key", func(t *testing.T) {
		cfg := tts.DefaultConfig()
		if err := cfg.Validate(); err != tts.ErrNoAPIKey {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})

	t.Run("Requires voice", func(t *testing.T) {
		cfg := tts.DefaultConfig()
		cfg.Apply(tts.WithAPIKey("key"))
		if err := cfg.Validate(); err != tts.ErrNoVoiceID {
			t.Errorf("expected ErrNoVoiceID, got %v", err)
		}
	})

	t.Run("Options apply", func(t *testing.T) {
		cfg := tts.DefaultConfig()
		cfg.Apply(
			tts.WithAPIKey("key"),
			tts.WithVoice("voice"),
			tts.WithModel("model"),
			tts.WithOutputFormat(tts.EncodingPCM24),
			tts.WithTimeout(5*time.Second),
		)
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if cfg.OutputFormat != tts.EncodingPCM24 || cfg.Timeout != 5*time.Second {
			t.Errorf("options not applied: %+v", cfg)
		}
	})
}

func TestChain(t *testing.T) {
	ctx := context.Background()

	t.Run("Requires providers", func(t *testing.T) {
		if _, err := tts.NewChain(); err != tts.ErrProviderUnavailable {
			t.Errorf("expected ErrProviderUnavailable, got %v", err)
		}
	})

	t.Run("First provider wins", func(t *testing.T) {
		first := tts.NewMock()
		second := tts.NewMock()
		chain, err := tts.NewChain(first, second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := chain.Synthesize(ctx, "Hello"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first.CallCount("Synthesize") != 1 || second.CallCount("Synthesize") != 0 {
			t.Error("expected only the first provider to be called")
		}
	})

	t.Run("Falls back on failure", func(t *testing.T) {
		failing := tts.WithError(errors.New("down"))
		backup := tts.NewMock()
		chain, _ := tts.NewChain(failing, backup)

		result, err := chain.Synthesize(ctx, "Hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result == nil || backup.CallCount("Synthesize") != 1 {
			t.Error("expected backup provider result")
		}
	})

	t.Run("Aggregates when all fail", func(t *testing.T) {
		chain, _ := tts.NewChain(
			tts.WithError(errors.New("one")),
			tts.WithError(errors.New("two")),
		)

		_, err := chain.Synthesize(ctx, "Hello")
		var chainErr *tts.ChainError
		if !errors.As(err, &chainErr) {
			t.Fatalf("expected ChainError, got %v", err)
		}
		if len(chainErr.Errors) != 2 {
			t.Errorf("expected 2 aggregated errors, got %d", len(chainErr.Errors))
		}
	})
}

func TestElevenLabs(t *testing.T) {
	t.Run("Synthesize posts text and returns audio", func(t *testing.T) {
		pcm := []byte{1, 2, 3, 4, 5, 6}
		srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if r.Header.Get("xi-api-key") != "test-key" {
				t.Error("missing api key header")
			}
			rw.Write(pcm)
		}))
		defer srv.Close()

		provider, err := tts.NewElevenLabs(
			tts.WithAPIKey("test-key"),
			tts.WithVoice("test-voice"),
			tts.WithBaseURL(srv.URL),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		result, err := provider.Synthesize(context.Background(), "Hi there.")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Audio) != len(pcm) {
			t.Errorf("expected %d audio bytes, got %d", len(pcm), len(result.Audio))
		}
		if result.Format.Encoding != tts.EncodingPCM16 {
			t.Errorf("unexpected encoding %s", result.Format.Encoding)
		}
	})

	t.Run("API errors map to APIError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			rw.WriteHeader(http.StatusUnauthorized)
			rw.Write([]byte(`{"detail": {"message": "bad key"}}`))
		}))
		defer srv.Close()

		provider, _ := tts.NewElevenLabs(
			tts.WithAPIKey("bad"),
			tts.WithVoice("v"),
			tts.WithBaseURL(srv.URL),
		)

		_, err := provider.Synthesize(context.Background(), "Hi.")
		var apiErr *tts.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.StatusCode != 401 || apiErr.Message != "bad key" {
			t.Errorf("unexpected APIError: %+v", apiErr)
		}
	})
}
