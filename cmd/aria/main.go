// aria is the voice assistant daemon. It serves WebSocket voice sessions,
// composing VAD, STT, LLM and TTS into a streaming, interruptible reply
// pipeline, with an observer endpoint for dashboards.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/aria-voice/go-aria/internal/config"
	"github.com/aria-voice/go-aria/internal/log"
	"github.com/aria-voice/go-aria/pkg/gateway"
	"github.com/aria-voice/go-aria/pkg/llm"
	"github.com/aria-voice/go-aria/pkg/procman"
	"github.com/aria-voice/go-aria/pkg/stt"
	"github.com/aria-voice/go-aria/pkg/tts"
	"github.com/aria-voice/go-aria/pkg/vad"
	"github.com/aria-voice/go-aria/pkg/voice"
)

const defaultSystemPrompt = "You are Aria, a helpful voice assistant. " +
	"Keep replies short and conversational; they are spoken aloud."

func main() {
	godotenv.Load()

	port := flag.String("port", config.Port(), "HTTP listen port")
	logLevel := flag.String("log-level", config.Env("ARIA_LOG_LEVEL", "info"), "log level: debug, info, warn, error")
	mock := flag.Bool("mock", config.EnvBool("ARIA_MOCK"), "use mock providers, no API keys needed")
	modelPath := flag.String("vad-model", config.Env("ARIA_VAD_MODEL", ""), "path to an external VAD scorer binary")
	flag.Parse()

	log.Init(*logLevel)

	reg := procman.NewRegistry(log.With("component", "procman"))
	defer reg.KillAll()

	server := gateway.NewServer(*port, buildFactory(reg, *modelPath, *mock))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		// Scorer subprocesses go first so no session can respawn one
		// while the server drains.
		reg.KillAll()
		return server.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error("exit", "error", err)
		os.Exit(1)
	}
}

// buildFactory wires a per-session orchestrator factory. Providers are
// shared across sessions; the detector is per-session because its
// calibration and model state must never be.
func buildFactory(reg *procman.Registry, modelPath string, mock bool) gateway.Factory {
	sttP, llmP, ttsP := buildProviders(mock)

	cfg := voice.DefaultConfig()
	cfg.SampleRate = config.EnvInt("ARIA_SAMPLE_RATE", config.DefaultSampleRate)
	cfg.FrameDuration = config.EnvDuration("ARIA_FRAME_DURATION", config.DefaultFrameDuration)
	cfg.SilenceDuration = config.EnvDuration("ARIA_SILENCE_DURATION", config.DefaultSilenceDuration)
	cfg.SystemPrompt = config.Env("ARIA_SYSTEM_PROMPT", defaultSystemPrompt)
	log.Debug("session config",
		"sample_rate", cfg.SampleRate,
		"frame_duration", cfg.FrameDuration,
		"silence_duration", cfg.SilenceDuration,
	)

	dcfg := vad.DefaultConfig()
	dcfg.SampleRate = cfg.SampleRate
	dcfg.FrameDuration = cfg.FrameDuration
	dcfg.ModelPath = modelPath
	dcfg.Registry = reg

	return func() (*voice.Orchestrator, error) {
		return voice.New(cfg, voice.Deps{
			Detector: vad.New(dcfg),
			STT:      sttP,
			LLM:      llmP,
			TTS:      ttsP,
		})
	}
}

func buildProviders(mock bool) (stt.Provider, llm.Provider, tts.Provider) {
	if mock {
		log.Warn("using mock providers")
		return stt.NewMock(), llm.NewMock(), tts.NewMock()
	}

	openaiKey := config.EnvRequired("OPENAI_API_KEY")
	whisper, err := stt.NewWhisper(stt.WithAPIKey(openaiKey))
	if err != nil {
		fatal("stt provider", err)
	}

	chat, err := llm.NewClient(
		llm.WithAPIKey(openaiKey),
		llm.WithModel(config.Env("ARIA_LLM_MODEL", "gpt-4o-mini")),
	)
	if err != nil {
		fatal("llm provider", err)
	}

	elevenKey := config.EnvRequired("ELEVENLABS_API_KEY")
	voiceID := config.EnvRequired("ELEVENLABS_VOICE_ID")
	streaming, err := tts.NewElevenLabsWS(tts.WithAPIKey(elevenKey), tts.WithVoice(voiceID))
	if err != nil {
		fatal("tts streaming provider", err)
	}
	fallback, err := tts.NewElevenLabs(tts.WithAPIKey(elevenKey), tts.WithVoice(voiceID))
	if err != nil {
		fatal("tts fallback provider", err)
	}
	chain, err := tts.NewChain(streaming, fallback)
	if err != nil {
		fatal("tts chain", err)
	}

	return whisper, chat, chain
}

func fatal(what string, err error) {
	log.Error(what, "error", err)
	os.Exit(1)
}
