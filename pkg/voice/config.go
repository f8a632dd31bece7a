package voice

import (
	"errors"
	"time"

	"github.com/aria-voice/go-aria/pkg/llm"
	"github.com/aria-voice/go-aria/pkg/stt"
	"github.com/aria-voice/go-aria/pkg/tts"
	"github.com/aria-voice/go-aria/pkg/vad"
)

// Common errors returned by orchestrators.
var (
	ErrStopped        = errors.New("voice: orchestrator stopped")
	ErrAlreadyStarted = errors.New("voice: orchestrator already started")
	ErrQueueFull      = errors.New("voice: inbound queue full, frame dropped")
	ErrMissingDep     = errors.New("voice: missing provider dependency")
	ErrUnknownEvent   = errors.New("voice: unknown client event type")
)

// Config holds the tunable parameters for one session.
type Config struct {
	// SampleRate is the PCM input sample rate in Hz.
	SampleRate int

	// FrameDuration is the duration of one inbound audio frame.
	FrameDuration time.Duration

	// SilenceDuration is how long the user must stay silent before an
	// utterance is considered complete.
	SilenceDuration time.Duration

	// PrefixPadding is how much pre-speech audio to prepend to each
	// utterance so plosive onsets are not clipped.
	PrefixPadding time.Duration

	// InboundQueueSize bounds the audio frame queue. PushAudio drops
	// frames rather than block when it is full.
	InboundQueueSize int

	// OutboundQueueSize bounds the event queue.
	OutboundQueueSize int

	// CallTimeout is the per-call timeout for STT and TTS requests.
	CallTimeout time.Duration

	// StreamTimeout bounds one full LLM streaming response.
	StreamTimeout time.Duration

	// SystemPrompt seeds the conversation history.
	SystemPrompt string

	// HistoryLimit caps the stored conversation turns.
	HistoryLimit int
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		SampleRate:        16000,
		FrameDuration:     20 * time.Millisecond,
		SilenceDuration:   700 * time.Millisecond,
		PrefixPadding:     300 * time.Millisecond,
		InboundQueueSize:  256,
		OutboundQueueSize: 64,
		CallTimeout:       15 * time.Second,
		StreamTimeout:     2 * time.Minute,
		HistoryLimit:      32,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return errors.New("voice: sample rate must be positive")
	}
	if c.FrameDuration <= 0 {
		return errors.New("voice: frame duration must be positive")
	}
	if c.SilenceDuration <= 0 {
		return errors.New("voice: silence duration must be positive")
	}
	if c.InboundQueueSize <= 0 || c.OutboundQueueSize <= 0 {
		return errors.New("voice: queue sizes must be positive")
	}
	return nil
}

// Deps are the capability providers one session composes. All four are
// required; select concrete implementations by configuration at startup.
type Deps struct {
	Detector vad.Detector
	STT      stt.Provider
	LLM      llm.Provider
	TTS      tts.Provider
}

// Validate checks that every dependency is present.
func (d *Deps) Validate() error {
	if d.Detector == nil || d.STT == nil || d.LLM == nil || d.TTS == nil {
		return ErrMissingDep
	}
	return nil
}
