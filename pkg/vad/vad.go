// Package vad provides voice activity detection over fixed-size PCM16 frames.
//
// Two detector backends are available: an energy detector that compares frame
// RMS against a self-calibrated ambient noise floor, and a model detector that
// delegates scoring to an external binary classifier. Both satisfy the
// Detector interface so callers never care which one they got.
//
// Example usage:
//
//	det := vad.NewEnergy(vad.DefaultConfig())
//	for frame := range frames {
//	    if det.Process(frame) {
//	        // speech
//	    }
//	}
package vad

import (
	"log/slog"
	"math"
	"time"

	"github.com/aria-voice/go-aria/pkg/procman"
)

// Detector classifies fixed-size audio frames as speech or silence.
// Process is called once per frame, in arrival order, from a single goroutine.
type Detector interface {
	// Process returns true iff the frame is judged speech.
	// During the calibration warm-up it always returns false.
	Process(frame []int16) bool

	// Calibrated reports whether the warm-up window has completed.
	Calibrated() bool

	// AmbientLevel returns the current ambient noise floor (0.0-1.0 RMS).
	AmbientLevel() float64

	// Reset clears all state, including calibration.
	Reset()
}

// Config holds tunable parameters for detectors.
type Config struct {
	// SampleRate is the expected frame sample rate in Hz.
	SampleRate int

	// FrameDuration is the expected duration of one frame.
	FrameDuration time.Duration

	// CalibrationFrames is the number of warm-up frames used to measure
	// ambient noise before any frame is classified.
	CalibrationFrames int

	// ThresholdMultiplier scales the ambient level into the live threshold.
	ThresholdMultiplier float64

	// MinThreshold is the floor for the live threshold, so a dead-quiet
	// room does not produce a threshold of zero.
	MinThreshold float64

	// AmbientAdapt is the EMA weight applied to silence frames so the
	// noise floor tracks slow environmental drift. 0 disables adaptation.
	AmbientAdapt float64

	// ModelPath is the path to an external scorer binary. Empty selects
	// the energy backend directly.
	ModelPath string

	// ModelThreshold is the speech probability cutoff for the model backend.
	ModelThreshold float64

	// Registry tracks the scorer subprocess so shutdown never orphans it.
	// Optional.
	Registry *procman.Registry

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults for 16kHz 20ms frames.
func DefaultConfig() Config {
	return Config{
		SampleRate:          16000,
		FrameDuration:       20 * time.Millisecond,
		CalibrationFrames:   30,
		ThresholdMultiplier: 2.5,
		MinThreshold:        0.012,
		AmbientAdapt:        0.05,
		ModelThreshold:      0.5,
	}
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// New selects a detector backend from the config. If a model path is set but
// the model backend cannot be loaded, it falls back to the energy detector
// permanently with a one-time warning. It never fails.
func New(cfg Config) Detector {
	if cfg.ModelPath == "" {
		return NewEnergy(cfg)
	}

	scorer, err := NewExecScorer(cfg.ModelPath, cfg.Registry)
	if err != nil {
		cfg.logger().Warn("vad model backend unavailable, using energy fallback",
			"model", cfg.ModelPath,
			"error", err,
		)
		return NewEnergy(cfg)
	}

	return NewModel(cfg, scorer)
}

// rms computes the normalized root-mean-square amplitude of a frame (0.0-1.0).
func rms(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		f := float64(s)
		sum += f * f
	}
	return math.Sqrt(sum/float64(len(frame))) / 32768.0
}
