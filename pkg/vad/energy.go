package vad

import (
	"log/slog"
)

// Energy is a self-calibrating RMS energy detector.
//
// The first CalibrationFrames frames are not classified; they accumulate
// ambient energy statistics. After warm-up the live threshold is
// ambient × multiplier (clamped to MinThreshold), and the ambient floor keeps
// adapting slowly on silence frames. Microphone gain varies too much across
// devices for a static global threshold.
type Energy struct {
	cfg    Config
	logger *slog.Logger

	seen       int
	ambientSum float64
	ambient    float64
	threshold  float64
	calibrated bool
}

// NewEnergy creates an energy detector. It starts uncalibrated.
func NewEnergy(cfg Config) *Energy {
	return &Energy{
		cfg:    cfg,
		logger: cfg.logger().With("component", "vad.energy"),
	}
}

// Process classifies one frame. Returns false during warm-up.
func (e *Energy) Process(frame []int16) bool {
	level := rms(frame)

	if !e.calibrated {
		e.seen++
		e.ambientSum += level
		if e.seen >= e.cfg.CalibrationFrames {
			e.ambient = e.ambientSum / float64(e.seen)
			e.threshold = e.ambient * e.cfg.ThresholdMultiplier
			if e.threshold < e.cfg.MinThreshold {
				e.threshold = e.cfg.MinThreshold
			}
			e.calibrated = true
			e.logger.Info("vad calibrated",
				"frames", e.seen,
				"ambient", e.ambient,
				"threshold", e.threshold,
			)
		}
		return false
	}

	if level >= e.threshold {
		return true
	}

	// Track slow drift in the noise floor using silence frames only.
	if e.cfg.AmbientAdapt > 0 {
		e.ambient = (1-e.cfg.AmbientAdapt)*e.ambient + e.cfg.AmbientAdapt*level
		e.threshold = e.ambient * e.cfg.ThresholdMultiplier
		if e.threshold < e.cfg.MinThreshold {
			e.threshold = e.cfg.MinThreshold
		}
	}
	return false
}

// Calibrated reports whether warm-up has completed.
func (e *Energy) Calibrated() bool {
	return e.calibrated
}

// AmbientLevel returns the current noise floor estimate.
func (e *Energy) AmbientLevel() float64 {
	return e.ambient
}

// Threshold returns the current live speech threshold.
func (e *Energy) Threshold() float64 {
	return e.threshold
}

// Reset clears calibration and all accumulated state.
func (e *Energy) Reset() {
	e.seen = 0
	e.ambientSum = 0
	e.ambient = 0
	e.threshold = 0
	e.calibrated = false
}

// Verify Energy implements Detector at compile time.
var _ Detector = (*Energy)(nil)
