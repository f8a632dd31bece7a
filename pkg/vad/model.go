package vad

import (
	"log/slog"
)

// Scorer is an opaque binary speech classifier. Implementations may carry
// recurrent state across calls, so one Scorer must never be shared between
// sessions.
type Scorer interface {
	// Score returns the speech probability (0.0-1.0) for one frame.
	Score(frame []int16) (float64, error)

	// Close releases the backing model.
	Close() error
}

// Model is a detector that thresholds an external classifier's probability.
//
// Every frame is also fed to an embedded energy detector: it supplies the
// calibration warm-up, and it becomes the permanent backend if the scorer
// ever fails. A scorer failure is logged once and never retried.
type Model struct {
	cfg    Config
	logger *slog.Logger

	scorer   Scorer
	energy   *Energy
	degraded bool
}

// NewModel creates a model-backed detector with the given scorer.
func NewModel(cfg Config, scorer Scorer) *Model {
	return &Model{
		cfg:    cfg,
		logger: cfg.logger().With("component", "vad.model"),
		scorer: scorer,
		energy: NewEnergy(cfg),
	}
}

// Process classifies one frame. Returns false during warm-up.
func (m *Model) Process(frame []int16) bool {
	// The energy detector always sees the frame, so calibration completes
	// and a later degrade has a ready noise floor.
	wasCalibrated := m.energy.Calibrated()
	energyVerdict := m.energy.Process(frame)

	if m.degraded {
		return energyVerdict
	}
	if !wasCalibrated {
		// Warm-up, including the frame that completes it.
		return false
	}

	prob, err := m.scorer.Score(frame)
	if err != nil {
		m.degraded = true
		m.scorer.Close()
		m.logger.Warn("vad scorer failed, degrading to energy backend",
			"error", err,
		)
		return energyVerdict
	}

	return prob >= m.cfg.ModelThreshold
}

// Calibrated reports whether warm-up has completed.
func (m *Model) Calibrated() bool {
	return m.energy.Calibrated()
}

// AmbientLevel returns the embedded energy detector's noise floor.
func (m *Model) AmbientLevel() float64 {
	return m.energy.AmbientLevel()
}

// Degraded reports whether the scorer has failed and the energy backend
// has taken over.
func (m *Model) Degraded() bool {
	return m.degraded
}

// Reset clears calibration state. The scorer's internal state is opaque and
// is left alone.
func (m *Model) Reset() {
	m.energy.Reset()
}

// Close releases the scorer.
func (m *Model) Close() error {
	return m.scorer.Close()
}

// Verify Model implements Detector at compile time.
var _ Detector = (*Model)(nil)
