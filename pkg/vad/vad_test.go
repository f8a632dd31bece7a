package vad_test

import (
	"errors"
	"math"
	"testing"

	"github.com/aria-voice/go-aria/pkg/vad"
)

const frameLen = 320 // 20ms at 16kHz

func silentFrame() []int16 {
	return make([]int16, frameLen)
}

// noiseFrame returns a low-level frame at roughly the given RMS amplitude.
func noiseFrame(amplitude float64) []int16 {
	frame := make([]int16, frameLen)
	for i := range frame {
		s := amplitude * math.Sin(2*math.Pi*float64(i)/32)
		frame[i] = int16(s * 32767 * math.Sqrt2)
	}
	return frame
}

func calibrate(t *testing.T, det vad.Detector, cfg vad.Config, frame []int16) {
	t.Helper()
	for i := 0; i < cfg.CalibrationFrames; i++ {
		if det.Process(frame) {
			t.Fatalf("frame %d classified as speech during warm-up", i)
		}
	}
	if !det.Calibrated() {
		t.Fatal("expected detector calibrated after warm-up window")
	}
}

func TestEnergyCalibration(t *testing.T) {
	t.Run("Silent warm-up calibrates and stays silent", func(t *testing.T) {
		cfg := vad.DefaultConfig()
		det := vad.NewEnergy(cfg)

		calibrate(t, det, cfg, silentFrame())

		for i := 0; i < 20; i++ {
			if det.Process(silentFrame()) {
				t.Fatal("silent frame classified as speech after calibration")
			}
		}
	})

	t.Run("Not calibrated before window completes", func(t *testing.T) {
		cfg := vad.DefaultConfig()
		det := vad.NewEnergy(cfg)

		for i := 0; i < cfg.CalibrationFrames-1; i++ {
			det.Process(silentFrame())
		}
		if det.Calibrated() {
			t.Error("expected uncalibrated before window completes")
		}
	})

	t.Run("Loud frames during warm-up are not classified", func(t *testing.T) {
		cfg := vad.DefaultConfig()
		det := vad.NewEnergy(cfg)

		loud := noiseFrame(0.5)
		for i := 0; i < cfg.CalibrationFrames; i++ {
			if det.Process(loud) {
				t.Fatal("expected no verdicts during warm-up")
			}
		}
	})

	t.Run("Reset clears calibration", func(t *testing.T) {
		cfg := vad.DefaultConfig()
		det := vad.NewEnergy(cfg)

		calibrate(t, det, cfg, silentFrame())
		det.Reset()
		if det.Calibrated() {
			t.Error("expected uncalibrated after Reset")
		}
	})
}

func TestEnergyClassification(t *testing.T) {
	cfg := vad.DefaultConfig()

	t.Run("All-zero frame is always silence", func(t *testing.T) {
		det := vad.NewEnergy(cfg)
		calibrate(t, det, cfg, silentFrame())

		if det.Process(silentFrame()) {
			t.Error("zero-amplitude frame classified as speech")
		}
	})

	t.Run("Frame far above threshold is speech", func(t *testing.T) {
		det := vad.NewEnergy(cfg)
		calibrate(t, det, cfg, silentFrame())

		if !det.Process(noiseFrame(0.5)) {
			t.Error("loud frame classified as silence")
		}
	})

	t.Run("Threshold scales with ambient noise", func(t *testing.T) {
		quiet := vad.NewEnergy(cfg)
		calibrate(t, quiet, cfg, silentFrame())

		noisy := vad.NewEnergy(cfg)
		calibrate(t, noisy, cfg, noiseFrame(0.05))

		if noisy.Threshold() <= quiet.Threshold() {
			t.Errorf("expected noisy ambient to raise threshold: noisy=%v quiet=%v",
				noisy.Threshold(), quiet.Threshold())
		}
	})
}

// fakeScorer is a scripted Scorer for model-backend tests.
type fakeScorer struct {
	probs  []float64
	err    error
	calls  int
	closed bool
}

func (f *fakeScorer) Score(frame []int16) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	if len(f.probs) == 0 {
		return 0, nil
	}
	p := f.probs[0]
	if len(f.probs) > 1 {
		f.probs = f.probs[1:]
	}
	return p, nil
}

func (f *fakeScorer) Close() error {
	f.closed = true
	return nil
}

func TestModel(t *testing.T) {
	cfg := vad.DefaultConfig()

	t.Run("Thresholds scorer probability", func(t *testing.T) {
		scorer := &fakeScorer{probs: []float64{0.9, 0.1}}
		det := vad.NewModel(cfg, scorer)
		calibrate(t, det, cfg, silentFrame())

		if !det.Process(silentFrame()) {
			t.Error("expected speech for probability 0.9")
		}
		if det.Process(silentFrame()) {
			t.Error("expected silence for probability 0.1")
		}
	})

	t.Run("Scorer not consulted during warm-up", func(t *testing.T) {
		scorer := &fakeScorer{probs: []float64{0.9}}
		det := vad.NewModel(cfg, scorer)

		for i := 0; i < cfg.CalibrationFrames; i++ {
			det.Process(silentFrame())
		}
		// The final warm-up frame completes calibration; no frame before
		// that may reach the scorer.
		if scorer.calls != 0 {
			t.Errorf("expected 0 scorer calls during warm-up, got %d", scorer.calls)
		}
	})

	t.Run("Degrades permanently on scorer failure", func(t *testing.T) {
		scorer := &fakeScorer{err: errors.New("model crashed")}
		det := vad.NewModel(cfg, scorer)
		calibrate(t, det, cfg, silentFrame())

		det.Process(silentFrame())
		if !det.Degraded() {
			t.Fatal("expected degraded after scorer failure")
		}
		if !scorer.closed {
			t.Error("expected failed scorer to be closed")
		}

		calls := scorer.calls
		// Energy fallback takes over: loud frames still detected, and the
		// scorer is never retried.
		if !det.Process(noiseFrame(0.5)) {
			t.Error("expected energy fallback to detect loud frame")
		}
		if scorer.calls != calls {
			t.Error("expected scorer never retried after failure")
		}
	})
}

func TestNewFallsBackWithoutModel(t *testing.T) {
	cfg := vad.DefaultConfig()
	cfg.ModelPath = "/nonexistent/scorer-binary"

	det := vad.New(cfg)
	if det == nil {
		t.Fatal("expected a detector")
	}
	if _, ok := det.(*vad.Energy); !ok {
		t.Errorf("expected energy fallback, got %T", det)
	}
}
