package vad

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"

	"github.com/aria-voice/go-aria/pkg/procman"
)

// ErrScorerClosed is returned when scoring after Close.
var ErrScorerClosed = errors.New("vad: scorer closed")

// ExecScorer runs an external classifier binary and scores frames over its
// stdio. The wire format is one length-prefixed PCM16LE frame per request and
// one little-endian float32 probability per reply. The model's recurrent
// state lives inside the subprocess, so each session owns its own ExecScorer.
type ExecScorer struct {
	proc   *procman.Proc
	stdin  io.WriteCloser
	stdout *bufio.Reader
	closed bool
}

// NewExecScorer launches the scorer binary. If reg is non-nil the subprocess
// is registered so abnormal shutdown cannot orphan it.
func NewExecScorer(path string, reg *procman.Registry) (*ExecScorer, error) {
	if path == "" {
		return nil, procman.ErrEmptyCommand
	}

	cmd := exec.Command(path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("vad: scorer stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("vad: scorer stdout: %w", err)
	}

	proc, err := procman.StartCmd(reg, cmd)
	if err != nil {
		return nil, fmt.Errorf("vad: start scorer: %w", err)
	}

	return &ExecScorer{
		proc:   proc,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
	}, nil
}

// Score sends one frame and reads back the speech probability.
func (s *ExecScorer) Score(frame []int16) (float64, error) {
	if s.closed {
		return 0, ErrScorerClosed
	}

	buf := make([]byte, 4+len(frame)*2)
	binary.LittleEndian.PutUint32(buf, uint32(len(frame)*2))
	for i, sample := range frame {
		binary.LittleEndian.PutUint16(buf[4+i*2:], uint16(sample))
	}

	if _, err := s.stdin.Write(buf); err != nil {
		return 0, fmt.Errorf("vad: write frame: %w", err)
	}

	var reply [4]byte
	if _, err := io.ReadFull(s.stdout, reply[:]); err != nil {
		return 0, fmt.Errorf("vad: read score: %w", err)
	}

	prob := float64(math.Float32frombits(binary.LittleEndian.Uint32(reply[:])))
	if prob < 0 || prob > 1 || math.IsNaN(prob) {
		return 0, fmt.Errorf("vad: scorer returned invalid probability %v", prob)
	}
	return prob, nil
}

// Close shuts down the scorer subprocess.
func (s *ExecScorer) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.stdin.Close()
	return s.proc.Terminate()
}

// Verify ExecScorer implements Scorer at compile time.
var _ Scorer = (*ExecScorer)(nil)
