package voice

import (
	"sync"
	"time"
)

// Metrics is a point-in-time snapshot of one session's counters and the
// latencies of its most recent completed turn.
type Metrics struct {
	FramesIn      int64
	FramesDropped int64
	SpeechFrames  int64

	Utterances       int64
	EmptyTranscripts int64
	Generations      int64
	Cancellations    int64
	Errors           int64

	EventsOut     int64
	EventsDropped int64

	// Latencies for the last completed turn, measured from speech end.
	ASRLatency    time.Duration
	FirstAudio    time.Duration
	TurnTotal     time.Duration
}

// collector accumulates session metrics. Goroutine-safe; the orchestrator
// loop and generation goroutines both write to it.
type collector struct {
	mu sync.Mutex
	m  Metrics

	speechEnd  time.Time
	firstAudio bool
}

func newCollector() *collector {
	return &collector{}
}

func (c *collector) frameIn(speech bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.FramesIn++
	if speech {
		c.m.SpeechFrames++
	}
}

func (c *collector) frameDropped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.FramesDropped++
}

// markSpeechEnd starts the latency clock for the turn being finalized.
func (c *collector) markSpeechEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.Utterances++
	c.speechEnd = time.Now()
	c.firstAudio = false
	c.m.ASRLatency = 0
	c.m.FirstAudio = 0
	c.m.TurnTotal = 0
}

func (c *collector) markTranscript(empty bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if empty {
		c.m.EmptyTranscripts++
	}
	if !c.speechEnd.IsZero() {
		c.m.ASRLatency = time.Since(c.speechEnd)
	}
}

func (c *collector) markGeneration() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.Generations++
}

func (c *collector) markFirstAudio() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.firstAudio && !c.speechEnd.IsZero() {
		c.firstAudio = true
		c.m.FirstAudio = time.Since(c.speechEnd)
	}
}

func (c *collector) markTurnDone() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.speechEnd.IsZero() {
		c.m.TurnTotal = time.Since(c.speechEnd)
	}
}

func (c *collector) cancellation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.Cancellations++
}

func (c *collector) turnError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.Errors++
}

func (c *collector) eventOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.EventsOut++
}

func (c *collector) eventDropped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.EventsDropped++
}

// snapshot returns a copy of the current metrics.
func (c *collector) snapshot() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m
}
