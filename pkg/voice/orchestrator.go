package voice

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aria-voice/go-aria/pkg/llm"
	"github.com/aria-voice/go-aria/pkg/sentence"
)

// generation is one LLM response cycle. Cancelling its context stops every
// downstream stage; the outbound enqueue re-checks it so late TTS results
// from a cancelled generation are discarded.
type generation struct {
	id     int64
	ctx    context.Context
	cancel context.CancelFunc
}

// Orchestrator runs one voice session: a state machine over an inbound audio
// queue and an outbound event queue, composing VAD, sentence segmentation and
// the STT/LLM/TTS providers into a cancellable pipeline.
type Orchestrator struct {
	id   string
	cfg  Config
	deps Deps

	inbound chan []int16
	control chan ClientEvent
	events  chan Event

	mu       sync.Mutex
	state    State
	speaking bool
	muted    bool
	started  bool
	gen      *generation
	nextGen  int64

	// Owned by the run loop.
	utterance []int16
	padding   *frameRing
	silence   *time.Timer

	history *llm.History
	metrics *collector
	logger  *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a session orchestrator. Call Start to begin processing.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := deps.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	padFrames := int(cfg.PrefixPadding / cfg.FrameDuration)

	history := llm.NewHistory(cfg.HistoryLimit)
	if cfg.SystemPrompt != "" {
		history.Add(llm.RoleSystem, cfg.SystemPrompt)
	}

	return &Orchestrator{
		id:      id,
		cfg:     cfg,
		deps:    deps,
		inbound: make(chan []int16, cfg.InboundQueueSize),
		control: make(chan ClientEvent, 8),
		events:  make(chan Event, cfg.OutboundQueueSize),
		padding: newFrameRing(padFrames),
		history: history,
		metrics: newCollector(),
		logger:  slog.Default().With("component", "voice", "session", id[:8]),
		done:    make(chan struct{}),
	}, nil
}

// ID returns the session identifier.
func (o *Orchestrator) ID() string {
	return o.id
}

// Start launches the session loop. The loop exits when ctx is cancelled or
// Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateStopped {
		return ErrStopped
	}
	if o.started {
		return ErrAlreadyStarted
	}
	o.started = true
	o.ctx, o.cancel = context.WithCancel(ctx)
	go o.run()
	return nil
}

// PushAudio enqueues one PCM16 frame without blocking. When the inbound
// queue is full the frame is dropped and ErrQueueFull returned; capture must
// never stall behind response generation.
func (o *Orchestrator) PushAudio(frame []int16) error {
	o.mu.Lock()
	if !o.started || o.state == StateStopped {
		o.mu.Unlock()
		return ErrStopped
	}
	o.mu.Unlock()

	select {
	case o.inbound <- frame:
		return nil
	default:
		o.metrics.frameDropped()
		return ErrQueueFull
	}
}

// HandleClientEvent delivers a control event from the transport.
func (o *Orchestrator) HandleClientEvent(ev ClientEvent) error {
	if ev.Type != ClientEventMute {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}

	o.mu.Lock()
	if !o.started || o.state == StateStopped {
		o.mu.Unlock()
		return ErrStopped
	}
	o.mu.Unlock()

	select {
	case o.control <- ev:
		return nil
	case <-o.ctx.Done():
		return ErrStopped
	}
}

// Events returns the outbound queue. It is closed by Stop.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// State returns the current state machine value.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// IsSpeaking reports whether synthesized audio is currently being emitted.
func (o *Orchestrator) IsSpeaking() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.speaking
}

// Muted reports whether the client has the mic closed.
func (o *Orchestrator) Muted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.muted
}

// Metrics returns a snapshot of the session counters.
func (o *Orchestrator) Metrics() Metrics {
	return o.metrics.snapshot()
}

// Stop cancels the active generation, shuts down the session loop and closes
// the event queue. Safe to call more than once.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		o.mu.Lock()
		o.state = StateStopped
		o.speaking = false
		if o.gen != nil {
			o.gen.cancel()
			o.gen = nil
		}
		started := o.started
		o.mu.Unlock()

		if started {
			o.cancel()
			<-o.done
			o.wg.Wait()
		}
		o.deps.Detector.Reset()
		close(o.events)
		o.logger.Debug("session stopped")
	})
}

// run is the session loop: one logical worker draining the inbound frame
// queue, control events and the silence timer in arrival order.
func (o *Orchestrator) run() {
	defer close(o.done)
	for {
		select {
		case <-o.ctx.Done():
			return
		case frame := <-o.inbound:
			o.handleFrame(frame)
		case ev := <-o.control:
			o.handleControl(ev)
		case <-o.silenceC():
			o.finalize()
		}
	}
}

func (o *Orchestrator) handleFrame(frame []int16) {
	speech := o.deps.Detector.Process(frame)
	o.metrics.frameIn(speech)

	o.mu.Lock()
	state := o.state
	speaking := o.speaking
	muted := o.muted
	o.mu.Unlock()

	// Muted speech frames never barge in: loudspeaker echo while the user
	// has the mic closed must not cancel the reply in flight.
	if speaking && speech && !muted {
		o.bargeIn(frame)
		return
	}

	switch state {
	case StateListening:
		o.utterance = append(o.utterance, frame...)
		if speech {
			o.resetSilence()
		}
	case StateIdle:
		if speech && !muted {
			o.beginListening(frame)
		} else {
			o.padding.push(frame)
		}
	default:
		// Finalizing or responding without barge-in: keep the padding
		// ring fresh for the next utterance.
		o.padding.push(frame)
	}
}

// beginListening opens a new utterance seeded with the pre-speech padding.
// A nil frame opens the mic without a VAD verdict (push-to-talk).
func (o *Orchestrator) beginListening(frame []int16) {
	o.mu.Lock()
	o.state = StateListening
	o.mu.Unlock()

	o.utterance = append(o.padding.drain(), frame...)
	o.resetSilence()
	o.emit(Event{Type: EventStatus, Phase: PhaseListening})
	o.logger.Debug("listening", "seed_samples", len(o.utterance))
}

// bargeIn handles the user speaking over an active reply: cancel the
// generation, tell the transport to drop stale audio, start a new utterance.
func (o *Orchestrator) bargeIn(frame []int16) {
	o.mu.Lock()
	gen := o.gen
	if gen != nil {
		gen.cancel()
		o.gen = nil
	}
	o.speaking = false
	o.state = StateListening
	o.mu.Unlock()

	if gen != nil {
		o.metrics.cancellation()
		o.logger.Info("barge-in", "generation", gen.id)
	}
	o.emit(Event{Type: EventClearBuffer})

	o.utterance = append(o.padding.drain(), frame...)
	o.resetSilence()
	o.emit(Event{Type: EventStatus, Phase: PhaseListening})
}

func (o *Orchestrator) handleControl(ev ClientEvent) {
	o.mu.Lock()
	o.muted = ev.Muted
	state := o.state
	o.mu.Unlock()

	if ev.Muted {
		// Engaging mute while listening force-flushes the utterance even
		// if VAD never fired. Short or quiet push-to-talk turns depend on
		// this. While a reply is in flight the mute flag updates but does
		// not flush.
		if state == StateListening {
			o.finalize()
		}
		return
	}

	// Unmute opens the mic immediately. Capture must not wait for a VAD
	// verdict or speech too quiet for the detector is lost.
	if state == StateIdle {
		o.beginListening(nil)
	}
}

// finalize closes the current utterance and dispatches it to the pipeline.
func (o *Orchestrator) finalize() {
	o.stopSilence()

	o.mu.Lock()
	if o.state != StateListening {
		o.mu.Unlock()
		return
	}
	o.state = StateFinalizing
	o.mu.Unlock()

	audio := pcmBytes(o.utterance)
	o.utterance = nil
	if len(audio) == 0 {
		o.toIdle(nil)
		return
	}
	o.metrics.markSpeechEnd()
	o.emit(Event{Type: EventStatus, Phase: PhaseThinking})
	o.logger.Debug("utterance complete", "bytes", len(audio))

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.respond(audio)
	}()
}

// respond runs one turn: STT, then an LLM generation streamed through the
// sentence segmenter into TTS. Runs off the session loop so inbound audio
// keeps draining while the reply is produced.
func (o *Orchestrator) respond(audio []byte) {
	ctx, cancel := context.WithTimeout(o.ctx, o.cfg.CallTimeout)
	res, err := o.deps.STT.Transcribe(ctx, audio)
	cancel()
	if err != nil {
		o.failTurn(nil, fmt.Errorf("transcribe: %w", err))
		return
	}
	if o.ctx.Err() != nil {
		return
	}

	text := strings.TrimSpace(res.Text)
	o.metrics.markTranscript(text == "")
	if text == "" {
		o.logger.Debug("empty transcript, skipping turn")
		o.toIdle(nil)
		return
	}
	o.logger.Info("transcript", "text", text, "latency_ms", res.LatencyMs)

	gen := o.newGeneration()
	if gen == nil {
		return
	}
	o.history.Add(llm.RoleUser, text)

	reply, err := o.streamReply(gen)
	if err != nil {
		if gen.ctx.Err() != nil {
			// Cancelled by barge-in or stop; nothing to report.
			return
		}
		o.failTurn(gen, err)
		return
	}

	if reply != "" {
		o.history.Add(llm.RoleAssistant, reply)
	}
	o.metrics.markTurnDone()
	o.toIdle(gen)
}

// newGeneration allocates the next generation id and enters the responding
// state. Returns nil if the session moved on while STT was running.
func (o *Orchestrator) newGeneration() *generation {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateFinalizing {
		return nil
	}
	o.nextGen++
	ctx, cancel := context.WithCancel(o.ctx)
	g := &generation{id: o.nextGen, ctx: ctx, cancel: cancel}
	o.gen = g
	o.state = StateResponding
	o.metrics.markGeneration()
	return g
}

// streamReply drains the LLM token stream through a fresh sentence buffer,
// synthesizing each speakable sentence as it completes. Returns the full
// reply text for the conversation history.
func (o *Orchestrator) streamReply(g *generation) (string, error) {
	sctx, cancel := context.WithTimeout(g.ctx, o.cfg.StreamTimeout)
	defer cancel()

	stream, err := o.deps.LLM.Stream(sctx, &llm.ChatRequest{Messages: o.history.Messages()})
	if err != nil {
		return "", fmt.Errorf("llm stream: %w", err)
	}
	defer stream.Close()

	buf := sentence.NewBuffer()
	var reply strings.Builder
	for {
		chunk, err := stream.Recv()
		if err != nil {
			return reply.String(), fmt.Errorf("llm recv: %w", err)
		}
		if g.ctx.Err() != nil {
			return reply.String(), g.ctx.Err()
		}
		// The final chunk may carry both the last delta and the done flag.
		if chunk.Delta != "" {
			reply.WriteString(chunk.Delta)
			for _, s := range buf.Push(chunk.Delta) {
				if err := o.speak(g, s); err != nil {
					return reply.String(), err
				}
			}
		}
		if chunk.Done {
			break
		}
	}
	for _, s := range buf.Flush() {
		if err := o.speak(g, s); err != nil {
			return reply.String(), err
		}
	}
	return reply.String(), nil
}

// speak synthesizes one sentence and enqueues the audio for the transport.
func (o *Orchestrator) speak(g *generation, text string) error {
	if g.ctx.Err() != nil {
		return g.ctx.Err()
	}

	ctx, cancel := context.WithTimeout(g.ctx, o.cfg.CallTimeout)
	res, err := o.deps.TTS.Synthesize(ctx, text)
	cancel()
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	if o.emitGen(g, Event{Type: EventAudio, Audio: res.Audio, Text: text, Generation: g.id}) {
		o.metrics.markFirstAudio()
		o.setSpeaking(g)
	}
	return nil
}

// toIdle returns the session to idle after a completed turn. A nil gen means
// the turn ended before a generation was allocated.
func (o *Orchestrator) toIdle(g *generation) {
	o.mu.Lock()
	if o.state == StateStopped {
		o.mu.Unlock()
		return
	}
	if g != nil {
		if o.gen != g {
			o.mu.Unlock()
			return
		}
		o.gen = nil
		g.cancel()
	} else if o.state != StateFinalizing {
		o.mu.Unlock()
		return
	}
	o.speaking = false
	o.state = StateIdle
	o.mu.Unlock()
}

// failTurn aborts the current turn, surfaces an error event, and recovers
// the session to idle. One failed turn never kills the loop.
func (o *Orchestrator) failTurn(g *generation, err error) {
	o.logger.Error("turn failed", "error", err)
	o.metrics.turnError()

	o.mu.Lock()
	if g != nil && o.gen == g {
		o.gen = nil
		g.cancel()
	}
	if o.state == StateFinalizing || o.state == StateResponding {
		o.state = StateIdle
	}
	o.speaking = false
	o.mu.Unlock()

	o.emit(Event{Type: EventError, Message: err.Error()})
}

// setSpeaking flips is_speaking on the first audio chunk of a generation.
func (o *Orchestrator) setSpeaking(g *generation) {
	o.mu.Lock()
	if o.gen != g || o.speaking {
		o.mu.Unlock()
		return
	}
	o.speaking = true
	o.mu.Unlock()
	o.emit(Event{Type: EventStatus, Phase: PhaseSpeaking})
}

// emit enqueues a session-level event, dropping it if the transport has
// fallen behind.
func (o *Orchestrator) emit(ev Event) {
	select {
	case o.events <- ev:
		o.metrics.eventOut()
	default:
		o.metrics.eventDropped()
		o.logger.Warn("outbound queue full, event dropped", "type", ev.Type)
	}
}

// emitGen enqueues a generation-tagged event. The cancellation check and the
// enqueue happen under the session lock, so a generation cancelled by
// barge-in can never slip audio past the clear_buffer event: this boundary
// is authoritative even when an upstream stage missed the cancellation.
func (o *Orchestrator) emitGen(g *generation, ev Event) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if g.ctx.Err() != nil {
		return false
	}
	select {
	case o.events <- ev:
		o.metrics.eventOut()
		return true
	default:
		o.metrics.eventDropped()
		o.logger.Warn("outbound queue full, audio dropped", "generation", g.id)
		return true
	}
}

// resetSilence arms or re-arms the end-of-utterance timer. Run-loop only.
func (o *Orchestrator) resetSilence() {
	if o.silence == nil {
		o.silence = time.NewTimer(o.cfg.SilenceDuration)
		return
	}
	if !o.silence.Stop() {
		select {
		case <-o.silence.C:
		default:
		}
	}
	o.silence.Reset(o.cfg.SilenceDuration)
}

// stopSilence disarms the timer without firing. Run-loop only.
func (o *Orchestrator) stopSilence() {
	if o.silence == nil {
		return
	}
	if !o.silence.Stop() {
		select {
		case <-o.silence.C:
		default:
		}
	}
}

func (o *Orchestrator) silenceC() <-chan time.Time {
	if o.silence == nil {
		return nil
	}
	return o.silence.C
}

// frameRing keeps the last N audio frames so an utterance can start slightly
// before the first speech-positive frame.
type frameRing struct {
	frames [][]int16
	limit  int
}

func newFrameRing(limit int) *frameRing {
	if limit < 0 {
		limit = 0
	}
	return &frameRing{limit: limit}
}

func (r *frameRing) push(frame []int16) {
	if r.limit == 0 {
		return
	}
	c := make([]int16, len(frame))
	copy(c, frame)
	r.frames = append(r.frames, c)
	if len(r.frames) > r.limit {
		r.frames = r.frames[1:]
	}
}

func (r *frameRing) drain() []int16 {
	var out []int16
	for _, f := range r.frames {
		out = append(out, f...)
	}
	r.frames = nil
	return out
}

// pcmBytes converts samples to little-endian PCM16 for the STT provider.
func pcmBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
