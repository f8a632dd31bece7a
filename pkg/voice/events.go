package voice

// State is the session state machine value.
type State int32

const (
	// StateIdle means no speech is being captured or generated.
	StateIdle State = iota

	// StateListening means speech was detected and an utterance is
	// accumulating; a silence timer decides when it is complete.
	StateListening

	// StateFinalizing means the utterance was dispatched to STT.
	StateFinalizing

	// StateResponding means an LLM generation is streaming out.
	StateResponding

	// StateStopped is terminal.
	StateStopped
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateFinalizing:
		return "finalizing"
	case StateResponding:
		return "responding"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// EventType identifies an outbound event.
type EventType string

const (
	// EventAudio carries one synthesized sentence of PCM16 audio.
	EventAudio EventType = "audio"

	// EventStatus reports a phase change for client UI.
	EventStatus EventType = "status"

	// EventClearBuffer tells the transport to discard already-sent audio
	// that barge-in made stale.
	EventClearBuffer EventType = "clear_buffer"

	// EventError reports a failed turn. The session stays alive.
	EventError EventType = "error"
)

// Phase is the user-visible pipeline phase carried by status events.
type Phase string

const (
	PhaseListening Phase = "listening"
	PhaseThinking  Phase = "thinking"
	PhaseSpeaking  Phase = "speaking"
)

// Event is one outbound queue item, JSON-serializable for the transport.
// Audio marshals as base64.
type Event struct {
	Type       EventType `json:"type"`
	Phase      Phase     `json:"phase,omitempty"`
	Audio      []byte    `json:"data,omitempty"`
	Text       string    `json:"text,omitempty"`
	Generation int64     `json:"generation_id,omitempty"`
	Message    string    `json:"message,omitempty"`
}

// ClientEvent is an inbound control event from the transport.
type ClientEvent struct {
	Type  string `json:"type"`
	Muted bool   `json:"muted"`
}

// ClientEventMute is the mute/push-to-talk toggle. Engaging mute while
// listening force-flushes the buffered utterance to STT.
const ClientEventMute = "mute_changed"
