// Package hub fans session activity out to observer WebSocket clients
// using a channel-based broadcast loop.
package hub

import (
	"encoding/json"
	"time"
)

// MessageType indicates the websocket frame format.
type MessageType int

const (
	// JSONMessage is a JSON-encoded message.
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data.
	BinaryMessage
)

// Message is one frame to broadcast to every observer.
type Message struct {
	Type MessageType
	Data []byte
}

// Update is one session activity notification shown on dashboards.
type Update struct {
	// Event names what happened: session_started, session_stopped,
	// phase, transcript, error.
	Event string `json:"event"`

	// Session is the originating session id.
	Session string `json:"session,omitempty"`

	// Phase carries the pipeline phase for phase events.
	Phase string `json:"phase,omitempty"`

	// Text carries transcript or error text.
	Text string `json:"text,omitempty"`

	// Time is the event time in Unix milliseconds.
	Time int64 `json:"time"`
}

// NewUpdate stamps an Update with the current time.
func NewUpdate(event, session string) Update {
	return Update{Event: event, Session: session, Time: time.Now().UnixMilli()}
}

// encode marshals the update for the wire.
func (u Update) encode() (Message, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: JSONMessage, Data: data}, nil
}
