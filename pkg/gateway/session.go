package gateway

import (
	"context"
	"encoding/binary"
	"encoding/json"

	"github.com/gofiber/websocket/v2"

	"github.com/aria-voice/go-aria/pkg/hub"
	"github.com/aria-voice/go-aria/pkg/voice"
)

// handleSessionWS runs one voice session over a websocket: binary frames are
// PCM16 audio into the orchestrator, text frames are JSON control events, and
// orchestrator events stream back as JSON.
func (s *Server) handleSessionWS(c *websocket.Conn) {
	orch, err := s.factory()
	if err != nil {
		s.logger.Error("create session", "error", err)
		c.WriteJSON(voice.Event{Type: voice.EventError, Message: "session unavailable"})
		c.Close()
		return
	}
	if err := orch.Start(context.Background()); err != nil {
		s.logger.Error("start session", "error", err)
		c.Close()
		return
	}

	id := orch.ID()
	s.addSession(orch)
	s.observers.Announce(hub.NewUpdate("session_started", id))
	s.logger.Info("session connected", "session", id[:8])

	defer func() {
		orch.Stop()
		s.removeSession(id)
		s.observers.Announce(hub.NewUpdate("session_stopped", id))
		s.logger.Info("session closed", "session", id[:8])
		c.Close()
	}()

	// Writer pump: the only goroutine writing to this connection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range orch.Events() {
			if err := c.WriteJSON(ev); err != nil {
				return
			}
			s.announce(id, ev)
		}
	}()

	for {
		msgType, data, err := c.ReadMessage()
		if err != nil {
			break
		}
		switch msgType {
		case websocket.BinaryMessage:
			if err := orch.PushAudio(pcmSamples(data)); err != nil {
				// Dropped frames are expected under load; anything
				// else ends the session.
				if err != voice.ErrQueueFull {
					s.logger.Warn("push audio", "session", id[:8], "error", err)
				}
			}
		case websocket.TextMessage:
			var ev voice.ClientEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				s.logger.Warn("bad client event", "session", id[:8], "error", err)
				continue
			}
			if err := orch.HandleClientEvent(ev); err != nil {
				s.logger.Warn("client event", "session", id[:8], "error", err)
			}
		}
	}

	orch.Stop()
	<-done
}

// announce mirrors interesting session events to the observer hub.
func (s *Server) announce(id string, ev voice.Event) {
	switch ev.Type {
	case voice.EventStatus:
		u := hub.NewUpdate("phase", id)
		u.Phase = string(ev.Phase)
		s.observers.Announce(u)
	case voice.EventAudio:
		u := hub.NewUpdate("speech", id)
		u.Text = ev.Text
		s.observers.Announce(u)
	case voice.EventError:
		u := hub.NewUpdate("error", id)
		u.Text = ev.Message
		s.observers.Announce(u)
	}
}

// pcmSamples decodes little-endian PCM16 into samples.
func pcmSamples(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}
