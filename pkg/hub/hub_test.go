package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestUpdateEncode(t *testing.T) {
	u := NewUpdate("phase", "abc123")
	u.Phase = "speaking"

	msg, err := u.encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Type != JSONMessage {
		t.Errorf("expected JSON message type, got %d", msg.Type)
	}

	var decoded Update
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.Event != "phase" || decoded.Session != "abc123" || decoded.Phase != "speaking" {
		t.Errorf("unexpected decoded update: %+v", decoded)
	}
	if decoded.Time == 0 {
		t.Error("expected a timestamp")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub loop did not exit on cancel")
	}
}

func TestBroadcastWithoutClients(t *testing.T) {
	h := New()
	// No loop running: the bounded queue absorbs updates, then drops.
	for i := 0; i < 300; i++ {
		h.Announce(NewUpdate("phase", "s"))
	}
	if h.ClientCount() != 0 {
		t.Errorf("expected no clients, got %d", h.ClientCount())
	}
}
