// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

// runHub starts RunWithContext and returns a cancel that waits for
// the hub to stop.
func runHub(t *testing.T, h *Hub) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = h.RunWithContext(ctx)
		close(done)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("hub did not stop")
		}
	}
}

// register blocks until the hub has picked up the client.
func register(t *testing.T, h *Hub, c *Client) {
	t.Helper()

	h.Register <- c
	deadline := time.Now().Add(time.Second)
	for h.GetClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}
}

func testClient() *Client {
	return &Client{id: clientIDCounter.Add(1), send: make(chan Message, 256)}
}

func TestHubRegisterUnregister(t *testing.T) {
	h := NewHub()
	stop := runHub(t, h)
	defer stop()

	c := testClient()
	register(t, h, c)
	if got := h.GetClientCount(); got != 1 {
		t.Fatalf("client count = %d, want 1", got)
	}

	h.Unregister <- c
	deadline := time.Now().Add(time.Second)
	for h.GetClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never unregistered")
		}
		time.Sleep(time.Millisecond)
	}

	// The send channel must be closed so the write pump exits.
	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("send channel delivered a frame instead of closing")
		}
	case <-time.After(time.Second):
		t.Error("send channel not closed on unregister")
	}
}

func TestHubUnregisterUnknownClient(t *testing.T) {
	h := NewHub()
	stop := runHub(t, h)
	defer stop()

	// Must not panic or close anything.
	h.Unregister <- testClient()
	time.Sleep(10 * time.Millisecond)
	if got := h.GetClientCount(); got != 0 {
		t.Errorf("client count = %d, want 0", got)
	}
}

func TestHubBroadcastDelivers(t *testing.T) {
	h := NewHub()
	stop := runHub(t, h)
	defer stop()

	c1 := testClient()
	c2 := testClient()
	register(t, h, c1)
	h.Register <- c2

	h.BroadcastJSON(MessageTypeRenderCompleted, map[string]int64{"arenaUniqueID": 1001})

	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.send:
			if msg.Type != MessageTypeRenderCompleted {
				t.Errorf("message type = %q, want %q", msg.Type, MessageTypeRenderCompleted)
			}
		case <-time.After(time.Second):
			t.Fatal("client never received the broadcast")
		}
	}
}

func TestHubBroadcastRawMapsTopics(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"replay.persisted", MessageTypeReplayPersisted},
		{"render.completed", MessageTypeRenderCompleted},
		{"replay.failed", MessageTypeReplayFailed},
		{"replay.uploaded", MessageTypeEvent},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			h := NewHub()
			stop := runHub(t, h)
			defer stop()

			c := testClient()
			register(t, h, c)

			frame, err := json.Marshal(map[string]interface{}{
				"topic": tt.topic,
				"event": map[string]int64{"arenaUniqueID": 1001},
			})
			if err != nil {
				t.Fatalf("marshal frame: %v", err)
			}
			h.BroadcastRaw(frame)

			select {
			case msg := <-c.send:
				if msg.Type != tt.want {
					t.Errorf("message type = %q, want %q", msg.Type, tt.want)
				}
			case <-time.After(time.Second):
				t.Fatal("client never received the frame")
			}
		})
	}
}

func TestHubBroadcastRawRejectsGarbage(t *testing.T) {
	h := NewHub()
	stop := runHub(t, h)
	defer stop()

	c := testClient()
	register(t, h, c)

	h.BroadcastRaw([]byte("not json"))

	select {
	case msg := <-c.send:
		t.Errorf("received %+v from an unparseable frame", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	h := NewHub()

	slow := &Client{id: clientIDCounter.Add(1), send: make(chan Message)} // unbuffered, never read
	fast := testClient()
	h.clients[slow] = true
	h.clients[fast] = true

	h.broadcastToClients(Message{Type: MessageTypeReplayPersisted})

	if _, ok := h.clients[slow]; ok {
		t.Error("slow client survived the broadcast")
	}
	if _, ok := h.clients[fast]; !ok {
		t.Error("fast client was dropped")
	}
	if len(fast.send) != 1 {
		t.Errorf("fast client buffered %d frames, want 1", len(fast.send))
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	h := NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.RunWithContext(ctx) }()

	c := testClient()
	register(t, h, c)

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("RunWithContext returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop on cancel")
	}

	if got := h.GetClientCount(); got != 0 {
		t.Errorf("client count = %d after shutdown, want 0", got)
	}
	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("send channel delivered a frame instead of closing")
		}
	default:
		t.Error("send channel not closed on shutdown")
	}
}

func TestMarshalMessage(t *testing.T) {
	data, err := MarshalMessage(Message{Type: MessageTypePong})
	if err != nil {
		t.Fatalf("MarshalMessage failed: %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Type != MessageTypePong {
		t.Errorf("Type = %q, want %q", decoded.Type, MessageTypePong)
	}
}
