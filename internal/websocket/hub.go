// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/navarchus/internal/logging"
	"github.com/tomtom215/navarchus/internal/metrics"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown
	// path (SIGTERM through the supervisor).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline means the shutdown deadline hit
	// before the hub drained.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types pushed to clients. The pipeline lifecycle types mirror
// the topics the fanout consumer subscribes to.
const (
	MessageTypeReplayPersisted = "replay_persisted"
	MessageTypeRenderCompleted = "render_completed"
	MessageTypeReplayFailed    = "replay_failed"
	MessageTypeEvent           = "event"
	MessageTypePing            = "ping"
	MessageTypePong            = "pong"
)

// topicMessageTypes maps pipeline topics to client-facing message
// types. Unknown topics fall back to the generic "event" type.
var topicMessageTypes = map[string]string{
	"replay.persisted": MessageTypeReplayPersisted,
	"render.completed": MessageTypeRenderCompleted,
	"replay.failed":    MessageTypeReplayFailed,
}

// Message is one frame on the wire, either direction.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub tracks connected clients and fans broadcast frames out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an empty hub. Run or RunWithContext must be started
// before clients connect.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run drives the hub without shutdown support.
//
// Deprecated: Use RunWithContext under the supervisor.
func (h *Hub) Run() {
	for {
		// Lifecycle events drain before broadcasts so a frame never
		// races a registration that is already queued.
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// RunWithContext drives the hub until ctx ends, then closes every
// client and returns ctx.Err() so the supervisor sees a clean stop.
// Cancellation outranks lifecycle events, which outrank broadcasts.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("WebSocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Int("total_clients", total).Msg("WebSocket client disconnected")
}

// shutdown closes every client and logs the stop. ctx.Err() is not
// logged as an error; a canceled context is the expected stop signal.
func (h *Hub) shutdown(ctx context.Context) {
	count := h.GetClientCount()
	h.closeAllClients()

	reason := ShutdownReasonContextCanceled
	if ctx.Err() == context.DeadlineExceeded {
		reason = ShutdownReasonContextDeadline
	}

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(reason)).
		Int("clients_closed", count).
		Msg("WebSocket hub stopped")
}

// broadcastToClients delivers one frame to every client in id order.
// A client whose send buffer is full is dropped; a stalled consumer
// must not hold event delivery for everyone else.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.WSErrors.WithLabelValues("slow_consumer").Inc()
	}
	if len(toRemove) > 0 {
		metrics.WSConnections.Set(float64(len(h.clients)))
		logging.Warn().Int("dropped", len(toRemove)).Msg("Dropped slow WebSocket clients")
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSConnections.Set(0)
}

// BroadcastJSON queues one typed frame for every client. A full
// broadcast queue drops the frame; clients reconcile through the
// search API.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	message := Message{Type: messageType, Data: data}

	select {
	case h.broadcast <- message:
	default:
		metrics.WSErrors.WithLabelValues("broadcast_full").Inc()
		logging.Warn().Str("message_type", messageType).Msg("Broadcast channel full, dropping frame")
	}
}

// pipelineFrame is the shape the fanout consumer hands to
// BroadcastRaw: the source topic plus the event payload.
type pipelineFrame struct {
	Topic string          `json:"topic"`
	Event json.RawMessage `json:"event"`
}

// BroadcastRaw queues a pipeline event frame for every client,
// translating the topic into the client-facing message type. This is
// the pipeline.Broadcaster implementation.
func (h *Hub) BroadcastRaw(data []byte) {
	var frame pipelineFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		metrics.WSErrors.WithLabelValues("bad_frame").Inc()
		logging.Warn().Err(err).Msg("Unparseable pipeline frame, dropping")
		return
	}

	messageType, ok := topicMessageTypes[frame.Topic]
	if !ok {
		messageType = MessageTypeEvent
	}
	h.BroadcastJSON(messageType, frame.Event)
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// MarshalMessage converts a message to its wire form.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
