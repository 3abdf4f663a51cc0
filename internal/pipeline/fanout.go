// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package pipeline

import (
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
)

// Broadcaster pushes a frame to every connected websocket client.
type Broadcaster interface {
	BroadcastRaw(data []byte)
}

// wsFrame wraps an event payload with its topic so clients route
// frames without knowing the payload shapes.
type wsFrame struct {
	Topic string          `json:"topic"`
	Event json.RawMessage `json:"event"`
}

// FanoutHandler relays pipeline events to websocket clients. It never
// returns an error; a dropped frame is not worth a redelivery, clients
// reconcile through the search API anyway.
type FanoutHandler struct {
	broadcaster Broadcaster
	logger      watermill.LoggerAdapter

	messagesReceived atomic.Int64
	broadcasts       atomic.Int64
}

// NewFanoutHandler creates the fanout handler.
func NewFanoutHandler(broadcaster Broadcaster, logger watermill.LoggerAdapter) (*FanoutHandler, error) {
	if broadcaster == nil {
		return nil, ErrNilBroadcaster
	}
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}
	return &FanoutHandler{
		broadcaster: broadcaster,
		logger:      logger,
	}, nil
}

// HandlerFor returns a consumer handler that broadcasts every message
// on topic, framed with the topic name.
func (h *FanoutHandler) HandlerFor(topic string) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		h.messagesReceived.Add(1)

		frame, err := json.Marshal(wsFrame{
			Topic: topic,
			Event: json.RawMessage(msg.Payload),
		})
		if err != nil {
			h.logger.Error("Failed to frame event for broadcast", err, watermill.LogFields{
				"topic":        topic,
				"message_uuid": msg.UUID,
			})
			return nil
		}

		h.broadcaster.BroadcastRaw(frame)
		h.broadcasts.Add(1)
		return nil
	}
}

// Stats returns runtime counters.
func (h *FanoutHandler) Stats() FanoutStats {
	return FanoutStats{
		MessagesReceived: h.messagesReceived.Load(),
		Broadcasts:       h.broadcasts.Load(),
	}
}

// FanoutStats holds runtime statistics.
type FanoutStats struct {
	MessagesReceived int64
	Broadcasts       int64
}
